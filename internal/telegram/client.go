// Package telegram wraps the MTProto client with the high-level operations
// the scraper needs: channel resolution, ascending history walks and
// participant role lookups.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/sessionMaker"
	"github.com/glebarez/sqlite"
	"github.com/gotd/td/tg"

	"github.com/x5gtrn/tg-channel-scraper/internal/config"
	"github.com/x5gtrn/tg-channel-scraper/internal/logger"
)

// Client wraps a gotgproto client and provides channel scraping operations.
type Client struct {
	proto       *gotgproto.Client
	rateLimiter *RateLimiter
	batchSize   int
	log         *logger.Logger

	// access hashes of user entities seen in history responses, keyed by
	// user id; participant lookups need them for authors the session has
	// not met elsewhere
	hashMu     sync.Mutex
	userHashes map[int64]int64
}

// NewClient connects and authorizes against telegram. On first run
// gotgproto prompts for the login code (and 2FA password) on the terminal;
// afterwards the session is restored from the sqlite session store.
func NewClient(cfg *config.Config) (*Client, error) {
	proto, err := gotgproto.NewClient(
		cfg.APIID,
		cfg.APIHash,
		gotgproto.ClientTypePhone(cfg.Phone),
		&gotgproto.ClientOpts{
			Session:          sessionMaker.SqlSession(sqlite.Open(cfg.SessionName)),
			DisableCopyright: true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("create telegram client: %w", err)
	}

	batch := cfg.BatchSize
	if batch <= 0 || batch > 100 {
		batch = 100 // telegram api limit
	}

	return &Client{
		proto:       proto,
		rateLimiter: DefaultRateLimiter(),
		batchSize:   batch,
		log:         logger.Get(),
		userHashes:  make(map[int64]int64),
	}, nil
}

// Close stops the underlying client.
func (c *Client) Close() {
	if c.proto != nil {
		c.proto.Stop()
	}
}

// SelfID returns the authorized account's user id.
func (c *Client) SelfID() int64 {
	return c.proto.Self.ID
}

// SelfName returns the authorized account's first name and username.
func (c *Client) SelfName() (string, string) {
	return c.proto.Self.FirstName, c.proto.Self.Username
}

// ResolveChannel resolves a channel reference to channel metadata.
// The reference may be a username (with or without @) or a numeric id of a
// channel already known to the session.
func (c *Client) ResolveChannel(ctx context.Context, ref string) (*Channel, error) {
	ref = strings.TrimPrefix(ref, "@")

	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return c.resolveByID(ctx, id)
	}
	return c.resolveByUsername(ctx, ref)
}

func (c *Client) resolveByUsername(ctx context.Context, username string) (*Channel, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	c.log.Debug().Str("username", username).Msg("telegram: resolving channel username")
	resolved, err := c.proto.API().ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
		Username: username,
	})
	if err != nil {
		if wait := FloodWaitSeconds(err); wait > 0 {
			c.rateLimiter.SetFloodWait(wait)
		}
		return nil, mapResolveError(err, username)
	}

	if len(resolved.Chats) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, username)
	}

	ch, ok := resolved.Chats[0].(*tg.Channel)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotAChannel, username)
	}

	return &Channel{
		ID:         ch.ID,
		AccessHash: ch.AccessHash,
		Username:   username,
		Title:      ch.Title,
	}, nil
}

// resolveByID finds a channel by numeric id among the account's dialogs.
// Numeric ids are only usable for channels the session has already seen.
func (c *Client) resolveByID(ctx context.Context, id int64) (*Channel, error) {
	channels, err := c.ListBroadcastChannels(ctx)
	if err != nil {
		return nil, err
	}

	for i := range channels {
		if channels[i].ID == id {
			return &channels[i], nil
		}
	}
	return nil, fmt.Errorf("%w: id %d not among joined channels", ErrChannelNotFound, id)
}

// ListBroadcastChannels returns the broadcast channels the account has
// joined, walking the full dialog list.
func (c *Client) ListBroadcastChannels(ctx context.Context) ([]Channel, error) {
	var (
		out        []Channel
		seen       = make(map[int64]bool)
		offsetDate int
		offsetID   int
		offsetPeer tg.InputPeerClass = &tg.InputPeerEmpty{}
	)

	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		res, err := c.proto.API().MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
			OffsetDate: offsetDate,
			OffsetID:   offsetID,
			OffsetPeer: offsetPeer,
			Limit:      100,
		})
		if err != nil {
			if wait := FloodWaitSeconds(err); wait > 0 {
				c.rateLimiter.SetFloodWait(wait)
			}
			return nil, fmt.Errorf("get dialogs: %w", err)
		}

		var (
			dialogs  []tg.DialogClass
			chats    []tg.ChatClass
			messages []tg.MessageClass
			complete bool
		)
		switch d := res.(type) {
		case *tg.MessagesDialogs:
			dialogs, chats, messages, complete = d.Dialogs, d.Chats, d.Messages, true
		case *tg.MessagesDialogsSlice:
			dialogs, chats, messages = d.Dialogs, d.Chats, d.Messages
		default:
			return out, nil
		}

		for _, chat := range chats {
			ch, ok := chat.(*tg.Channel)
			if !ok || !ch.Broadcast || ch.Left || seen[ch.ID] {
				continue
			}
			seen[ch.ID] = true
			out = append(out, Channel{
				ID:         ch.ID,
				AccessHash: ch.AccessHash,
				Username:   ch.Username,
				Title:      ch.Title,
			})
		}

		if complete || len(dialogs) == 0 {
			return out, nil
		}

		// advance offsets from the last dialog's top message
		last, ok := dialogs[len(dialogs)-1].(*tg.Dialog)
		if !ok {
			return out, nil
		}
		offsetPeer = peerToInputPeer(last.Peer, chats)
		prevID := offsetID
		for _, m := range messages {
			if msg, ok := m.(*tg.Message); ok && msg.ID == last.TopMessage {
				offsetDate = msg.Date
			}
		}
		offsetID = last.TopMessage
		if offsetID == prevID {
			return out, nil // no progress, stop paging
		}
	}
}

// peerToInputPeer converts a dialog peer to an input peer using the chat
// list returned alongside it. Falls back to InputPeerEmpty.
func peerToInputPeer(peer tg.PeerClass, chats []tg.ChatClass) tg.InputPeerClass {
	ch, ok := peer.(*tg.PeerChannel)
	if !ok {
		return &tg.InputPeerEmpty{}
	}
	for _, chat := range chats {
		if c, ok := chat.(*tg.Channel); ok && c.ID == ch.ChannelID {
			return &tg.InputPeerChannel{ChannelID: c.ID, AccessHash: c.AccessHash}
		}
	}
	return &tg.InputPeerEmpty{}
}

// CountMessages returns the number of history items with id strictly
// greater than minID. This is a dry pass used to size progress reporting;
// it performs its own history walk independent of IterMessages.
func (c *Client) CountMessages(ctx context.Context, ch *Channel, minID int) (int, error) {
	count := 0
	err := c.historyAscending(ctx, ch, minID, func(batch []*tg.Message, _ map[int64]*tg.User) error {
		count += len(batch)
		return nil
	})
	return count, err
}

// IterMessages walks channel history oldest-to-newest, visiting every
// message with id strictly greater than minID. The walk is a fresh stream
// request each call: restarting after a failure re-issues it from the
// given bound.
func (c *Client) IterMessages(ctx context.Context, ch *Channel, minID int, fn func(Message) error) error {
	return c.historyAscending(ctx, ch, minID, func(batch []*tg.Message, users map[int64]*tg.User) error {
		for _, raw := range batch {
			msg := parseMessage(raw, users)
			if msg == nil {
				continue
			}
			if err := fn(*msg); err != nil {
				return err
			}
		}
		return nil
	})
}

// historyAscending pages through messages.getHistory in ascending order.
// Batches arrive newest-first from the api and are reversed before the
// callback sees them.
func (c *Client) historyAscending(ctx context.Context, ch *Channel, minID int, fn func([]*tg.Message, map[int64]*tg.User) error) error {
	offsetID := minID

	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return err
		}

		history, err := c.proto.API().MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer: &tg.InputPeerChannel{
				ChannelID:  ch.ID,
				AccessHash: ch.AccessHash,
			},
			OffsetID:  offsetID,
			AddOffset: -c.batchSize,
			Limit:     c.batchSize,
			MinID:     offsetID, // min_id is exclusive: ids <= offsetID are never returned
		})
		if err != nil {
			if wait := FloodWaitSeconds(err); wait > 0 {
				c.rateLimiter.SetFloodWait(wait)
			}
			return fmt.Errorf("get history after id %d: %w", offsetID, err)
		}

		batch, users := extractBatch(history)
		if len(batch) == 0 {
			return nil
		}
		c.rememberUsers(users)

		// api returns newest-first, reverse to ascending
		for i, j := 0, len(batch)-1; i < j; i, j = i+1, j-1 {
			batch[i], batch[j] = batch[j], batch[i]
		}

		if err := fn(batch, users); err != nil {
			return err
		}

		maxID := batch[len(batch)-1].ID
		if maxID <= offsetID {
			return nil // no forward progress, stop
		}
		offsetID = maxID
	}
}

// rememberUsers records the access hashes of user entities that arrived
// alongside a history batch. History responses do not go through the
// session's peer storage, so this is the only place the hashes of channel
// post authors become known.
func (c *Client) rememberUsers(users map[int64]*tg.User) {
	if len(users) == 0 {
		return
	}
	c.hashMu.Lock()
	defer c.hashMu.Unlock()
	for id, u := range users {
		c.userHashes[id] = u.AccessHash
	}
}

// senderAccessHash returns the remembered access hash for a user seen
// during a history walk.
func (c *Client) senderAccessHash(userID int64) (int64, bool) {
	c.hashMu.Lock()
	defer c.hashMu.Unlock()
	hash, ok := c.userHashes[userID]
	return hash, ok
}

// extractBatch pulls raw messages and the accompanying user entities out
// of a history response. Service and empty messages are kept as *tg.Message
// shells so the walk still counts them.
func extractBatch(history tg.MessagesMessagesClass) ([]*tg.Message, map[int64]*tg.User) {
	var (
		rawMsgs  []tg.MessageClass
		rawUsers []tg.UserClass
	)

	switch h := history.(type) {
	case *tg.MessagesChannelMessages:
		rawMsgs, rawUsers = h.Messages, h.Users
	case *tg.MessagesMessages:
		rawMsgs, rawUsers = h.Messages, h.Users
	case *tg.MessagesMessagesSlice:
		rawMsgs, rawUsers = h.Messages, h.Users
	default:
		return nil, nil
	}

	users := make(map[int64]*tg.User, len(rawUsers))
	for _, u := range rawUsers {
		if user, ok := u.(*tg.User); ok {
			users[user.ID] = user
		}
	}

	var msgs []*tg.Message
	for _, m := range rawMsgs {
		switch msg := m.(type) {
		case *tg.Message:
			msgs = append(msgs, msg)
		case *tg.MessageService:
			// service messages carry no payload but still occupy an id;
			// represent them as empty shells so the cursor can advance
			msgs = append(msgs, &tg.Message{
				ID:     msg.ID,
				Date:   msg.Date,
				FromID: msg.FromID,
			})
		}
	}

	return msgs, users
}

// parseMessage converts a raw api message into the scraper's Message.
func parseMessage(m *tg.Message, users map[int64]*tg.User) *Message {
	if m == nil || m.ID == 0 {
		return nil
	}

	msg := &Message{
		ID:       m.ID,
		Date:     time.Unix(int64(m.Date), 0).UTC(),
		Text:     m.Message,
		Media:    parseMedia(m.Media),
		Views:    m.Views,
		Forwards: m.Forwards,
	}

	if from, ok := m.FromID.(*tg.PeerUser); ok {
		id := from.UserID
		msg.SenderID = &id
		if user, found := users[id]; found {
			msg.SenderName = user.FirstName
			msg.SenderUsername = user.Username
		}
	}

	// distinct reaction kinds, not the per-kind totals
	msg.Reactions = len(m.Reactions.Results)

	if fwd, ok := m.GetFwdFrom(); ok {
		f := &Forward{}
		if fwd.Date != 0 {
			date := time.Unix(int64(fwd.Date), 0).UTC()
			f.Date = &date
		}
		if origin, hasOrigin := fwd.GetFromID(); hasOrigin {
			if user, isUser := origin.(*tg.PeerUser); isUser {
				id := user.UserID
				f.FromID = &id
			}
		}
		msg.Fwd = f
	}

	if m.ReplyTo != nil {
		if header, ok := m.ReplyTo.(*tg.MessageReplyHeader); ok && header.ReplyToMsgID != 0 {
			id := header.ReplyToMsgID
			msg.ReplyToMsgID = &id
		}
	}

	if edit, ok := m.GetEditDate(); ok {
		date := time.Unix(int64(edit), 0).UTC()
		msg.EditDate = &date
	}

	return msg
}

// parseMedia maps the raw media union onto the scraper's descriptor.
// Unknown media shapes map to MediaOther rather than being dropped.
func parseMedia(media tg.MessageMediaClass) *Media {
	switch m := media.(type) {
	case nil, *tg.MessageMediaEmpty:
		return nil
	case *tg.MessageMediaPhoto:
		return &Media{Kind: MediaPhoto}
	case *tg.MessageMediaDocument:
		out := &Media{Kind: MediaDocument}
		if m.Document != nil {
			if doc, ok := m.Document.AsNotEmpty(); ok {
				out.MIME = doc.MimeType
			}
		}
		return out
	case *tg.MessageMediaWebPage:
		return &Media{Kind: MediaWebPage}
	case *tg.MessageMediaGeo, *tg.MessageMediaGeoLive, *tg.MessageMediaVenue:
		return &Media{Kind: MediaGeo}
	case *tg.MessageMediaContact:
		return &Media{Kind: MediaContact}
	case *tg.MessageMediaPoll:
		return &Media{Kind: MediaPoll}
	default:
		return &Media{Kind: MediaOther}
	}
}

// IsAdmin reports whether the user currently holds an admin or creator
// role in the channel.
func (c *Client) IsAdmin(ctx context.Context, ch *Channel, userID int64) (bool, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return false, err
	}

	participant := &tg.InputPeerUser{UserID: userID}
	if hash, ok := c.senderAccessHash(userID); ok {
		participant.AccessHash = hash
	} else if peer := c.proto.PeerStorage.GetPeerById(userID); peer != nil && peer.ID != 0 {
		participant.AccessHash = peer.AccessHash
	}

	res, err := c.proto.API().ChannelsGetParticipant(ctx, &tg.ChannelsGetParticipantRequest{
		Channel: &tg.InputChannel{
			ChannelID:  ch.ID,
			AccessHash: ch.AccessHash,
		},
		Participant: participant,
	})
	if err != nil {
		if wait := FloodWaitSeconds(err); wait > 0 {
			c.rateLimiter.SetFloodWait(wait)
		}
		str := err.Error()
		if strings.Contains(str, "USER_NOT_PARTICIPANT") || strings.Contains(str, "PARTICIPANT_ID_INVALID") {
			return false, nil
		}
		return false, fmt.Errorf("get participant %d: %w", userID, err)
	}

	switch res.Participant.(type) {
	case *tg.ChannelParticipantAdmin, *tg.ChannelParticipantCreator:
		return true, nil
	default:
		return false, nil
	}
}
