package scraper

import (
	"strings"
	"time"

	"github.com/x5gtrn/tg-channel-scraper/internal/telegram"
)

// Record is the flat, sink-ready representation of one qualifying message.
// Records are immutable once produced and ordered by ascending message id.
type Record struct {
	MessageID      int
	Date           string // ISO-8601, empty when unknown
	SenderID       *int64
	SenderName     string
	SenderUsername string
	MessageText    string
	MediaType      string // empty, photo, video, audio, document, webpage, location, contact, poll, other
	Views          int
	Forwards       int
	Reactions      int
	Forwarded      bool
	ForwardDate    string // ISO-8601, empty when origin hides it
	ForwardFromID  *int64
	ReplyToMsgID   *int
	EditDate       string // ISO-8601, empty when never edited
}

// Classify maps a message's media and forwarding metadata onto a Record.
// Pure and total: it never fails for a well-formed message, and unknown
// media shapes fall through to "other".
func Classify(msg telegram.Message) Record {
	r := Record{
		MessageID:      msg.ID,
		Date:           isoDate(msg.Date),
		SenderID:       msg.SenderID,
		SenderName:     msg.SenderName,
		SenderUsername: msg.SenderUsername,
		MessageText:    msg.Text,
		MediaType:      mediaType(msg.Media),
		Views:          msg.Views,
		Forwards:       msg.Forwards,
		Reactions:      msg.Reactions,
		ReplyToMsgID:   msg.ReplyToMsgID,
	}

	if msg.Fwd != nil {
		r.Forwarded = true
		if msg.Fwd.Date != nil {
			r.ForwardDate = isoDate(*msg.Fwd.Date)
		}
		r.ForwardFromID = msg.Fwd.FromID
	}

	if msg.EditDate != nil {
		r.EditDate = isoDate(*msg.EditDate)
	}

	return r
}

// mediaType resolves the media kind by a fixed priority table. Documents
// are refined by MIME type into video, audio or plain document.
func mediaType(m *telegram.Media) string {
	if m == nil {
		return ""
	}

	switch m.Kind {
	case telegram.MediaPhoto:
		return "photo"
	case telegram.MediaDocument:
		switch {
		case strings.HasPrefix(m.MIME, "video/"):
			return "video"
		case strings.HasPrefix(m.MIME, "audio/"):
			return "audio"
		}
		return "document"
	case telegram.MediaWebPage:
		return "webpage"
	case telegram.MediaGeo:
		return "location"
	case telegram.MediaContact:
		return "contact"
	case telegram.MediaPoll:
		return "poll"
	default:
		return "other"
	}
}

func isoDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
