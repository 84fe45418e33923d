package telegram

import (
	"time"
)

// MediaKind identifies the raw media attached to a message.
type MediaKind string

// Media kinds as reported by the telegram api.
const (
	MediaPhoto    MediaKind = "photo"
	MediaDocument MediaKind = "document"
	MediaWebPage  MediaKind = "webpage"
	MediaGeo      MediaKind = "geo"
	MediaContact  MediaKind = "contact"
	MediaPoll     MediaKind = "poll"
	MediaOther    MediaKind = "other"
)

// Media describes a message attachment. MIME is only set for documents.
type Media struct {
	Kind MediaKind
	MIME string
}

// Forward carries the origin info of a forwarded message.
// Either field may be absent when the origin hides it.
type Forward struct {
	Date   *time.Time // original post date
	FromID *int64     // original author user id
}

// Message is one parsed unit of channel history.
type Message struct {
	ID             int        // message id, strictly increasing within a channel
	Date           time.Time  // post timestamp
	SenderID       *int64     // author user id, nil for unsigned channel posts
	SenderName     string     // author first name, empty if unresolved
	SenderUsername string     // author username, empty if unresolved
	Text           string     // body text, empty for pure-media posts
	Media          *Media     // attachment descriptor, nil if none
	Views          int        // view count, 0 when absent
	Forwards       int        // forward count, 0 when absent
	Reactions      int        // total reaction count, 0 when absent
	Fwd            *Forward   // forward origin, nil if not forwarded
	ReplyToMsgID   *int       // replied-to message id
	EditDate       *time.Time // last edit timestamp
}

// Channel is the resolved metadata of a broadcast channel.
type Channel struct {
	ID         int64  // channel id
	AccessHash int64  // access hash for api calls
	Username   string // username without @, empty for private channels
	Title      string // channel title
}
