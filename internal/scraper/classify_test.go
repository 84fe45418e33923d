package scraper

import (
	"reflect"
	"testing"
	"time"

	"github.com/x5gtrn/tg-channel-scraper/internal/telegram"
)

func TestClassify_MediaKindMapping(t *testing.T) {
	tests := []struct {
		name  string
		media *telegram.Media
		want  string
	}{
		{"no media", nil, ""},
		{"photo", &telegram.Media{Kind: telegram.MediaPhoto}, "photo"},
		{"video document", &telegram.Media{Kind: telegram.MediaDocument, MIME: "video/mp4"}, "video"},
		{"audio document", &telegram.Media{Kind: telegram.MediaDocument, MIME: "audio/ogg"}, "audio"},
		{"pdf document", &telegram.Media{Kind: telegram.MediaDocument, MIME: "application/pdf"}, "document"},
		{"document without mime", &telegram.Media{Kind: telegram.MediaDocument}, "document"},
		{"webpage", &telegram.Media{Kind: telegram.MediaWebPage}, "webpage"},
		{"geo", &telegram.Media{Kind: telegram.MediaGeo}, "location"},
		{"contact", &telegram.Media{Kind: telegram.MediaContact}, "contact"},
		{"poll", &telegram.Media{Kind: telegram.MediaPoll}, "poll"},
		{"other", &telegram.Media{Kind: telegram.MediaOther}, "other"},
		{"unknown kind falls through to other", &telegram.Media{Kind: telegram.MediaKind("dice")}, "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Classify(telegram.Message{ID: 1, Media: tt.media})
			if r.MediaType != tt.want {
				t.Errorf("MediaType = %q, want %q", r.MediaType, tt.want)
			}
		})
	}
}

func TestClassify_NotForwarded(t *testing.T) {
	r := Classify(telegram.Message{ID: 1, Text: "plain"})

	if r.Forwarded {
		t.Error("Forwarded = true, want false")
	}
	if r.ForwardDate != "" || r.ForwardFromID != nil {
		t.Errorf("forward fields = %q/%v, want empty", r.ForwardDate, r.ForwardFromID)
	}
}

func TestClassify_ForwardedWithOrigin(t *testing.T) {
	origin := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	from := int64(777)

	r := Classify(telegram.Message{
		ID:  1,
		Fwd: &telegram.Forward{Date: &origin, FromID: &from},
	})

	if !r.Forwarded {
		t.Error("Forwarded = false, want true")
	}
	if r.ForwardDate != "2023-05-01T12:00:00Z" {
		t.Errorf("ForwardDate = %q", r.ForwardDate)
	}
	if r.ForwardFromID == nil || *r.ForwardFromID != 777 {
		t.Errorf("ForwardFromID = %v, want 777", r.ForwardFromID)
	}
}

func TestClassify_ForwardedWithHiddenOrigin(t *testing.T) {
	r := Classify(telegram.Message{ID: 1, Fwd: &telegram.Forward{}})

	if !r.Forwarded {
		t.Error("Forwarded = false, want true")
	}
	if r.ForwardDate != "" || r.ForwardFromID != nil {
		t.Error("expected empty origin fields when the origin hides them")
	}
}

func TestClassify_NumericDefaults(t *testing.T) {
	r := Classify(telegram.Message{ID: 1})

	if r.Views != 0 || r.Forwards != 0 || r.Reactions != 0 {
		t.Errorf("numeric defaults = %d/%d/%d, want 0/0/0", r.Views, r.Forwards, r.Reactions)
	}
}

func TestClassify_Idempotent(t *testing.T) {
	origin := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	from := int64(777)
	sender := int64(42)
	reply := 9

	msg := telegram.Message{
		ID:             10,
		Date:           time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		SenderID:       &sender,
		SenderName:     "Alice",
		SenderUsername: "alice",
		Text:           "body",
		Media:          &telegram.Media{Kind: telegram.MediaDocument, MIME: "video/webm"},
		Views:          5,
		Forwards:       2,
		Reactions:      3,
		Fwd:            &telegram.Forward{Date: &origin, FromID: &from},
		ReplyToMsgID:   &reply,
	}

	first := Classify(msg)
	second := Classify(msg)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Classify not idempotent:\n%+v\n%+v", first, second)
	}
}

func TestClassify_DateFormatting(t *testing.T) {
	r := Classify(telegram.Message{
		ID:   1,
		Date: time.Date(2024, 6, 15, 8, 30, 0, 0, time.UTC),
	})
	if r.Date != "2024-06-15T08:30:00Z" {
		t.Errorf("Date = %q", r.Date)
	}

	empty := Classify(telegram.Message{ID: 2})
	if empty.Date != "" {
		t.Errorf("Date for zero time = %q, want empty", empty.Date)
	}
}
