// Package sink writes finished records to their tabular output.
package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/x5gtrn/tg-channel-scraper/internal/scraper"
)

// columns is the authoritative output schema, in order. Record fields
// outside this set are never written.
var columns = []string{
	"message_id",
	"date",
	"sender_id",
	"sender_name",
	"sender_username",
	"message_text",
	"media_type",
	"views",
	"forwards",
	"reactions",
	"forwarded",
	"forward_date",
	"forward_from_id",
	"reply_to_msg_id",
	"edit_date",
}

// WriteCSV writes records to path with a header row, returning the number
// of data rows written. An existing file is overwritten.
func WriteCSV(path string, records []scraper.Record) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	for i := range records {
		if err := w.Write(row(&records[i])); err != nil {
			return i, fmt.Errorf("write row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return len(records), fmt.Errorf("flush %s: %w", path, err)
	}
	return len(records), nil
}

// row formats one record in column order.
func row(r *scraper.Record) []string {
	return []string{
		strconv.Itoa(r.MessageID),
		r.Date,
		optInt64(r.SenderID),
		r.SenderName,
		r.SenderUsername,
		r.MessageText,
		r.MediaType,
		strconv.Itoa(r.Views),
		strconv.Itoa(r.Forwards),
		strconv.Itoa(r.Reactions),
		strconv.FormatBool(r.Forwarded),
		r.ForwardDate,
		optInt64(r.ForwardFromID),
		optInt(r.ReplyToMsgID),
		r.EditDate,
	}
}

func optInt64(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
