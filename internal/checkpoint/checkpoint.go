// Package checkpoint persists the scraper's resume cursor.
//
// The store holds a single value, the highest fully-processed message id.
// It is the sole source of truth for resume position: a missing or corrupt
// file means "no progress" and never aborts a run.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/x5gtrn/tg-channel-scraper/internal/logger"
)

// progress is the on-disk shape of the checkpoint file.
type progress struct {
	LastMessageID int `json:"last_message_id"`
}

// Store reads and writes the checkpoint file.
// Single-writer: concurrent runs against the same file are caller-prohibited.
type Store struct {
	path string
	log  *logger.Logger
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		log:  logger.Get(),
	}
}

// Load returns the last durably recorded message id, or 0 if no progress
// exists. Load never fails: unreadable or corrupt files are treated as
// "start from scratch" with a warning.
func (s *Store) Load() int {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("file", s.path).Msg("checkpoint: unreadable, starting from 0")
		}
		return 0
	}

	var p progress
	if err := json.Unmarshal(data, &p); err != nil {
		s.log.Warn().Err(err).Str("file", s.path).Msg("checkpoint: corrupt, starting from 0")
		return 0
	}
	if p.LastMessageID < 0 {
		s.log.Warn().Int("last_message_id", p.LastMessageID).Msg("checkpoint: negative cursor, starting from 0")
		return 0
	}

	return p.LastMessageID
}

// Save durably persists id as the new cursor. The write goes through a
// temp file and rename so an interrupted save never corrupts the cursor.
func (s *Store) Save(id int) error {
	data, err := json.Marshal(progress{LastMessageID: id})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}

	return nil
}

// Clear removes the checkpoint file. Called only after a fully successful
// run; a missing file is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	return nil
}
