package telegram

import (
	"encoding/json"
	"fmt"

	"github.com/celestix/gotgproto/storage"
	"github.com/glebarez/sqlite"
	"github.com/gotd/td/session"
	"gorm.io/gorm"
)

// ConvertSession converts gotd session.Data into the row shape gotgproto
// keeps in its session store. gotgproto expects the raw JSON bytes of
// session.Data in the Data column.
func ConvertSession(data *session.Data) (*storage.Session, error) {
	if data == nil {
		return nil, fmt.Errorf("session data is nil")
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal session data: %w", err)
	}

	return &storage.Session{
		Version: storage.LatestVersion,
		Data:    dataJSON,
	}, nil
}

// SeedSessionStore writes a converted session into the named sqlite
// session store so a later gotgproto client starts already authorized.
// Version is the primary key, so re-seeding overwrites the old session.
func SeedSessionStore(name string, data *session.Data) error {
	sess, err := ConvertSession(data)
	if err != nil {
		return err
	}

	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	if err := db.AutoMigrate(&storage.Session{}); err != nil {
		return fmt.Errorf("migrate session store: %w", err)
	}
	if err := db.Save(sess).Error; err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	return nil
}
