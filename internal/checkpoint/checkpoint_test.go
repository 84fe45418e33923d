package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStore_LoadMissing(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "progress.json"))

	if got := store.Load(); got != 0 {
		t.Errorf("Load() = %d, want 0 for missing file", got)
	}
}

func TestStore_SaveLoadRoundtrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "progress.json"))

	if err := store.Save(1234); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got := store.Load(); got != 1234 {
		t.Errorf("Load() = %d, want 1234", got)
	}

	// later saves overwrite
	if err := store.Save(5678); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got := store.Load(); got != 5678 {
		t.Errorf("Load() = %d, want 5678", got)
	}
}

func TestStore_LoadCorrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "garbage{{{"},
		{"wrong type", `{"last_message_id": "nope"}`},
		{"negative cursor", `{"last_message_id": -5}`},
		{"empty file", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "progress.json")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			store := NewStore(path)
			if got := store.Load(); got != 0 {
				t.Errorf("Load() = %d, want 0 for corrupt store", got)
			}
		})
	}
}

func TestStore_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	store := NewStore(path)

	if err := store.Save(10); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("checkpoint file still exists after Clear()")
	}

	// clearing again is not an error
	if err := store.Clear(); err != nil {
		t.Errorf("Clear() on missing file error = %v", err)
	}
}

func TestStore_SaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "progress.json"))

	if err := store.Save(42); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the checkpoint file in %s, found %d entries", dir, len(entries))
	}
}
