package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFilePersister(t *testing.T) {
	t.Run("PersistRestoreRoundTrip", func(t *testing.T) {
		tmpDir := t.TempDir()
		cacheFile := filepath.Join(tmpDir, "cache.json")

		p := NewFilePersister(cacheFile)

		// Initially empty
		snap, err := p.Restore()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if snap != nil {
			t.Fatalf("expected nil snapshot for missing file, got %v", snap)
		}

		fetched := time.Now().UTC().Truncate(time.Second)
		in := &Snapshot{
			Version:     SnapshotVersion,
			LastRefresh: fetched,
			Entries: map[string]Entry{
				"terminal/wheat": {Payload: json.RawMessage(`{"commodity":"Wheat"}`), FetchedAt: fetched},
			},
		}
		if err := p.Persist(in); err != nil {
			t.Fatalf("unexpected error on persist: %v", err)
		}

		snap, err = p.Restore()
		if err != nil {
			t.Fatalf("unexpected error on restore: %v", err)
		}
		if snap == nil {
			t.Fatal("expected snapshot, got nil")
		}
		if snap.Version != SnapshotVersion {
			t.Errorf("expected version %d, got %d", SnapshotVersion, snap.Version)
		}
		if !snap.LastRefresh.Equal(fetched) {
			t.Errorf("LastRefresh = %v, want %v", snap.LastRefresh, fetched)
		}
		e, ok := snap.Entries["terminal/wheat"]
		if !ok {
			t.Fatal("expected terminal/wheat entry")
		}
		if string(e.Payload) != `{"commodity":"Wheat"}` {
			t.Errorf("unexpected payload: %s", e.Payload)
		}
	})

	t.Run("CreateDirectoryIfNeeded", func(t *testing.T) {
		tmpDir := t.TempDir()
		cacheFile := filepath.Join(tmpDir, "nested", "dir", "cache.json")

		p := NewFilePersister(cacheFile)
		if err := p.Persist(&Snapshot{Version: SnapshotVersion, Entries: map[string]Entry{}}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := os.Stat(cacheFile); os.IsNotExist(err) {
			t.Fatal("cache file was not created")
		}
	})

	t.Run("NoTempFileLeftBehind", func(t *testing.T) {
		tmpDir := t.TempDir()
		cacheFile := filepath.Join(tmpDir, "cache.json")

		p := NewFilePersister(cacheFile)
		if err := p.Persist(&Snapshot{Version: SnapshotVersion, Entries: map[string]Entry{}}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := os.Stat(cacheFile + ".tmp"); !os.IsNotExist(err) {
			t.Error("temp file should be renamed away")
		}
	})

	t.Run("CorruptFileReturnsError", func(t *testing.T) {
		tmpDir := t.TempDir()
		cacheFile := filepath.Join(tmpDir, "cache.json")
		if err := os.WriteFile(cacheFile, []byte("{not json"), 0o644); err != nil {
			t.Fatal(err)
		}

		p := NewFilePersister(cacheFile)
		if _, err := p.Restore(); err == nil {
			t.Fatal("expected error for corrupt file")
		}
	})

	t.Run("EmptyFilePath", func(t *testing.T) {
		p := NewFilePersister("")

		if err := p.Persist(&Snapshot{Version: SnapshotVersion}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		snap, err := p.Restore()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if snap != nil {
			t.Fatal("expected nil snapshot for empty path")
		}
	})
}

// A restored payload must be the exact bytes that were stored; the file
// serialization must not reformat entries.
func TestFilePersisterPayloadBytesUnchanged(t *testing.T) {
	payloads := []string{
		`{"v":2}`,
		`{"commodity":"Wheat","records":[{"modal_price":2350.5}]}`,
		`{"location":"Indore","ai_summary":"बाज़ार स्थिर है"}`,
		`{"nested":{"a":[1,2,3],"b":null}}`,
	}

	tmpDir := t.TempDir()
	cacheFile := filepath.Join(tmpDir, "cache.json")
	p := NewFilePersister(cacheFile)

	entries := make(map[string]Entry, len(payloads))
	for i, raw := range payloads {
		entries[Key("terminal", string(rune('a'+i)))] = Entry{
			Payload:   json.RawMessage(raw),
			FetchedAt: time.Now().UTC(),
		}
	}
	if err := p.Persist(&Snapshot{Version: SnapshotVersion, Entries: entries}); err != nil {
		t.Fatalf("persist: %v", err)
	}

	snap, err := p.Restore()
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	for key, want := range entries {
		got, ok := snap.Entries[key]
		if !ok {
			t.Fatalf("missing entry %s", key)
		}
		if string(got.Payload) != string(want.Payload) {
			t.Errorf("payload bytes changed for %s:\n got %s\nwant %s", key, got.Payload, want.Payload)
		}
	}
}

func TestStoreWithFilePersister(t *testing.T) {
	tmpDir := t.TempDir()
	cacheFile := filepath.Join(tmpDir, "cache.json")

	s := NewStore(NewFilePersister(cacheFile))
	s.Set(Key("terminal", "wheat"), json.RawMessage(`{"v":1}`))
	s.Set(Key("dashboard", "Indore"), json.RawMessage(`{"v":2}`))
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// A fresh store restores the persisted contents
	restored := NewStore(NewFilePersister(cacheFile))
	restored.Restore()

	if restored.Len() != 2 {
		t.Fatalf("expected 2 restored entries, got %d", restored.Len())
	}
	e, ok := restored.Get("dashboard/indore")
	if !ok {
		t.Fatal("expected dashboard/indore after restore")
	}
	if string(e.Payload) != `{"v":2}` {
		t.Errorf("unexpected payload: %s", e.Payload)
	}
}
