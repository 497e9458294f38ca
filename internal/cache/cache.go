// Package cache provides the process-wide snapshot store that serves
// last-known-good data to request handlers while background refreshers
// overwrite it. Entries are opaque JSON payloads keyed by topic; the store
// never inspects them.
package cache

import (
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// SnapshotVersion is the on-disk envelope version. Bump on incompatible
// changes; Restore treats a mismatch like a corrupt file.
const SnapshotVersion = 1

// Entry is one cached snapshot with its fetch time.
type Entry struct {
	Payload   json.RawMessage `json:"payload"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Snapshot is the serialized form of the whole store.
type Snapshot struct {
	Version     int              `json:"version"`
	LastRefresh time.Time        `json:"last_refresh"`
	Entries     map[string]Entry `json:"entries"`
}

// Persister saves and restores the full store contents.
// Implementations must be safe for concurrent use.
type Persister interface {
	// Persist writes the whole snapshot to stable storage.
	Persist(snap *Snapshot) error

	// Restore loads the last persisted snapshot.
	// Returns nil, nil if no snapshot exists yet.
	Restore() (*Snapshot, error)
}

// Store is the shared topic -> entry mapping. N request handlers read it
// concurrently while refresh schedulers (and miss-triggered handler writes)
// overwrite entries; readers always observe either the previous or the new
// entry, never a torn one.
type Store struct {
	mu          sync.RWMutex
	entries     map[string]Entry
	lastRefresh time.Time

	persister Persister

	// persistMu serializes file writes so snapshots never interleave;
	// the writer re-reads current state under it, so a late goroutine
	// persists the newest contents rather than a stale copy.
	persistMu sync.Mutex
	persists  sync.WaitGroup
}

// NewStore creates an empty store backed by the given persister.
// A nil persister keeps the store memory-only.
func NewStore(p Persister) *Store {
	if p == nil {
		p = NoopPersister{}
	}
	return &Store{
		entries:   make(map[string]Entry),
		persister: p,
	}
}

// Key builds the canonical cache key for a topic within a domain.
// Keys are lower-cased so "Wheat" and "wheat" share one entry.
func Key(domain, topic string) string {
	return strings.ToLower(domain + "/" + topic)
}

// Get returns the entry for key, if present. It never blocks on upstream
// work and never triggers a refresh.
func (s *Store) Get(key string) (Entry, bool) {
	key = strings.ToLower(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

// Set replaces the entry for key with the payload stamped now, updates the
// store-wide last refresh time, and kicks off a fire-and-forget persistence
// write. The mutation is visible to Get before Set returns.
func (s *Store) Set(key string, payload json.RawMessage) {
	key = strings.ToLower(key)
	now := time.Now().UTC()

	s.mu.Lock()
	s.entries[key] = Entry{Payload: payload, FetchedAt: now}
	s.lastRefresh = now
	s.mu.Unlock()

	s.persists.Add(1)
	go func() {
		defer s.persists.Done()
		s.persistMu.Lock()
		defer s.persistMu.Unlock()
		if err := s.persister.Persist(s.snapshot()); err != nil {
			slog.Warn("cache persistence failed, continuing in memory", "error", err)
		}
	}()
}

// LastRefresh returns the time of the most recent Set, or the zero time if
// the store has never been written.
func (s *Store) LastRefresh() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRefresh
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Keys returns all cache keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Restore loads the persisted snapshot into the store. Any error (missing
// file, corrupt encoding, version mismatch) leaves the store empty; reads
// are then cache-misses until the first refresh completes.
func (s *Store) Restore() {
	snap, err := s.persister.Restore()
	if err != nil {
		slog.Warn("failed to restore cache, starting empty", "error", err)
		return
	}
	if snap == nil {
		slog.Info("no persisted cache found, starting empty")
		return
	}
	if snap.Version != SnapshotVersion {
		slog.Warn("persisted cache version mismatch, starting empty",
			"got", snap.Version, "want", SnapshotVersion)
		return
	}

	s.mu.Lock()
	s.entries = make(map[string]Entry, len(snap.Entries))
	for k, e := range snap.Entries {
		s.entries[strings.ToLower(k)] = e
	}
	s.lastRefresh = snap.LastRefresh
	s.mu.Unlock()

	slog.Info("cache restored from disk",
		"entries", len(snap.Entries),
		"last_refresh", snap.LastRefresh,
	)
}

// Close waits for in-flight persistence writes to finish.
func (s *Store) Close() error {
	s.persists.Wait()
	return nil
}

// snapshot copies the current contents into a serializable form.
func (s *Store) snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make(map[string]Entry, len(s.entries))
	for k, e := range s.entries {
		entries[k] = e
	}
	return &Snapshot{
		Version:     SnapshotVersion,
		LastRefresh: s.lastRefresh,
		Entries:     entries,
	}
}

// NoopPersister discards snapshots and restores nothing. Used for
// memory-only operation and tests.
type NoopPersister struct{}

func (NoopPersister) Persist(*Snapshot) error { return nil }

func (NoopPersister) Restore() (*Snapshot, error) { return nil, nil }
