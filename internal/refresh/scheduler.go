// Package refresh runs the background loop that keeps cached snapshots warm.
// Each domain (dashboard, terminal) owns a producer and a list of topics; the
// scheduler refreshes every topic of every domain at a fixed interval and
// writes the results into the cache store.
package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"agripulse/internal/cache"
	"agripulse/internal/history"
	"agripulse/internal/observability"
	"agripulse/internal/snapshot"
)

// DefaultTopicTimeout bounds a single topic produce during a pass.
const DefaultTopicTimeout = 90 * time.Second

// Domain groups a producer with the topics it keeps warm.
type Domain struct {
	// Name prefixes cache keys and labels metrics and history rows
	Name string

	// Topics are produced one by one during each pass
	Topics []string

	Producer snapshot.Producer
}

// Scheduler refreshes all registered domains at a fixed interval.
// A topic that fails to produce keeps its previous cache entry; the
// failure is logged and recorded, never propagated.
type Scheduler struct {
	store        *cache.Store
	domains      []Domain
	interval     time.Duration
	topicTimeout time.Duration
	historyLog   history.LoggerInterface

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// New creates a Scheduler. The history logger may be a NoopLogger when
// recording is disabled.
func New(store *cache.Store, domains []Domain, interval, topicTimeout time.Duration, historyLog history.LoggerInterface) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if topicTimeout <= 0 {
		topicTimeout = DefaultTopicTimeout
	}
	if historyLog == nil {
		historyLog = &history.NoopLogger{}
	}

	return &Scheduler{
		store:        store,
		domains:      domains,
		interval:     interval,
		topicTimeout: topicTimeout,
		historyLog:   historyLog,
	}
}

// Start runs one synchronous pass per domain, then launches a background
// goroutine per domain that refreshes at the configured interval.
// Initial pass failures are logged but do not prevent startup; topics that
// failed will be produced on demand by the first request that misses.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return // already started
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, d := range s.domains {
		s.refreshPass(runCtx, d)
	}

	for _, d := range s.domains {
		s.wg.Add(1)
		go s.run(runCtx, d)
	}

	slog.Info("background refresh started",
		"domains", len(s.domains),
		"interval", s.interval,
	)
}

// Stop cancels the refresh loops and waits for in-flight passes to finish.
// Safe to call multiple times.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	s.wg.Wait()
	slog.Info("background refresh stopped")
}

func (s *Scheduler) run(ctx context.Context, d Domain) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.refreshPass(ctx, d)
		case <-ctx.Done():
			return
		}
	}
}

// refreshPass produces every topic of a domain and stores the results.
// Topics are refreshed sequentially; the producers parallelize their own
// upstream calls internally.
func (s *Scheduler) refreshPass(ctx context.Context, d Domain) {
	passID := uuid.New().String()
	passStart := time.Now()

	for _, topic := range d.Topics {
		if ctx.Err() != nil {
			return
		}
		s.refreshTopic(ctx, d, topic, passID)
	}

	observability.RefreshPass(d.Name)
	slog.Info("refresh pass complete",
		"domain", d.Name,
		"topics", len(d.Topics),
		"duration", time.Since(passStart).Round(time.Millisecond),
	)
}

func (s *Scheduler) refreshTopic(ctx context.Context, d Domain, topic, passID string) {
	topicCtx, cancel := context.WithTimeout(ctx, s.topicTimeout)
	defer cancel()

	start := time.Now()
	payload, err := d.Producer.Produce(topicCtx, topic)
	elapsed := time.Since(start)

	entry := &history.Entry{
		ID:         uuid.New().String(),
		PassID:     passID,
		Domain:     d.Name,
		Topic:      topic,
		Timestamp:  time.Now().UTC(),
		DurationMS: elapsed.Milliseconds(),
		Status:     history.StatusOK,
	}

	if err != nil {
		entry.Status = history.StatusError
		entry.Error = err.Error()
		s.historyLog.Write(entry)

		observability.RefreshTopicFailure(d.Name)
		slog.Warn("topic refresh failed, previous snapshot retained",
			"domain", d.Name,
			"topic", topic,
			"error", err,
		)
		return
	}

	s.store.Set(cache.Key(d.Name, topic), payload)
	s.historyLog.Write(entry)
	observability.RefreshTopic(d.Name, elapsed)

	slog.Debug("topic refreshed",
		"domain", d.Name,
		"topic", topic,
		"duration", elapsed.Round(time.Millisecond),
	)
}
