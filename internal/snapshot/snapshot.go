// Package snapshot builds the cacheable payloads served by the API: one
// producer per cache domain. Producers absorb upstream failures internally,
// substituting synthetic fallback data per sub-field, so a returned snapshot
// is always complete. The cache layer treats the result as opaque JSON.
package snapshot

import (
	"context"
	"encoding/json"
	"time"
)

// Producer builds one snapshot for a topic within its domain.
// Implementations must not let upstream failures escape: a failed sub-call is
// replaced by fallback data and the rest of the snapshot is assembled from
// whatever succeeded. An error return is reserved for total assembly failure
// (e.g. marshaling), which callers map to service-unavailable.
type Producer interface {
	Produce(ctx context.Context, topic string) (json.RawMessage, error)
}

// ProducerFunc adapts a function to the Producer interface.
type ProducerFunc func(ctx context.Context, topic string) (json.RawMessage, error)

// Produce implements Producer.
func (f ProducerFunc) Produce(ctx context.Context, topic string) (json.RawMessage, error) {
	return f(ctx, topic)
}

// defaultSubTimeout bounds one upstream data call within a produce.
const defaultSubTimeout = 10 * time.Second

// defaultAITimeout bounds one AI generation call. Generation is slower than
// the data APIs but must still be finite so a hung call only costs one cycle.
const defaultAITimeout = 60 * time.Second
