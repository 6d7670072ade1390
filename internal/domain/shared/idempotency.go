package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers already-consumed dedup keys (for billing
// callbacks: "provider:external_id") so redeliveries can be answered
// without re-applying their effects. It is a fast path only; the
// durable guarantee is the unique index on the payment_events table.
type IdempotencyStore interface {
	// MarkProcessed records a key with a TTL. Returns true when the
	// key was newly recorded, false when it was already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether a key has been recorded and has not
	// expired.
	IsProcessed(ctx context.Context, key string) (bool, error)

	Close() error
}
