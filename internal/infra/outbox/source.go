package outbox

import (
	"context"
	"time"
)

// Envelope is one stored event waiting for relay.
type Envelope struct {
	ID         string
	Name       string
	Aggregate  string
	Payload    []byte
	OccurredAt time.Time
	Headers    map[string]string
	Attempts   int
}

// Source hands out claimed envelopes. Claim returns nil, nil when nothing is due.
type Source interface {
	Claim(ctx context.Context, workerID string) (*Envelope, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}
