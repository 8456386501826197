package kv

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"reservations/internal/app/apperr"
	"reservations/internal/app/middleware"
)

const idempotencyPrefix = "idem:"

// IdempotencyStore keeps command outcomes in a Store for TTL.
type IdempotencyStore struct {
	Store Store
	TTL   time.Duration
}

func NewIdempotencyStore(store Store, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{Store: store, TTL: ttl}
}

type idempotencyDoc struct {
	Payload    []byte      `json:"payload,omitempty"`
	Error      string      `json:"error,omitempty"`
	ErrorKind  apperr.Kind `json:"errorKind,omitempty"`
	OccurredAt time.Time   `json:"occurredAt"`
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	raw, err := s.Store.Get(ctx, idempotencyPrefix+key)
	if errors.Is(err, ErrNotFound) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	if err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	var doc idempotencyDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	return middleware.IdempotencyRecord{
		Key:        key,
		Payload:    doc.Payload,
		Error:      doc.Error,
		ErrorKind:  doc.ErrorKind,
		OccurredAt: doc.OccurredAt,
	}, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	raw, err := json.Marshal(idempotencyDoc{
		Payload:    rec.Payload,
		Error:      rec.Error,
		ErrorKind:  rec.ErrorKind,
		OccurredAt: rec.OccurredAt,
	})
	if err != nil {
		return err
	}
	return s.Store.Set(ctx, idempotencyPrefix+rec.Key, raw, s.TTL)
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
