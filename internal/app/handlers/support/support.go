package support

import (
	"time"

	"github.com/google/uuid"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Paging normalizes 1-based page numbers and clamps the limit.
type Paging struct {
	Page  int
	Limit int
}

func NewPaging(page, limit int) Paging {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Paging{Page: page, Limit: limit}
}

func (p Paging) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Now returns clock() in UTC, falling back to the wall clock.
func Now(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock().UTC()
}

// NewID returns gen() or a random UUID.
func NewID(gen func() string) string {
	if gen == nil {
		return uuid.NewString()
	}
	return gen()
}
