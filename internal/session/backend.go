package session

import (
	"context"
	"time"

	"github.com/PabloGalante/arcana/internal/domain"
)

// Backend is a keyed, versioned record store. Version 0 means "absent":
// Load reports it for unknown keys and CompareAndSwap with version 0 only
// succeeds if the key still does not exist. Every successful swap moves the
// version forward with NextVersion, so a key that is deleted and created
// again never reuses a version a stale writer may still hold.
//
// Implementations: memory (default, volatile), sqlite, firestore.
type Backend interface {
	Load(ctx context.Context, key domain.SessionKey) (rec domain.Record, version int64, err error)
	CompareAndSwap(ctx context.Context, key domain.SessionKey, version int64, rec domain.Record) (bool, error)
	Delete(ctx context.Context, key domain.SessionKey) error
}

// Sweeper is implemented by backends that can drop idle records themselves.
type Sweeper interface {
	DeleteIdle(ctx context.Context, before time.Time) (int, error)
}

// NextVersion returns the version to store after prev: the wall clock in
// nanoseconds, or prev+1 if the clock has not moved past prev.
func NextVersion(prev int64) int64 {
	if now := time.Now().UnixNano(); now > prev {
		return now
	}
	return prev + 1
}
