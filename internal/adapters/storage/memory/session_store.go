package memory

import (
	"context"
	"sync"
	"time"

	"github.com/PabloGalante/arcana/internal/domain"
	"github.com/PabloGalante/arcana/internal/session"
)

// SessionStore is an in-memory session.Backend.
// It is NOT persistent: every session is lost when the process exits.
//
// Each key has its own slot and mutex, so sessions never wait on each other.
type SessionStore struct {
	slots sync.Map // domain.SessionKey -> *slot
}

type slot struct {
	mu      sync.Mutex
	version int64
	rec     domain.Record
}

func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

func (s *SessionStore) slot(key domain.SessionKey) *slot {
	if v, ok := s.slots.Load(key); ok {
		return v.(*slot)
	}
	v, _ := s.slots.LoadOrStore(key, &slot{})
	return v.(*slot)
}

func (s *SessionStore) Load(_ context.Context, key domain.SessionKey) (domain.Record, int64, error) {
	v, ok := s.slots.Load(key)
	if !ok {
		return domain.Record{}, 0, nil
	}
	sl := v.(*slot)

	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.rec.Clone(), sl.version, nil
}

func (s *SessionStore) CompareAndSwap(_ context.Context, key domain.SessionKey, version int64, rec domain.Record) (bool, error) {
	sl := s.slot(key)

	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.version != version {
		return false, nil
	}
	sl.rec = rec.Clone()
	sl.version = session.NextVersion(sl.version)
	return true, nil
}

func (s *SessionStore) Delete(_ context.Context, key domain.SessionKey) error {
	v, ok := s.slots.Load(key)
	if !ok {
		return nil
	}
	sl := v.(*slot)

	// Bump the version before dropping the slot so a writer still holding
	// it can't resurrect a stale record with its old version.
	sl.mu.Lock()
	sl.version++
	s.slots.CompareAndDelete(key, sl)
	sl.mu.Unlock()
	return nil
}

// DeleteIdle drops every session last updated before the cutoff.
func (s *SessionStore) DeleteIdle(ctx context.Context, before time.Time) (int, error) {
	removed := 0
	s.slots.Range(func(k, v any) bool {
		sl := v.(*slot)

		sl.mu.Lock()
		idle := sl.version > 0 && sl.rec.UpdatedAt.Before(before)
		if idle || sl.version == 0 {
			// version 0 slots are leftovers of lost create races
			sl.version++
			s.slots.CompareAndDelete(k, sl)
		}
		sl.mu.Unlock()

		if idle {
			removed++
		}
		return ctx.Err() == nil
	})
	return removed, ctx.Err()
}

// Len reports the number of stored sessions.
func (s *SessionStore) Len() int {
	n := 0
	s.slots.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
