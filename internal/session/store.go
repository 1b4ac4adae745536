// Package session owns all per-session state and exposes it only through
// atomic read-modify-write operations.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PabloGalante/arcana/internal/deck"
	"github.com/PabloGalante/arcana/internal/domain"
)

// DefaultMaxAttempts bounds the compare-and-swap retry loop.
const DefaultMaxAttempts = 32

// Store serializes mutations per SessionKey with an optimistic
// compare-and-swap loop over a Backend. Unrelated keys never share a lock.
type Store struct {
	backend     Backend
	deck        *deck.Deck
	rng         deck.Rand
	now         func() time.Time
	maxAttempts int
}

type Option func(*Store)

// WithRand replaces the draw randomness. The source is wrapped in a mutex, so
// non-thread-safe sources such as *rand.Rand are fine.
func WithRand(r deck.Rand) Option {
	return func(s *Store) { s.rng = &lockedRand{r: r} }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithMaxAttempts(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func NewStore(backend Backend, d *deck.Deck, opts ...Option) *Store {
	s := &Store{
		backend:     backend,
		deck:        d,
		rng:         deck.DefaultRand,
		now:         time.Now,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deck returns the deck draws are made from.
func (s *Store) Deck() *deck.Deck { return s.deck }

// GetOrCreate returns the record for key, creating an Idle one on first use.
func (s *Store) GetOrCreate(ctx context.Context, key domain.SessionKey) (domain.Record, error) {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		rec, version, err := s.backend.Load(ctx, key)
		if err != nil {
			return domain.Record{}, fmt.Errorf("load session %s: %w", key, err)
		}
		if version > 0 {
			return rec, nil
		}

		fresh := domain.Record{State: domain.Idle(), UpdatedAt: s.now()}
		ok, err := s.backend.CompareAndSwap(ctx, key, 0, fresh)
		if err != nil {
			return domain.Record{}, fmt.Errorf("create session %s: %w", key, err)
		}
		if ok {
			return fresh, nil
		}
	}
	return domain.Record{}, fmt.Errorf("create session %s: %w", key, domain.ErrContention)
}

// CompareAndSwapState moves the session to next only if it is currently in
// expected. It reports false, without mutating anything, otherwise.
func (s *Store) CompareAndSwapState(ctx context.Context, key domain.SessionKey, expected, next domain.InteractionState) (bool, error) {
	swapped := false
	err := s.update(ctx, key, func(rec *domain.Record) (bool, error) {
		swapped = rec.State == expected
		if !swapped {
			return false, nil
		}
		rec.State = next
		return true, nil
	})
	return swapped, err
}

// AppendContext adds one turn, evicting the oldest beyond the bound. A turn
// whose ID matches the pending claim completes that claim.
func (s *Store) AppendContext(ctx context.Context, key domain.SessionKey, turn domain.Turn) error {
	return s.update(ctx, key, func(rec *domain.Record) (bool, error) {
		rec.AppendTurn(turn)
		if rec.Claim != "" && rec.Claim == turn.ID {
			rec.Claim = ""
			rec.ClaimHistory = nil
		}
		return true, nil
	})
}

// Claim moves the session from expected to next like CompareAndSwapState,
// and records claimID together with a snapshot of the history so the claim
// can be undone by ReturnCards. A newer claim replaces an older one.
func (s *Store) Claim(ctx context.Context, key domain.SessionKey, expected, next domain.InteractionState, claimID string) (bool, error) {
	if claimID == "" {
		return false, fmt.Errorf("claim session %s: empty claim id", key)
	}
	claimed := false
	err := s.update(ctx, key, func(rec *domain.Record) (bool, error) {
		claimed = rec.State == expected
		if !claimed {
			return false, nil
		}
		rec.State = next
		rec.Claim = claimID
		rec.ClaimHistory = append([]string(nil), rec.History...)
		return true, nil
	})
	return claimed, err
}

// DrawCards draws count cards against the stored history and persists the
// updated history in the same swap.
func (s *Store) DrawCards(ctx context.Context, key domain.SessionKey, count int) ([]domain.DrawnCard, error) {
	var cards []domain.DrawnCard
	err := s.update(ctx, key, func(rec *domain.Record) (bool, error) {
		drawn, history, err := deck.Draw(s.deck, rec.History, count, s.rng)
		if err != nil {
			return false, err
		}
		cards = drawn
		rec.History = history
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return cards, nil
}

// ReturnCards undoes a claim whose answer never reached the user. Only the
// claim that is still pending, with the session still in from, is undone:
// the state moves back to to and the history returns to its snapshot,
// including a history cleared by a reshuffle.
func (s *Store) ReturnCards(ctx context.Context, key domain.SessionKey, claimID string, from, to domain.InteractionState) (bool, error) {
	restored := false
	err := s.update(ctx, key, func(rec *domain.Record) (bool, error) {
		restored = claimID != "" && rec.Claim == claimID && rec.State == from
		if !restored {
			return false, nil
		}
		rec.State = to
		rec.History = rec.ClaimHistory
		rec.Claim = ""
		rec.ClaimHistory = nil
		return true, nil
	})
	return restored, err
}

// Reset forgets the session. The next access starts over from Idle with an
// empty history and context.
func (s *Store) Reset(ctx context.Context, key domain.SessionKey) error {
	if err := s.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete session %s: %w", key, err)
	}
	return nil
}

// Sweep removes sessions untouched for idleFor. Backends without Sweeper
// support report 0.
func (s *Store) Sweep(ctx context.Context, idleFor time.Duration) (int, error) {
	sw, ok := s.backend.(Sweeper)
	if !ok {
		return 0, nil
	}
	return sw.DeleteIdle(ctx, s.now().Add(-idleFor))
}

// update is the single read-modify-write path. fn works on a private copy and
// reports whether it changed anything; unchanged records are not written.
func (s *Store) update(ctx context.Context, key domain.SessionKey, fn func(*domain.Record) (bool, error)) error {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, version, err := s.backend.Load(ctx, key)
		if err != nil {
			return fmt.Errorf("load session %s: %w", key, err)
		}
		if version == 0 {
			rec = domain.Record{State: domain.Idle()}
		}

		next := rec.Clone()
		changed, err := fn(&next)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		next.UpdatedAt = s.now()

		ok, err := s.backend.CompareAndSwap(ctx, key, version, next)
		if err != nil {
			return fmt.Errorf("store session %s: %w", key, err)
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("update session %s: %w", key, domain.ErrContention)
}

type lockedRand struct {
	mu sync.Mutex
	r  deck.Rand
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}
