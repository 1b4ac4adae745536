package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/arcana/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/arcana/internal/deck"
	"github.com/PabloGalante/arcana/internal/domain"
	"github.com/PabloGalante/arcana/internal/session"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

var key = domain.SessionKey{GuildID: "g1", UserID: "u1"}

func TestRoundTripAndVersions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, version, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Zero(t, version)

	rec := domain.Record{
		State:   domain.AwaitingQuestion(domain.SpreadThree),
		History: []string{"The Fool", "The Sun"},
		Context: []domain.Turn{{
			ID:       "t1",
			Question: "what now?",
			Cards: []domain.DrawnCard{
				{Card: domain.Card{Name: "The Sun", Image: "the_sun"}, Orientation: domain.Reversed},
			},
			Interpretation: "light",
			At:             time.UnixMilli(1700000000000).UTC(),
		}},
		UpdatedAt: time.UnixMilli(1700000000000).UTC(),
	}
	ok, err := store.CompareAndSwap(ctx, key, 0, rec)
	require.NoError(t, err)
	require.True(t, ok)

	got, version, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Positive(t, version)
	assert.Equal(t, rec, got)

	ok, err = store.CompareAndSwap(ctx, key, 0, rec)
	require.NoError(t, err)
	assert.False(t, ok, "create over an existing row")

	ok, err = store.CompareAndSwap(ctx, key, version-1, rec)
	require.NoError(t, err)
	assert.False(t, ok, "stale version")

	ok, err = store.CompareAndSwap(ctx, key, version, domain.Record{State: domain.Ended()})
	require.NoError(t, err)
	assert.True(t, ok)

	_, next, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Greater(t, next, version)

	require.NoError(t, store.Delete(ctx, key))
	_, version, err = store.Load(ctx, key)
	require.NoError(t, err)
	assert.Zero(t, version)
}

func TestRecreatedRowRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	ok, err := store.CompareAndSwap(ctx, key, 0, domain.Record{State: domain.AwaitingFollowUpChoice()})
	require.NoError(t, err)
	require.True(t, ok)
	_, old, err := store.Load(ctx, key)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, key))
	ok, err = store.CompareAndSwap(ctx, key, 0, domain.Record{State: domain.Idle()})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.CompareAndSwap(ctx, key, old, domain.Record{State: domain.Ended()})
	require.NoError(t, err)
	assert.False(t, ok, "write from before the delete")

	got, version, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Greater(t, version, old)
	assert.Equal(t, domain.Idle(), got.State)
}

func TestDeleteIdle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now()

	_, err := store.CompareAndSwap(ctx, domain.SessionKey{UserID: "old"}, 0, domain.Record{UpdatedAt: now.Add(-48 * time.Hour)})
	require.NoError(t, err)
	_, err = store.CompareAndSwap(ctx, domain.SessionKey{UserID: "new"}, 0, domain.Record{UpdatedAt: now})
	require.NoError(t, err)

	n, err := store.DeleteIdle(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWorksAsSessionBackend(t *testing.T) {
	ctx := context.Background()
	d, err := deck.Embedded("major")
	require.NoError(t, err)
	store := session.NewStore(newTestStore(t), d)

	cards, err := store.DrawCards(ctx, key, 3)
	require.NoError(t, err)
	require.Len(t, cards, 3)

	rec, err := store.GetOrCreate(ctx, key)
	require.NoError(t, err)
	assert.Len(t, rec.History, 3)

	swapped, err := store.CompareAndSwapState(ctx, key, domain.Idle(), domain.AwaitingSpreadChoice())
	require.NoError(t, err)
	assert.True(t, swapped)
}
