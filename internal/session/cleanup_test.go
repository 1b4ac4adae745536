package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/arcana/internal/adapters/storage/memory"
	"github.com/PabloGalante/arcana/internal/session"
)

func TestCleanupServiceStartStop(t *testing.T) {
	store := session.NewStore(memory.NewSessionStore(), newDeck(t, "A"))
	svc := session.NewCleanupService(store, time.Hour, 10*time.Millisecond)

	svc.Start(context.Background())
	assert.True(t, svc.IsRunning())

	svc.Start(context.Background()) // no-op
	svc.Stop()
	assert.False(t, svc.IsRunning())

	svc.Stop() // no-op
}

func TestCleanupServiceDisabledWithoutTTL(t *testing.T) {
	store := session.NewStore(memory.NewSessionStore(), newDeck(t, "A"))
	svc := session.NewCleanupService(store, 0, time.Millisecond)

	svc.Start(context.Background())
	assert.False(t, svc.IsRunning())
}

func TestCleanupServiceSweepsIdleSessions(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewSessionStore()
	store := session.NewStore(backend, newDeck(t, "A"),
		session.WithClock(func() time.Time { return time.Now().Add(-time.Hour) }))
	_, err := store.GetOrCreate(ctx, key)
	require.NoError(t, err)

	// the sweeper's own store sees the real time
	sweeper := session.NewStore(backend, newDeck(t, "A"))
	svc := session.NewCleanupService(sweeper, time.Minute, 5*time.Millisecond)
	svc.Start(ctx)
	defer svc.Stop()

	assert.Eventually(t, func() bool { return backend.Len() == 0 }, time.Second, 5*time.Millisecond)
}
