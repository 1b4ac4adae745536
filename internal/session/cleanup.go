package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/PabloGalante/arcana/internal/observability"
)

// DefaultCleanupInterval is how often idle sessions are swept.
const DefaultCleanupInterval = 10 * time.Minute

// CleanupService periodically drops sessions idle for longer than a TTL, so
// the volatile store doesn't grow for the whole process lifetime.
type CleanupService struct {
	store    *Store
	ttl      time.Duration
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewCleanupService(store *Store, ttl, interval time.Duration) *CleanupService {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &CleanupService{store: store, ttl: ttl, interval: interval}
}

// Start launches the sweep loop. Starting twice is a no-op, as is starting
// with a non-positive TTL.
func (c *CleanupService) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running || c.ttl <= 0 {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true

	go c.run(loopCtx, c.done)
}

// Stop cancels the loop and waits for it to exit.
func (c *CleanupService) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	cancel()
	<-done
}

func (c *CleanupService) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *CleanupService) run(ctx context.Context, done chan struct{}) {
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		close(done)
	}()

	log := observability.LoggerFromContext(ctx).With("component", "session.cleanup")

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("cleanup stopping")
			return
		case <-ticker.C:
			c.sweep(ctx, log)
		}
	}
}

func (c *CleanupService) sweep(ctx context.Context, log *slog.Logger) {
	start := time.Now()
	removed, err := c.store.Sweep(ctx, c.ttl)
	if err != nil {
		log.Error("session sweep failed", "error", err)
		return
	}
	if removed > 0 {
		log.Info("swept idle sessions", "removed", removed, "elapsed_ms", time.Since(start).Milliseconds())
	}
}
