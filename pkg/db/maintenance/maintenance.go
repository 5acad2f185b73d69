package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"knowthepast/pkg/db"
)

// Run executes the startup maintenance tasks: history reset and cache pruning.
// Failures are logged, never returned; startup continues either way.
func Run(ctx context.Context, d *db.DB, ttl time.Duration) {
	slog.Info("Starting database maintenance...")

	if n, err := d.ClearPlaces(); err != nil {
		slog.Error("History reset failed", "error", err)
	} else if n > 0 {
		slog.Debug("Cleared discovery history", "count", n)
	}

	prune(d, ttl)
}

// Schedule prunes the cache on the cron expression expr until ctx is done.
// An empty expr disables the schedule and returns a nil stop function.
func Schedule(ctx context.Context, d *db.DB, expr string, ttl time.Duration) (stop func(), err error) {
	if expr == "" {
		return nil, nil
	}

	c := cron.New()
	if _, err := c.AddFunc(expr, func() { prune(d, ttl) }); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", expr, err)
	}
	c.Start()
	slog.Debug("Cache pruning scheduled", "schedule", expr, "ttl", ttl)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		<-c.Stop().Done()
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }, nil
}

func prune(d *db.DB, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	n, err := d.PruneCache(ttl)
	if err != nil {
		slog.Error("Cache pruning failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("Pruned expired cache entries", "count", n)
	}
}
