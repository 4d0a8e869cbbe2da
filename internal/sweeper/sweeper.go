package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"otterseal/pkg/logger"
	"otterseal/pkg/store"
	"otterseal/pkg/telemetry"
)

// DefaultInterval is the sweep cadence when no cron expression is
// configured. Lazy deletion on access handles notes that are still being
// looked at; the sweeper is the safety net for notes nobody touches
// again.
const DefaultInterval = time.Minute

// Config controls the background sweep. Interval is used when Cron is
// empty; a non-empty Cron takes precedence and supports full cron
// syntax.
type Config struct {
	Enabled  bool
	Interval time.Duration
	Cron     string
}

// Start launches the sweep scheduler and returns a cancel func. With an
// invalid cron expression it returns an error and starts nothing.
func Start(ctx context.Context, cfg Config) (context.CancelFunc, error) {
	if !cfg.Enabled {
		logger.Info("sweeper_disabled")
		return func() {}, nil
	}
	if cfg.Cron != "" && !gronx.IsValid(cfg.Cron) {
		logger.Error("sweeper_invalid_cron", "cron", cfg.Cron)
		return nil, fmt.Errorf("invalid sweep cron expression: %s", cfg.Cron)
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	ctx2, cancel := context.WithCancel(ctx)
	if cfg.Cron != "" {
		logger.Info("sweeper_started", "cron", cfg.Cron)
		go runCron(ctx2, cfg.Cron)
	} else {
		logger.Info("sweeper_started", "interval", interval.String())
		go runTicker(ctx2, interval)
	}
	return cancel, nil
}

func runTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("sweeper_stopping")
			return
		case <-ticker.C:
			RunOnce()
		}
	}
}

// runCron computes the next tick for the configured expression and
// sleeps until then, mirroring how the scheduler behaves under cron.
func runCron(ctx context.Context, expr string) {
	for {
		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(expr, now, false)
		if err != nil {
			logger.Error("sweeper_nexttick_failed", "cron", expr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				logger.Info("sweeper_stopping")
				return
			}
			continue
		}
		select {
		case <-time.After(time.Until(next)):
			RunOnce()
		case <-ctx.Done():
			logger.Info("sweeper_stopping")
			return
		}
	}
}

// RunOnce performs a single sweep and returns the number of notes
// removed. Exposed so tests and admin triggers can sweep on demand.
func RunOnce() int {
	count, err := store.SweepExpired(time.Now().UnixMilli())
	if err != nil {
		logger.Error("sweep_failed", "error", err)
		return 0
	}
	if count > 0 {
		telemetry.NotesSwept.Add(float64(count))
		logger.Info("swept_expired_notes", "count", count)
	}
	return count
}
