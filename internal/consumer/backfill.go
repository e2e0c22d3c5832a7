package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"example.com/tripplanner/internal/domain"
)

// Sweeper geocodes every pending location across projects.
type Sweeper interface {
	SweepPendingGeocodes(ctx context.Context) (domain.GeocodeReport, error)
}

// Backfill periodically geocodes locations whose events were lost or failed.
type Backfill struct {
	sweeper Sweeper
	logger  *slog.Logger
}

// NewBackfill constructs a Backfill.
func NewBackfill(sweeper Sweeper, logger *slog.Logger) *Backfill {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backfill{sweeper: sweeper, logger: logger.With("component", "geocode-backfill")}
}

// RunOnce performs one sweep and logs its outcome.
func (b *Backfill) RunOnce(ctx context.Context) (domain.GeocodeReport, error) {
	report, err := b.sweeper.SweepPendingGeocodes(ctx)
	if err != nil {
		b.logger.Error("geocode sweep failed", "error", err, "geocoded", report.Geocoded, "failed", report.Failed)
		return report, err
	}
	if report.Geocoded > 0 || report.Failed > 0 {
		b.logger.Info("geocode sweep finished", "geocoded", report.Geocoded, "failed", report.Failed)
	}
	return report, nil
}

// Schedule registers the sweep on a cron spec (standard five fields or descriptors such as
// "@every 15m") and starts the scheduler. Overlapping runs are skipped. The scheduler stops
// when ctx is cancelled.
func (b *Backfill) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() { _, _ = b.RunOnce(ctx) }); err != nil {
		return nil, fmt.Errorf("schedule geocode backfill %q: %w", spec, err)
	}
	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return c, nil
}
