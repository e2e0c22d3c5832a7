package consumer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/tripplanner/internal/domain"
)

type countingSweeper struct {
	calls  atomic.Int32
	report domain.GeocodeReport
	err    error
}

func (s *countingSweeper) SweepPendingGeocodes(ctx context.Context) (domain.GeocodeReport, error) {
	s.calls.Add(1)
	return s.report, s.err
}

func TestBackfillRunOnce(t *testing.T) {
	sweeper := &countingSweeper{report: domain.GeocodeReport{Geocoded: 2, Failed: 1}}
	report, err := NewBackfill(sweeper, nil).RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, report.Geocoded)

	sweeper.err = errors.New("db down")
	_, err = NewBackfill(sweeper, nil).RunOnce(context.Background())
	require.Error(t, err)
	require.EqualValues(t, 2, sweeper.calls.Load())
}

func TestBackfillSchedule(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := NewBackfill(&countingSweeper{}, nil).Schedule(ctx, "not a cron spec")
	require.Error(t, err)

	sweeper := &countingSweeper{}
	_, err = NewBackfill(sweeper, nil).Schedule(ctx, "@every 1s")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return sweeper.calls.Load() > 0 }, 5*time.Second, 50*time.Millisecond)
}
