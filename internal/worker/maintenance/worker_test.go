package maintenance_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"
	"github.com/robalyx/retract/internal/setup/config"
	"github.com/robalyx/retract/internal/worker/core"
	"github.com/robalyx/retract/internal/worker/maintenance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type retention struct {
	calls atomic.Int32
	days  atomic.Int32
	n     int
	err   error
	hook  func()
}

func (r *retention) Cleanup(_ context.Context, days int) (int, error) {
	r.calls.Add(1)
	r.days.Store(int32(days))

	if r.hook != nil {
		r.hook()
	}

	return r.n, r.err
}

type relationships struct {
	maxAge atomic.Int64
}

func (r *relationships) Cleanup(maxAge time.Duration) int {
	r.maxAge.Store(int64(maxAge))
	return 2
}

type cache struct{ calls atomic.Int32 }

func (c *cache) PurgeExpired() int {
	c.calls.Add(1)
	return 4
}

func moderation() config.ModerationConfig {
	return config.Default().Moderation
}

func TestRunOnce(t *testing.T) {
	t.Parallel()

	history := &retention{n: 3}
	reviews := &retention{n: 1}
	rels := &relationships{}
	purger := &cache{}
	reporter := core.NewStatusReporter(nil, "maintenance", zap.NewNop())

	w := maintenance.New(maintenance.Options{
		History:       history,
		Relationships: rels,
		Reviews:       reviews,
		Cache:         purger,
		Moderation:    moderation(),
		Reporter:      reporter,
	}, zap.NewNop())

	result := w.RunOnce(t.Context())

	assert.Equal(t, maintenance.Result{DeletionRecords: 3, Relationships: 2, ReviewRecords: 1, CacheEntries: 4}, result)
	assert.Equal(t, int32(30), history.days.Load())
	assert.Equal(t, int32(90), reviews.days.Load())
	assert.Equal(t, int64(24*time.Hour), rels.maxAge.Load())

	status := reporter.Status()
	assert.Equal(t, "Completed", status.CurrentTask)
	assert.Equal(t, 100, status.Progress)
	assert.True(t, status.IsHealthy)
}

func TestFailureMarksUnhealthy(t *testing.T) {
	t.Parallel()

	reporter := core.NewStatusReporter(nil, "maintenance", zap.NewNop())
	w := maintenance.New(maintenance.Options{
		History:    &retention{err: errors.New("disk full")},
		Moderation: moderation(),
		Reporter:   reporter,
	}, zap.NewNop())

	result := w.RunOnce(t.Context())

	assert.False(t, result.Interrupted, "other steps still run")
	assert.False(t, reporter.Status().IsHealthy)
}

func TestCancelMidPass(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	history := &retention{hook: cancel}
	reviews := &retention{}
	purger := &cache{}

	w := maintenance.New(maintenance.Options{
		History:    history,
		Reviews:    reviews,
		Cache:      purger,
		Moderation: moderation(),
	}, zap.NewNop())

	result := w.RunOnce(ctx)

	assert.True(t, result.Interrupted)
	assert.Equal(t, int32(1), history.calls.Load())
	assert.Zero(t, reviews.calls.Load())
	assert.Zero(t, purger.calls.Load())
}

func TestStartStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	history := &retention{}
	reporter := core.NewStatusReporter(nil, "maintenance", zap.NewNop())

	w := maintenance.New(maintenance.Options{History: history, Moderation: moderation(), Reporter: reporter}, zap.NewNop())
	w.SetInterval(5 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		w.Start(ctx)
	}()

	assert.Eventually(t, func() bool { return history.calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestReporterPublishesHeartbeat(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	reporter := core.NewStatusReporter(client, "maintenance", zap.NewNop())
	reporter.SetInterval(5 * time.Millisecond)
	reporter.UpdateStatus("Collecting relationships", 50)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	go reporter.Run(ctx)

	var statuses []core.Status
	require.Eventually(t, func() bool {
		statuses, err = core.GetAllStatuses(ctx, client, zap.NewNop())
		return err == nil && len(statuses) == 1
	}, time.Second, 5*time.Millisecond)

	status := statuses[0]
	assert.Equal(t, reporter.GetWorkerID(), status.WorkerID)
	assert.Equal(t, "Collecting relationships", status.CurrentTask)
	assert.Equal(t, 50, status.Progress)
	assert.False(t, status.Stale(time.Now()))
	assert.True(t, status.Stale(time.Now().Add(2*time.Minute)))
}
