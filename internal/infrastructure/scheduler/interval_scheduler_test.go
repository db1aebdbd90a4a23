package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/condo/backend/internal/application/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type countingJob struct {
	runs  atomic.Int32
	err   error
	block chan struct{}
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.block != nil {
		select {
		case <-j.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return j.err
}

func TestNewIntervalScheduler_Validation(t *testing.T) {
	_, err := NewIntervalScheduler(nil, IntervalSchedulerConfig{Enabled: true, Interval: time.Second}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewIntervalScheduler(&countingJob{}, IntervalSchedulerConfig{Enabled: true}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	s, err := NewIntervalScheduler(&countingJob{}, IntervalSchedulerConfig{Enabled: false}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestIntervalScheduler_RunsRepeatedly(t *testing.T) {
	job := &countingJob{}
	s, err := NewIntervalScheduler(job, IntervalSchedulerConfig{
		Enabled:    true,
		Interval:   10 * time.Millisecond,
		RunOnStart: true,
	}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	require.Eventually(t, func() bool { return job.runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))
	assert.False(t, s.IsRunning())

	after := job.runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, job.runs.Load())
	assert.Equal(t, int64(after), s.Stats().Runs)
}

func TestIntervalScheduler_TriggerNow(t *testing.T) {
	t.Run("records failures", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		job := &countingJob{err: errors.New("database is down")}
		s, err := NewIntervalScheduler(job, IntervalSchedulerConfig{Enabled: true, Interval: time.Hour}, zap.New(core))
		require.NoError(t, err)

		err = s.TriggerNow(context.Background())
		require.Error(t, err)

		stats := s.Stats()
		assert.Equal(t, int64(1), stats.Runs)
		assert.Equal(t, int64(1), stats.Failures)
		assert.Equal(t, "database is down", stats.LastError)
		assert.Equal(t, 1, logs.FilterMessage("Scheduled job failed").Len())
	})

	t.Run("refuses to overlap a running job", func(t *testing.T) {
		job := &countingJob{block: make(chan struct{})}
		s, err := NewIntervalScheduler(job, IntervalSchedulerConfig{
			Enabled:    true,
			Interval:   time.Hour,
			RunOnStart: true,
		}, nil)
		require.NoError(t, err)
		require.NoError(t, s.Start(context.Background()))

		require.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, time.Millisecond)
		assert.ErrorIs(t, s.TriggerNow(context.Background()), ErrRunInProgress)

		close(job.block)
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, s.Stop(stopCtx))
	})
}

type MockExpirySweeper struct {
	mock.Mock
}

func (m *MockExpirySweeper) SweepExpired(ctx context.Context) (*payment.ExpirySweepStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.ExpirySweepStats), args.Error(1)
}

func TestExpirySweepJob(t *testing.T) {
	t.Run("logs expired transactions", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		sweeper := new(MockExpirySweeper)
		sweeper.On("SweepExpired", mock.Anything).
			Return(&payment.ExpirySweepStats{TotalStale: 3, Expired: 2, LostRace: 1}, nil).Once()

		job := NewExpirySweepJob(sweeper, zap.New(core))
		assert.Equal(t, "payment-expiry-sweep", job.Name())
		require.NoError(t, job.Run(context.Background()))

		entries := logs.FilterMessage("Expired pending payment transactions").All()
		require.Len(t, entries, 1)
		assert.Equal(t, int64(2), entries[0].ContextMap()["expired"])
		sweeper.AssertExpectations(t)
	})

	t.Run("quiet when nothing expired", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		sweeper := new(MockExpirySweeper)
		sweeper.On("SweepExpired", mock.Anything).Return(&payment.ExpirySweepStats{}, nil).Once()

		require.NoError(t, NewExpirySweepJob(sweeper, zap.New(core)).Run(context.Background()))
		assert.Zero(t, logs.Len())
	})

	t.Run("propagates store failures", func(t *testing.T) {
		sweeper := new(MockExpirySweeper)
		sweeper.On("SweepExpired", mock.Anything).Return(nil, errors.New("connection reset")).Once()

		assert.Error(t, NewExpirySweepJob(sweeper, nil).Run(context.Background()))
	})

	t.Run("runs under the scheduler", func(t *testing.T) {
		sweeper := new(MockExpirySweeper)
		sweeper.On("SweepExpired", mock.Anything).Return(&payment.ExpirySweepStats{}, nil)

		s, err := NewIntervalScheduler(NewExpirySweepJob(sweeper, nil),
			IntervalSchedulerConfig{Enabled: true, Interval: time.Minute}, nil)
		require.NoError(t, err)
		require.NoError(t, s.TriggerNow(context.Background()))
		sweeper.AssertNumberOfCalls(t, "SweepExpired", 1)
	})
}
