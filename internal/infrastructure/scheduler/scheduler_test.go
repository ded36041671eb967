package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/logger"
)

type countingJob struct {
	name  string
	runs  atomic.Int32
	err   error
	block chan struct{}
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "test job " + j.name }
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

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	released []string
	err      error
}

func (l *fakeLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held[name] {
		return nil, false, nil
	}
	l.held[name] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, name)
		l.released = append(l.released, name)
		return nil
	}, true, nil
}

func newTestScheduler(locker Locker) *Scheduler {
	return NewScheduler(SchedulerConfig{Logger: logger.Nop(), Locker: locker, JobTimeout: time.Second})
}

func TestParseSpec(t *testing.T) {
	for _, spec := range []string{"*/5 * * * *", "0 3 * * *", "@hourly", "@every 90s"} {
		_, err := ParseSpec(spec)
		assert.NoError(t, err, spec)
	}
	_, err := ParseSpec("every now and then")
	assert.ErrorIs(t, err, ErrInvalidSpec)
	_, err = ParseSpec("* * * * * *")
	assert.ErrorIs(t, err, ErrInvalidSpec, "seconds field is not accepted")
}

func TestRegister(t *testing.T) {
	s := newTestScheduler(nil)

	require.NoError(t, s.Register(&countingJob{name: "a"}, "@hourly"))
	assert.ErrorIs(t, s.Register(&countingJob{name: "a"}, "@hourly"), ErrJobAlreadyExists)
	assert.ErrorIs(t, s.Register(nil, "@hourly"), ErrNilJob)
	assert.ErrorIs(t, s.Register(&countingJob{name: "b"}, "bogus"), ErrInvalidSpec)

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "a", jobs[0].Name)
	assert.Equal(t, "@hourly", jobs[0].Schedule)
}

func TestRunNow(t *testing.T) {
	s := newTestScheduler(nil)
	ok := &countingJob{name: "ok"}
	bad := &countingJob{name: "bad", err: errors.New("boom")}
	require.NoError(t, s.Register(ok, "@daily"))
	require.NoError(t, s.Register(bad, "@daily"))

	res, err := s.RunNow(context.Background(), "ok")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Manual)
	assert.EqualValues(t, 1, ok.runs.Load())

	res, err = s.RunNow(context.Background(), "bad")
	assert.EqualError(t, err, "boom")
	assert.False(t, res.Success)

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	snap := s.GetMetrics().Snapshot()
	assert.EqualValues(t, 2, snap.TotalExecutions)
	assert.EqualValues(t, 1, snap.TotalFailures)
	assert.InDelta(t, 0.5, snap.SuccessRate, 1e-9)

	history := s.GetHistory(10)
	require.Len(t, history, 2)
	assert.Equal(t, "ok", history[0].JobName)
	assert.Equal(t, "bad", history[1].JobName)
}

func TestRunNow_HonoursLock(t *testing.T) {
	locker := &fakeLocker{held: map[string]bool{"reconcile": true}}
	s := newTestScheduler(locker)
	job := &countingJob{name: "reconcile"}
	require.NoError(t, s.Register(job, "@daily"))

	res, err := s.RunNow(context.Background(), "reconcile")
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Zero(t, job.runs.Load(), "job held elsewhere does not run")

	delete(locker.held, "reconcile")
	res, err = s.RunNow(context.Background(), "reconcile")
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.EqualValues(t, 1, job.runs.Load())
	assert.Equal(t, []string{"reconcile"}, locker.released)
}

func TestRunNow_LockError(t *testing.T) {
	s := newTestScheduler(&fakeLocker{err: errors.New("redis down")})
	job := &countingJob{name: "j"}
	require.NoError(t, s.Register(job, "@daily"))

	_, err := s.RunNow(context.Background(), "j")
	assert.ErrorContains(t, err, "redis down")
	assert.Zero(t, job.runs.Load())
}

func TestRunNow_TimesOut(t *testing.T) {
	s := NewScheduler(SchedulerConfig{Logger: logger.Nop(), JobTimeout: 20 * time.Millisecond})
	job := &countingJob{name: "slow", block: make(chan struct{})}
	require.NoError(t, s.Register(job, "@daily"))

	_, err := s.RunNow(context.Background(), "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStartStop(t *testing.T) {
	s := newTestScheduler(nil)
	job := &countingJob{name: "tick"}
	require.NoError(t, s.Register(job, "@every 1s"))

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	assert.Eventually(t, func() bool { return job.runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}
