// Package scheduler runs KopiO's periodic maintenance jobs (total
// reconciliation, leaderboard cache warm-up) on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Job defines the interface that all scheduled jobs must implement.
type Job interface {
	// Name returns the unique name of the job.
	Name() string

	// Run executes the job.
	// The context is cancelled when the scheduler is stopping.
	Run(ctx context.Context) error

	// Description returns a human-readable description of the job.
	Description() string
}

// Locker provides cross-instance mutual exclusion for job runs.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error)
}

// JobResult contains the result of a job execution.
type JobResult struct {
	JobName     string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Success     bool
	Skipped     bool
	Manual      bool
	Error       error
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// Scheduler manages and executes scheduled jobs on top of robfig/cron.
type Scheduler struct {
	mu sync.RWMutex

	cron   *cron.Cron
	logger *logger.Logger
	config SchedulerConfig

	jobs      map[string]*scheduledJob
	running   bool
	ctx       context.Context
	cancel    context.CancelFunc
	startedAt time.Time

	metrics    *SchedulerMetrics
	lastRuns   map[string]*JobResult
	runHistory []JobResult
}

// scheduledJob wraps a Job with scheduling information.
type scheduledJob struct {
	job       Job
	spec      string
	entryID   cron.EntryID
	runCount  int64
	failCount int64
}

// SchedulerConfig contains configuration for the Scheduler.
type SchedulerConfig struct {
	// Logger for structured logging.
	Logger *logger.Logger

	// Location for schedule calculations (default: UTC).
	Location *time.Location

	// JobTimeout bounds a single run.
	JobTimeout time.Duration

	// Locker, when set, keeps a job from running on two instances at once.
	Locker Locker

	// LockTTL is how long a run holds its lock at most.
	LockTTL time.Duration

	// MaxHistorySize is the maximum number of job results to keep in history.
	MaxHistorySize int
}

// DefaultSchedulerConfig returns sensible defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Logger:         logger.Default(),
		Location:       time.UTC,
		JobTimeout:     5 * time.Minute,
		LockTTL:        5 * time.Minute,
		MaxHistorySize: 200,
	}
}

// NewScheduler creates a new Scheduler with the given configuration.
func NewScheduler(config SchedulerConfig) *Scheduler {
	defaults := DefaultSchedulerConfig()
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}
	if config.Location == nil {
		config.Location = defaults.Location
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = defaults.JobTimeout
	}
	if config.LockTTL <= 0 {
		config.LockTTL = config.JobTimeout
	}
	if config.MaxHistorySize <= 0 {
		config.MaxHistorySize = defaults.MaxHistorySize
	}

	log := config.Logger.Named("scheduler")
	adapter := cronLogger{log: log}

	s := &Scheduler{
		logger: log,
		config: config,
		cron: cron.New(
			cron.WithParser(specParser),
			cron.WithLocation(config.Location),
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
		jobs:       make(map[string]*scheduledJob),
		lastRuns:   make(map[string]*JobResult),
		runHistory: make([]JobResult, 0, config.MaxHistorySize),
		metrics:    NewSchedulerMetrics(),
		ctx:        context.Background(),
	}
	return s
}

// ══════════════════════════════════════════════════════════════════════════════
// JOB REGISTRATION
// ══════════════════════════════════════════════════════════════════════════════

// Register adds a job to the scheduler with the given cron spec.
func (s *Scheduler) Register(job Job, spec string) error {
	if job == nil {
		return ErrNilJob
	}
	schedule, err := ParseSpec(spec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyExists, name)
	}

	sj := &scheduledJob{job: job, spec: spec}
	sj.entryID = s.cron.Schedule(schedule, cron.FuncJob(func() {
		_, _ = s.execute(s.runContext(), sj, false)
	}))
	s.jobs[name] = sj

	s.logger.Info("job registered",
		logger.String("job", name),
		logger.String("schedule", spec),
		logger.String("description", job.Description()),
	)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start begins running jobs on their schedules. It does not block.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrSchedulerAlreadyRunning
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.startedAt = time.Now()
	s.cron.Start()

	s.logger.Info("scheduler started", logger.Int("jobs_count", len(s.jobs)))
	return nil
}

// Stop stops the scheduler and waits for running jobs to complete.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	<-s.cron.Stop().Done()

	s.logger.Info("scheduler stopped", logger.Duration("uptime", time.Since(s.startedAt)))
	return nil
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) runContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}

// ══════════════════════════════════════════════════════════════════════════════
// EXECUTION
// ══════════════════════════════════════════════════════════════════════════════

// RunNow immediately executes a job by name, ignoring its schedule.
func (s *Scheduler) RunNow(ctx context.Context, jobName string) (*JobResult, error) {
	s.mu.RLock()
	sj, exists := s.jobs[jobName]
	s.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
	}
	return s.execute(ctx, sj, true)
}

// execute runs one job under its lock and timeout and records the result.
func (s *Scheduler) execute(ctx context.Context, sj *scheduledJob, manual bool) (*JobResult, error) {
	jobName := sj.job.Name()
	log := s.logger.With(logger.String("job", jobName), logger.Bool("manual", manual))
	result := &JobResult{JobName: jobName, StartedAt: time.Now(), Manual: manual}

	if s.config.Locker != nil {
		release, acquired, err := s.config.Locker.Acquire(ctx, jobName, s.config.LockTTL)
		if err != nil {
			log.Warn("job lock unavailable", logger.Err(err))
			result.Error = fmt.Errorf("acquire lock: %w", err)
			result.CompletedAt = time.Now()
			s.record(sj, result)
			return result, result.Error
		}
		if !acquired {
			log.Debug("job skipped, running elsewhere")
			result.Skipped = true
			result.Success = true
			result.CompletedAt = time.Now()
			return result, nil
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("job lock release failed", logger.Err(err))
			}
		}()
	}

	runCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	log.Info("job started")
	err := sj.job.Run(runCtx)

	result.CompletedAt = time.Now()
	result.Duration = result.CompletedAt.Sub(result.StartedAt)
	result.Success = err == nil
	result.Error = err
	s.record(sj, result)

	if err != nil {
		log.Error("job failed", logger.Duration("duration", result.Duration), logger.Err(err))
	} else {
		log.Info("job completed", logger.Duration("duration", result.Duration))
	}
	return result, err
}

func (s *Scheduler) record(sj *scheduledJob, result *JobResult) {
	s.metrics.RecordExecution(result.JobName, result.Duration, result.Success)

	s.mu.Lock()
	defer s.mu.Unlock()

	sj.runCount++
	if !result.Success {
		sj.failCount++
	}
	s.lastRuns[result.JobName] = result
	s.runHistory = append(s.runHistory, *result)
	if len(s.runHistory) > s.config.MaxHistorySize {
		s.runHistory = s.runHistory[len(s.runHistory)-s.config.MaxHistorySize:]
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// STATUS & INFO
// ══════════════════════════════════════════════════════════════════════════════

// JobInfo contains information about a registered job.
type JobInfo struct {
	Name        string
	Description string
	Schedule    string
	NextRun     time.Time
	RunCount    int64
	FailCount   int64
	LastResult  *JobResult
}

// ListJobs returns information about all registered jobs ordered by name.
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for name, sj := range s.jobs {
		infos = append(infos, JobInfo{
			Name:        name,
			Description: sj.job.Description(),
			Schedule:    sj.spec,
			NextRun:     s.cron.Entry(sj.entryID).Next,
			RunCount:    sj.runCount,
			FailCount:   sj.failCount,
			LastResult:  s.lastRuns[name],
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// GetHistory returns up to limit of the most recent results, oldest first.
func (s *Scheduler) GetHistory(limit int) []JobResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.runHistory) {
		limit = len(s.runHistory)
	}
	result := make([]JobResult, limit)
	copy(result, s.runHistory[len(s.runHistory)-limit:])
	return result
}

// GetMetrics returns scheduler metrics.
func (s *Scheduler) GetMetrics() *SchedulerMetrics {
	return s.metrics
}

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// SchedulerMetrics tracks scheduler performance metrics.
type SchedulerMetrics struct {
	mu sync.RWMutex

	TotalExecutions int64
	TotalSuccesses  int64
	TotalFailures   int64
	TotalDuration   time.Duration

	ExecutionsByJob map[string]int64
	FailuresByJob   map[string]int64
}

// NewSchedulerMetrics creates a new metrics tracker.
func NewSchedulerMetrics() *SchedulerMetrics {
	return &SchedulerMetrics{
		ExecutionsByJob: make(map[string]int64),
		FailuresByJob:   make(map[string]int64),
	}
}

// RecordExecution records a job execution.
func (m *SchedulerMetrics) RecordExecution(jobName string, duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalExecutions++
	m.TotalDuration += duration
	m.ExecutionsByJob[jobName]++

	if success {
		m.TotalSuccesses++
	} else {
		m.TotalFailures++
		m.FailuresByJob[jobName]++
	}
}

// Snapshot returns a point-in-time snapshot of metrics.
func (m *SchedulerMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		TotalExecutions: m.TotalExecutions,
		TotalSuccesses:  m.TotalSuccesses,
		TotalFailures:   m.TotalFailures,
	}
	if m.TotalExecutions > 0 {
		snap.AverageDuration = m.TotalDuration / time.Duration(m.TotalExecutions)
		snap.SuccessRate = float64(m.TotalSuccesses) / float64(m.TotalExecutions)
	}
	return snap
}

// MetricsSnapshot is a point-in-time snapshot of scheduler metrics.
type MetricsSnapshot struct {
	TotalExecutions int64
	TotalSuccesses  int64
	TotalFailures   int64
	SuccessRate     float64
	AverageDuration time.Duration
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrNilJob is returned when trying to register a nil job.
	ErrNilJob = errors.New("job cannot be nil")

	// ErrInvalidSpec is returned for an unparsable schedule.
	ErrInvalidSpec = errors.New("invalid schedule")

	// ErrJobAlreadyExists is returned when a job with the same name already exists.
	ErrJobAlreadyExists = errors.New("job already exists")

	// ErrJobNotFound is returned when a job is not found.
	ErrJobNotFound = errors.New("job not found")

	// ErrSchedulerAlreadyRunning is returned when Start is called on a running scheduler.
	ErrSchedulerAlreadyRunning = errors.New("scheduler is already running")

	// ErrSchedulerNotRunning is returned when Stop is called on a stopped scheduler.
	ErrSchedulerNotRunning = errors.New("scheduler is not running")
)
