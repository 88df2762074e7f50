// Package scheduler drives the platform's named recurring jobs. One
// Scheduler owns many independently-triggered jobs; each job keeps
// process-local bookkeeping (last run window, duration, last success, last
// error, derived next run) readable without blocking a running job. A job's
// panic or error is recorded and swallowed; it never stops future triggers
// of that job or any other.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"stockwatch/internal/types"
)

// JobFunc is one job body. The context is the scheduler's base context and
// is canceled on Stop.
type JobFunc func(ctx context.Context) error

// JobStatus is a point-in-time snapshot of one job's bookkeeping.
type JobStatus struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule"`
	Running  bool   `json:"running"`

	Runs     int `json:"runs"`
	Skips    int `json:"skips"`
	Failures int `json:"failures"`

	LastStart      *time.Time `json:"last_start,omitempty"`
	LastEnd        *time.Time `json:"last_end,omitempty"`
	LastDurationMS int64      `json:"last_duration_ms"`
	LastSuccess    *time.Time `json:"last_success,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
	NextRun        *time.Time `json:"next_run,omitempty"`
}

// jobRecord is the single-writer bookkeeping for one job. The scheduler's
// trigger goroutine is the only writer; status reads take the same mutex but
// never hold it across a job body.
type jobRecord struct {
	mu sync.Mutex

	name     string
	schedule string
	sched    cron.Schedule

	running  bool
	runs     int
	skips    int
	failures int

	lastStart    time.Time
	lastEnd      time.Time
	lastDuration time.Duration
	lastSuccess  time.Time
	lastError    string
}

// tryStart marks the record running unless a previous invocation is still in
// flight, in which case the trigger is counted as a skip.
func (r *jobRecord) tryStart(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		r.skips++
		return false
	}
	r.running = true
	r.lastStart = now
	return true
}

func (r *jobRecord) finish(now time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	r.runs++
	r.lastEnd = now
	r.lastDuration = now.Sub(r.lastStart)
	if err != nil {
		r.failures++
		r.lastError = err.Error()
		return
	}
	r.lastSuccess = now
	r.lastError = ""
}

func (r *jobRecord) snapshot(now time.Time) JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := JobStatus{
		Name:           r.name,
		Schedule:       r.schedule,
		Running:        r.running,
		Runs:           r.runs,
		Skips:          r.skips,
		Failures:       r.failures,
		LastDurationMS: r.lastDuration.Milliseconds(),
		LastError:      r.lastError,
	}
	if !r.lastStart.IsZero() {
		t := r.lastStart
		status.LastStart = &t
	}
	if !r.lastEnd.IsZero() {
		t := r.lastEnd
		status.LastEnd = &t
	}
	if !r.lastSuccess.IsZero() {
		t := r.lastSuccess
		status.LastSuccess = &t
	}
	next := r.sched.Next(now)
	if !next.IsZero() {
		status.NextRun = &next
	}
	return status
}

// Scheduler registers and triggers named jobs on cron schedules.
type Scheduler struct {
	cron   *cron.Cron
	clock  types.Clock
	logger types.Logger

	mu      sync.Mutex
	jobs    map[string]*jobRecord
	order   []string
	baseCtx context.Context
	started bool
}

// New creates a stopped scheduler. Schedule expressions use the standard
// five-field cron syntax plus @every/@daily descriptors.
func New(clock types.Clock, logger types.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		clock:   clock,
		logger:  logger,
		jobs:    make(map[string]*jobRecord),
		baseCtx: context.Background(),
	}
}

// Register adds a named job. Registering a name twice is an error, never a
// second trigger source.
func (s *Scheduler) Register(name, scheduleExpr string, fn JobFunc) error {
	sched, err := cron.ParseStandard(scheduleExpr)
	if err != nil {
		return types.NewAppError(types.ErrCodeSchedulerSchedule,
			fmt.Sprintf("invalid schedule %q for job %s", scheduleExpr, name), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return types.NewAppError(types.ErrCodeSchedulerDuplicate,
			fmt.Sprintf("job %s is already registered", name), nil)
	}

	record := &jobRecord{name: name, schedule: scheduleExpr, sched: sched}
	s.jobs[name] = record
	s.order = append(s.order, name)

	if _, err := s.cron.AddFunc(scheduleExpr, func() { s.run(record, fn) }); err != nil {
		delete(s.jobs, name)
		s.order = s.order[:len(s.order)-1]
		return types.NewAppError(types.ErrCodeSchedulerSchedule,
			fmt.Sprintf("failed to schedule job %s", name), err)
	}

	s.logger.Info("job registered", "job", name, "schedule", scheduleExpr)
	return nil
}

// run executes one trigger of a job: skip-if-running guard, panic recovery,
// bookkeeping. Job failures are recorded and swallowed.
func (s *Scheduler) run(record *jobRecord, fn JobFunc) {
	now := s.clock.Now()
	if !record.tryStart(now) {
		s.logger.Warn("job still running, trigger skipped", "job", record.name)
		return
	}

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job panicked: %v", r)
			}
		}()
		err = fn(s.baseCtx)
	}()

	end := s.clock.Now()
	record.finish(end, err)
	if err != nil {
		s.logger.Error("job failed",
			"error", err.Error(),
			"job", record.name,
			"duration_ms", end.Sub(now).Milliseconds(),
		)
		return
	}
	s.logger.Info("job completed",
		"job", record.name,
		"duration_ms", end.Sub(now).Milliseconds(),
	)
}

// Start begins triggering registered jobs. ctx becomes the base context
// handed to every job body.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	if ctx != nil {
		s.baseCtx = ctx
	}
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.jobs))
}

// Stop halts triggering and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Status returns a snapshot for every registered job in registration order.
// Reading status never blocks a running job body.
func (s *Scheduler) Status() []JobStatus {
	now := s.clock.Now()
	s.mu.Lock()
	records := make([]*jobRecord, 0, len(s.order))
	for _, name := range s.order {
		records = append(records, s.jobs[name])
	}
	s.mu.Unlock()

	statuses := make([]JobStatus, len(records))
	for i, r := range records {
		statuses[i] = r.snapshot(now)
	}
	return statuses
}

// JobStatusByName returns the snapshot for one job.
func (s *Scheduler) JobStatusByName(name string) (JobStatus, error) {
	s.mu.Lock()
	record, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return JobStatus{}, types.NewAppError(types.ErrCodeNotFoundJob,
			fmt.Sprintf("job %s is not registered", name), nil)
	}
	return record.snapshot(s.clock.Now()), nil
}
