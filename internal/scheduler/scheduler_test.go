package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stockwatch/internal/types"
)

type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type mockLogger struct{}

func (l *mockLogger) Info(msg string, args ...any)  {}
func (l *mockLogger) Error(msg string, args ...any) {}
func (l *mockLogger) Warn(msg string, args ...any)  {}
func (l *mockLogger) With(args ...any) types.Logger { return l }

var schedTestNow = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

func noopJob(ctx context.Context) error { return nil }

func newTestScheduler() (*Scheduler, *mockClock) {
	clock := &mockClock{now: schedTestNow}
	return New(clock, &mockLogger{}), clock
}

func appErrCode(t *testing.T, err error) types.ErrorCode {
	t.Helper()
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %v", err)
	}
	return appErr.Code
}

func TestRegister_InvalidSchedule(t *testing.T) {
	s, _ := newTestScheduler()

	err := s.Register("broken", "not a schedule", func(ctx context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected error for invalid schedule")
	}
	if code := appErrCode(t, err); code != types.ErrCodeSchedulerSchedule {
		t.Fatalf("expected schedule error code, got %s", code)
	}
}

func TestRegister_DuplicateName(t *testing.T) {
	s, _ := newTestScheduler()

	if err := s.Register("sweep", "@every 1m", noopJob); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	err := s.Register("sweep", "@every 5m", noopJob)
	if err == nil {
		t.Fatal("expected error for duplicate name")
	}
	if code := appErrCode(t, err); code != types.ErrCodeSchedulerDuplicate {
		t.Fatalf("expected duplicate error code, got %s", code)
	}
	if len(s.Status()) != 1 {
		t.Fatal("duplicate registration must not add a second trigger source")
	}
}

func TestRun_RecordsSuccess(t *testing.T) {
	s, clock := newTestScheduler()
	if err := s.Register("sweep", "@every 1m", noopJob); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	calls := 0
	s.run(s.jobs["sweep"], func(ctx context.Context) error {
		calls++
		clock.advance(250 * time.Millisecond)
		return nil
	})

	if calls != 1 {
		t.Fatalf("expected one invocation, got %d", calls)
	}
	status, err := s.JobStatusByName("sweep")
	if err != nil {
		t.Fatalf("status lookup failed: %v", err)
	}
	if status.Runs != 1 || status.Failures != 0 || status.Running {
		t.Fatalf("unexpected bookkeeping: %+v", status)
	}
	if status.LastSuccess == nil || status.LastError != "" {
		t.Fatalf("success must set lastSuccess and clear lastError: %+v", status)
	}
	if status.LastDurationMS != 250 {
		t.Fatalf("expected 250ms duration, got %d", status.LastDurationMS)
	}
}

func TestRun_RecordsFailureThenClearsOnSuccess(t *testing.T) {
	s, _ := newTestScheduler()
	if err := s.Register("sweep", "@every 1m", noopJob); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	record := s.jobs["sweep"]

	s.run(record, func(ctx context.Context) error { return errors.New("upstream timeout") })

	status, _ := s.JobStatusByName("sweep")
	if status.Failures != 1 || status.LastError != "upstream timeout" {
		t.Fatalf("failure not recorded: %+v", status)
	}
	if status.LastSuccess != nil {
		t.Fatal("a failed run must not move lastSuccess")
	}

	s.run(record, func(ctx context.Context) error { return nil })

	status, _ = s.JobStatusByName("sweep")
	if status.Runs != 2 || status.LastError != "" || status.LastSuccess == nil {
		t.Fatalf("success must clear the recorded error: %+v", status)
	}
}

func TestRun_SkipsWhileRunning(t *testing.T) {
	s, _ := newTestScheduler()
	if err := s.Register("sweep", "@every 1m", noopJob); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	record := s.jobs["sweep"]

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		s.run(record, func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
		close(done)
	}()
	<-started

	// A trigger arriving mid-run is counted and dropped.
	s.run(record, func(ctx context.Context) error {
		t.Error("overlapping trigger must not execute")
		return nil
	})

	close(release)
	<-done

	status, _ := s.JobStatusByName("sweep")
	if status.Runs != 1 || status.Skips != 1 {
		t.Fatalf("expected 1 run and 1 skip, got %+v", status)
	}
}

func TestRun_RecoversPanic(t *testing.T) {
	s, _ := newTestScheduler()
	if err := s.Register("sweep", "@every 1m", noopJob); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	record := s.jobs["sweep"]

	s.run(record, func(ctx context.Context) error { panic("nil map write") })

	status, _ := s.JobStatusByName("sweep")
	if status.Failures != 1 {
		t.Fatalf("panic must count as a failure: %+v", status)
	}
	if status.LastError != "job panicked: nil map write" {
		t.Fatalf("unexpected lastError %q", status.LastError)
	}
	if status.Running {
		t.Fatal("record must not stay marked running after a panic")
	}

	// The job remains triggerable.
	s.run(record, func(ctx context.Context) error { return nil })
	status, _ = s.JobStatusByName("sweep")
	if status.Runs != 2 {
		t.Fatalf("job must keep running after a panic: %+v", status)
	}
}

func TestStatus_RegistrationOrderAndNextRun(t *testing.T) {
	s, _ := newTestScheduler()
	for _, name := range []string{"charlie", "alpha", "bravo"} {
		if err := s.Register(name, "@every 10m", noopJob); err != nil {
			t.Fatalf("register %s failed: %v", name, err)
		}
	}

	statuses := s.Status()
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	for i, want := range []string{"charlie", "alpha", "bravo"} {
		if statuses[i].Name != want {
			t.Fatalf("expected registration order, got %v", statuses)
		}
	}
	want := schedTestNow.Add(10 * time.Minute)
	if statuses[0].NextRun == nil || !statuses[0].NextRun.Equal(want) {
		t.Fatalf("expected next run at %v, got %v", want, statuses[0].NextRun)
	}
}

func TestJobStatusByName_Unknown(t *testing.T) {
	s, _ := newTestScheduler()

	_, err := s.JobStatusByName("ghost")
	if err == nil {
		t.Fatal("expected error for unknown job")
	}
	if code := appErrCode(t, err); code != types.ErrCodeNotFoundJob {
		t.Fatalf("expected not-found code, got %s", code)
	}
}
