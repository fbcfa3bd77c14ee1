package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nextlevelbuilder/homeworq/internal/schedule"
	"github.com/nextlevelbuilder/homeworq/internal/store"
	"github.com/nextlevelbuilder/homeworq/internal/task"
)

func openRunnerStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "runner.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunner_SkipsOverlappingTick(t *testing.T) {
	st := openRunnerStore(t)
	registry := task.NewRegistry()

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	err := registry.Register(task.Task{
		Name: "slow",
		Handle: func(ctx context.Context, params map[string]any) (any, error) {
			started <- struct{}{}
			<-release
			return "done", nil
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	job, err := st.CreateJob(store.JobCreate{TaskName: "slow", Schedule: schedule.Schedule{Interval: 1, Unit: schedule.Seconds}})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	runner := NewRunner(job.ID, registry, st, NewExecutor())

	if !runner.TryRun(context.Background(), *job) {
		t.Fatal("expected first TryRun to start")
	}
	<-started // wait until the handle is actually in flight

	if runner.TryRun(context.Background(), *job) {
		t.Fatal("expected second TryRun to be skipped while the first is active")
	}

	close(release)
	deadline := time.After(time.Second)
	for runner.IsActive() {
		select {
		case <-deadline:
			t.Fatal("runner still active after release")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestRunner_RecordsTaskNotFoundWithoutPanicking(t *testing.T) {
	st := openRunnerStore(t)
	registry := task.NewRegistry()

	job, err := st.CreateJob(store.JobCreate{TaskName: "missing", Schedule: schedule.Schedule{Interval: 1, Unit: schedule.Hours}})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	runner := NewRunner(job.ID, registry, st, NewExecutor())
	if !runner.TryRun(context.Background(), *job) {
		t.Fatal("expected TryRun to start")
	}

	deadline := time.After(time.Second)
	for runner.IsActive() {
		select {
		case <-deadline:
			t.Fatal("runner never finished")
		case <-time.After(time.Millisecond):
		}
	}

	log, err := st.LastLog(job.ID)
	if err != nil {
		t.Fatalf("last log: %v", err)
	}
	if log == nil || log.Status != store.StatusFailed {
		t.Fatalf("expected a FAILED log, got %+v", log)
	}
}

// TestRunner_CancelledContextRecordsCancelledLog exercises the cancellation
// policy from SPEC_FULL.md's concurrency section: a Stop mid-execution
// finalises the in-flight Log as FAILED with the literal error "cancelled",
// never leaving it RUNNING.
func TestRunner_CancelledContextRecordsCancelledLog(t *testing.T) {
	st := openRunnerStore(t)
	registry := task.NewRegistry()

	attempted := make(chan struct{}, 1)
	err := registry.Register(task.Task{
		Name: "flaky",
		Handle: func(ctx context.Context, params map[string]any) (any, error) {
			attempted <- struct{}{}
			return nil, errors.New("boom")
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	retries := 1
	job, err := st.CreateJob(store.JobCreate{
		TaskName:   "flaky",
		Schedule:   schedule.Schedule{Interval: 1, Unit: schedule.Hours},
		MaxRetries: &retries,
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	runner := NewRunner(job.ID, registry, st, NewExecutor())
	ctx, cancel := context.WithCancel(context.Background())

	if !runner.TryRun(ctx, *job) {
		t.Fatal("expected TryRun to start")
	}
	<-attempted // first attempt failed; runner is now in its backoff wait
	cancel()

	deadline := time.After(5 * time.Second)
	for runner.IsActive() {
		select {
		case <-deadline:
			t.Fatal("runner never finished after cancellation")
		case <-time.After(time.Millisecond):
		}
	}

	log, err := st.LastLog(job.ID)
	if err != nil {
		t.Fatalf("last log: %v", err)
	}
	if log == nil || log.Status != store.StatusFailed {
		t.Fatalf("expected a FAILED log, got %+v", log)
	}
	if log.Error == nil || *log.Error != "cancelled" {
		t.Fatalf("expected error %q, got %v", "cancelled", log.Error)
	}
}
