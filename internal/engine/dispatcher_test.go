package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nextlevelbuilder/homeworq/internal/schedule"
	"github.com/nextlevelbuilder/homeworq/internal/store"
	"github.com/nextlevelbuilder/homeworq/internal/task"
)

func openDispatcherStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "dispatcher.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDispatcher_TickRunsDueJob(t *testing.T) {
	st := openDispatcherStore(t)
	registry := task.NewRegistry()
	ran := make(chan struct{}, 1)
	err := registry.Register(task.Task{
		Name: "due",
		Handle: func(ctx context.Context, params map[string]any) (any, error) {
			ran <- struct{}{}
			return "ok", nil
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	job, err := st.CreateJob(store.JobCreate{TaskName: "due", Schedule: schedule.Schedule{Interval: 1, Unit: schedule.Hours}})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	past := time.Now().UTC().Add(-time.Minute)
	if err := st.SetJobRunState(job.ID, nil, &past); err != nil {
		t.Fatalf("seed next_run: %v", err)
	}

	d := NewDispatcher(st, registry)
	d.tick(context.Background())

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("due job was never dispatched")
	}
}

func TestDispatcher_TickSkipsNotYetDueJob(t *testing.T) {
	st := openDispatcherStore(t)
	registry := task.NewRegistry()
	ran := make(chan struct{}, 1)
	err := registry.Register(task.Task{
		Name: "future",
		Handle: func(ctx context.Context, params map[string]any) (any, error) {
			ran <- struct{}{}
			return "ok", nil
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	job, err := st.CreateJob(store.JobCreate{TaskName: "future", Schedule: schedule.Schedule{Interval: 1, Unit: schedule.Hours}})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	future := time.Now().UTC().Add(time.Hour)
	if err := st.SetJobRunState(job.ID, nil, &future); err != nil {
		t.Fatalf("seed next_run: %v", err)
	}

	d := NewDispatcher(st, registry)
	d.tick(context.Background())

	select {
	case <-ran:
		t.Fatal("not-yet-due job was dispatched")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDispatcher_SkipsOverlappingJobAcrossTicks(t *testing.T) {
	st := openDispatcherStore(t)
	registry := task.NewRegistry()
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	err := registry.Register(task.Task{
		Name: "slow",
		Handle: func(ctx context.Context, params map[string]any) (any, error) {
			started <- struct{}{}
			<-release
			return "ok", nil
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	job, err := st.CreateJob(store.JobCreate{TaskName: "slow", Schedule: schedule.Schedule{Interval: 1, Unit: schedule.Hours}})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	past := time.Now().UTC().Add(-time.Minute)
	if err := st.SetJobRunState(job.ID, nil, &past); err != nil {
		t.Fatalf("seed next_run: %v", err)
	}

	d := NewDispatcher(st, registry)
	d.tick(context.Background())
	<-started // first tick's invocation is now in flight

	// A second tick before the first finishes must not start a second
	// overlapping invocation of the same job (spec invariant 3).
	d.tick(context.Background())
	select {
	case <-started:
		t.Fatal("second tick started an overlapping invocation")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	runner := d.runnerFor(job.ID)
	deadline := time.After(time.Second)
	for runner.IsActive() {
		select {
		case <-deadline:
			t.Fatal("runner never finished")
		case <-time.After(time.Millisecond):
		}
	}
}
