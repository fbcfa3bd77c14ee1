package engine

import (
	"path/filepath"
	"testing"

	"github.com/nextlevelbuilder/homeworq/internal/schedule"
	"github.com/nextlevelbuilder/homeworq/internal/store"
)

func openReconcilerStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "reconcile.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestReconciler_RepeatedReconcileIsIdempotent(t *testing.T) {
	st := openReconcilerStore(t)
	r := NewReconciler(st)

	defaults := []DefaultJob{
		{TaskName: "ping", Schedule: schedule.Schedule{Interval: 1, Unit: schedule.Minutes}},
		{TaskName: "cleanup_logs", Params: map[string]any{"age_days": 30}, Schedule: schedule.Schedule{Interval: 1, Unit: schedule.Days}},
	}

	if err := r.Reconcile(defaults); err != nil {
		t.Fatalf("first reconcile: %v", err)
	}
	if err := r.Reconcile(defaults); err != nil {
		t.Fatalf("second reconcile: %v", err)
	}

	jobs, err := st.ListJobs(store.JobFilter{}, store.Page{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected exactly 2 rows after repeated reconcile, got %d", len(jobs))
	}
	for _, j := range jobs {
		if j.NextRun == nil {
			t.Errorf("job %s: expected next_run to be seeded", j.ID)
		}
	}
}

func TestReconciler_RejectsInvalidSchedule(t *testing.T) {
	st := openReconcilerStore(t)
	r := NewReconciler(st)

	err := r.Reconcile([]DefaultJob{
		{TaskName: "bad", Schedule: schedule.Schedule{Interval: 1, Unit: schedule.Hours, Cron: "* * * * *"}},
	})
	if err == nil {
		t.Fatal("expected validation error for a schedule with both shapes set")
	}
}
