package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/nextlevelbuilder/homeworq/internal/schedule"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateJob_RoundTrip(t *testing.T) {
	s := openTestStore(t)

	job, err := s.CreateJob(JobCreate{
		TaskName: "ping",
		Params:   map[string]any{"host": "example.com"},
		Schedule: schedule.Schedule{Interval: 5, Unit: schedule.Minutes},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected generated ID")
	}

	got, err := s.GetJob(job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TaskName != "ping" {
		t.Errorf("task name = %q", got.TaskName)
	}
	if got.Params["host"] != "example.com" {
		t.Errorf("params not round-tripped: %+v", got.Params)
	}
	if got.Schedule.Interval != 5 || got.Schedule.Unit != schedule.Minutes {
		t.Errorf("schedule not round-tripped: %+v", got.Schedule)
	}
}

func TestUpsertDefaultJob_IsIdempotent(t *testing.T) {
	s := openTestStore(t)

	spec := JobCreate{
		TaskName: "cleanup_logs",
		Params:   map[string]any{"age_days": 30},
		Schedule: schedule.Schedule{Interval: 1, Unit: schedule.Days},
	}

	first, err := s.UpsertDefaultJob(spec)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second, err := s.UpsertDefaultJob(spec)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected stable ID, got %q then %q", first.ID, second.ID)
	}

	jobs, err := s.ListJobs(JobFilter{}, Page{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected exactly one row after repeated upsert, got %d", len(jobs))
	}
	if !jobs[0].IsDefault {
		t.Error("expected IsDefault true")
	}
}

func TestUpsertDefaultJob_ChangedParamsIsNewHash(t *testing.T) {
	s := openTestStore(t)

	a, err := s.UpsertDefaultJob(JobCreate{TaskName: "ping", Params: map[string]any{"n": 1}, Schedule: schedule.Schedule{Interval: 1, Unit: schedule.Minutes}})
	if err != nil {
		t.Fatalf("upsert a: %v", err)
	}
	b, err := s.UpsertDefaultJob(JobCreate{TaskName: "ping", Params: map[string]any{"n": 2}, Schedule: schedule.Schedule{Interval: 1, Unit: schedule.Minutes}})
	if err != nil {
		t.Fatalf("upsert b: %v", err)
	}
	if a.ID == b.ID {
		t.Fatal("different params must hash to different IDs")
	}
}

func TestUpdateJob_SwitchingShapeNullsDiscardedFields(t *testing.T) {
	s := openTestStore(t)

	job, err := s.CreateJob(JobCreate{
		TaskName: "ping",
		Schedule: schedule.Schedule{Interval: 1, Unit: schedule.Hours},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	cronSchedule := schedule.Schedule{Cron: "*/5 * * * *"}
	updated, err := s.UpdateJob(job.ID, JobPatch{Schedule: &cronSchedule})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Schedule.IsCron() {
		t.Fatal("expected cron shape after update")
	}
	if updated.Schedule.Interval != 0 || updated.Schedule.Unit != "" {
		t.Errorf("expected interval shape cleared, got %+v", updated.Schedule)
	}
}

func TestDeleteJob_CascadesLogs(t *testing.T) {
	s := openTestStore(t)

	job, err := s.CreateJob(JobCreate{TaskName: "ping", Schedule: schedule.Schedule{Interval: 1, Unit: schedule.Minutes}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateLog(Log{JobID: &job.ID, Status: StatusCompleted, StartedAt: time.Now()}); err != nil {
		t.Fatalf("create log: %v", err)
	}

	if err := s.DeleteJob(job.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	logs, _, err := s.ListLogs(LogFilter{JobID: job.ID}, Page{})
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 0 {
		t.Errorf("expected logs cascaded away, got %d", len(logs))
	}
}

func TestCreateLog_RejectsSecondRunningForSameJob(t *testing.T) {
	s := openTestStore(t)

	job, err := s.CreateJob(JobCreate{TaskName: "ping", Schedule: schedule.Schedule{Interval: 1, Unit: schedule.Minutes}})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	if _, err := s.CreateLog(Log{JobID: &job.ID, Status: StatusRunning, StartedAt: time.Now()}); err != nil {
		t.Fatalf("first running log: %v", err)
	}
	if _, err := s.CreateLog(Log{JobID: &job.ID, Status: StatusRunning, StartedAt: time.Now()}); err == nil {
		t.Fatal("expected second concurrent RUNNING log for the same job to be rejected")
	}
}

func TestReconcileCrashedRuns_FinalizesStaleRunning(t *testing.T) {
	s := openTestStore(t)

	job, err := s.CreateJob(JobCreate{TaskName: "ping", Schedule: schedule.Schedule{Interval: 1, Unit: schedule.Minutes}})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if _, err := s.CreateLog(Log{JobID: &job.ID, Status: StatusRunning, StartedAt: time.Now().Add(-time.Hour)}); err != nil {
		t.Fatalf("create log: %v", err)
	}

	n, err := s.ReconcileCrashedRuns()
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 reconciled row, got %d", n)
	}

	last, err := s.LastLog(job.ID)
	if err != nil {
		t.Fatalf("last log: %v", err)
	}
	if last.Status != StatusFailed {
		t.Errorf("expected FAILED, got %s", last.Status)
	}
	if last.Error == nil || *last.Error != "interrupted by restart" {
		t.Errorf("expected restart error message, got %v", last.Error)
	}
}

func TestCleanupOldLogs_DeletesOnlyOlderThanCutoff(t *testing.T) {
	s := openTestStore(t)

	job, err := s.CreateJob(JobCreate{TaskName: "ping", Schedule: schedule.Schedule{Interval: 1, Unit: schedule.Minutes}})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	old := Log{JobID: &job.ID, Status: StatusCompleted, StartedAt: time.Now().AddDate(0, 0, -60)}
	old.CreatedAt = old.StartedAt
	if _, err := s.CreateLog(old); err != nil {
		t.Fatalf("create old log: %v", err)
	}
	if _, err := s.CreateLog(Log{JobID: &job.ID, Status: StatusCompleted, StartedAt: time.Now()}); err != nil {
		t.Fatalf("create recent log: %v", err)
	}

	n, err := s.CleanupOldLogs(30)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 deleted, got %d", n)
	}

	logs, _, err := s.ListLogs(LogFilter{JobID: job.ID}, Page{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 remaining log, got %d", len(logs))
	}
}
