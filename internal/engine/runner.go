package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nextlevelbuilder/homeworq/internal/schedule"
	"github.com/nextlevelbuilder/homeworq/internal/store"
	"github.com/nextlevelbuilder/homeworq/internal/task"
)

// Runner serializes executions of a single job: if the dispatcher's beat
// finds the job still running from a prior tick, the new invocation is
// skipped rather than queued. Grounded on scheduler.SessionQueue's
// mu+active overlap guard, simplified from FIFO queueing to skip-if-busy
// since the spec has no notion of a per-job backlog.
type Runner struct {
	jobID    string
	registry *task.Registry
	store    *store.Store
	executor *Executor

	mu     sync.Mutex
	active bool
}

// NewRunner builds a Runner bound to one job ID.
func NewRunner(jobID string, registry *task.Registry, st *store.Store, executor *Executor) *Runner {
	return &Runner{jobID: jobID, registry: registry, store: st, executor: executor}
}

// IsActive reports whether an invocation is currently in flight.
func (r *Runner) IsActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// TryRun attempts to start one invocation of job. It returns false without
// doing anything if the job is already executing (overlap prevention,
// spec invariant 3 / scenario D).
func (r *Runner) TryRun(ctx context.Context, job store.Job) bool {
	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return false
	}
	r.active = true
	r.mu.Unlock()

	go func() {
		defer func() {
			r.mu.Lock()
			r.active = false
			r.mu.Unlock()
		}()
		r.execute(ctx, job)
	}()
	return true
}

func (r *Runner) execute(ctx context.Context, job store.Job) {
	t, err := r.registry.Get(job.TaskName)
	if err != nil {
		slog.Error("job references unknown task", "job_id", job.ID, "task", job.TaskName)
		r.finalizeMissingTask(job)
		return
	}

	// Persist last_run = now before creating the Log or invoking the task
	// (spec §4.4 step 1). The next run is computed from this start time
	// (see advanceSchedule), so the cadence does not drift by however long
	// the attempt (plus any retries/backoff) ends up taking.
	startedAt := time.Now().UTC()
	if err := r.store.SetJobRunState(job.ID, &startedAt, job.NextRun); err != nil {
		slog.Error("failed to persist run start", "job_id", job.ID, "error", err)
	}

	logEntry, err := r.store.CreateLog(store.Log{
		JobID:     &job.ID,
		Status:    store.StatusRunning,
		StartedAt: startedAt,
	})
	if err != nil {
		slog.Error("failed to record run start", "job_id", job.ID, "error", err)
		return
	}

	outcome := r.executor.Run(ctx, t.Handle, job.Params, timeoutOf(job), maxRetriesOf(job))

	completed := time.Now().UTC()
	dur := completed.Sub(startedAt).Seconds()
	logEntry.CompletedAt = &completed
	logEntry.Duration = &dur
	logEntry.Retries = outcome.Attempts - 1
	if outcome.Err != nil {
		logEntry.Status = store.StatusFailed
		msg := outcome.Err.Error()
		if isEngineStopped(outcome.Err) {
			msg = "cancelled"
		}
		logEntry.Error = &msg
		slog.Error("job failed", "job_id", job.ID, "task", job.TaskName, "error", msg, "attempts", outcome.Attempts)
	} else {
		logEntry.Status = store.StatusCompleted
		logEntry.Result = outcome.Result
		slog.Info("job completed", "job_id", job.ID, "task", job.TaskName, "attempts", outcome.Attempts)
	}
	if err := r.store.UpdateLog(*logEntry); err != nil {
		slog.Error("failed to persist run outcome", "job_id", job.ID, "error", err)
	}

	r.advanceSchedule(job, startedAt)
}

// finalizeMissingTask records a TASK_NOT_FOUND failure without invoking
// anything, so the job's history still reflects the attempt.
func (r *Runner) finalizeMissingTask(job store.Job) {
	now := time.Now().UTC()
	msg := newEngineError(KindTaskNotFound, nil).Error()
	_, err := r.store.CreateLog(store.Log{
		JobID:       &job.ID,
		Status:      store.StatusFailed,
		StartedAt:   now,
		CompletedAt: &now,
		Error:       &msg,
	})
	if err != nil {
		slog.Error("failed to record missing-task run", "job_id", job.ID, "error", err)
	}
	r.advanceSchedule(job, now)
}

// advanceSchedule computes the job's next run from ranAt — the attempt's
// start time, not its completion time, so retries/backoff don't push the
// cadence later — and persists last_run/next_run. When end_date has
// passed, next_run is cleared and the job becomes dormant until edited.
func (r *Runner) advanceSchedule(job store.Job, ranAt time.Time) {
	var next *time.Time
	if job.EndDate == nil || ranAt.Before(*job.EndDate) {
		n, err := schedule.NextRun(job.Schedule, ranAt, &ranAt)
		if err != nil {
			slog.Error("failed to compute next run", "job_id", job.ID, "error", err)
		} else if job.EndDate == nil || n.Before(*job.EndDate) {
			next = &n
		}
	}
	if err := r.store.SetJobRunState(job.ID, &ranAt, next); err != nil {
		slog.Error("failed to persist run state", "job_id", job.ID, "error", err)
	}
}

func timeoutOf(job store.Job) int {
	if job.Timeout != nil {
		return *job.Timeout
	}
	return defaultTimeout
}

func maxRetriesOf(job store.Job) int {
	if job.MaxRetries != nil {
		return *job.MaxRetries
	}
	return defaultMaxRetries
}
