package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/nextlevelbuilder/homeworq/internal/schedule"
)

// Store is the SQLite-backed persistence layer for hq_jobs/hq_logs.
// Grounded on internal/memory.SQLiteStore's WAL-mode connection idiom; a
// single *sql.DB with one open connection is shared by all callers, and
// every method holds mu, so reads and writes alike are serialized.
type Store struct {
	db *sql.DB
	mu sync.Mutex // guards multi-statement read-modify-write sequences
}

// Open creates (or opens) the SQLite database at path and migrates the
// schema. path may be a bare filesystem path or a "sqlite://..." URI, the
// "sqlite://" prefix is stripped if present (default per spec §6 is
// "sqlite://homeworq.db").
func Open(path string) (*Store, error) {
	const prefix = "sqlite://"
	if len(path) >= len(prefix) && path[:len(prefix)] == prefix {
		path = path[len(prefix):]
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single shared connection keeps write serialization simple and
	// matches the spec's "all callers share one connection" requirement.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("store opened", "path", path)
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS hq_jobs (
			id TEXT PRIMARY KEY,
			task_name TEXT NOT NULL,
			params TEXT NOT NULL DEFAULT '{}',
			schedule_interval INTEGER,
			schedule_unit TEXT,
			schedule_at TEXT,
			schedule_cron TEXT,
			timeout INTEGER,
			max_retries INTEGER,
			start_date TEXT,
			end_date TEXT,
			last_run TEXT,
			next_run TEXT,
			is_default INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_hq_jobs_task_name ON hq_jobs(task_name)`,
		`CREATE INDEX IF NOT EXISTS idx_hq_jobs_next_run ON hq_jobs(next_run)`,
		`CREATE TABLE IF NOT EXISTS hq_logs (
			id TEXT PRIMARY KEY,
			job_id TEXT REFERENCES hq_jobs(id) ON DELETE CASCADE,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			completed_at TEXT,
			duration REAL,
			result TEXT,
			error TEXT,
			retries INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_hq_logs_job_id ON hq_logs(job_id)`,
		`CREATE INDEX IF NOT EXISTS idx_hq_logs_status ON hq_logs(status)`,
		`CREATE INDEX IF NOT EXISTS idx_hq_logs_created_at ON hq_logs(created_at)`,
		// Invariant 3: at most one RUNNING log per job at a time.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_hq_logs_one_running_per_job
			ON hq_logs(job_id) WHERE status = 'RUNNING' AND job_id IS NOT NULL`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:min(len(stmt), 60)], err)
		}
	}
	return nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// genID mints a dynamic job ID. Default-job IDs bypass this entirely and
// use store.DefaultJobID's canonical hash instead (spec.md §3).
func genID() string {
	return uuid.NewString()
}

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// --- Job CRUD ---

// CreateJob inserts a dynamically-created job with a fresh random ID.
func (s *Store) CreateJob(spec JobCreate) (*Job, error) {
	if err := ValidateJobFields(spec.MaxRetries, spec.StartDate, spec.EndDate); err != nil {
		return nil, err
	}
	return s.insertJob(genID(), spec, false)
}

// UpsertDefaultJob computes the canonical hash over {task, params}; if a
// row with that ID exists its mutable fields are replaced (and the
// discarded schedule shape's fields nulled), otherwise it is inserted with
// that ID. Spec §4.7/§4.3.
func (s *Store) UpsertDefaultJob(spec JobCreate) (*Job, error) {
	if err := ValidateJobFields(spec.MaxRetries, spec.StartDate, spec.EndDate); err != nil {
		return nil, err
	}
	id := DefaultJobID(spec.TaskName, spec.Params)

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.getJobUnlocked(id)
	if err != nil && err != ErrNotFound {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	if err == ErrNotFound {
		return s.insertJobUnlocked(id, spec, true)
	}

	now := time.Now().UTC()
	paramsJSON, err := MarshalJSON(spec.Params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}

	_, err = s.db.Exec(`UPDATE hq_jobs SET
		params = ?, schedule_interval = ?, schedule_unit = ?, schedule_at = ?, schedule_cron = ?,
		timeout = ?, max_retries = ?, start_date = ?, end_date = ?, updated_at = ?
		WHERE id = ?`,
		paramsJSON,
		nullableInt(spec.Schedule.Interval, !spec.Schedule.IsCron()),
		nullableStr(string(spec.Schedule.Unit), !spec.Schedule.IsCron()),
		nullableStr(spec.Schedule.At, !spec.Schedule.IsCron() && spec.Schedule.At != ""),
		nullableStr(spec.Schedule.Cron, spec.Schedule.IsCron()),
		spec.Timeout, spec.MaxRetries,
		formatTimePtr(spec.StartDate), formatTimePtr(spec.EndDate),
		formatTime(now), id,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	_ = existing
	return s.getJobUnlocked(id)
}

func nullableInt(v int, keep bool) any {
	if !keep {
		return nil
	}
	return v
}

func nullableStr(v string, keep bool) any {
	if !keep || v == "" {
		return nil
	}
	return v
}

func (s *Store) insertJob(id string, spec JobCreate, isDefault bool) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertJobUnlocked(id, spec, isDefault)
}

func (s *Store) insertJobUnlocked(id string, spec JobCreate, isDefault bool) (*Job, error) {
	now := time.Now().UTC()
	paramsJSON, err := MarshalJSON(spec.Params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}

	var intervalVal any
	var unitVal, atVal, cronVal any
	if spec.Schedule.IsCron() {
		cronVal = spec.Schedule.Cron
	} else {
		intervalVal = spec.Schedule.Interval
		unitVal = string(spec.Schedule.Unit)
		if spec.Schedule.At != "" {
			atVal = spec.Schedule.At
		}
	}

	_, err = s.db.Exec(`INSERT INTO hq_jobs
		(id, task_name, params, schedule_interval, schedule_unit, schedule_at, schedule_cron,
		 timeout, max_retries, start_date, end_date, last_run, next_run, is_default, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, ?, ?, ?)`,
		id, spec.TaskName, paramsJSON, intervalVal, unitVal, atVal, cronVal,
		spec.Timeout, spec.MaxRetries,
		formatTimePtr(spec.StartDate), formatTimePtr(spec.EndDate),
		boolToInt(isDefault), formatTime(now), formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	return s.getJobUnlocked(id)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// UpdateJob applies a partial patch. When the schedule shape switches, the
// discarded shape's fields are nulled (spec §4.3).
func (s *Store) UpdateJob(id string, patch JobPatch) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.getJobUnlocked(id)
	if err != nil {
		return nil, err
	}

	if patch.Params != nil {
		job.Params = patch.Params
	}
	if patch.Schedule != nil {
		job.Schedule = *patch.Schedule
	}
	if patch.Timeout != nil {
		job.Timeout = patch.Timeout
	}
	if patch.ClearTimeout {
		job.Timeout = nil
	}
	if patch.MaxRetries != nil {
		job.MaxRetries = patch.MaxRetries
	}
	if patch.ClearMaxRetries {
		job.MaxRetries = nil
	}
	if patch.StartDate != nil {
		job.StartDate = patch.StartDate
	}
	if patch.ClearStartDate {
		job.StartDate = nil
	}
	if patch.EndDate != nil {
		job.EndDate = patch.EndDate
	}
	if patch.ClearEndDate {
		job.EndDate = nil
	}

	if err := ValidateJobFields(job.MaxRetries, job.StartDate, job.EndDate); err != nil {
		return nil, err
	}

	paramsJSON, err := MarshalJSON(job.Params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}

	var intervalVal any
	var unitVal, atVal, cronVal any
	if job.Schedule.IsCron() {
		cronVal = job.Schedule.Cron
	} else {
		intervalVal = job.Schedule.Interval
		unitVal = string(job.Schedule.Unit)
		if job.Schedule.At != "" {
			atVal = job.Schedule.At
		}
	}

	now := time.Now().UTC()
	_, err = s.db.Exec(`UPDATE hq_jobs SET
		params = ?, schedule_interval = ?, schedule_unit = ?, schedule_at = ?, schedule_cron = ?,
		timeout = ?, max_retries = ?, start_date = ?, end_date = ?, updated_at = ?
		WHERE id = ?`,
		paramsJSON, intervalVal, unitVal, atVal, cronVal,
		job.Timeout, job.MaxRetries,
		formatTimePtr(job.StartDate), formatTimePtr(job.EndDate),
		formatTime(now), id,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	return s.getJobUnlocked(id)
}

// SetJobRunState updates last_run/next_run, used by the Runner after each
// cycle. next_run may be nil (cleared) once the job has passed end_date.
func (s *Store) SetJobRunState(id string, lastRun *time.Time, nextRun *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE hq_jobs SET last_run = ?, next_run = ?, updated_at = ? WHERE id = ?`,
		formatTimePtr(lastRun), formatTimePtr(nextRun), formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	return nil
}

// DeleteJob removes a job; hq_logs rows cascade via the foreign key.
func (s *Store) DeleteJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM hq_jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetJob returns a single job by ID.
func (s *Store) GetJob(id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getJobUnlocked(id)
}

func (s *Store) getJobUnlocked(id string) (*Job, error) {
	row := s.db.QueryRow(jobSelectColumns+` FROM hq_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	return job, nil
}

const jobSelectColumns = `SELECT id, task_name, params, schedule_interval, schedule_unit, schedule_at, schedule_cron,
	timeout, max_retries, start_date, end_date, last_run, next_run, is_default, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var j Job
	var paramsJSON string
	var interval sql.NullInt64
	var unit, at, cron sql.NullString
	var timeout, maxRetries sql.NullInt64
	var startDate, endDate, lastRun, nextRun sql.NullString
	var isDefault int
	var createdAt, updatedAt string

	if err := row.Scan(&j.ID, &j.TaskName, &paramsJSON, &interval, &unit, &at, &cron,
		&timeout, &maxRetries, &startDate, &endDate, &lastRun, &nextRun, &isDefault,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := UnmarshalJSON(paramsJSON, &j.Params); err != nil {
		return nil, err
	}
	if cron.Valid && cron.String != "" {
		j.Schedule = schedule.Schedule{Cron: cron.String}
	} else {
		j.Schedule = schedule.Schedule{
			Interval: int(interval.Int64),
			Unit:     schedule.Unit(unit.String),
			At:       at.String,
		}
	}
	if timeout.Valid {
		v := int(timeout.Int64)
		j.Timeout = &v
	}
	if maxRetries.Valid {
		v := int(maxRetries.Int64)
		j.MaxRetries = &v
	}
	var err error
	if j.StartDate, err = parseTimePtr(startDate); err != nil {
		return nil, err
	}
	if j.EndDate, err = parseTimePtr(endDate); err != nil {
		return nil, err
	}
	if j.LastRun, err = parseTimePtr(lastRun); err != nil {
		return nil, err
	}
	if j.NextRun, err = parseTimePtr(nextRun); err != nil {
		return nil, err
	}
	j.IsDefault = isDefault != 0
	if j.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if j.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &j, nil
}

// ListJobs returns jobs matching filter, paginated.
func (s *Store) ListJobs(filter JobFilter, page Page) ([]Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := jobSelectColumns + ` FROM hq_jobs`
	var args []any
	if filter.TaskName != "" {
		query += ` WHERE task_name = ?`
		args = append(args, filter.TaskName)
	}
	query += ` ORDER BY created_at DESC`
	if page.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, page.Limit, page.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

// ListActiveJobs returns jobs where end_date is null or in the future.
func (s *Store) ListActiveJobs() ([]Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := formatTime(time.Now().UTC())
	rows, err := s.db.Query(jobSelectColumns+` FROM hq_jobs WHERE end_date IS NULL OR end_date > ?`, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

// --- Log CRUD ---

// CreateLog inserts a new log row (typically in RUNNING state) and returns
// the materialised record.
func (s *Store) CreateLog(l Log) (*Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.ID == "" {
		l.ID = genID()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}

	resultJSON, err := MarshalJSON(l.Result)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}

	_, err = s.db.Exec(`INSERT INTO hq_logs (id, job_id, status, started_at, completed_at, duration, result, error, retries, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.JobID, string(l.Status), formatTime(l.StartedAt), formatTimePtr(l.CompletedAt),
		l.Duration, nullableResultJSON(l.Result, resultJSON), l.Error, l.Retries, formatTime(l.CreatedAt),
	)
	if err != nil {
		// Invariant 3 violation (two RUNNING logs for one job) surfaces as a
		// unique-constraint error here; callers treat it as STORE_FAILURE
		// and let the Runner's overlap lock prevent it from recurring.
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	return &l, nil
}

func nullableResultJSON(v any, marshaled string) any {
	if v == nil {
		return nil
	}
	return marshaled
}

// UpdateLog finalises a log's terminal fields (status, result/error,
// completed_at, duration, retries).
func (s *Store) UpdateLog(l Log) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resultJSON, err := MarshalJSON(l.Result)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}

	_, err = s.db.Exec(`UPDATE hq_logs SET status = ?, completed_at = ?, duration = ?, result = ?, error = ?, retries = ?
		WHERE id = ?`,
		string(l.Status), formatTimePtr(l.CompletedAt), l.Duration, nullableResultJSON(l.Result, resultJSON), l.Error, l.Retries, l.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	return nil
}

const logSelectColumns = `SELECT id, job_id, status, started_at, completed_at, duration, result, error, retries, created_at`

func scanLog(row rowScanner) (*Log, error) {
	var l Log
	var jobID sql.NullString
	var completedAt sql.NullString
	var duration sql.NullFloat64
	var result, errStr sql.NullString
	var startedAt, createdAt string

	if err := row.Scan(&l.ID, &jobID, &l.Status, &startedAt, &completedAt, &duration, &result, &errStr, &l.Retries, &createdAt); err != nil {
		return nil, err
	}
	if jobID.Valid {
		v := jobID.String
		l.JobID = &v
	}
	var err error
	if l.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if l.CompletedAt, err = parseTimePtr(completedAt); err != nil {
		return nil, err
	}
	if duration.Valid {
		v := duration.Float64
		l.Duration = &v
	}
	if result.Valid && result.String != "" {
		var v any
		if err := UnmarshalJSON(result.String, &v); err != nil {
			return nil, err
		}
		l.Result = v
	}
	if errStr.Valid {
		v := errStr.String
		l.Error = &v
	}
	if l.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &l, nil
}

// LastLog returns the most recent log for a job, or nil if none exist.
func (s *Store) LastLog(jobID string) (*Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(logSelectColumns+` FROM hq_logs WHERE job_id = ? ORDER BY started_at DESC LIMIT 1`, jobID)
	l, err := scanLog(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	return l, nil
}

// RunningLog returns the in-flight RUNNING log for a job, if any.
func (s *Store) RunningLog(jobID string) (*Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(logSelectColumns+` FROM hq_logs WHERE job_id = ? AND status = 'RUNNING' LIMIT 1`, jobID)
	l, err := scanLog(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	return l, nil
}

// ListLogs returns logs matching filter, paginated, and the total count
// ignoring pagination (for the {items, total, offset, limit} envelope).
func (s *Store) ListLogs(filter LogFilter, page Page) (items []Log, total int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	where := ""
	var args []any
	if filter.JobID != "" {
		where += " WHERE job_id = ?"
		args = append(args, filter.JobID)
	}
	if filter.Status != "" {
		if where == "" {
			where += " WHERE status = ?"
		} else {
			where += " AND status = ?"
		}
		args = append(args, string(filter.Status))
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM hq_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}

	query := logSelectColumns + ` FROM hq_logs` + where + ` ORDER BY started_at DESC`
	if page.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, page.Limit, page.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	defer rows.Close()

	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrStoreFailure, err)
		}
		items = append(items, *l)
	}
	return items, total, rows.Err()
}

// CleanupOldLogs deletes logs created before ageDays ago. Bundled as both
// a Store operation and an invocable Task (internal/tasks.CleanupLogs).
func (s *Store) CleanupOldLogs(ageDays int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := formatTime(time.Now().UTC().AddDate(0, 0, -ageDays))
	res, err := s.db.Exec(`DELETE FROM hq_logs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	return res.RowsAffected()
}

// ReconcileCrashedRuns finds any Log left RUNNING from a prior process
// (the process died without a graceful Stop) and finalises it as FAILED.
// Supplements the source, which omits a crash-recovery sweep (spec §5,
// SPEC_FULL.md §9.1). Returns the number of rows fixed.
func (s *Store) ReconcileCrashedRuns() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(logSelectColumns + ` FROM hq_logs WHERE status = 'RUNNING'`)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	var stale []Log
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			rows.Close()
			return 0, fmt.Errorf("%w: %v", ErrStoreFailure, err)
		}
		stale = append(stale, *l)
	}
	rows.Close()

	now := time.Now().UTC()
	for i := range stale {
		msg := "interrupted by restart"
		dur := now.Sub(stale[i].StartedAt).Seconds()
		_, err := s.db.Exec(`UPDATE hq_logs SET status = 'FAILED', error = ?, completed_at = ?, duration = ? WHERE id = ?`,
			msg, formatTime(now), dur, stale[i].ID)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrStoreFailure, err)
		}
	}
	return len(stale), nil
}
