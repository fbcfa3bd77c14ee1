// Package store is the durable persistence layer for Jobs and their
// execution Logs. It hides SQL behind a Store interface, grounded on the
// teacher's store/pg + store/file split — here backed by a single SQLite
// connection (WAL mode) rather than a standalone/managed split, since the
// spec calls for one relational store rather than two deployment modes.
package store

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/nextlevelbuilder/homeworq/internal/schedule"
)

// Status is a Log's execution state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Job is the persisted scheduling unit: a task name bound to parameters, a
// recurrence rule, and the bookkeeping the engine needs to drive it.
type Job struct {
	ID         string
	TaskName   string
	Params     map[string]any
	Schedule   schedule.Schedule
	Timeout    *int // seconds
	MaxRetries *int // 0-10
	StartDate  *time.Time
	EndDate    *time.Time
	LastRun    *time.Time
	NextRun    *time.Time
	IsDefault  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Log is one execution attempt record.
type Log struct {
	ID          string
	JobID       *string // nil for ad-hoc/manual runs
	Status      Status
	StartedAt   time.Time
	CompletedAt *time.Time
	Duration    *float64 // seconds
	Result      any
	Error       *string
	Retries     int
	CreatedAt   time.Time
}

// JobCreate is the input shape for creating a job (control-plane boundary).
type JobCreate struct {
	TaskName   string
	Params     map[string]any
	Schedule   schedule.Schedule
	Timeout    *int
	MaxRetries *int
	StartDate  *time.Time
	EndDate    *time.Time
}

// JobPatch carries only the fields to change; nil means "leave as is". To
// clear a nullable field explicitly, callers set the corresponding Clear*
// flag.
type JobPatch struct {
	Params     map[string]any
	Schedule   *schedule.Schedule
	Timeout    *int
	MaxRetries *int
	StartDate  *time.Time
	EndDate    *time.Time

	ClearTimeout    bool
	ClearMaxRetries bool
	ClearStartDate  bool
	ClearEndDate    bool
}

// JobFilter narrows listJobs by task name.
type JobFilter struct {
	TaskName string
}

// LogFilter narrows listLogs.
type LogFilter struct {
	JobID  string
	Status Status
}

// Page is offset/limit pagination, matching the control-plane's
// {items, total, offset, limit} envelope.
type Page struct {
	Limit  int
	Offset int
}

// ErrNotFound is returned by GetJob when no row matches.
var ErrNotFound = errors.New("not found")

// ErrStoreFailure wraps any underlying SQL/driver error, matching spec §7's
// STORE_FAILURE error kind.
var ErrStoreFailure = errors.New("store failure")

// MarshalJSON/UnmarshalJSON convert arbitrary values to/from the JSON text
// columns used for params/result. Exported so the HTTP layer can reuse the
// same encoding for request/response bodies.
func MarshalJSON(v any) (string, error) {
	if v == nil {
		return "null", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func UnmarshalJSON(s string, v any) error {
	if s == "" || s == "null" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}
