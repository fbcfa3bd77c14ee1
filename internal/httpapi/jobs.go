package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/nextlevelbuilder/homeworq/internal/engine"
	"github.com/nextlevelbuilder/homeworq/internal/schedule"
	"github.com/nextlevelbuilder/homeworq/internal/store"
)

type jobCreateRequest struct {
	Task       string         `json:"task"`
	Params     map[string]any `json:"params"`
	Interval   int            `json:"interval"`
	Unit       string         `json:"unit"`
	At         string         `json:"at"`
	Cron       string         `json:"cron"`
	Timeout    *int           `json:"timeout"`
	MaxRetries *int           `json:"max_retries"`
	StartDate  *time.Time     `json:"start_date"`
	EndDate    *time.Time     `json:"end_date"`
}

func (req jobCreateRequest) toSchedule() schedule.Schedule {
	return schedule.Schedule{
		Interval: req.Interval,
		Unit:     schedule.Unit(req.Unit),
		At:       req.At,
		Cron:     req.Cron,
	}
}

type jobResponse struct {
	ID         string         `json:"id"`
	Task       string         `json:"task"`
	Params     map[string]any `json:"params"`
	Interval   int            `json:"interval,omitempty"`
	Unit       string         `json:"unit,omitempty"`
	At         string         `json:"at,omitempty"`
	Cron       string         `json:"cron,omitempty"`
	Timeout    *int           `json:"timeout,omitempty"`
	MaxRetries *int           `json:"max_retries,omitempty"`
	StartDate  *time.Time     `json:"start_date,omitempty"`
	EndDate    *time.Time     `json:"end_date,omitempty"`
	LastRun    *time.Time     `json:"last_run,omitempty"`
	NextRun    *time.Time     `json:"next_run,omitempty"`
	IsDefault  bool           `json:"is_default"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func toJobResponse(j store.Job) jobResponse {
	return jobResponse{
		ID: j.ID, Task: j.TaskName, Params: j.Params,
		Interval: j.Schedule.Interval, Unit: string(j.Schedule.Unit), At: j.Schedule.At, Cron: j.Schedule.Cron,
		Timeout: j.Timeout, MaxRetries: j.MaxRetries,
		StartDate: j.StartDate, EndDate: j.EndDate,
		LastRun: j.LastRun, NextRun: j.NextRun,
		IsDefault: j.IsDefault, CreatedAt: j.CreatedAt, UpdatedAt: j.UpdatedAt,
	}
}

func listJobs(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := store.JobFilter{TaskName: q.Get("task")}
		page := parsePage(q)

		jobs, err := e.Store.ListJobs(filter, page)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		out := make([]jobResponse, len(jobs))
		for i, j := range jobs {
			out[i] = toJobResponse(j)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getJob(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := e.Store.GetJob(r.PathValue("id"))
		if err != nil {
			if err == store.ErrNotFound {
				writeError(w, http.StatusNotFound, "job not found")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, toJobResponse(*job))
	}
}

func createJob(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req jobCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
		if req.Task == "" {
			writeError(w, http.StatusBadRequest, "task is required")
			return
		}
		if _, err := e.Registry.Get(req.Task); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}

		sched := req.toSchedule()
		if err := sched.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := store.ValidateJobFields(req.MaxRetries, req.StartDate, req.EndDate); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		spec := store.JobCreate{
			TaskName: req.Task, Params: req.Params, Schedule: sched,
			Timeout: req.Timeout, MaxRetries: req.MaxRetries,
			StartDate: req.StartDate, EndDate: req.EndDate,
		}

		job, err := createJobSeeded(e, spec)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, toJobResponse(*job))
	}
}

// createJobSeeded inserts the job then seeds its first next_run so a
// freshly created job is schedulable without waiting for a
// reconciliation pass.
func createJobSeeded(e *engine.Engine, spec store.JobCreate) (*store.Job, error) {
	job, err := e.Store.CreateJob(spec)
	if err != nil {
		return nil, err
	}
	next, err := schedule.NextRun(job.Schedule, time.Now().UTC(), nil)
	if err != nil {
		return nil, err
	}
	if err := e.Store.SetJobRunState(job.ID, job.LastRun, &next); err != nil {
		return nil, err
	}
	job.NextRun = &next
	return job, nil
}

func updateJob(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		var req struct {
			Params     map[string]any `json:"params"`
			Interval   *int           `json:"interval"`
			Unit       *string        `json:"unit"`
			At         *string        `json:"at"`
			Cron       *string        `json:"cron"`
			Timeout    *int           `json:"timeout"`
			MaxRetries *int           `json:"max_retries"`
			StartDate  *time.Time     `json:"start_date"`
			EndDate    *time.Time     `json:"end_date"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}

		existing, err := e.Store.GetJob(id)
		if err != nil {
			if err == store.ErrNotFound {
				writeError(w, http.StatusNotFound, "job not found")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		patch := store.JobPatch{
			Params: req.Params, Timeout: req.Timeout, MaxRetries: req.MaxRetries,
			StartDate: req.StartDate, EndDate: req.EndDate,
		}

		maxRetries := existing.MaxRetries
		if req.MaxRetries != nil {
			maxRetries = req.MaxRetries
		}
		startDate := existing.StartDate
		if req.StartDate != nil {
			startDate = req.StartDate
		}
		endDate := existing.EndDate
		if req.EndDate != nil {
			endDate = req.EndDate
		}
		if err := store.ValidateJobFields(maxRetries, startDate, endDate); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if req.Interval != nil || req.Unit != nil || req.At != nil || req.Cron != nil {
			s := existing.Schedule
			if req.Interval != nil {
				s.Interval = *req.Interval
			}
			if req.Unit != nil {
				s.Unit = schedule.Unit(*req.Unit)
			}
			if req.At != nil {
				s.At = *req.At
			}
			if req.Cron != nil {
				s.Cron = *req.Cron
			}
			if err := s.Validate(); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			patch.Schedule = &s
		}

		job, err := e.Store.UpdateJob(id, patch)
		if err != nil {
			if err == store.ErrNotFound {
				writeError(w, http.StatusNotFound, "job not found")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		if patch.Schedule != nil {
			next, err := schedule.NextRun(job.Schedule, time.Now().UTC(), job.LastRun)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			if err := e.Store.SetJobRunState(job.ID, job.LastRun, &next); err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			job.NextRun = &next
		}

		writeJSON(w, http.StatusOK, toJobResponse(*job))
	}
}

func deleteJob(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := e.Store.DeleteJob(r.PathValue("id")); err != nil {
			if err == store.ErrNotFound {
				writeError(w, http.StatusNotFound, "job not found")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func parsePage(q map[string][]string) store.Page {
	get := func(key string) string {
		if v, ok := q[key]; ok && len(v) > 0 {
			return v[0]
		}
		return ""
	}
	limit, _ := strconv.Atoi(get("limit"))
	offset, _ := strconv.Atoi(get("offset"))
	return store.Page{Limit: limit, Offset: offset}
}
