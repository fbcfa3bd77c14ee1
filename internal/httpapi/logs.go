package httpapi

import (
	"net/http"
	"time"

	"github.com/nextlevelbuilder/homeworq/internal/engine"
	"github.com/nextlevelbuilder/homeworq/internal/store"
)

type logResponse struct {
	ID          string     `json:"id"`
	JobID       *string    `json:"job_id"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Duration    *float64   `json:"duration,omitempty"`
	Result      any        `json:"result,omitempty"`
	Error       *string    `json:"error,omitempty"`
	Retries     int        `json:"retries"`
}

func toLogResponse(l store.Log) logResponse {
	return logResponse{
		ID: l.ID, JobID: l.JobID, Status: string(l.Status),
		StartedAt: l.StartedAt, CompletedAt: l.CompletedAt, Duration: l.Duration,
		Result: l.Result, Error: l.Error, Retries: l.Retries,
	}
}

// listLogs handles GET /api/logs, returning the paginated envelope
// {items, total, offset, limit} per spec.md §6.
func listLogs(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := store.LogFilter{JobID: q.Get("job_id"), Status: store.Status(q.Get("status"))}
		page := parsePage(q)

		items, total, err := e.Store.ListLogs(filter, page)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		out := make([]logResponse, len(items))
		for i, l := range items {
			out[i] = toLogResponse(l)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": out, "total": total, "offset": page.Offset, "limit": page.Limit,
		})
	}
}
