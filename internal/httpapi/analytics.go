package httpapi

import (
	"net/http"
	"strconv"

	"github.com/nextlevelbuilder/homeworq/internal/engine"
	"github.com/nextlevelbuilder/homeworq/internal/store"
)

func recentActivity(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := intQuery(r, "limit", 20)
		items, _, err := e.Store.ListLogs(store.LogFilter{}, store.Page{Limit: limit})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		out := make([]logResponse, len(items))
		for i, l := range items {
			out[i] = toLogResponse(l)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func upcomingExecutions(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := intQuery(r, "limit", 20)
		jobs, err := e.Store.UpcomingExecutions(limit)
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

func executionHistory(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := intQuery(r, "days", 7)
		history, err := e.Store.ExecutionHistory(days)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, history)
	}
}

func taskDistribution(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dist, err := e.Store.TaskDistribution()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, dist)
	}
}

func errorRate(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		window := intQuery(r, "window_hours", 24)
		rate, err := e.Store.ComputeErrorRate(window)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, rate)
	}
}

func intQuery(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
