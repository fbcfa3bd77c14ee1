package httpapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/nextlevelbuilder/homeworq/internal/engine"
	"github.com/nextlevelbuilder/homeworq/internal/store"
	"github.com/nextlevelbuilder/homeworq/internal/task"
)

func listTasks(reg *task.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tasks := reg.List()
		sort.Slice(tasks, func(i, j int) bool { return tasks[i].Name < tasks[j].Name })
		type summary struct {
			Name        string `json:"name"`
			Title       string `json:"title"`
			Description string `json:"description,omitempty"`
		}
		out := make([]summary, len(tasks))
		for i, t := range tasks {
			out[i] = summary{Name: t.Name, Title: t.Title, Description: t.Description}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getTask(reg *task.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		t, err := reg.Get(name)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"name": t.Name, "title": t.Title, "description": t.Description,
		})
	}
}

// runTaskNow executes a task immediately, outside the scheduler, and
// records a Log with job_id = null (spec.md §6).
func runTaskNow(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		t, err := e.Registry.Get(name)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}

		var params map[string]any
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
				writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
				return
			}
		}

		startedAt := time.Now().UTC()
		executor := engine.NewExecutor()
		outcome := executor.Run(r.Context(), t.Handle, params, 0, 0)
		completed := time.Now().UTC()
		dur := completed.Sub(startedAt).Seconds()

		logEntry := store.Log{
			JobID:       nil,
			StartedAt:   startedAt,
			CompletedAt: &completed,
			Duration:    &dur,
			Retries:     outcome.Attempts - 1,
		}
		if outcome.Err != nil {
			logEntry.Status = store.StatusFailed
			msg := outcome.Err.Error()
			logEntry.Error = &msg
		} else {
			logEntry.Status = store.StatusCompleted
			logEntry.Result = outcome.Result
		}
		if _, err := e.Store.CreateLog(logEntry); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to record run: "+err.Error())
			return
		}

		if outcome.Err != nil {
			writeEngineError(w, outcome.Err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"result": outcome.Result, "attempts": outcome.Attempts})
	}
}
