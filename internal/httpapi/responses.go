// Package httpapi is the control-plane HTTP/JSON surface described in
// spec.md §6: tasks, jobs, logs, and analytics, all over stdlib
// net/http, grounded on the teacher's internal/http raw-handler style.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nextlevelbuilder/homeworq/internal/engine"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("httpapi: failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps an EngineError's Kind to an HTTP status, falling
// back to 500 for anything unclassified.
func writeEngineError(w http.ResponseWriter, err error) {
	var ee *engine.EngineError
	if errors.As(err, &ee) {
		switch ee.Kind {
		case engine.KindTaskNotFound:
			writeError(w, http.StatusNotFound, ee.Error())
		case engine.KindInvalidSchedule, engine.KindInvalidCron, engine.KindInvalidJob:
			writeError(w, http.StatusBadRequest, ee.Error())
		case engine.KindTaskTimeout:
			writeError(w, http.StatusGatewayTimeout, ee.Error())
		case engine.KindTaskFailure:
			writeError(w, http.StatusUnprocessableEntity, ee.Error())
		case engine.KindEngineStopped:
			writeError(w, http.StatusServiceUnavailable, ee.Error())
		default:
			writeError(w, http.StatusInternalServerError, ee.Error())
		}
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
