package httpapi

import (
	"net/http"

	"github.com/nextlevelbuilder/homeworq/internal/engine"
)

// NewServer builds the control-plane ServeMux (spec.md §6), wiring
// tasks/jobs/logs/analytics handlers behind optional HTTP Basic auth.
// Grounded on the teacher's internal/http package's raw net/http.Handler
// style; no router dependency is introduced since the teacher's own
// control-plane HTTP layer does not use one either.
func NewServer(e *engine.Engine, authEnabled bool, username, password string) *http.Server {
	mux := http.NewServeMux()

	wrap := func(h http.HandlerFunc) http.HandlerFunc {
		return requireAuth(authEnabled, username, password, h)
	}

	mux.HandleFunc("GET /api/tasks", wrap(listTasks(e.Registry)))
	mux.HandleFunc("GET /api/tasks/{name}", wrap(getTask(e.Registry)))
	mux.HandleFunc("POST /api/tasks/{name}/run", wrap(runTaskNow(e)))

	mux.HandleFunc("GET /api/jobs", wrap(listJobs(e)))
	mux.HandleFunc("POST /api/jobs", wrap(createJob(e)))
	mux.HandleFunc("GET /api/jobs/{id}", wrap(getJob(e)))
	mux.HandleFunc("PUT /api/jobs/{id}", wrap(updateJob(e)))
	mux.HandleFunc("DELETE /api/jobs/{id}", wrap(deleteJob(e)))

	mux.HandleFunc("GET /api/logs", wrap(listLogs(e)))

	mux.HandleFunc("GET /api/analytics/recent-activity", wrap(recentActivity(e)))
	mux.HandleFunc("GET /api/analytics/upcoming-executions", wrap(upcomingExecutions(e)))
	mux.HandleFunc("GET /api/analytics/execution-history", wrap(executionHistory(e)))
	mux.HandleFunc("GET /api/analytics/task-distribution", wrap(taskDistribution(e)))
	mux.HandleFunc("GET /api/analytics/error-rate", wrap(errorRate(e)))

	return &http.Server{Handler: mux}
}
