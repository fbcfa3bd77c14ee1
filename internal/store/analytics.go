package store

import (
	"fmt"
	"time"
)

// TaskDistributionEntry is one row of the task-distribution analytics
// endpoint: how many jobs are bound to each task.
type TaskDistributionEntry struct {
	TaskName string `json:"task_name"`
	Count    int    `json:"count"`
}

// TaskDistribution groups jobs by task_name, grounded on the control
// plane's analytics surface (spec.md §6), since the original demo routes
// never implemented real aggregation.
func (s *Store) TaskDistribution() ([]TaskDistributionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT task_name, COUNT(*) FROM hq_jobs GROUP BY task_name ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	defer rows.Close()

	var out []TaskDistributionEntry
	for rows.Next() {
		var e TaskDistributionEntry
		if err := rows.Scan(&e.TaskName, &e.Count); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ErrorRate is the fraction of logs that ended FAILED within a window.
type ErrorRate struct {
	WindowHours int     `json:"window_hours"`
	Total       int     `json:"total"`
	Failed      int     `json:"failed"`
	Rate        float64 `json:"rate"`
}

// ComputeErrorRate computes the FAILED/total ratio over the trailing windowHours.
func (s *Store) ComputeErrorRate(windowHours int) (*ErrorRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	since := formatTime(time.Now().UTC().Add(-time.Duration(windowHours) * time.Hour))

	var total, failed int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM hq_logs WHERE created_at >= ?`, since).Scan(&total); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM hq_logs WHERE created_at >= ? AND status = 'FAILED'`, since).Scan(&failed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}

	rate := 0.0
	if total > 0 {
		rate = float64(failed) / float64(total)
	}
	return &ErrorRate{WindowHours: windowHours, Total: total, Failed: failed, Rate: rate}, nil
}

// ExecutionHistoryDay is a day-bucketed count of completed vs failed runs.
type ExecutionHistoryDay struct {
	Date      string `json:"date"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
}

// ExecutionHistory buckets the trailing `days` days of logs by calendar
// day (UTC).
func (s *Store) ExecutionHistory(days int) ([]ExecutionHistoryDay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	since := formatTime(time.Now().UTC().AddDate(0, 0, -days))
	rows, err := s.db.Query(`SELECT substr(created_at, 1, 10) AS day, status, COUNT(*)
		FROM hq_logs WHERE created_at >= ? GROUP BY day, status ORDER BY day`, since)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	defer rows.Close()

	byDay := make(map[string]*ExecutionHistoryDay)
	var order []string
	for rows.Next() {
		var day, status string
		var count int
		if err := rows.Scan(&day, &status, &count); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
		}
		e, ok := byDay[day]
		if !ok {
			e = &ExecutionHistoryDay{Date: day}
			byDay[day] = e
			order = append(order, day)
		}
		switch Status(status) {
		case StatusCompleted:
			e.Completed = count
		case StatusFailed:
			e.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}

	out := make([]ExecutionHistoryDay, len(order))
	for i, d := range order {
		out[i] = *byDay[d]
	}
	return out, nil
}

// UpcomingExecutions returns the next `limit` active jobs ordered by
// next_run ascending.
func (s *Store) UpcomingExecutions(limit int) ([]Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(jobSelectColumns+` FROM hq_jobs WHERE next_run IS NOT NULL ORDER BY next_run ASC LIMIT ?`, limit)
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
