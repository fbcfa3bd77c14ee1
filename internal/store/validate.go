package store

import (
	"fmt"
	"time"

	"github.com/nextlevelbuilder/homeworq/internal/schedule"
)

// max_retries' documented range (spec §3); end_date must strictly follow
// start_date when both are set (spec §7's "inverted dates" case).
const (
	minMaxRetries = 0
	maxMaxRetries = 10
)

// ValidateJobFields checks the job-level invariants that aren't tied to a
// particular schedule shape, so the same check runs for HTTP-created jobs,
// HTTP-patched jobs, and YAML-declared default jobs alike.
func ValidateJobFields(maxRetries *int, startDate, endDate *time.Time) error {
	if maxRetries != nil && (*maxRetries < minMaxRetries || *maxRetries > maxMaxRetries) {
		return fmt.Errorf("%w: max_retries must be between %d and %d, got %d",
			schedule.ErrInvalidJob, minMaxRetries, maxMaxRetries, *maxRetries)
	}
	if startDate != nil && endDate != nil && !endDate.After(*startDate) {
		return fmt.Errorf("%w: end_date must be after start_date", schedule.ErrInvalidJob)
	}
	return nil
}
