package schedule

import "errors"

// Sentinel errors matching the kind taxonomy in spec §7. Wrapped with
// fmt.Errorf("%w: ...") so callers can errors.Is against them while still
// getting a human-readable message.
var (
	ErrInvalidSchedule = errors.New("INVALID_SCHEDULE")
	ErrInvalidCron     = errors.New("INVALID_CRON")
	ErrInvalidJob      = errors.New("INVALID_JOB")
)
