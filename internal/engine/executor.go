package engine

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/nextlevelbuilder/homeworq/internal/task"
)

// defaultTimeout and defaultMaxRetries apply when a Job leaves the fields
// unset (spec §3).
const (
	defaultTimeout    = 300 // seconds
	defaultMaxRetries = 0
)

const maxBackoff = 300 * time.Second

// Executor runs a single task invocation under a timeout, retrying on
// failure with exponential backoff, grounded on cron.ExecuteWithRetry
// generalized from a plain func()(string,error) to task.Func and from a
// fixed base/max pair to the spec's exact backoff formula.
type Executor struct{}

// NewExecutor constructs an Executor. It holds no state; one instance is
// shared by every Runner.
func NewExecutor() *Executor { return &Executor{} }

// Outcome is the result of running a task to completion (success or
// exhausted retries).
type Outcome struct {
	Result   any
	Err      error
	Attempts int
	TimedOut bool
}

// Run invokes fn once per attempt (1 + maxRetries total), enforcing
// timeoutSeconds per attempt via context cancellation. It stops retrying
// as soon as the engine's own context is cancelled (Stop was called).
func (e *Executor) Run(ctx context.Context, fn task.Func, params map[string]any, timeoutSeconds, maxRetries int) Outcome {
	if timeoutSeconds <= 0 {
		timeoutSeconds = defaultTimeout
	}
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}

	var lastErr error
	var lastResult any
	timedOut := false

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return Outcome{Err: newEngineError(KindEngineStopped, ctx.Err()), Attempts: attempt}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
		result, err := fn(attemptCtx, params)
		timedOut = errors.Is(attemptCtx.Err(), context.DeadlineExceeded)
		cancel()

		lastResult, lastErr = result, err
		if err == nil {
			return Outcome{Result: result, Attempts: attempt + 1}
		}
		if ctx.Err() != nil {
			return Outcome{Err: newEngineError(KindEngineStopped, ctx.Err()), Attempts: attempt + 1}
		}

		if attempt < maxRetries {
			select {
			case <-time.After(backoff(attempt)):
			case <-ctx.Done():
				return Outcome{Err: newEngineError(KindEngineStopped, ctx.Err()), Attempts: attempt + 1}
			}
		}
	}

	kind := KindTaskFailure
	if timedOut {
		kind = KindTaskTimeout
	}
	return Outcome{Result: lastResult, Err: newEngineError(kind, lastErr), Attempts: maxRetries + 1, TimedOut: timedOut}
}

// backoff computes min(300, 2^(attempt+1) + U(0,1)) seconds, per the
// retry invariant in the component spec for the Executor.
func backoff(attempt int) time.Duration {
	secs := float64(uint(1) << uint(attempt+1))
	secs += rand.Float64()
	d := time.Duration(secs * float64(time.Second))
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}
