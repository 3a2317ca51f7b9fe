// Package worker provides small helpers for long-running loops: pacing waits,
// periodic tickers and panic recovery around per-message work.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Wait blocks until duration elapses or context is canceled.
// Returns a wrapped context error if context is canceled.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("wait interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// RunWithTimeout runs fn with a timeout derived from the parent context.
// The function receives a context that will be canceled after timeout.
func RunWithTimeout(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return fn(timeoutCtx)
}

// RecoverPanic recovers from panics and logs them.
// Use as: defer worker.RecoverPanic(logger, "operation name")
func RecoverPanic(logger *zerolog.Logger, operation string) {
	if r := recover(); r != nil {
		logPanic(logger, operation, r)
	}
}

// RecoverPanicWith recovers from panics, logs them and passes the value to onPanic.
// Use as: defer worker.RecoverPanicWith(logger, "operation name", func(any) { ... })
func RecoverPanicWith(logger *zerolog.Logger, operation string, onPanic func(v any)) {
	if r := recover(); r != nil {
		logPanic(logger, operation, r)

		if onPanic != nil {
			onPanic(r)
		}
	}
}

func logPanic(logger *zerolog.Logger, operation string, v any) {
	getLogger(logger).Error().
		Interface("panic", v).
		Str("operation", operation).
		Msg("recovered from panic")
}
