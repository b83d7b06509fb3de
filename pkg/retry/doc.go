// Package retry provides backoff retry logic for transient failures.
//
// Two entry points exist:
//
//   - Do / DoWithResult: run an operation a bounded number of times with
//     exponential backoff (used for binding listeners at startup)
//   - Forever: run an operation for as long as the context lives, pausing between
//     runs (used by the gateway reconnect loop, with Fixed(20*time.Second))
//
// Basic retry with defaults:
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
//	    return client.Connect()
//	})
//
// Unbounded reconnect loop with a fixed pause:
//
//	_ = retry.Forever(ctx, retry.Fixed(20*time.Second), session, func(attempt int, d time.Duration, err error) {
//	    logger.Info("reconnecting", "attempt", attempt, "delay", d, "error", err)
//	})
//
// All operations respect context cancellation, both while the operation runs and
// during the pause. The jitter source is safe for concurrent use.
package retry
