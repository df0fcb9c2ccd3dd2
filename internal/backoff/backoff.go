// Package backoff provides the exponential backoff schedule shared by
// delivery retries and polling error recovery.
package backoff

import "time"

// Delay returns the wait before the given attempt (1-based): base for
// the first retry, doubling each attempt, capped at max.
func Delay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
