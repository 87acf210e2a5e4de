package handler

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseSleep converts the sleep query parameter (milliseconds) into a delay.
// Missing, non-numeric, zero and negative values yield no delay. A positive
// max clamps the result.
func ParseSleep(raw string, max time.Duration) time.Duration {
	ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || ms <= 0 {
		return 0
	}
	if ms > math.MaxInt64/int64(time.Millisecond) {
		ms = math.MaxInt64 / int64(time.Millisecond)
	}
	d := time.Duration(ms) * time.Millisecond
	if max > 0 && d > max {
		d = max
	}
	return d
}

// Delay waits for d or until ctx is done, whichever comes first.
func Delay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
