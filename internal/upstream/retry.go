package upstream

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// backoff resolves the delay before retrying a transient failure: the
// server-supplied Retry-After hint when present, else the default delay,
// capped by the configured maximum.
func (g *Gateway) backoff(retryAfter string) time.Duration {
	delay, ok := parseRetryAfter(retryAfter, time.Now())
	if !ok {
		delay = g.retryDelay
	}
	if delay < 0 {
		delay = 0
	}
	if delay > g.maxRetryDelay {
		delay = g.maxRetryDelay
	}
	return delay
}

func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		if seconds < 0 {
			return 0, true
		}
		return time.Duration(seconds * float64(time.Second)), true
	}
	if at, err := http.ParseTime(value); err == nil {
		return at.Sub(now), true
	}
	return 0, false
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
