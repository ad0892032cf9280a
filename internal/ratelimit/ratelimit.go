// Package ratelimit holds the request limiter used by the provider client and
// the coarse pacing policy used between symbols and batches.
package ratelimit

import (
	"context"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Limiter gates outgoing requests and computes waits after throttled responses.
type Limiter struct {
	bucket    *rate.Limiter
	baseDelay time.Duration
	maxDelay  time.Duration
}

// NewLimiter allows perMinute requests per minute with a burst of one.
// perMinute <= 0 disables request limiting.
func NewLimiter(perMinute int, baseDelay, maxDelay time.Duration) *Limiter {
	lim := rate.Inf
	if perMinute > 0 {
		lim = rate.Every(time.Minute / time.Duration(perMinute))
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}
	return &Limiter{
		bucket:    rate.NewLimiter(lim, 1),
		baseDelay: baseDelay,
		maxDelay:  maxDelay,
	}
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.bucket.Wait(ctx)
}

// Backoff returns how long to wait before retry attempt (1-based) after a
// throttled or failed response. A server Retry-After wins when present;
// otherwise exponential backoff with full jitter capped at maxDelay.
func (l *Limiter) Backoff(attempt int, header http.Header) time.Duration {
	if d, ok := RetryAfter(header, time.Now()); ok {
		if d > l.maxDelay {
			return l.maxDelay
		}
		return d
	}
	if attempt < 1 {
		attempt = 1
	}
	ceil := l.baseDelay << (attempt - 1)
	if ceil <= 0 || ceil > l.maxDelay {
		ceil = l.maxDelay
	}
	half := ceil / 2
	return half + rand.N(half+1)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryAfter parses a Retry-After header given either in seconds or as an HTTP date.
func RetryAfter(header http.Header, now time.Time) (time.Duration, bool) {
	if header == nil {
		return 0, false
	}
	v := header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		d := t.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
