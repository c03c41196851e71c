package strava

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Strava allows 100 requests per 15 minutes and 1000 per day; the
// response headers carry the live numbers.
const (
	defaultShortLimit = 100
	defaultDailyLimit = 1000
	shortWindow       = 15 * time.Minute
	minInterval       = 150 * time.Millisecond
)

// window is one fixed rate-limit window
type window struct {
	limit    int
	usage    int
	resetsAt time.Time
}

// RateLimiter manages Strava API rate limits
type RateLimiter struct {
	mu          sync.Mutex
	short       window
	daily       window
	lastRequest time.Time
	now         func() time.Time
}

// NewRateLimiter creates a new rate limiter with Strava's limits
func NewRateLimiter() *RateLimiter {
	r := &RateLimiter{now: time.Now}
	now := r.now()
	r.short = window{limit: defaultShortLimit, resetsAt: now.Add(shortWindow)}
	r.daily = window{limit: defaultDailyLimit, resetsAt: nextMidnight(now)}
	return r
}

func nextMidnight(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
}

// Wait blocks until a request can be made without exceeding rate limits
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		d := r.reserve()
		if d <= 0 {
			return nil
		}
		timer := time.NewTimer(d)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// reserve takes a request slot and returns 0, or returns how long to wait
func (r *RateLimiter) reserve() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if !now.Before(r.short.resetsAt) {
		r.short.usage = 0
		r.short.resetsAt = now.Add(shortWindow)
	}
	if !now.Before(r.daily.resetsAt) {
		r.daily.usage = 0
		r.daily.resetsAt = nextMidnight(now)
	}

	if r.daily.usage >= r.daily.limit {
		return r.daily.resetsAt.Sub(now)
	}
	if r.short.usage >= r.short.limit {
		return r.short.resetsAt.Sub(now)
	}
	if gap := now.Sub(r.lastRequest); gap < minInterval {
		return minInterval - gap
	}

	r.short.usage++
	r.daily.usage++
	r.lastRequest = now
	return 0
}

// UpdateFromHeaders updates rate limit state from Strava response headers.
// Strava returns X-RateLimit-Limit: "100,1000" and X-RateLimit-Usage: "34,512".
func (r *RateLimiter) UpdateFromHeaders(h http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if short, daily, ok := parsePair(h.Get("X-RateLimit-Usage")); ok {
		r.short.usage, r.daily.usage = short, daily
	}
	if short, daily, ok := parsePair(h.Get("X-RateLimit-Limit")); ok {
		r.short.limit, r.daily.limit = short, daily
	}
}

func parsePair(v string) (int, int, bool) {
	parts := strings.Split(v, ",")
	if len(parts) < 2 {
		return 0, 0, false
	}
	a, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return a, b, true
}

// Status returns current rate limit status
func (r *RateLimiter) Status() (shortRemaining, dailyRemaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.short.limit - r.short.usage, r.daily.limit - r.daily.usage
}
