package strava

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(srv.Client())
	c.baseURL = srv.URL
	return c
}

func TestGetAthlete(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/athlete", r.URL.Path)
		w.Header().Set("X-RateLimit-Usage", "10,200")
		w.Header().Set("X-RateLimit-Limit", "100,1000")
		fmt.Fprint(w, `{"id":7,"firstname":"Sam","lastname":"Rider","weight":71.5,"ftp":262}`)
	}))

	a, err := c.GetAthlete(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), a.ID)
	assert.Equal(t, "Sam Rider", a.Name())
	assert.Equal(t, 71.5, a.Weight)
	require.NotNil(t, a.FTP)
	assert.Equal(t, 262, *a.FTP)

	short, daily := c.RateLimitStatus()
	assert.Equal(t, 90, short)
	assert.Equal(t, 800, daily)
}

func TestGetAthleteError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Authorization Error"}`, http.StatusUnauthorized)
	}))

	_, err := c.GetAthlete(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestGetAllActivitiesPaginates(t *testing.T) {
	pages := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		assert.Equal(t, "1700000000", r.URL.Query().Get("after"))
		if r.URL.Query().Get("page") == "1" {
			fmt.Fprint(w, "[")
			for i := 0; i < perPageMax; i++ {
				if i > 0 {
					fmt.Fprint(w, ",")
				}
				fmt.Fprintf(w, `{"id":%d,"sport_type":"Run","distance":5000,"moving_time":1500}`, i+1)
			}
			fmt.Fprint(w, "]")
			return
		}
		fmt.Fprint(w, `[{"id":1000,"type":"Ride","distance":40000,"moving_time":4000}]`)
	}))

	var progress []int
	acts, err := c.GetAllActivities(context.Background(), time.Unix(1_700_000_000, 0), func(n int) {
		progress = append(progress, n)
	})
	require.NoError(t, err)
	assert.Len(t, acts, perPageMax+1)
	assert.Equal(t, 2, pages)
	assert.Equal(t, []int{perPageMax, perPageMax + 1}, progress)
	assert.True(t, acts[0].IsRun())
	assert.True(t, acts[perPageMax].IsRide())
}

func TestRateLimiterWaitsForWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewRateLimiter()
	r.now = func() time.Time { return now }
	r.short = window{limit: 2, resetsAt: now.Add(time.Minute)}
	r.daily = window{limit: 1000, resetsAt: nextMidnight(now)}

	assert.Equal(t, time.Duration(0), r.reserve())
	now = now.Add(time.Second)
	assert.Equal(t, time.Duration(0), r.reserve())
	now = now.Add(time.Second)
	// short window full until reset
	assert.Equal(t, 58*time.Second, r.reserve())

	now = now.Add(time.Minute)
	assert.Equal(t, time.Duration(0), r.reserve())
	// too soon after the last request
	assert.Equal(t, minInterval, r.reserve())
}

func TestRateLimiterWaitHonoursContext(t *testing.T) {
	r := NewRateLimiter()
	r.UpdateFromHeaders(http.Header{"X-Ratelimit-Usage": {"100,10"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Wait(ctx), context.Canceled)
}
