package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestClientLimiter_PerClient(t *testing.T) {
	l := newClientLimiter(rate.Limit(0.001), 1)

	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.2"), "buckets are per client")
}

func TestClientLimiter_SweepsIdleClients(t *testing.T) {
	now := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newClientLimiter(rate.Limit(1), 1)
	l.now = func() time.Time { return now }

	for i := range 2000 {
		l.allow(string(rune('a'+i%26)) + time.Duration(i).String())
	}
	assert.Len(t, l.clients, 2000)

	now = now.Add(limiterIdleTTL + time.Second)
	l.allow("fresh")
	assert.Len(t, l.clients, 1)
}

func TestClientLimiter_SweepsOnInterval(t *testing.T) {
	t0 := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	now := t0
	l := newClientLimiter(rate.Limit(1), 1)
	l.now = func() time.Time { return now }

	l.allow("a")
	assert.Equal(t, t0, l.lastSweep)

	// Requests inside the interval do not rescan the map.
	now = t0.Add(limiterSweepInterval / 2)
	l.allow("b")
	assert.Equal(t, t0, l.lastSweep)

	now = t0.Add(limiterIdleTTL + time.Second)
	l.allow("c")
	assert.Equal(t, now, l.lastSweep)
	assert.NotContains(t, l.clients, "a")
	assert.Contains(t, l.clients, "b")
	assert.Contains(t, l.clients, "c")
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	assert.Equal(t, "203.0.113.9", clientKey(req))

	req.RemoteAddr = "203.0.113.9"
	assert.Equal(t, "203.0.113.9", clientKey(req))
}

func TestParamDefaults(t *testing.T) {
	h := &handler{opts: Options{PeerSeed: 42}}
	h.opts.defaults()
	h.opts.Now = testNow

	req := httptest.NewRequest("GET", "/?year=%202021%20", nil)
	year, err := h.yearParam(req)
	assert.NoError(t, err)
	assert.Equal(t, 2021, year)

	req = httptest.NewRequest("GET", "/", nil)
	year, err = h.yearParam(req)
	assert.NoError(t, err)
	assert.Equal(t, 2022, year)

	limit, err := h.limitParam(req)
	assert.NoError(t, err)
	assert.Equal(t, 5, limit)

	seed, err := h.seedParam(req)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), seed)

	req = httptest.NewRequest("GET", "/?limit=0&seed=-3", nil)
	limit, err = h.limitParam(req)
	assert.NoError(t, err)
	assert.Equal(t, 0, limit)
	seed, err = h.seedParam(req)
	assert.NoError(t, err)
	assert.Equal(t, int64(-3), seed)
}
