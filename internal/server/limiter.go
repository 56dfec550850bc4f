package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRateLimit is the per-client analyze rate, in requests per second, used when
	// RouterConfig leaves it unset.
	DefaultRateLimit = 2.0
	// DefaultRateBurst is the per-client analyze burst used when RouterConfig leaves it unset.
	DefaultRateBurst = 5
)

// limiterEntry pairs a client's token bucket with the last time the client was seen.
type limiterEntry struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// clientLimiter hands out one token bucket per client address. Buckets unused for longer than the
// eviction age are dropped; by then they have refilled, so a fresh bucket behaves the same.
type clientLimiter struct {
	mutex       sync.Mutex
	entries     map[string]*limiterEntry
	limit       rate.Limit
	burst       int
	evictionAge time.Duration
	lastSweep   time.Time
	now         func() time.Time
}

// newClientLimiter creates a limiter allowing requestsPerSecond with the given burst per client.
func newClientLimiter(requestsPerSecond float64, burst int, idleTimeout time.Duration, now func() time.Time) *clientLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = DefaultRateLimit
	}
	if burst <= 0 {
		burst = DefaultRateBurst
	}
	if idleTimeout <= 0 {
		idleTimeout = DefaultSessionIdleTimeout
	}
	if now == nil {
		now = time.Now
	}
	evictionAge := idleTimeout
	refillDuration := time.Duration(float64(burst) / requestsPerSecond * float64(time.Second))
	if refillDuration > evictionAge {
		evictionAge = refillDuration
	}
	return &clientLimiter{
		entries:     make(map[string]*limiterEntry),
		limit:       rate.Limit(requestsPerSecond),
		burst:       burst,
		evictionAge: evictionAge,
		lastSweep:   now(),
		now:         now,
	}
}

// Allow reports whether the client may issue another request now.
func (limiter *clientLimiter) Allow(clientKey string) bool {
	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()

	currentTime := limiter.now()
	if currentTime.Sub(limiter.lastSweep) >= limiter.evictionAge {
		limiter.sweepLocked(currentTime)
	}
	entry, exists := limiter.entries[clientKey]
	if !exists {
		entry = &limiterEntry{bucket: rate.NewLimiter(limiter.limit, limiter.burst)}
		limiter.entries[clientKey] = entry
	}
	entry.lastSeen = currentTime
	return entry.bucket.AllowN(currentTime, 1)
}

// Len reports the number of tracked clients.
func (limiter *clientLimiter) Len() int {
	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()
	return len(limiter.entries)
}

func (limiter *clientLimiter) sweepLocked(currentTime time.Time) {
	for clientKey, entry := range limiter.entries {
		if currentTime.Sub(entry.lastSeen) >= limiter.evictionAge {
			delete(limiter.entries, clientKey)
		}
	}
	limiter.lastSweep = currentTime
}
