package link

import (
	"sync"
	"time"
)

// IPRateLimiter bounds the number of concurrent connections per source
// IP. It protects the listener from a single client exhausting server
// resources with parallel handshakes, which are expensive on the
// server side (one KEM encapsulation each).
type IPRateLimiter struct {
	mu             sync.Mutex
	connections    map[string]int
	maxPerIP       int
	lastSeen       map[string]time.Time
	cleanupEvery   time.Duration
	lastCleanup    time.Time
	entryRetention time.Duration
}

// NewIPRateLimiter creates a limiter allowing maxPerIP concurrent
// connections from each source address.
func NewIPRateLimiter(maxPerIP int) *IPRateLimiter {
	if maxPerIP <= 0 {
		maxPerIP = 10
	}
	return &IPRateLimiter{
		connections:    make(map[string]int),
		maxPerIP:       maxPerIP,
		lastSeen:       make(map[string]time.Time),
		cleanupEvery:   time.Minute,
		lastCleanup:    time.Now(),
		entryRetention: 10 * time.Minute,
	}
}

// AllowConnection reports whether a new connection from ip may
// proceed, and reserves a slot if so. Callers must pair a true result
// with a later ReleaseConnection.
func (rl *IPRateLimiter) AllowConnection(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.maybeCleanup()

	if rl.connections[ip] >= rl.maxPerIP {
		return false
	}
	rl.connections[ip]++
	rl.lastSeen[ip] = time.Now()
	return true
}

// ReleaseConnection frees a slot reserved by AllowConnection.
func (rl *IPRateLimiter) ReleaseConnection(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.connections[ip] > 0 {
		rl.connections[ip]--
	}
	if rl.connections[ip] == 0 {
		delete(rl.connections, ip)
	}
}

// ActiveConnections returns the current count for an IP.
func (rl *IPRateLimiter) ActiveConnections(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.connections[ip]
}

// maybeCleanup drops stale lastSeen entries. Caller holds the lock.
func (rl *IPRateLimiter) maybeCleanup() {
	now := time.Now()
	if now.Sub(rl.lastCleanup) < rl.cleanupEvery {
		return
	}
	rl.lastCleanup = now
	for ip, seen := range rl.lastSeen {
		if now.Sub(seen) > rl.entryRetention && rl.connections[ip] == 0 {
			delete(rl.lastSeen, ip)
		}
	}
}

// HandshakeLimiter throttles the global handshake rate with a token
// bucket. Tokens refill continuously at ratePerSecond up to burst.
type HandshakeLimiter struct {
	mu            sync.Mutex
	tokens        float64
	burst         float64
	ratePerSecond float64
	lastRefill    time.Time
}

// NewHandshakeLimiter creates a limiter allowing ratePerSecond
// handshakes sustained, with the given burst capacity.
func NewHandshakeLimiter(ratePerSecond float64, burst int) *HandshakeLimiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 10
	}
	if burst <= 0 {
		burst = int(ratePerSecond)
	}
	return &HandshakeLimiter{
		tokens:        float64(burst),
		burst:         float64(burst),
		ratePerSecond: ratePerSecond,
		lastRefill:    time.Now(),
	}
}

// AllowHandshake consumes a token if one is available.
func (hl *HandshakeLimiter) AllowHandshake() bool {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(hl.lastRefill).Seconds()
	hl.lastRefill = now

	hl.tokens += elapsed * hl.ratePerSecond
	if hl.tokens > hl.burst {
		hl.tokens = hl.burst
	}

	if hl.tokens < 1 {
		return false
	}
	hl.tokens--
	return true
}
