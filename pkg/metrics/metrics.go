// Package metrics provides observability primitives for the asconlink
// library.
//
// The package includes:
//   - A Collector with counters and histograms for link activity
//   - Prometheus-compatible metrics export
//   - OpenTelemetry tracing behind the otel build tag
//   - Structured logging with levels
//   - An observability HTTP server (/metrics, /healthz)
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector aggregates metrics from link sessions.
type Collector struct {
	// Session metrics
	sessionsActive   atomic.Uint64
	sessionsTotal    atomic.Uint64
	sessionsFailed   atomic.Uint64
	sessionsExpired  atomic.Uint64
	handshakeLatency *Histogram

	// Traffic metrics
	bytesSent     atomic.Uint64
	bytesReceived atomic.Uint64
	packetsSent   atomic.Uint64
	packetsRecv   atomic.Uint64

	// Security metrics
	replaysBlocked atomic.Uint64
	authFailures   atomic.Uint64

	// KEM operation counters
	kemKeygens atomic.Uint64
	kemEncaps  atomic.Uint64
	kemDecaps  atomic.Uint64

	// Error metrics
	encryptErrors  atomic.Uint64
	decryptErrors  atomic.Uint64
	protocolErrors atomic.Uint64

	// Performance histograms
	encryptLatency *Histogram
	decryptLatency *Histogram

	createdAt time.Time
	labels    Labels
}

// Labels represents key-value pairs for metric labeling.
type Labels map[string]string

// NewCollector creates a new metrics collector.
func NewCollector(labels Labels) *Collector {
	if labels == nil {
		labels = make(Labels)
	}

	return &Collector{
		handshakeLatency: NewHistogram(HandshakeLatencyBuckets),
		encryptLatency:   NewHistogram(LatencyBuckets),
		decryptLatency:   NewHistogram(LatencyBuckets),
		createdAt:        time.Now(),
		labels:           labels,
	}
}

// Default bucket configurations for histograms.
var (
	// HandshakeLatencyBuckets for handshake duration (milliseconds).
	HandshakeLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000}

	// LatencyBuckets for encrypt/decrypt operations (microseconds).
	LatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000}
)

// --- Session Metrics ---

// SessionStarted increments active and total session counters.
func (c *Collector) SessionStarted() {
	c.sessionsActive.Add(1)
	c.sessionsTotal.Add(1)
}

// SessionEnded decrements the active session counter.
func (c *Collector) SessionEnded() {
	for {
		current := c.sessionsActive.Load()
		if current == 0 {
			return
		}
		if c.sessionsActive.CompareAndSwap(current, current-1) {
			return
		}
	}
}

// SessionFailed records a failed session attempt.
func (c *Collector) SessionFailed() {
	c.sessionsFailed.Add(1)
}

// SessionExpired records a session closed because its packet budget
// ran out.
func (c *Collector) SessionExpired() {
	c.sessionsExpired.Add(1)
}

// RecordHandshakeLatency records a handshake duration.
func (c *Collector) RecordHandshakeLatency(d time.Duration) {
	c.handshakeLatency.Observe(float64(d.Milliseconds()))
}

// --- Traffic Metrics ---

// RecordBytesSent adds to the bytes sent counter.
func (c *Collector) RecordBytesSent(n uint64) {
	c.bytesSent.Add(n)
}

// RecordBytesReceived adds to the bytes received counter.
func (c *Collector) RecordBytesReceived(n uint64) {
	c.bytesReceived.Add(n)
}

// RecordPacketSent increments the packets sent counter.
func (c *Collector) RecordPacketSent() {
	c.packetsSent.Add(1)
}

// RecordPacketReceived increments the packets received counter.
func (c *Collector) RecordPacketReceived() {
	c.packetsRecv.Add(1)
}

// --- Security Metrics ---

// RecordReplayBlocked increments the replay counter.
func (c *Collector) RecordReplayBlocked() {
	c.replaysBlocked.Add(1)
}

// RecordAuthFailure increments the authentication failure counter.
func (c *Collector) RecordAuthFailure() {
	c.authFailures.Add(1)
}

// --- KEM Metrics ---

// RecordKEMKeygen increments the key generation counter.
func (c *Collector) RecordKEMKeygen() {
	c.kemKeygens.Add(1)
}

// RecordKEMEncapsulation increments the encapsulation counter.
func (c *Collector) RecordKEMEncapsulation() {
	c.kemEncaps.Add(1)
}

// RecordKEMDecapsulation increments the decapsulation counter.
func (c *Collector) RecordKEMDecapsulation() {
	c.kemDecaps.Add(1)
}

// --- Error Metrics ---

// RecordEncryptError increments the encryption error counter.
func (c *Collector) RecordEncryptError() {
	c.encryptErrors.Add(1)
}

// RecordDecryptError increments the decryption error counter.
func (c *Collector) RecordDecryptError() {
	c.decryptErrors.Add(1)
}

// RecordProtocolError increments the protocol error counter.
func (c *Collector) RecordProtocolError() {
	c.protocolErrors.Add(1)
}

// --- Performance Metrics ---

// RecordEncryptLatency records encryption operation latency.
func (c *Collector) RecordEncryptLatency(d time.Duration) {
	c.encryptLatency.Observe(float64(d.Microseconds()))
}

// RecordDecryptLatency records decryption operation latency.
func (c *Collector) RecordDecryptLatency(d time.Duration) {
	c.decryptLatency.Observe(float64(d.Microseconds()))
}

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Timestamp time.Time
	Uptime    time.Duration

	SessionsActive  uint64
	SessionsTotal   uint64
	SessionsFailed  uint64
	SessionsExpired uint64

	BytesSent     uint64
	BytesReceived uint64
	PacketsSent   uint64
	PacketsRecv   uint64

	ReplaysBlocked uint64
	AuthFailures   uint64

	KEMKeygens         uint64
	KEMEncapsulations  uint64
	KEMDecapsulations  uint64

	EncryptErrors  uint64
	DecryptErrors  uint64
	ProtocolErrors uint64

	HandshakeLatency HistogramSummary
	EncryptLatency   HistogramSummary
	DecryptLatency   HistogramSummary

	Labels Labels
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		Timestamp:         time.Now(),
		Uptime:            time.Since(c.createdAt),
		SessionsActive:    c.sessionsActive.Load(),
		SessionsTotal:     c.sessionsTotal.Load(),
		SessionsFailed:    c.sessionsFailed.Load(),
		SessionsExpired:   c.sessionsExpired.Load(),
		BytesSent:         c.bytesSent.Load(),
		BytesReceived:     c.bytesReceived.Load(),
		PacketsSent:       c.packetsSent.Load(),
		PacketsRecv:       c.packetsRecv.Load(),
		ReplaysBlocked:    c.replaysBlocked.Load(),
		AuthFailures:      c.authFailures.Load(),
		KEMKeygens:        c.kemKeygens.Load(),
		KEMEncapsulations: c.kemEncaps.Load(),
		KEMDecapsulations: c.kemDecaps.Load(),
		EncryptErrors:     c.encryptErrors.Load(),
		DecryptErrors:     c.decryptErrors.Load(),
		ProtocolErrors:    c.protocolErrors.Load(),
		HandshakeLatency:  c.handshakeLatency.Summary(),
		EncryptLatency:    c.encryptLatency.Summary(),
		DecryptLatency:    c.decryptLatency.Summary(),
		Labels:            c.labels,
	}
}

// Reset clears all metrics (useful for testing).
func (c *Collector) Reset() {
	c.sessionsActive.Store(0)
	c.sessionsTotal.Store(0)
	c.sessionsFailed.Store(0)
	c.sessionsExpired.Store(0)
	c.bytesSent.Store(0)
	c.bytesReceived.Store(0)
	c.packetsSent.Store(0)
	c.packetsRecv.Store(0)
	c.replaysBlocked.Store(0)
	c.authFailures.Store(0)
	c.kemKeygens.Store(0)
	c.kemEncaps.Store(0)
	c.kemDecaps.Store(0)
	c.encryptErrors.Store(0)
	c.decryptErrors.Store(0)
	c.protocolErrors.Store(0)
	c.handshakeLatency.Reset()
	c.encryptLatency.Reset()
	c.decryptLatency.Reset()
	c.createdAt = time.Now()
}

// --- Global Collector ---

var (
	globalCollector     *Collector
	globalCollectorOnce sync.Once
)

// Global returns the global metrics collector, creating one with
// default settings if not already initialized.
func Global() *Collector {
	globalCollectorOnce.Do(func() {
		globalCollector = NewCollector(Labels{"instance": "default"})
	})
	return globalCollector
}

// SetGlobal sets the global metrics collector. Should be called during
// initialization before any metrics are recorded.
func SetGlobal(c *Collector) {
	globalCollector = c
}
