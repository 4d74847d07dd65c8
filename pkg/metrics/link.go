package metrics

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/lightpq/asconlink/pkg/link"
)

// LinkObserver implements link.Observer, recording collector metrics,
// trace spans, and log lines for every session event.
type LinkObserver struct {
	collector *Collector
	tracer    Tracer
	logger    *Logger
}

// LinkObserverConfig configures a link observer.
type LinkObserverConfig struct {
	Collector *Collector
	Tracer    Tracer
	Logger    *Logger
}

// NewLinkObserver creates an observer wired to the given collector,
// tracer, and logger. Nil fields fall back to the package globals.
func NewLinkObserver(cfg LinkObserverConfig) *LinkObserver {
	if cfg.Collector == nil {
		cfg.Collector = Global()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = GetTracer()
	}
	if cfg.Logger == nil {
		cfg.Logger = GetLogger()
	}

	return &LinkObserver{
		collector: cfg.Collector,
		tracer:    cfg.Tracer,
		logger:    cfg.Logger.Named("link"),
	}
}

// OnSessionStart records a new session.
func (o *LinkObserver) OnSessionStart(session *link.Session) {
	o.collector.SessionStarted()
	o.logger.Info("session started", Fields{"role": roleName(session.Role)})
}

// OnSessionEnd records a session closing.
func (o *LinkObserver) OnSessionEnd(session *link.Session) {
	o.collector.SessionEnded()
	stats := session.Stats()
	o.logger.Info("session ended", Fields{
		"session_id":   shortID(session.ID),
		"packets_sent": stats.PacketsSent,
		"packets_recv": stats.PacketsRecv,
		"duration":     stats.Duration.String(),
	})
}

// OnSessionFailed records a session that failed to establish or died
// on an error.
func (o *LinkObserver) OnSessionFailed(session *link.Session, err error) {
	o.collector.SessionFailed()
	o.logger.Error("session failed", Fields{"error": err.Error()})
}

// OnHandshakeStart returns a completion function that records the
// handshake duration and result.
func (o *LinkObserver) OnHandshakeStart(ctx context.Context, role link.Role) (context.Context, func(error)) {
	spanName := SpanHandshakeClient
	kind := SpanKindClient
	if role == link.RoleServer {
		spanName = SpanHandshakeServer
		kind = SpanKindServer
	}

	start := time.Now()
	ctx, endSpan := o.tracer.StartSpan(ctx, spanName, WithSpanKind(kind))

	o.logger.Debug("handshake started", Fields{"role": roleName(role)})

	return ctx, func(err error) {
		duration := time.Since(start)
		o.collector.RecordHandshakeLatency(duration)

		if err != nil {
			o.logger.Error("handshake failed", Fields{
				"error":    err.Error(),
				"duration": duration.String(),
			})
		} else {
			o.logger.Info("handshake completed", Fields{
				"duration": duration.String(),
			})
		}

		endSpan(err)
	}
}

// OnEncrypt records encryption metrics.
func (o *LinkObserver) OnEncrypt(ctx context.Context, plaintextLen int) (context.Context, func(error)) {
	start := time.Now()
	ctx, endSpan := o.tracer.StartSpan(ctx, SpanEncrypt)

	return ctx, func(err error) {
		o.collector.RecordEncryptLatency(time.Since(start))

		if err != nil {
			o.collector.RecordEncryptError()
			o.logger.Debug("encrypt failed", Fields{"error": err.Error()})
		} else {
			o.collector.RecordBytesSent(uint64(plaintextLen))
			o.collector.RecordPacketSent()
		}

		endSpan(err)
	}
}

// OnDecrypt records decryption metrics.
func (o *LinkObserver) OnDecrypt(ctx context.Context, ciphertextLen int) (context.Context, func(error)) {
	start := time.Now()
	ctx, endSpan := o.tracer.StartSpan(ctx, SpanDecrypt)

	return ctx, func(err error) {
		o.collector.RecordDecryptLatency(time.Since(start))

		if err != nil {
			o.collector.RecordDecryptError()
			o.logger.Debug("decrypt failed", Fields{"error": err.Error()})
		} else {
			o.collector.RecordBytesReceived(uint64(ciphertextLen))
			o.collector.RecordPacketReceived()
		}

		endSpan(err)
	}
}

// OnReplayDetected records a rejected replay.
func (o *LinkObserver) OnReplayDetected() {
	o.collector.RecordReplayBlocked()
	o.logger.Warn("replayed packet rejected")
}

// OnAuthFailure records an authentication failure.
func (o *LinkObserver) OnAuthFailure() {
	o.collector.RecordAuthFailure()
	o.logger.Warn("authentication failed")
}

// OnProtocolError records a protocol error.
func (o *LinkObserver) OnProtocolError(err error) {
	o.collector.RecordProtocolError()
	o.logger.Error("protocol error", Fields{"error": err.Error()})
}

// Logger returns the observer's logger for custom logging.
func (o *LinkObserver) Logger() *Logger {
	return o.logger
}

var _ link.Observer = (*LinkObserver)(nil)

func roleName(role link.Role) string {
	if role == link.RoleServer {
		return "server"
	}
	return "client"
}

func shortID(id []byte) string {
	if len(id) == 0 {
		return ""
	}
	n := len(id)
	if n > 8 {
		n = 8
	}
	return hex.EncodeToString(id[:n])
}
