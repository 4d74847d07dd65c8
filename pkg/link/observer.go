package link

import "context"

// Observer receives callbacks for session lifecycle events and
// per-operation metrics. All methods must be safe for concurrent use
// and must not block; implementations that do heavy work should hand
// it off to a goroutine.
//
// A nil Observer disables all instrumentation.
type Observer interface {
	// OnSessionStart is called when a session is created.
	OnSessionStart(session *Session)

	// OnSessionEnd is called when a session is closed normally.
	OnSessionEnd(session *Session)

	// OnSessionFailed is called when a session fails during or after
	// the handshake.
	OnSessionFailed(session *Session, err error)

	// OnHandshakeStart is called when a handshake begins. The returned
	// done function is called with the handshake result.
	OnHandshakeStart(ctx context.Context, role Role) (context.Context, func(error))

	// OnEncrypt is called around each encryption. The returned done
	// function is called once the operation finishes.
	OnEncrypt(ctx context.Context, plaintextLen int) (context.Context, func(error))

	// OnDecrypt is called around each decryption.
	OnDecrypt(ctx context.Context, ciphertextLen int) (context.Context, func(error))

	// OnReplayDetected is called when a replayed sequence number is
	// rejected.
	OnReplayDetected()

	// OnAuthFailure is called when authenticated decryption fails.
	OnAuthFailure()

	// OnProtocolError is called for protocol-level errors.
	OnProtocolError(err error)
}

// NopObserver is an Observer that does nothing. Useful as an embedding
// base for observers that only care about a subset of events.
type NopObserver struct{}

func (NopObserver) OnSessionStart(*Session)         {}
func (NopObserver) OnSessionEnd(*Session)           {}
func (NopObserver) OnSessionFailed(*Session, error) {}
func (NopObserver) OnHandshakeStart(ctx context.Context, _ Role) (context.Context, func(error)) {
	return ctx, func(error) {}
}
func (NopObserver) OnEncrypt(ctx context.Context, _ int) (context.Context, func(error)) {
	return ctx, func(error) {}
}
func (NopObserver) OnDecrypt(ctx context.Context, _ int) (context.Context, func(error)) {
	return ctx, func(error) {}
}
func (NopObserver) OnReplayDetected()      {}
func (NopObserver) OnAuthFailure()         {}
func (NopObserver) OnProtocolError(error)  {}

var _ Observer = NopObserver{}
