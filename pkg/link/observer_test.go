package link_test

import (
	"context"
	"sync/atomic"

	"github.com/lightpq/asconlink/pkg/link"
)

// countingObserver counts lifecycle callbacks for assertions.
type countingObserver struct {
	link.NopObserver

	sessionStarts atomic.Int64
	sessionEnds   atomic.Int64
	failures      atomic.Int64
	handshakes    atomic.Int64
	encrypts      atomic.Int64
	decrypts      atomic.Int64
	replays       atomic.Int64
	authFailures  atomic.Int64
}

func (o *countingObserver) OnSessionStart(*link.Session) { o.sessionStarts.Add(1) }
func (o *countingObserver) OnSessionEnd(*link.Session)   { o.sessionEnds.Add(1) }
func (o *countingObserver) OnSessionFailed(*link.Session, error) {
	o.failures.Add(1)
}
func (o *countingObserver) OnHandshakeStart(ctx context.Context, _ link.Role) (context.Context, func(error)) {
	o.handshakes.Add(1)
	return ctx, func(error) {}
}
func (o *countingObserver) OnEncrypt(ctx context.Context, _ int) (context.Context, func(error)) {
	o.encrypts.Add(1)
	return ctx, func(error) {}
}
func (o *countingObserver) OnDecrypt(ctx context.Context, _ int) (context.Context, func(error)) {
	o.decrypts.Add(1)
	return ctx, func(error) {}
}
func (o *countingObserver) OnReplayDetected() { o.replays.Add(1) }
func (o *countingObserver) OnAuthFailure()    { o.authFailures.Add(1) }
