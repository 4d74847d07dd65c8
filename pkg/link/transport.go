package link

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	aerrors "github.com/lightpq/asconlink/internal/errors"
	"github.com/lightpq/asconlink/pkg/crypto"
	"github.com/lightpq/asconlink/pkg/protocol"
)

// Link is an established asconlink connection. It multiplexes data,
// keepalive, close, and alert messages over the underlying stream.
type Link struct {
	session *Session
	conn    net.Conn
	codec   *protocol.Codec
	config  *Config

	writeMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
}

// newLink wraps an established session and connection.
func newLink(session *Session, conn net.Conn, config *Config) *Link {
	l := &Link{
		session: session,
		conn:    conn,
		codec:   protocol.NewCodec(),
		config:  config,
		closed:  make(chan struct{}),
	}
	if config.KeepaliveInterval > 0 {
		go l.keepalive(config.KeepaliveInterval)
	}
	return l
}

// keepalive sends unsolicited pings at the configured interval. The
// matching pongs surface in the peer's Receive loop, which drops them;
// the probes exist to keep middleboxes from expiring the connection,
// not to measure liveness.
func (l *Link) keepalive(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.closed:
			return
		case <-ticker.C:
			token, err := crypto.SecureRandomBytes(8)
			if err != nil {
				continue
			}
			if err := l.write(l.codec.EncodePing(token)); err != nil {
				return
			}
		}
	}
}

// Session returns the underlying session.
func (l *Link) Session() *Session {
	return l.session
}

// RemoteAddr returns the remote network address.
func (l *Link) RemoteAddr() net.Addr {
	return l.conn.RemoteAddr()
}

// LocalAddr returns the local network address.
func (l *Link) LocalAddr() net.Addr {
	return l.conn.LocalAddr()
}

// Send encrypts and transmits an application payload.
func (l *Link) Send(payload []byte) error {
	if l.isClosed() {
		return aerrors.ErrSessionClosed
	}
	if len(payload) > l.config.MaxPayloadSize {
		return aerrors.ErrMessageTooLarge
	}

	ciphertext, seq, err := l.session.Encrypt(payload)
	if err != nil {
		if aerrors.Is(err, aerrors.ErrSessionExpired) {
			// Packet budget exhausted; tear the link down rather
			// than rekey.
			l.sendAlert(protocol.AlertLevelFatal, protocol.AlertCodeCloseNotify, "session expired")
			l.markClosed()
		}
		return err
	}

	data, err := l.codec.EncodeData(seq, ciphertext)
	crypto.PutSealedBuffer(ciphertext)
	if err != nil {
		return err
	}

	err = l.write(data)
	protocol.PutFrame(data)
	return err
}

// Receive reads the next application payload, transparently handling
// keepalive, close, and alert messages.
func (l *Link) Receive() ([]byte, error) {
	for {
		if l.isClosed() {
			return nil, aerrors.ErrSessionClosed
		}

		if l.config.ReadTimeout > 0 {
			if err := l.conn.SetReadDeadline(time.Now().Add(l.config.ReadTimeout)); err != nil {
				return nil, err
			}
		}

		msg, err := l.codec.ReadMessage(l.conn)
		if err != nil {
			if l.isClosed() {
				return nil, aerrors.ErrSessionClosed
			}
			return nil, err
		}

		// The decrypted payload is a fresh allocation, so the frame can
		// be recycled as soon as the message is handled.
		payload, handled, err := l.handleMessage(msg)
		protocol.PutFrame(msg)
		if err != nil {
			return nil, err
		}
		if handled {
			continue
		}
		return payload, nil
	}
}

// handleMessage dispatches a received message. The handled result is
// true for control messages that do not yield application data.
func (l *Link) handleMessage(msg []byte) ([]byte, bool, error) {
	msgType, err := l.codec.GetMessageType(msg)
	if err != nil {
		return nil, false, err
	}

	switch msgType {
	case protocol.MessageTypeData:
		seq, ciphertext, err := l.codec.DecodeData(msg)
		if err != nil {
			return nil, false, err
		}
		plaintext, err := l.session.Decrypt(ciphertext, seq)
		if err != nil {
			if aerrors.Is(err, aerrors.ErrReplayDetected) {
				// Drop replayed packets silently and keep reading.
				return nil, true, nil
			}
			l.sendAlert(protocol.AlertLevelFatal, protocol.AlertCodeDecryptionFailed, "")
			return nil, false, err
		}
		return plaintext, false, nil

	case protocol.MessageTypePing:
		_, token, err := l.codec.DecodePingPong(msg)
		if err != nil {
			return nil, false, err
		}
		if err := l.write(l.codec.EncodePong(token)); err != nil {
			return nil, false, err
		}
		return nil, true, nil

	case protocol.MessageTypePong:
		// Stray pong outside Ping(); ignore.
		return nil, true, nil

	case protocol.MessageTypeClose:
		l.markClosed()
		return nil, false, aerrors.ErrSessionClosed

	case protocol.MessageTypeAlert:
		level, code, desc, err := l.codec.DecodeAlert(msg)
		if err != nil {
			return nil, false, err
		}
		if level == protocol.AlertLevelFatal {
			l.markClosed()
			return nil, false, alertError(code, desc)
		}
		if l.session.observer != nil {
			l.session.observer.OnProtocolError(alertError(code, desc))
		}
		return nil, true, nil

	default:
		return nil, false, aerrors.NewProtocolError("receive",
			fmt.Errorf("unexpected message type %s: %w", msgType, aerrors.ErrInvalidMessage))
	}
}

// Ping sends a keepalive probe with a random token and waits for the
// matching pong. Application data arriving in between is not consumed;
// Ping is meant for idle links.
func (l *Link) Ping() error {
	if l.isClosed() {
		return aerrors.ErrSessionClosed
	}

	token, err := crypto.SecureRandomBytes(8)
	if err != nil {
		return err
	}

	if err := l.write(l.codec.EncodePing(token)); err != nil {
		return err
	}

	if l.config.ReadTimeout > 0 {
		if err := l.conn.SetReadDeadline(time.Now().Add(l.config.ReadTimeout)); err != nil {
			return err
		}
	}

	for {
		msg, err := l.codec.ReadMessage(l.conn)
		if err != nil {
			return err
		}
		err = l.handlePingReply(msg, token)
		protocol.PutFrame(msg)
		if err != errPingContinue {
			return err
		}
	}
}

// errPingContinue signals that Ping consumed an interleaved message and
// should keep waiting for its pong.
var errPingContinue = errors.New("link: awaiting pong")

func (l *Link) handlePingReply(msg, token []byte) error {
	msgType, err := l.codec.GetMessageType(msg)
	if err != nil {
		return err
	}
	switch msgType {
	case protocol.MessageTypePong:
		_, got, err := l.codec.DecodePingPong(msg)
		if err != nil {
			return err
		}
		if !crypto.ConstantTimeCompare(got, token) {
			return aerrors.ErrInvalidMessage
		}
		return nil
	case protocol.MessageTypePing:
		_, peerToken, err := l.codec.DecodePingPong(msg)
		if err != nil {
			return err
		}
		if err := l.write(l.codec.EncodePong(peerToken)); err != nil {
			return err
		}
		return errPingContinue
	case protocol.MessageTypeClose:
		l.markClosed()
		return aerrors.ErrSessionClosed
	default:
		return aerrors.ErrInvalidMessage
	}
}

// Close gracefully terminates the link.
func (l *Link) Close() error {
	var err error
	l.closeOnce.Do(func() {
		// Best-effort close notification
		l.writeBestEffort(l.codec.EncodeClose())

		if l.session.observer != nil {
			l.session.observer.OnSessionEnd(l.session)
		}
		l.session.Close()
		close(l.closed)
		err = l.conn.Close()
	})
	return err
}

// markClosed transitions the link to closed without sending a close
// message (used when the peer already closed).
func (l *Link) markClosed() {
	l.closeOnce.Do(func() {
		if l.session.observer != nil {
			l.session.observer.OnSessionEnd(l.session)
		}
		l.session.Close()
		close(l.closed)
		l.conn.Close() //nolint:errcheck
	})
}

func (l *Link) isClosed() bool {
	select {
	case <-l.closed:
		return true
	default:
		return false
	}
}

// closeNotifyTimeout bounds best-effort notification writes so Close
// and fatal alerts never block on a peer that stopped reading.
const closeNotifyTimeout = 100 * time.Millisecond

// writeBestEffort sends a notification the peer may never read. The
// short deadline keeps Close and alert paths from hanging; the
// deadline is cleared afterwards for any write still in flight.
func (l *Link) writeBestEffort(data []byte) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	_ = l.conn.SetWriteDeadline(time.Now().Add(closeNotifyTimeout))
	_, _ = l.conn.Write(data)
	_ = l.conn.SetWriteDeadline(time.Time{})
}

func (l *Link) write(data []byte) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if l.config.WriteTimeout > 0 {
		if err := l.conn.SetWriteDeadline(time.Now().Add(l.config.WriteTimeout)); err != nil {
			return err
		}
	}
	_, err := l.conn.Write(data)
	return err
}

func (l *Link) sendAlert(level protocol.AlertLevel, code protocol.AlertCode, desc string) {
	l.writeBestEffort(l.codec.EncodeAlert(level, code, desc))
}

// alertError converts a received fatal alert into an error.
func alertError(code protocol.AlertCode, desc string) error {
	switch code {
	case protocol.AlertCodeCloseNotify:
		return aerrors.ErrSessionClosed
	case protocol.AlertCodeDecryptionFailed:
		return aerrors.ErrAuthenticationFailed
	case protocol.AlertCodeHandshakeFailure:
		return aerrors.ErrHandshakeFailed
	default:
		if desc == "" {
			desc = fmt.Sprintf("alert code 0x%02x", uint8(code))
		}
		return aerrors.NewProtocolError("alert", fmt.Errorf("%s: %w", desc, aerrors.ErrInvalidMessage))
	}
}

// Dial establishes a client link to the given TCP address using the
// default configuration.
func Dial(addr string) (*Link, error) {
	return DialWithConfig(context.Background(), addr, DefaultConfig())
}

// DialWithConfig establishes a client link with an explicit
// configuration.
func DialWithConfig(ctx context.Context, addr string, config *Config) (*Link, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config = config.withDefaults()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	link, err := Client(ctx, conn, config)
	if err != nil {
		conn.Close() //nolint:errcheck
		return nil, err
	}
	return link, nil
}

// Client performs the client side of the handshake over an existing
// connection and returns the established link. The connection can be
// any net.Conn, including a CallbackConn over a custom I/O stack.
func Client(ctx context.Context, conn net.Conn, config *Config) (*Link, error) {
	if config == nil {
		config = DefaultConfig()
	}
	config = config.withDefaults()

	session, err := NewSession(RoleClient, config.Profile)
	if err != nil {
		return nil, err
	}
	session.offeredSuites = config.CipherSuites
	session.SetObserver(config.Observer)
	if session.observer != nil {
		session.observer.OnSessionStart(session)
	}

	if err := handshakeWithTimeout(ctx, session, conn, config, InitiatorHandshake); err != nil {
		if session.observer != nil {
			session.observer.OnSessionFailed(session, err)
		}
		session.Close()
		return nil, err
	}

	return newLink(session, conn, config), nil
}

// Server performs the server side of the handshake over an existing
// connection and returns the established link.
func Server(ctx context.Context, conn net.Conn, config *Config) (*Link, error) {
	if config == nil {
		config = DefaultConfig()
	}
	config = config.withDefaults()

	session, err := NewSession(RoleServer, config.Profile)
	if err != nil {
		return nil, err
	}
	session.offeredSuites = config.CipherSuites
	session.SetObserver(config.Observer)
	if session.observer != nil {
		session.observer.OnSessionStart(session)
	}

	if err := handshakeWithTimeout(ctx, session, conn, config, ResponderHandshake); err != nil {
		if session.observer != nil {
			session.observer.OnSessionFailed(session, err)
		}
		session.Close()
		return nil, err
	}

	return newLink(session, conn, config), nil
}

type handshakeFunc func(context.Context, *Session, net.Conn) error

func handshakeWithTimeout(ctx context.Context, session *Session, conn net.Conn, config *Config, hs handshakeFunc) error {
	if config.HandshakeTimeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(config.HandshakeTimeout)); err != nil {
			return err
		}
		defer conn.SetDeadline(time.Time{}) //nolint:errcheck

		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.HandshakeTimeout)
		defer cancel()
	}
	return hs(ctx, session, conn)
}

// Listener accepts incoming asconlink connections.
type Listener struct {
	inner  net.Listener
	config *Config
}

// Listen starts a TCP listener for asconlink connections.
func Listen(addr string, config *Config) (*Listener, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	inner, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	return &Listener{inner: inner, config: config.withDefaults()}, nil
}

// NewListener wraps an existing net.Listener.
func NewListener(inner net.Listener, config *Config) *Listener {
	if config == nil {
		config = DefaultConfig()
	}
	return &Listener{inner: inner, config: config.withDefaults()}
}

// Accept waits for the next connection, enforces rate limits, and
// performs the server handshake.
func (l *Listener) Accept(ctx context.Context) (*Link, error) {
	for {
		conn, err := l.inner.Accept()
		if err != nil {
			return nil, err
		}

		release, err := l.admit(conn)
		if err != nil {
			conn.Close() //nolint:errcheck
			// Rate-limited connections are dropped, not surfaced to
			// the accept loop.
			continue
		}

		link, err := Server(ctx, conn, l.config)
		if err != nil {
			release()
			conn.Close() //nolint:errcheck
			return nil, err
		}

		// Release the per-IP slot when the link closes.
		go func() {
			<-link.closed
			release()
		}()

		return link, nil
	}
}

// admit applies per-IP and global handshake rate limits. It returns a
// release function that must be called when the connection ends.
func (l *Listener) admit(conn net.Conn) (func(), error) {
	release := func() {}

	if l.config.HandshakeLimiter != nil && !l.config.HandshakeLimiter.AllowHandshake() {
		return nil, aerrors.NewProtocolError("accept", fmt.Errorf("handshake rate exceeded: %w", aerrors.ErrHandshakeFailed))
	}

	if l.config.Limiter != nil {
		ip := extractRemoteIP(conn)
		if !l.config.Limiter.AllowConnection(ip) {
			return nil, aerrors.NewProtocolError("accept", fmt.Errorf("connection limit for %s: %w", ip, aerrors.ErrHandshakeFailed))
		}
		limiter := l.config.Limiter
		release = func() { limiter.ReleaseConnection(ip) }
	}

	return release, nil
}

// Addr returns the listener's network address.
func (l *Listener) Addr() net.Addr {
	return l.inner.Addr()
}

// Close stops the listener.
func (l *Listener) Close() error {
	return l.inner.Close()
}

// extractRemoteIP returns the remote IP without the port. Falls back
// to the whole address string for non-TCP transports.
func extractRemoteIP(conn net.Conn) string {
	addr := conn.RemoteAddr()
	if tcpAddr, ok := addr.(*net.TCPAddr); ok {
		return tcpAddr.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
