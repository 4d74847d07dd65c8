package link

import (
	"net"
	"sync"
	"time"

	aerrors "github.com/lightpq/asconlink/internal/errors"
)

// RecvFunc reads up to len(buf) bytes from the underlying transport
// into buf and returns the number of bytes read. It may block until at
// least one byte is available.
type RecvFunc func(buf []byte) (int, error)

// SendFunc writes data to the underlying transport and returns the
// number of bytes written.
type SendFunc func(data []byte) (int, error)

// CallbackConn adapts user-supplied receive and send callbacks to
// net.Conn, so the link can run over transports without a socket API:
// serial lines, radio stacks, or vendor networking libraries. Pass the
// resulting conn to Client or Server.
//
// Deadlines are not supported; configure timeouts inside the callbacks
// if the underlying transport needs them.
type CallbackConn struct {
	recv RecvFunc
	send SendFunc

	closeOnce sync.Once
	closed    chan struct{}
	onClose   func() error

	local  net.Addr
	remote net.Addr
}

// CallbackConnOption customizes a CallbackConn.
type CallbackConnOption func(*CallbackConn)

// WithCloseFunc sets a function invoked once when the conn is closed.
func WithCloseFunc(fn func() error) CallbackConnOption {
	return func(c *CallbackConn) { c.onClose = fn }
}

// WithAddrs sets the addresses reported by LocalAddr and RemoteAddr.
func WithAddrs(local, remote net.Addr) CallbackConnOption {
	return func(c *CallbackConn) {
		c.local = local
		c.remote = remote
	}
}

// NewCallbackConn creates a net.Conn backed by the given callbacks.
func NewCallbackConn(recv RecvFunc, send SendFunc, opts ...CallbackConnOption) *CallbackConn {
	c := &CallbackConn{
		recv:   recv,
		send:   send,
		closed: make(chan struct{}),
		local:  callbackAddr{},
		remote: callbackAddr{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Read implements net.Conn.
func (c *CallbackConn) Read(b []byte) (int, error) {
	select {
	case <-c.closed:
		return 0, aerrors.ErrSessionClosed
	default:
	}
	return c.recv(b)
}

// Write implements net.Conn.
func (c *CallbackConn) Write(b []byte) (int, error) {
	select {
	case <-c.closed:
		return 0, aerrors.ErrSessionClosed
	default:
	}

	// SendFunc may write partially; loop until everything is out.
	total := 0
	for total < len(b) {
		n, err := c.send(b[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, aerrors.NewProtocolError("write", aerrors.ErrSessionClosed)
		}
	}
	return total, nil
}

// Close implements net.Conn.
func (c *CallbackConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.onClose != nil {
			err = c.onClose()
		}
	})
	return err
}

// LocalAddr implements net.Conn.
func (c *CallbackConn) LocalAddr() net.Addr { return c.local }

// RemoteAddr implements net.Conn.
func (c *CallbackConn) RemoteAddr() net.Addr { return c.remote }

// SetDeadline implements net.Conn. Deadlines are not supported.
func (c *CallbackConn) SetDeadline(time.Time) error { return nil }

// SetReadDeadline implements net.Conn. Deadlines are not supported.
func (c *CallbackConn) SetReadDeadline(time.Time) error { return nil }

// SetWriteDeadline implements net.Conn. Deadlines are not supported.
func (c *CallbackConn) SetWriteDeadline(time.Time) error { return nil }

var _ net.Conn = (*CallbackConn)(nil)

type callbackAddr struct{}

func (callbackAddr) Network() string { return "callback" }
func (callbackAddr) String() string  { return "callback" }
