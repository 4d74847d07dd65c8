package echo

import (
	"context"

	aerrors "github.com/lightpq/asconlink/internal/errors"
	"github.com/lightpq/asconlink/pkg/link"
	"github.com/lightpq/asconlink/pkg/metrics"
)

// ClientConfig configures the echo client.
type ClientConfig struct {
	// Link holds handshake and transport settings. Nil uses defaults.
	Link *link.Config

	// Logger for connection events. Nil uses the global logger.
	Logger *metrics.Logger

	// MaxMessage rejects outgoing messages longer than this. Zero
	// means the link's payload limit.
	MaxMessage int
}

// Client is a line-oriented echo client over the secure link.
type Client struct {
	conn   *link.Link
	config ClientConfig
	logger *metrics.Logger
	banner string
}

// Dial connects to an echo server, performs the handshake, and reads
// the welcome banner.
func Dial(ctx context.Context, addr string, cfg ClientConfig) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = metrics.GetLogger()
	}
	logger = logger.Named("echo")

	conn, err := link.DialWithConfig(ctx, addr, cfg.Link)
	if err != nil {
		return nil, err
	}

	banner, err := conn.Receive()
	if err != nil {
		conn.Close() //nolint:errcheck
		return nil, err
	}

	logger.Info("connected", metrics.Fields{
		"addr":    addr,
		"suite":   conn.Session().CipherSuite.String(),
		"profile": conn.Session().Profile.String(),
	})

	return &Client{
		conn:   conn,
		config: cfg,
		logger: logger,
		banner: string(banner),
	}, nil
}

// Banner returns the server's welcome banner.
func (c *Client) Banner() string {
	return c.banner
}

// Session returns the underlying link session.
func (c *Client) Session() *link.Session {
	return c.conn.Session()
}

// Send transmits one message and returns the server's reply.
func (c *Client) Send(msg string) (string, error) {
	if c.config.MaxMessage > 0 && len(msg) > c.config.MaxMessage {
		return "", aerrors.ErrMessageTooLarge
	}

	if err := c.conn.Send([]byte(msg)); err != nil {
		return "", err
	}

	reply, err := c.conn.Receive()
	if err != nil {
		return "", err
	}
	return string(reply), nil
}

// Quit sends the quit command, waits for the goodbye message, and
// closes the connection.
func (c *Client) Quit() (string, error) {
	goodbye, err := c.Send(QuitCommand)
	c.conn.Close() //nolint:errcheck
	if err != nil {
		return "", err
	}
	return goodbye, nil
}

// Close terminates the connection without the quit exchange.
func (c *Client) Close() error {
	return c.conn.Close()
}
