// Package echo implements a small line-oriented echo service over the
// asconlink secure link. It is the demo application for the stack: a
// client connects, receives a welcome banner, and every line it sends
// comes back prefixed with "[ECHO] " until it sends "quit".
package echo

import (
	"context"
	"fmt"
	"strings"

	aerrors "github.com/lightpq/asconlink/internal/errors"
	"github.com/lightpq/asconlink/pkg/link"
	"github.com/lightpq/asconlink/pkg/metrics"
)

// Banner is sent to every client after the handshake completes.
const Banner = "=== asconlink echo server ===\n" +
	"Post-quantum key exchange: ML-KEM (A-KEM bound)\n" +
	"Cipher: Ascon-AEAD128\n" +
	"Type 'quit' to exit.\n" +
	">>> "

// Goodbye is sent in response to "quit" before the session closes.
const Goodbye = "Goodbye!\n"

// QuitCommand terminates the session when received as a line prefix.
const QuitCommand = "quit"

// ServerConfig configures the echo server.
type ServerConfig struct {
	// Addr to listen on, e.g. "0.0.0.0:11444".
	Addr string

	// Link holds handshake and transport settings. Nil uses defaults.
	Link *link.Config

	// Logger for connection events. Nil uses the global logger.
	Logger *metrics.Logger

	// MaxMessage truncates echoed lines longer than this. Zero means
	// the link's payload limit.
	MaxMessage int

	// SingleSession stops the server after serving one client, the
	// way the constrained-target demo runs.
	SingleSession bool
}

// Server is a line-oriented echo server over the secure link.
type Server struct {
	config   ServerConfig
	listener *link.Listener
	logger   *metrics.Logger
}

// NewServer creates an echo server listening on cfg.Addr.
func NewServer(cfg ServerConfig) (*Server, error) {
	listener, err := link.Listen(cfg.Addr, cfg.Link)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = metrics.GetLogger()
	}

	return &Server{
		config:   cfg,
		listener: listener,
		logger:   logger.Named("echo"),
	}, nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve accepts and handles clients until the context is cancelled or
// the listener closes. In SingleSession mode it returns after the
// first client disconnects.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("echo server listening", metrics.Fields{"addr": s.Addr()})

	for {
		conn, err := s.listener.Accept(ctx)
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			s.logger.Warn("accept failed", metrics.Fields{"error": err.Error()})
			if s.config.SingleSession {
				return err
			}
			continue
		}

		if s.config.SingleSession {
			s.handle(conn)
			return nil
		}
		go s.handle(conn)
	}
}

// Close stops the listener.
func (s *Server) Close() error {
	return s.listener.Close()
}

// handle runs the echo loop for one client.
func (s *Server) handle(conn *link.Link) {
	defer conn.Close()

	logger := s.logger.With(metrics.Fields{"remote": conn.RemoteAddr().String()})
	logger.Info("client connected", metrics.Fields{
		"suite":   conn.Session().CipherSuite.String(),
		"profile": conn.Session().Profile.String(),
	})

	if err := conn.Send([]byte(Banner)); err != nil {
		logger.Error("failed to send banner", metrics.Fields{"error": err.Error()})
		return
	}

	for {
		data, err := conn.Receive()
		if err != nil {
			if aerrors.Is(err, aerrors.ErrSessionClosed) {
				logger.Info("client disconnected")
			} else {
				logger.Warn("receive failed", metrics.Fields{"error": err.Error()})
			}
			return
		}

		line := string(data)
		logger.Debug("received", metrics.Fields{"bytes": len(data)})

		if strings.HasPrefix(line, QuitCommand) {
			conn.Send([]byte(Goodbye)) //nolint:errcheck
			logger.Info("client quit")
			return
		}

		if err := conn.Send([]byte(s.response(line))); err != nil {
			logger.Warn("send failed", metrics.Fields{"error": err.Error()})
			return
		}
	}
}

// response formats the echo reply for one input line.
func (s *Server) response(line string) string {
	if s.config.MaxMessage > 0 && len(line) > s.config.MaxMessage {
		line = line[:s.config.MaxMessage]
	}
	return fmt.Sprintf("[ECHO] %s>>> ", line)
}
