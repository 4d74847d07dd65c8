package link

import (
	"time"

	"github.com/lightpq/asconlink/internal/constants"
	aerrors "github.com/lightpq/asconlink/internal/errors"
	"github.com/lightpq/asconlink/pkg/protocol"
)

// Config controls link establishment and runtime behavior.
type Config struct {
	// Profile selects the ML-KEM parameter set. Zero means the build's
	// preferred profile.
	Profile constants.KEMProfile

	// HandshakeTimeout bounds the whole handshake. Zero means no limit.
	HandshakeTimeout time.Duration

	// ReadTimeout applies to each Receive call. Zero means no limit.
	ReadTimeout time.Duration

	// WriteTimeout applies to each Send call. Zero means no limit.
	WriteTimeout time.Duration

	// MaxPayloadSize caps outgoing plaintext payloads. Zero means the
	// largest payload that fits a data frame after AEAD expansion.
	MaxPayloadSize int

	// CipherSuites restricts the suites offered (client) or accepted
	// (server) during the handshake, in preference order. Nil means
	// every suite compiled into the build.
	CipherSuites []constants.CipherSuite

	// KeepaliveInterval between background pings on the link. The pings
	// are fire-and-forget; the pong is consumed (and ignored) by the
	// regular Receive loop. Zero disables keepalive.
	KeepaliveInterval time.Duration

	// Observer receives session lifecycle and metrics callbacks. Nil
	// disables instrumentation.
	Observer Observer

	// Limiter rate-limits incoming connections per source IP. Only
	// used by listeners; nil disables limiting.
	Limiter *IPRateLimiter

	// HandshakeLimiter throttles the global handshake rate. Only used
	// by listeners; nil disables throttling.
	HandshakeLimiter *HandshakeLimiter
}

// DefaultConfig returns a configuration suitable for most deployments.
func DefaultConfig() *Config {
	return &Config{
		Profile:          protocol.PreferredKEMProfile(),
		HandshakeTimeout: 10 * time.Second,
		MaxPayloadSize:   constants.MaxPlaintextSize,
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Profile != 0 && !c.Profile.IsSupported() {
		return aerrors.ErrUnsupportedProfile
	}
	if c.MaxPayloadSize < 0 || c.MaxPayloadSize > constants.MaxPlaintextSize {
		return aerrors.ErrMessageTooLarge
	}
	for _, suite := range c.CipherSuites {
		if !suiteSupported(suite) {
			return aerrors.ErrUnsupportedSuite
		}
	}
	return nil
}

// withDefaults fills in zero values.
func (c *Config) withDefaults() *Config {
	out := *c
	if out.Profile == 0 {
		out.Profile = protocol.PreferredKEMProfile()
	}
	if out.MaxPayloadSize == 0 {
		out.MaxPayloadSize = constants.MaxPlaintextSize
	}
	return &out
}
