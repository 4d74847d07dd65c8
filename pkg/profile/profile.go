// Package profile defines runtime configuration profiles for the
// asconlink stack. A Profile bundles the algorithm and resource
// choices a deployment makes: KEM parameter set, offered cipher
// suites, buffer and message limits, keepalive, and listener rate
// limits. The Constrained preset targets small embedded deployments
// where key material and buffers must stay within a few kilobytes.
package profile

import (
	"time"

	"github.com/lightpq/asconlink/internal/constants"
	aerrors "github.com/lightpq/asconlink/internal/errors"
	"github.com/lightpq/asconlink/pkg/link"
	"github.com/lightpq/asconlink/pkg/protocol"
)

// Profile bundles the runtime configuration of an asconlink endpoint.
type Profile struct {
	// Name of the profile, for logs and reports.
	Name string

	// KEMProfile selects the ML-KEM parameter set.
	KEMProfile constants.KEMProfile

	// CipherSuites offered (client) or accepted (server), in
	// preference order.
	CipherSuites []constants.CipherSuite

	// BufferSize for transport read buffers.
	BufferSize int

	// MaxMessage caps application payload length.
	MaxMessage int

	// HandshakeTimeout bounds the handshake.
	HandshakeTimeout time.Duration

	// KeepaliveInterval between pings on idle links. Zero disables
	// keepalive.
	KeepaliveInterval time.Duration

	// MaxConnsPerIP limits concurrent connections per source address
	// on listeners. Zero disables the limit.
	MaxConnsPerIP int

	// HandshakeRate limits handshakes per second on listeners. Zero
	// disables the limit.
	HandshakeRate float64

	// SingleSession makes servers exit after one session.
	SingleSession bool
}

// Default returns the standard profile: the build's preferred KEM
// parameter set and all available cipher suites.
func Default() *Profile {
	return &Profile{
		Name:             "default",
		KEMProfile:       protocol.PreferredKEMProfile(),
		CipherSuites:     protocol.SupportedCipherSuites(),
		BufferSize:       constants.MaxMessageSize,
		MaxMessage:       constants.MaxPlaintextSize,
		HandshakeTimeout: 10 * time.Second,
		MaxConnsPerIP:    10,
		HandshakeRate:    50,
	}
}

// Constrained returns the embedded-target profile: ML-KEM-512 with
// Ascon-AEAD128 only, small buffers, short messages, and one session
// at a time.
func Constrained() *Profile {
	return &Profile{
		Name:             "constrained",
		KEMProfile:       constants.KEMProfileMLKEM512,
		CipherSuites:     []constants.CipherSuite{constants.CipherSuiteAsconAEAD128},
		BufferSize:       constants.ConstrainedBufferSize,
		MaxMessage:       constants.ConstrainedMaxMessage,
		HandshakeTimeout: 30 * time.Second,
		MaxConnsPerIP:    1,
		HandshakeRate:    1,
		SingleSession:    true,
	}
}

// Validate checks the profile for coherence.
func (p *Profile) Validate() error {
	if !p.KEMProfile.IsSupported() {
		return aerrors.ErrUnsupportedProfile
	}
	if len(p.CipherSuites) == 0 {
		return aerrors.ErrUnsupportedSuite
	}
	for _, suite := range p.CipherSuites {
		if !suite.IsSupported() {
			return aerrors.ErrUnsupportedSuite
		}
	}
	if p.BufferSize < constants.ConstrainedBufferSize {
		return aerrors.ErrInvalidMessage
	}
	if p.MaxMessage <= 0 || p.MaxMessage > constants.MaxPlaintextSize {
		return aerrors.ErrMessageTooLarge
	}
	// A message plus AEAD overhead must fit the buffer budget on
	// constrained targets
	if p.MaxMessage > p.BufferSize {
		return aerrors.ErrMessageTooLarge
	}
	return nil
}

// LinkConfig converts the profile into a link configuration.
func (p *Profile) LinkConfig() *link.Config {
	cfg := &link.Config{
		Profile:           p.KEMProfile,
		CipherSuites:      p.CipherSuites,
		HandshakeTimeout:  p.HandshakeTimeout,
		MaxPayloadSize:    p.MaxMessage,
		KeepaliveInterval: p.KeepaliveInterval,
	}
	if p.MaxConnsPerIP > 0 {
		cfg.Limiter = link.NewIPRateLimiter(p.MaxConnsPerIP)
	}
	if p.HandshakeRate > 0 {
		cfg.HandshakeLimiter = link.NewHandshakeLimiter(p.HandshakeRate, int(p.HandshakeRate))
	}
	return cfg
}
