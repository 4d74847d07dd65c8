package profile

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/lightpq/asconlink/internal/constants"
	aerrors "github.com/lightpq/asconlink/internal/errors"
	"github.com/lightpq/asconlink/pkg/protocol"
)

func TestDefaultProfileValid(t *testing.T) {
	p := Default()
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if p.KEMProfile != protocol.PreferredKEMProfile() {
		t.Errorf("KEMProfile = %v, want %v", p.KEMProfile, protocol.PreferredKEMProfile())
	}
	if len(p.CipherSuites) != len(protocol.SupportedCipherSuites()) {
		t.Errorf("CipherSuites = %d, want %d", len(p.CipherSuites), len(protocol.SupportedCipherSuites()))
	}
}

func TestConstrainedProfileValid(t *testing.T) {
	p := Constrained()
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if p.KEMProfile != constants.KEMProfileMLKEM512 {
		t.Errorf("KEMProfile = %v, want ML-KEM-512", p.KEMProfile)
	}
	if len(p.CipherSuites) != 1 || p.CipherSuites[0] != constants.CipherSuiteAsconAEAD128 {
		t.Errorf("CipherSuites = %v, want [Ascon-AEAD128]", p.CipherSuites)
	}
	if p.BufferSize != constants.ConstrainedBufferSize {
		t.Errorf("BufferSize = %d, want %d", p.BufferSize, constants.ConstrainedBufferSize)
	}
	if p.MaxMessage != constants.ConstrainedMaxMessage {
		t.Errorf("MaxMessage = %d, want %d", p.MaxMessage, constants.ConstrainedMaxMessage)
	}
	if !p.SingleSession {
		t.Error("SingleSession = false, want true")
	}
}

func TestValidateRejectsBadProfiles(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Profile)
		wantErr error
	}{
		{
			name:    "unknown KEM profile",
			mutate:  func(p *Profile) { p.KEMProfile = constants.KEMProfile(0xFF) },
			wantErr: aerrors.ErrUnsupportedProfile,
		},
		{
			name:    "no cipher suites",
			mutate:  func(p *Profile) { p.CipherSuites = nil },
			wantErr: aerrors.ErrUnsupportedSuite,
		},
		{
			name:    "unknown cipher suite",
			mutate:  func(p *Profile) { p.CipherSuites = []constants.CipherSuite{0xFFFF} },
			wantErr: aerrors.ErrUnsupportedSuite,
		},
		{
			name:    "buffer too small",
			mutate:  func(p *Profile) { p.BufferSize = 64 },
			wantErr: aerrors.ErrInvalidMessage,
		},
		{
			name:    "zero max message",
			mutate:  func(p *Profile) { p.MaxMessage = 0 },
			wantErr: aerrors.ErrMessageTooLarge,
		},
		{
			name: "message exceeds buffer",
			mutate: func(p *Profile) {
				p.BufferSize = constants.ConstrainedBufferSize
				p.MaxMessage = constants.ConstrainedBufferSize + 1
			},
			wantErr: aerrors.ErrMessageTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Default()
			tt.mutate(p)
			if err := p.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLinkConfig(t *testing.T) {
	p := Constrained()
	cfg := p.LinkConfig()
	if cfg.Profile != p.KEMProfile {
		t.Errorf("Profile = %v, want %v", cfg.Profile, p.KEMProfile)
	}
	if cfg.MaxPayloadSize != p.MaxMessage {
		t.Errorf("MaxPayloadSize = %d, want %d", cfg.MaxPayloadSize, p.MaxMessage)
	}
	if cfg.Limiter == nil {
		t.Error("Limiter = nil, want per-IP limiter")
	}
	if cfg.HandshakeLimiter == nil {
		t.Error("HandshakeLimiter = nil, want token bucket")
	}
}

func TestLinkConfigNoLimits(t *testing.T) {
	p := Default()
	p.MaxConnsPerIP = 0
	p.HandshakeRate = 0
	cfg := p.LinkConfig()
	if cfg.Limiter != nil || cfg.HandshakeLimiter != nil {
		t.Error("limiters set despite zero limits")
	}
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	if err := Constrained().Report(&buf); err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"[Platform]",
		"[Build Toggles]",
		"[Functionality]",
		"kem keygen:    ok",
		"kem encap:     ok",
		"kem decap:     ok",
		"ascon hash:    ok",
		"ascon xof:     ok",
		"[Memory]",
		"RESULT: OK",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
}
