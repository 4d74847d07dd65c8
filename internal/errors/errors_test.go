package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestCryptoErrorWrapping(t *testing.T) {
	err := NewCryptoError("encapsulate", ErrInvalidKeySize)

	if !stderrors.Is(err, ErrInvalidKeySize) {
		t.Error("CryptoError should unwrap to sentinel")
	}

	var ce *CryptoError
	if !stderrors.As(err, &ce) {
		t.Fatal("errors.As should find CryptoError")
	}
	if ce.Op != "encapsulate" {
		t.Errorf("Op = %q, want %q", ce.Op, "encapsulate")
	}

	if !strings.Contains(err.Error(), "encapsulate") {
		t.Errorf("error message should mention the operation: %q", err.Error())
	}
}

func TestProtocolErrorWrapping(t *testing.T) {
	err := NewProtocolError("client_hello", ErrUnsupportedVersion)

	if !stderrors.Is(err, ErrUnsupportedVersion) {
		t.Error("ProtocolError should unwrap to sentinel")
	}

	var pe *ProtocolError
	if !stderrors.As(err, &pe) {
		t.Fatal("errors.As should find ProtocolError")
	}
	if pe.Phase != "client_hello" {
		t.Errorf("Phase = %q, want %q", pe.Phase, "client_hello")
	}
}

func TestReexportedHelpers(t *testing.T) {
	err := NewCryptoError("keygen", ErrRandomSourceFailure)
	if !Is(err, ErrRandomSourceFailure) {
		t.Error("Is should match wrapped sentinel")
	}

	var ce *CryptoError
	if !As(err, &ce) {
		t.Error("As should match CryptoError")
	}
}

func TestSentinelsDistinct(t *testing.T) {
	sentinels := []error{
		ErrInvalidKeySize, ErrInvalidCiphertext, ErrDecapsulationFailed,
		ErrAuthenticationFailed, ErrInvalidNonce, ErrUnsupportedProfile,
		ErrHandshakeFailed, ErrSessionExpired, ErrSessionClosed,
		ErrInvalidMessage, ErrUnsupportedVersion, ErrUnsupportedSuite,
		ErrMessageTooLarge, ErrReplayDetected, ErrVerificationFailed,
		ErrRandomSourceFailure, ErrSelfTestFailed,
	}
	seen := make(map[string]bool)
	for _, s := range sentinels {
		if seen[s.Error()] {
			t.Errorf("duplicate sentinel message %q", s.Error())
		}
		seen[s.Error()] = true
	}
}
