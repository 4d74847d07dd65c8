// Package errors defines error types for the asconlink module.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	// ErrInvalidKeySize indicates a key with incorrect size
	ErrInvalidKeySize = errors.New("crypto: invalid key size")

	// ErrInvalidCiphertext indicates a malformed or corrupted ciphertext
	ErrInvalidCiphertext = errors.New("crypto: invalid ciphertext")

	// ErrDecapsulationFailed indicates KEM decapsulation failure
	ErrDecapsulationFailed = errors.New("akem: decapsulation failed")

	// ErrAuthenticationFailed indicates AEAD authentication failure
	ErrAuthenticationFailed = errors.New("aead: authentication failed")

	// ErrInvalidNonce indicates nonce reuse or invalid nonce
	ErrInvalidNonce = errors.New("aead: invalid nonce")

	// ErrUnsupportedProfile indicates an unsupported KEM profile
	ErrUnsupportedProfile = errors.New("akem: unsupported KEM profile")

	// ErrHandshakeFailed indicates handshake protocol failure
	ErrHandshakeFailed = errors.New("link: handshake failed")

	// ErrSessionExpired indicates the session packet budget is exhausted
	ErrSessionExpired = errors.New("link: session expired")

	// ErrSessionClosed indicates operations on a closed session
	ErrSessionClosed = errors.New("link: session closed")

	// ErrInvalidMessage indicates a malformed protocol message
	ErrInvalidMessage = errors.New("protocol: invalid message")

	// ErrUnsupportedVersion indicates incompatible protocol version
	ErrUnsupportedVersion = errors.New("protocol: unsupported version")

	// ErrUnsupportedSuite indicates an unsupported cipher suite
	ErrUnsupportedSuite = errors.New("protocol: unsupported cipher suite")

	// ErrMessageTooLarge indicates a message exceeding size limits
	ErrMessageTooLarge = errors.New("protocol: message too large")

	// ErrReplayDetected indicates a replayed packet
	ErrReplayDetected = errors.New("link: replay detected")

	// ErrVerificationFailed indicates handshake verification failure
	ErrVerificationFailed = errors.New("link: verification failed")

	// ErrRandomSourceFailure indicates a failure reading from the system CSPRNG
	ErrRandomSourceFailure = errors.New("crypto: random source failure")

	// ErrSelfTestFailed indicates a power-on or on-demand self-test failure
	ErrSelfTestFailed = errors.New("selftest: self-test failed")
)

// CryptoError wraps cryptographic operation errors with context.
type CryptoError struct {
	Op  string // Operation that failed (e.g., "keygen", "encapsulate")
	Err error  // Underlying error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("crypto operation %q failed: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// NewCryptoError creates a new CryptoError.
func NewCryptoError(op string, err error) *CryptoError {
	return &CryptoError{Op: op, Err: err}
}

// ProtocolError wraps protocol-level errors with handshake phase context.
type ProtocolError struct {
	Phase string // Protocol phase (e.g., "client_hello", "finished")
	Err   error  // Underlying error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error in phase %q: %v", e.Phase, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// NewProtocolError creates a new ProtocolError.
func NewProtocolError(phase string, err error) *ProtocolError {
	return &ProtocolError{Phase: phase, Err: err}
}

// Is reports whether any error in err's chain matches target.
// Re-exported so callers need not import both error packages.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
