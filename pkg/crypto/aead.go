// aead.go implements Authenticated Encryption with Associated Data (AEAD).
//
// Two AEAD algorithms are supported:
//   - Ascon-AEAD128: NIST SP 800-232 lightweight AEAD, 128-bit key,
//     128-bit nonce, 128-bit tag. The 320-bit permutation state makes it
//     the default on constrained targets.
//   - ChaCha20-Poly1305: RFC 8439, 256-bit key, 96-bit nonce, 128-bit
//     tag. High software performance on general-purpose CPUs.
//
// CRITICAL: Nonce reuse completely breaks security. Each (key, nonce)
// pair MUST be used at most once. This implementation derives nonces
// from a monotonic counter and refuses further operations once the
// per-session packet budget is exhausted; sessions then close rather
// than rekey.
package crypto

import (
	"crypto/cipher"
	"encoding/binary"
	"sync"

	"github.com/magical/go-ascon"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/lightpq/asconlink/internal/constants"
	aerrors "github.com/lightpq/asconlink/internal/errors"
)

// AEAD represents an authenticated encryption cipher bound to a suite.
type AEAD struct {
	cipher cipher.AEAD
	suite  constants.CipherSuite

	// Nonce state management
	mu      sync.Mutex
	counter uint64
	maxSeq  uint64
}

// NewAEAD creates a new AEAD cipher for the given suite and key.
// The key length must match the suite's key size: 16 bytes for
// Ascon-AEAD128, 32 bytes for ChaCha20-Poly1305.
func NewAEAD(suite constants.CipherSuite, key []byte) (*AEAD, error) {
	if len(key) != suite.KeySize() {
		return nil, aerrors.ErrInvalidKeySize
	}

	var aeadCipher cipher.AEAD

	switch suite {
	case constants.CipherSuiteAsconAEAD128:
		c, err := ascon.NewAEAD128(key)
		if err != nil {
			return nil, aerrors.NewCryptoError("NewAEAD", err)
		}
		aeadCipher = c

	case constants.CipherSuiteChaCha20Poly1305:
		c, err := chacha20poly1305.New(key)
		if err != nil {
			return nil, aerrors.NewCryptoError("NewAEAD", err)
		}
		aeadCipher = c

	default:
		return nil, aerrors.ErrUnsupportedSuite
	}

	return &AEAD{
		cipher: aeadCipher,
		suite:  suite,
		maxSeq: uint64(constants.MaxPacketsPerSession),
	}, nil
}

// Seal encrypts and authenticates plaintext.
//
// The operation:
//  1. Generate the next counter-derived nonce
//  2. Encrypt: sealed = AEAD.Seal(nonce, plaintext, additionalData)
//  3. Return nonce || sealed (auth tag included)
func (a *AEAD) Seal(plaintext, additionalData []byte) ([]byte, error) {
	nonce, err := a.nextNonce()
	if err != nil {
		return nil, err
	}

	n := len(nonce)
	out := make([]byte, n, n+len(plaintext)+a.cipher.Overhead())
	copy(out, nonce)
	return a.cipher.Seal(out, nonce, plaintext, additionalData), nil
}

// SealWithNonce encrypts using an explicit nonce.
//
// WARNING: the caller is responsible for nonce uniqueness. Prefer Seal
// with automatic nonce generation. The returned ciphertext does not
// include the nonce.
func (a *AEAD) SealWithNonce(nonce, plaintext, additionalData []byte) ([]byte, error) {
	if len(nonce) != a.cipher.NonceSize() {
		return nil, aerrors.ErrInvalidNonce
	}
	return a.cipher.Seal(nil, nonce, plaintext, additionalData), nil
}

// Open decrypts and verifies a ciphertext produced by Seal
// (nonce || encrypted_data || auth_tag).
func (a *AEAD) Open(ciphertext, additionalData []byte) ([]byte, error) {
	n := a.cipher.NonceSize()
	if len(ciphertext) < n+a.cipher.Overhead() {
		return nil, aerrors.ErrInvalidCiphertext
	}

	nonce := ciphertext[:n]
	plaintext, err := a.cipher.Open(nil, nonce, ciphertext[n:], additionalData)
	if err != nil {
		return nil, aerrors.ErrAuthenticationFailed
	}
	return plaintext, nil
}

// OpenWithNonce decrypts using an explicit nonce; the ciphertext must
// not include the nonce.
func (a *AEAD) OpenWithNonce(nonce, ciphertext, additionalData []byte) ([]byte, error) {
	if len(nonce) != a.cipher.NonceSize() {
		return nil, aerrors.ErrInvalidNonce
	}
	if len(ciphertext) < a.cipher.Overhead() {
		return nil, aerrors.ErrInvalidCiphertext
	}

	plaintext, err := a.cipher.Open(nil, nonce, ciphertext, additionalData)
	if err != nil {
		return nil, aerrors.ErrAuthenticationFailed
	}
	return plaintext, nil
}

// nextNonce generates the next counter-derived nonce.
// The counter occupies the trailing 8 bytes of the nonce in big-endian
// order; leading bytes are zero. Returns ErrSessionExpired once the
// packet budget is exhausted.
func (a *AEAD) nextNonce() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.counter >= a.maxSeq {
		return nil, aerrors.ErrSessionExpired
	}

	nonce := make([]byte, a.cipher.NonceSize())
	binary.BigEndian.PutUint64(nonce[len(nonce)-8:], a.counter)
	a.counter++
	return nonce, nil
}

// Counter returns the current nonce counter value.
func (a *AEAD) Counter() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counter
}

// Remaining returns how many packets the cipher can still protect.
func (a *AEAD) Remaining() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.maxSeq - a.counter
}

// Suite returns the cipher suite identifier.
func (a *AEAD) Suite() constants.CipherSuite {
	return a.suite
}

// Overhead returns the per-packet expansion: nonce plus auth tag.
func (a *AEAD) Overhead() int {
	return a.cipher.NonceSize() + a.cipher.Overhead()
}

// NonceSize returns the nonce size in bytes.
func (a *AEAD) NonceSize() int {
	return a.cipher.NonceSize()
}
