// Package crypto provides the cryptographic primitives for asconlink:
// ML-KEM key encapsulation (FIPS 203), the Ascon family of lightweight
// hash, XOF and AEAD algorithms (NIST SP 800-232), and key derivation
// built on Ascon-XOF128.
//
// The package deliberately avoids SHA-3/SHAKE: every place a Keccak-based
// primitive would conventionally appear (transcript hashing, key
// derivation, secret binding) uses the corresponding Ascon algorithm
// instead. Ascon's 320-bit permutation keeps working state an order of
// magnitude smaller than Keccak's 1600-bit state, which is what makes
// the module viable on memory-constrained targets.
package crypto

import (
	"github.com/magical/go-ascon"

	"github.com/lightpq/asconlink/internal/constants"
	"github.com/lightpq/asconlink/internal/errors"
)

// AsconHash256 computes the Ascon-Hash256 digest of data.
//
// Ascon-Hash256 is a sponge construction over the 320-bit Ascon
// permutation with a 64-bit rate, producing a 256-bit digest. It offers
// 128-bit security against collision and (second-)preimage attacks.
func AsconHash256(data []byte) []byte {
	h := ascon.NewHash256()
	h.Write(data)
	return h.Sum(nil)
}

// AsconHash256Multi computes the Ascon-Hash256 digest over the
// concatenation of the given byte slices without allocating an
// intermediate buffer.
func AsconHash256Multi(parts ...[]byte) []byte {
	h := ascon.NewHash256()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// AsconXOF128 absorbs data and squeezes outLen bytes from Ascon-XOF128.
//
// Ascon-XOF128 is the arbitrary-output-length variant of the Ascon
// sponge. Unlike a fixed hash it can produce exactly as many bytes as a
// caller needs, which is what key derivation uses.
func AsconXOF128(data []byte, outLen int) ([]byte, error) {
	if outLen <= 0 {
		return nil, errors.NewCryptoError("xof", errors.ErrInvalidKeySize)
	}
	x := ascon.NewXof128()
	x.Write(data)
	out := make([]byte, outLen)
	if _, err := x.Read(out); err != nil {
		return nil, errors.NewCryptoError("xof", err)
	}
	return out, nil
}

// AsconCXOF128 absorbs data under the given customization string and
// squeezes outLen bytes from Ascon-CXOF128.
//
// The customization string provides built-in domain separation: two
// invocations with different strings produce independent output streams
// even for identical input. The string must not exceed 256 bytes.
func AsconCXOF128(customization string, data []byte, outLen int) ([]byte, error) {
	if outLen <= 0 {
		return nil, errors.NewCryptoError("cxof", errors.ErrInvalidKeySize)
	}
	x, err := ascon.NewCxof128(customization)
	if err != nil {
		return nil, errors.NewCryptoError("cxof", err)
	}
	x.Write(data)
	out := make([]byte, outLen)
	if _, err := x.Read(out); err != nil {
		return nil, errors.NewCryptoError("cxof", err)
	}
	return out, nil
}

// TranscriptHash is an incremental Ascon-Hash256 over handshake
// messages. Each message is absorbed with a length prefix so that
// message boundaries are unambiguous in the transcript.
type TranscriptHash struct {
	h *ascon.Hash256
}

// NewTranscriptHash creates an empty transcript hash.
func NewTranscriptHash() *TranscriptHash {
	return &TranscriptHash{h: ascon.NewHash256()}
}

// Update absorbs a handshake message into the transcript.
func (t *TranscriptHash) Update(message []byte) {
	var lenPrefix [4]byte
	putUint32(lenPrefix[:], uint32(len(message)))
	t.h.Write(lenPrefix[:])
	t.h.Write(message)
}

// Sum returns the current transcript digest without disturbing the
// running state, so the transcript can continue to grow after
// intermediate digests are taken.
func (t *TranscriptHash) Sum() []byte {
	return t.h.Clone().Sum(nil)
}

// Size returns the transcript digest size in bytes.
func (t *TranscriptHash) Size() int {
	return constants.TranscriptHashSize
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
