package crypto

import (
	"github.com/magical/go-ascon"

	"github.com/lightpq/asconlink/internal/constants"
	"github.com/lightpq/asconlink/internal/errors"
)

// DeriveKey derives outLen bytes of key material from a secret using
// Ascon-XOF128 with explicit domain separation.
//
// The construction absorbs each input field with a 4-byte big-endian
// length prefix:
//
//	XOF128(len(domain) || domain || len(secret) || secret || len(context) || context)
//
// Length prefixing makes the encoding injective: no two distinct
// (domain, secret, context) triples absorb the same byte stream, which
// rules out extension-style ambiguities between fields.
func DeriveKey(domain string, secret, context []byte, outLen int) ([]byte, error) {
	if outLen <= 0 || outLen > 1024 {
		return nil, errors.NewCryptoError("derive_key", errors.ErrInvalidKeySize)
	}

	x := ascon.NewXof128()
	writeLenPrefixed(x, []byte(domain))
	writeLenPrefixed(x, secret)
	writeLenPrefixed(x, context)

	out := make([]byte, outLen)
	if _, err := x.Read(out); err != nil {
		return nil, errors.NewCryptoError("derive_key", err)
	}
	return out, nil
}

// HandshakeKeys holds the directional keys produced by handshake key
// derivation. Client and server each encrypt with their own key, so a
// reflected packet never authenticates.
type HandshakeKeys struct {
	ClientKey []byte
	ServerKey []byte
}

// Zeroize wipes both keys.
func (k *HandshakeKeys) Zeroize() {
	Zeroize(k.ClientKey)
	Zeroize(k.ServerKey)
}

// DeriveHandshakeKeys derives the directional handshake protection keys
// for the negotiated cipher suite. The transcript hash binds the keys to
// every handshake message exchanged so far.
func DeriveHandshakeKeys(suite constants.CipherSuite, sharedSecret, transcript []byte) (*HandshakeKeys, error) {
	return deriveDirectional(constants.DomainSeparatorHandshake, suite, sharedSecret, transcript)
}

// DeriveTrafficKeys derives the directional application traffic keys
// after the handshake completes. The transcript at this point covers the
// full handshake including both Finished messages.
func DeriveTrafficKeys(suite constants.CipherSuite, sharedSecret, transcript []byte) (*HandshakeKeys, error) {
	return deriveDirectional(constants.DomainSeparatorTraffic, suite, sharedSecret, transcript)
}

func deriveDirectional(domain string, suite constants.CipherSuite, sharedSecret, transcript []byte) (*HandshakeKeys, error) {
	if !suite.IsSupported() {
		return nil, errors.NewCryptoError("derive_keys", errors.ErrUnsupportedSuite)
	}
	if len(sharedSecret) != constants.SharedSecretSize {
		return nil, errors.NewCryptoError("derive_keys", errors.ErrInvalidKeySize)
	}

	keySize := suite.KeySize()

	// A single squeeze yields both directions; the first keySize bytes
	// belong to the client, the next keySize to the server.
	material, err := DeriveKey(domain, sharedSecret, transcript, 2*keySize)
	if err != nil {
		return nil, err
	}

	keys := &HandshakeKeys{
		ClientKey: material[:keySize:keySize],
		ServerKey: material[keySize:],
	}
	return keys, nil
}

// DeriveVerifyData computes the Finished verify-data for one side of the
// handshake. The label distinguishes client from server so neither side
// can replay the other's value.
func DeriveVerifyData(label string, sharedSecret, transcript []byte) ([]byte, error) {
	return DeriveKey(constants.DomainSeparatorHandshake+"-"+label, sharedSecret, transcript, constants.KDFOutputSize)
}

// DeriveSessionID derives a public session identifier from the shared
// secret and transcript. The identifier is safe to log: it is an output
// of the XOF in a distinct domain, so it reveals nothing about the keys.
func DeriveSessionID(sharedSecret, transcript []byte) ([]byte, error) {
	return DeriveKey(constants.DomainSeparatorHandshake+"-session-id", sharedSecret, transcript, constants.SessionIDSize)
}

// Zeroize overwrites the slice with zeros. Callers use it to scrub key
// material once a derivation consumes it.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func writeLenPrefixed(x *ascon.Xof128, data []byte) {
	var lenPrefix [4]byte
	putUint32(lenPrefix[:], uint32(len(data)))
	x.Write(lenPrefix[:])
	x.Write(data)
}
