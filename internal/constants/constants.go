// Package constants defines security parameters and protocol constants for the
// asconlink post-quantum link.
//
// The module targets lightweight deployments: the default KEM profile is
// ML-KEM-768 (NIST Category 3), with an ML-KEM-512 profile for
// memory-constrained targets, and the symmetric layer is built on the Ascon
// family (NIST SP 800-232) rather than SHA-3/SHAKE.
package constants

// Protocol version and identification
const (
	// ProtocolVersion is the current version of the asconlink wire protocol
	ProtocolVersion uint16 = 0x0001

	// ProtocolName is used for domain separation in key derivation
	ProtocolName = "ASCONLINK-v1"
)

// ML-KEM parameters (NIST FIPS 203)
//
// Two parameter sets are supported. ML-KEM-512 exists for constrained
// targets where key and ciphertext buffers dominate RAM usage; ML-KEM-768
// is the default.
const (
	// MLKEM512PublicKeySize is the size of the ML-KEM-512 encapsulation key in bytes
	MLKEM512PublicKeySize = 800

	// MLKEM512PrivateKeySize is the size of the ML-KEM-512 decapsulation key in bytes
	MLKEM512PrivateKeySize = 1632

	// MLKEM512CiphertextSize is the size of the ML-KEM-512 ciphertext in bytes
	MLKEM512CiphertextSize = 768

	// MLKEM768PublicKeySize is the size of the ML-KEM-768 encapsulation key in bytes
	MLKEM768PublicKeySize = 1184

	// MLKEM768PrivateKeySize is the size of the ML-KEM-768 decapsulation key in bytes
	MLKEM768PrivateKeySize = 2400

	// MLKEM768CiphertextSize is the size of the ML-KEM-768 ciphertext in bytes
	MLKEM768CiphertextSize = 1088

	// MLKEMSharedSecretSize is the size of the ML-KEM shared secret in bytes
	// (identical for all parameter sets)
	MLKEMSharedSecretSize = 32

	// MLKEMSeedSize is the size of the deterministic key generation seed in bytes
	MLKEMSeedSize = 64

	// MLKEM polynomial ring parameters
	// n = 256 (polynomial degree)
	// q = 3329 (modulus)
	// k = 2 for ML-KEM-512, k = 3 for ML-KEM-768 (module rank)
	MLKEMPolynomialDegree = 256
	MLKEMModulus          = 3329
)

// Ascon parameters (NIST SP 800-232)
const (
	// AsconHashSize is the output size of Ascon-Hash256 in bytes
	AsconHashSize = 32

	// AsconRate is the sponge data rate of Ascon-Hash256/XOF128 in bytes
	AsconRate = 8

	// AsconKeySize is the Ascon-AEAD128 key size in bytes
	AsconKeySize = 16

	// AsconNonceSize is the Ascon-AEAD128 nonce size in bytes
	AsconNonceSize = 16

	// AsconTagSize is the Ascon-AEAD128 authentication tag size in bytes
	AsconTagSize = 16
)

// ChaCha20-Poly1305 parameters (RFC 8439)
const (
	// ChaCha20KeySize is the size of ChaCha20-Poly1305 keys in bytes
	ChaCha20KeySize = 32

	// ChaCha20NonceSize is the size of ChaCha20-Poly1305 nonce in bytes
	ChaCha20NonceSize = 12

	// ChaCha20TagSize is the size of the Poly1305 authentication tag in bytes
	ChaCha20TagSize = 16
)

// Key derivation parameters (Ascon-XOF128)
const (
	// KDFOutputSize is the default output size for key derivation in bytes
	KDFOutputSize = 32

	// TranscriptHashSize is the size of the handshake transcript hash in bytes
	TranscriptHashSize = AsconHashSize

	// SharedSecretSize is the size of the final Ascon-bound shared secret
	SharedSecretSize = 32

	// DomainSeparatorAKEM is used in Ascon-bound KEM secret derivation
	DomainSeparatorAKEM = "ASCONLINK-v1-SharedSecret"

	// DomainSeparatorHandshake is used in handshake key derivation
	DomainSeparatorHandshake = "ASCONLINK-v1-Handshake"

	// DomainSeparatorTraffic is used in traffic key derivation
	DomainSeparatorTraffic = "ASCONLINK-v1-Traffic"
)

// Session parameters
const (
	// MaxPacketsPerSession bounds the nonce counter for a single session.
	// Sessions are short-lived; on exhaustion the link closes rather than
	// rekeying.
	MaxPacketsPerSession = 1 << 28

	// SessionIDSize is the size of session identifiers in bytes
	SessionIDSize = 16
)

// Message size limits
const (
	// MaxMessageSize is the maximum size of a single protocol message
	MaxMessageSize = 65536

	// MaxPayloadSize is the maximum size of encrypted payload per packet
	MaxPayloadSize = 65507

	// MaxAEADOverhead is the worst-case nonce plus tag expansion across
	// the cipher suites (Ascon-AEAD128: 16+16)
	MaxAEADOverhead = AsconNonceSize + AsconTagSize

	// MaxPlaintextSize is the largest application payload that still
	// fits MaxPayloadSize after AEAD expansion
	MaxPlaintextSize = MaxPayloadSize - MaxAEADOverhead

	// ConstrainedBufferSize is the I/O buffer size on constrained targets
	ConstrainedBufferSize = 512

	// ConstrainedMaxMessage is the maximum echo message length on
	// constrained targets
	ConstrainedMaxMessage = 256
)

// KEMProfile identifies the ML-KEM parameter set negotiated on the wire.
type KEMProfile uint8

const (
	// KEMProfileMLKEM512 selects ML-KEM-512 (NIST Category 1, constrained targets)
	KEMProfileMLKEM512 KEMProfile = 0x01

	// KEMProfileMLKEM768 selects ML-KEM-768 (NIST Category 3, default)
	KEMProfileMLKEM768 KEMProfile = 0x02
)

// String returns a human-readable name for the KEM profile.
func (p KEMProfile) String() string {
	switch p {
	case KEMProfileMLKEM512:
		return "ML-KEM-512"
	case KEMProfileMLKEM768:
		return "ML-KEM-768"
	default:
		return "Unknown"
	}
}

// IsSupported returns true if the KEM profile is supported.
func (p KEMProfile) IsSupported() bool {
	return p == KEMProfileMLKEM512 || p == KEMProfileMLKEM768
}

// PublicKeySize returns the encapsulation key size for the profile.
func (p KEMProfile) PublicKeySize() int {
	switch p {
	case KEMProfileMLKEM512:
		return MLKEM512PublicKeySize
	case KEMProfileMLKEM768:
		return MLKEM768PublicKeySize
	default:
		return 0
	}
}

// PrivateKeySize returns the decapsulation key size for the profile.
func (p KEMProfile) PrivateKeySize() int {
	switch p {
	case KEMProfileMLKEM512:
		return MLKEM512PrivateKeySize
	case KEMProfileMLKEM768:
		return MLKEM768PrivateKeySize
	default:
		return 0
	}
}

// CiphertextSize returns the KEM ciphertext size for the profile.
func (p KEMProfile) CiphertextSize() int {
	switch p {
	case KEMProfileMLKEM512:
		return MLKEM512CiphertextSize
	case KEMProfileMLKEM768:
		return MLKEM768CiphertextSize
	default:
		return 0
	}
}

// CipherSuite identifiers
type CipherSuite uint16

const (
	// CipherSuiteAsconAEAD128 uses Ascon-AEAD128 for symmetric encryption
	CipherSuiteAsconAEAD128 CipherSuite = 0x0001

	// CipherSuiteChaCha20Poly1305 uses ChaCha20-Poly1305 for symmetric encryption
	CipherSuiteChaCha20Poly1305 CipherSuite = 0x0002
)

// String returns a human-readable name for the cipher suite.
func (cs CipherSuite) String() string {
	switch cs {
	case CipherSuiteAsconAEAD128:
		return "Ascon-AEAD128"
	case CipherSuiteChaCha20Poly1305:
		return "ChaCha20-Poly1305"
	default:
		return "Unknown"
	}
}

// IsSupported returns true if the cipher suite is supported.
func (cs CipherSuite) IsSupported() bool {
	return cs == CipherSuiteAsconAEAD128 || cs == CipherSuiteChaCha20Poly1305
}

// IsLightweight returns true if the cipher suite is suitable for
// constrained targets. Only Ascon-AEAD128 qualifies; ChaCha20-Poly1305
// carries a 32-byte key schedule and larger working state.
func (cs CipherSuite) IsLightweight() bool {
	return cs == CipherSuiteAsconAEAD128
}

// KeySize returns the symmetric key size for the cipher suite.
func (cs CipherSuite) KeySize() int {
	switch cs {
	case CipherSuiteAsconAEAD128:
		return AsconKeySize
	case CipherSuiteChaCha20Poly1305:
		return ChaCha20KeySize
	default:
		return 0
	}
}

// NonceSize returns the AEAD nonce size for the cipher suite.
func (cs CipherSuite) NonceSize() int {
	switch cs {
	case CipherSuiteAsconAEAD128:
		return AsconNonceSize
	case CipherSuiteChaCha20Poly1305:
		return ChaCha20NonceSize
	default:
		return 0
	}
}

// TagSize returns the AEAD authentication tag size for the cipher suite.
func (cs CipherSuite) TagSize() int {
	switch cs {
	case CipherSuiteAsconAEAD128:
		return AsconTagSize
	case CipherSuiteChaCha20Poly1305:
		return ChaCha20TagSize
	default:
		return 0
	}
}
