// Package akem implements the Ascon-bound Key Encapsulation Mechanism (A-KEM).
//
// A-KEM composes ML-KEM (NIST FIPS 203) with the Ascon permutation family
// (NIST SP 800-232), replacing every Keccak-based primitive a conventional
// ML-KEM deployment would use at the protocol layer:
//   - transcript binding uses Ascon-Hash256 instead of SHA3-256
//   - secret derivation uses Ascon-XOF128 instead of SHAKE-256
//
// The raw ML-KEM shared secret is never used directly. It is bound to the
// public key and ciphertext through the Ascon sponge, so a secret derived
// for one key/ciphertext pair is cryptographically useless for any other.
//
// # Mathematical Construction
//
// Key Generation:
//
//	(sk, pk) ← ML-KEM.KeyGen()
//
// Encapsulation:
//
//	(ct, K_m) ← ML-KEM.Encaps(pk)
//	binding ← Ascon-Hash256(pk || ct)
//	K ← Ascon-XOF128(len || "ASCONLINK-v1-SharedSecret" || len || K_m || len || binding, 256)
//
// Decapsulation:
//
//	K_m ← ML-KEM.Decaps(sk, ct)
//	binding ← Ascon-Hash256(pk || ct)
//	K ← Ascon-XOF128(len || "ASCONLINK-v1-SharedSecret" || len || K_m || len || binding, 256)
//
// # Security Model
//
// A-KEM inherits IND-CCA2 security from ML-KEM under the random oracle
// model for Ascon-XOF128. The binding hash additionally gives the derived
// secret MAL-BIND-K-CT and MAL-BIND-K-PK robustness: the output commits
// to the exact public key and ciphertext, so ciphertext substitution
// across sessions is detectable even against implicit rejection.
//
// Two parameter profiles are supported. ML-KEM-512 (Category 1) keeps
// key and ciphertext buffers small enough for constrained targets;
// ML-KEM-768 (Category 3) is the default.
package akem

import (
	"github.com/lightpq/asconlink/internal/constants"
	aerrors "github.com/lightpq/asconlink/internal/errors"
	"github.com/lightpq/asconlink/pkg/crypto"
)

// KeyPair represents an A-KEM key pair.
type KeyPair struct {
	profile constants.KEMProfile
	public  *crypto.MLKEMPublicKey
	private *crypto.MLKEMPrivateKey

	// pkBytes caches the encoded public key; the binding hash needs it on
	// every decapsulation
	pkBytes []byte
}

// PublicKey represents an A-KEM public key for encapsulation.
type PublicKey struct {
	profile constants.KEMProfile
	key     *crypto.MLKEMPublicKey
	encoded []byte
}

// GenerateKeyPair generates a new A-KEM key pair for the given profile.
func GenerateKeyPair(profile constants.KEMProfile) (*KeyPair, error) {
	if !profile.IsSupported() {
		return nil, aerrors.ErrUnsupportedProfile
	}

	kp, err := crypto.GenerateMLKEMKeyPair(profile)
	if err != nil {
		return nil, aerrors.NewCryptoError("AKEM.GenerateKeyPair", err)
	}

	return &KeyPair{
		profile: profile,
		public:  kp.EncapsulationKey,
		private: kp.DecapsulationKey,
		pkBytes: kp.PublicKeyBytes(),
	}, nil
}

// NewKeyPairFromSeed derives an A-KEM key pair deterministically from a
// 64-byte seed. Used for reproducible fixtures and key derivation from a
// master secret.
func NewKeyPairFromSeed(profile constants.KEMProfile, seed []byte) (*KeyPair, error) {
	if !profile.IsSupported() {
		return nil, aerrors.ErrUnsupportedProfile
	}

	kp, err := crypto.NewMLKEMKeyPairFromSeed(profile, seed)
	if err != nil {
		return nil, aerrors.NewCryptoError("AKEM.NewKeyPairFromSeed", err)
	}

	return &KeyPair{
		profile: profile,
		public:  kp.EncapsulationKey,
		private: kp.DecapsulationKey,
		pkBytes: kp.PublicKeyBytes(),
	}, nil
}

// Profile returns the KEM profile of the key pair.
func (kp *KeyPair) Profile() constants.KEMProfile {
	return kp.profile
}

// PublicKey returns the public component of the key pair.
func (kp *KeyPair) PublicKey() *PublicKey {
	return &PublicKey{
		profile: kp.profile,
		key:     kp.public,
		encoded: kp.pkBytes,
	}
}

// Profile returns the KEM profile of the public key.
func (pk *PublicKey) Profile() constants.KEMProfile {
	return pk.profile
}

// Bytes returns the encoded public key.
func (pk *PublicKey) Bytes() []byte {
	return pk.encoded
}

// ParsePublicKey parses an A-KEM public key from its encoded form.
func ParsePublicKey(profile constants.KEMProfile, data []byte) (*PublicKey, error) {
	key, err := crypto.ParseMLKEMPublicKey(profile, data)
	if err != nil {
		return nil, err
	}
	encoded := make([]byte, len(data))
	copy(encoded, data)
	return &PublicKey{profile: profile, key: key, encoded: encoded}, nil
}

// Encapsulate creates a ciphertext and Ascon-bound shared secret for the
// recipient.
//
// The operation:
//  1. ML-KEM encapsulation against the recipient's public key
//  2. binding = Ascon-Hash256(pk || ct)
//  3. K = Ascon-XOF128 derivation over (K_mlkem, binding)
//
// Returns the KEM ciphertext (profile-dependent size) and the 32-byte
// bound shared secret.
func Encapsulate(recipient *PublicKey) (ciphertext, sharedSecret []byte, err error) {
	if recipient == nil || recipient.key == nil {
		return nil, nil, aerrors.ErrInvalidKeySize
	}

	ct, kemSecret, err := crypto.MLKEMEncapsulate(recipient.key)
	if err != nil {
		return nil, nil, aerrors.NewCryptoError("AKEM.Encapsulate", err)
	}
	defer crypto.Zeroize(kemSecret)

	secret, err := bindSecret(kemSecret, recipient.encoded, ct)
	if err != nil {
		return nil, nil, err
	}
	return ct, secret, nil
}

// Decapsulate recovers the Ascon-bound shared secret from a ciphertext.
//
// ML-KEM's implicit rejection means a malformed-but-well-sized ciphertext
// still yields a pseudorandom KEM secret; the binding derivation then
// produces an equally pseudorandom output, so decapsulation never leaks
// whether rejection occurred. Only wrong-length inputs return an error.
func Decapsulate(kp *KeyPair, ciphertext []byte) ([]byte, error) {
	if kp == nil || kp.private == nil {
		return nil, aerrors.ErrInvalidKeySize
	}
	if len(ciphertext) != kp.profile.CiphertextSize() {
		return nil, aerrors.ErrInvalidCiphertext
	}

	kemSecret, err := crypto.MLKEMDecapsulate(kp.private, ciphertext)
	if err != nil {
		return nil, aerrors.NewCryptoError("AKEM.Decapsulate", err)
	}
	defer crypto.Zeroize(kemSecret)

	return bindSecret(kemSecret, kp.pkBytes, ciphertext)
}

// bindSecret derives the final shared secret, committing it to the
// public key and ciphertext through the Ascon binding hash.
func bindSecret(kemSecret, pkBytes, ciphertext []byte) ([]byte, error) {
	binding := crypto.AsconHash256Multi(pkBytes, ciphertext)
	secret, err := crypto.DeriveKey(constants.DomainSeparatorAKEM, kemSecret, binding, constants.SharedSecretSize)
	if err != nil {
		return nil, aerrors.NewCryptoError("AKEM.bindSecret", err)
	}
	return secret, nil
}

// Zeroize drops references to the private key material.
func (kp *KeyPair) Zeroize() {
	kp.private = nil
	kp.public = nil
	kp.pkBytes = nil
}
