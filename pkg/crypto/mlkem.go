// mlkem.go implements the ML-KEM key encapsulation mechanism wrappers.
//
// ML-KEM (Module-Lattice-based Key-Encapsulation Mechanism) is standardized
// in NIST FIPS 203. Its security rests on the computational difficulty of
// the Module Learning With Errors (MLWE) problem.
//
// Mathematical Foundation:
//
// The MLWE problem is defined over the polynomial ring R_q = Z_q[X]/(X^n + 1)
// where n = 256 and q = 3329.
//
// Given (A, b = As + e) where:
//   - A ∈ R_q^{k×k} is a uniformly random matrix
//   - s ∈ R_q^k is the secret vector
//   - e is an error vector sampled from a centered binomial distribution
//
// it is computationally infeasible to distinguish (A, As + e) from uniform
// random. The module rank k selects the parameter set: k=2 for ML-KEM-512
// (NIST Category 1) and k=3 for ML-KEM-768 (NIST Category 3).
//
// Both parameter sets are exposed through a common profile-indexed API so
// the link layer can negotiate the set at handshake time.
package crypto

import (
	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/mlkem/mlkem512"
	"github.com/cloudflare/circl/kem/mlkem/mlkem768"

	"github.com/lightpq/asconlink/internal/constants"
	aerrors "github.com/lightpq/asconlink/internal/errors"
)

// schemeFor maps a KEM profile to its ML-KEM parameter set.
func schemeFor(profile constants.KEMProfile) (kem.Scheme, error) {
	switch profile {
	case constants.KEMProfileMLKEM512:
		return mlkem512.Scheme(), nil
	case constants.KEMProfileMLKEM768:
		return mlkem768.Scheme(), nil
	default:
		return nil, aerrors.NewCryptoError("scheme", aerrors.ErrUnsupportedProfile)
	}
}

// MLKEMPublicKey wraps an ML-KEM encapsulation key together with its
// parameter set.
type MLKEMPublicKey struct {
	profile constants.KEMProfile
	key     kem.PublicKey
}

// MLKEMPrivateKey wraps an ML-KEM decapsulation key.
type MLKEMPrivateKey struct {
	profile constants.KEMProfile
	key     kem.PrivateKey
}

// MLKEMKeyPair represents an ML-KEM key pair for post-quantum key
// encapsulation.
type MLKEMKeyPair struct {
	// Profile identifies the parameter set the keys belong to
	Profile constants.KEMProfile

	// EncapsulationKey is the public key used by others to encapsulate secrets
	EncapsulationKey *MLKEMPublicKey

	// DecapsulationKey is the private key used to decapsulate secrets
	DecapsulationKey *MLKEMPrivateKey
}

// GenerateMLKEMKeyPair generates a new ML-KEM key pair for the given
// profile.
//
// The key generation process:
//  1. Sample random seed d ← {0,1}^256
//  2. Sample random seed z ← {0,1}^256
//  3. Expand matrix A from the seed
//  4. Sample secret vector s and error vector e from CBD(η₁)
//  5. Compute public key pk = (A, As + e)
//  6. Compute private key sk = (s, pk, H(pk), z)
//
// Returns an error if the system's CSPRNG fails.
func GenerateMLKEMKeyPair(profile constants.KEMProfile) (*MLKEMKeyPair, error) {
	scheme, err := schemeFor(profile)
	if err != nil {
		return nil, err
	}

	seed := make([]byte, scheme.SeedSize())
	if err := SecureRandom(seed); err != nil {
		return nil, aerrors.NewCryptoError("MLKEMKeyPair.Generate", err)
	}
	defer Zeroize(seed)

	pk, sk := scheme.DeriveKeyPair(seed)
	kp := &MLKEMKeyPair{
		Profile:          profile,
		EncapsulationKey: &MLKEMPublicKey{profile: profile, key: pk},
		DecapsulationKey: &MLKEMPrivateKey{profile: profile, key: sk},
	}
	if err := CheckKeyPair(kp); err != nil {
		return nil, aerrors.NewCryptoError("MLKEMKeyPair.Generate", err)
	}
	return kp, nil
}

// NewMLKEMKeyPairFromSeed derives an ML-KEM key pair from a 64-byte seed.
// This is deterministic: the same seed always produces the same key pair.
//
// The seed should come from a cryptographically secure source. The
// function exists for key derivation from a master secret and for
// reproducible test fixtures.
func NewMLKEMKeyPairFromSeed(profile constants.KEMProfile, seed []byte) (*MLKEMKeyPair, error) {
	scheme, err := schemeFor(profile)
	if err != nil {
		return nil, err
	}
	if len(seed) != scheme.SeedSize() {
		return nil, aerrors.ErrInvalidKeySize
	}

	pk, sk := scheme.DeriveKeyPair(seed)
	return &MLKEMKeyPair{
		Profile:          profile,
		EncapsulationKey: &MLKEMPublicKey{profile: profile, key: pk},
		DecapsulationKey: &MLKEMPrivateKey{profile: profile, key: sk},
	}, nil
}

// MLKEMEncapsulate performs key encapsulation against the recipient's
// encapsulation key.
//
// Encapsulation process:
//  1. Sample random coins m ← {0,1}^256
//  2. Compute (K̄, r) = G(m || H(pk))
//  3. Compute ciphertext c using r as randomness
//  4. Output K̄ as the shared secret
//
// Returns the ciphertext (profile-dependent size) and the 32-byte shared
// secret.
func MLKEMEncapsulate(ek *MLKEMPublicKey) (ciphertext, sharedSecret []byte, err error) {
	if ek == nil || ek.key == nil {
		return nil, nil, aerrors.NewCryptoError("MLKEMEncapsulate", aerrors.ErrInvalidKeySize)
	}

	scheme, err := schemeFor(ek.profile)
	if err != nil {
		return nil, nil, err
	}

	seed := make([]byte, scheme.EncapsulationSeedSize())
	if err := SecureRandom(seed); err != nil {
		return nil, nil, aerrors.NewCryptoError("MLKEMEncapsulate", err)
	}
	defer Zeroize(seed)

	ct, ss, err := scheme.EncapsulateDeterministically(ek.key, seed)
	if err != nil {
		return nil, nil, aerrors.NewCryptoError("MLKEMEncapsulate", err)
	}
	return ct, ss, nil
}

// MLKEMDecapsulate performs key decapsulation.
//
// Decapsulation process (IND-CCA2 secure via Fujisaki-Okamoto transform):
//  1. Decrypt ciphertext c to obtain m'
//  2. Recompute (K̄', r') = G(m' || H(pk))
//  3. Re-encrypt m' with r' to get c'
//  4. If c == c': return K̄'
//  5. If c != c': return a pseudorandom value derived from z and c
//     (implicit rejection)
//
// Implicit rejection ensures decapsulation always returns a value that
// looks random, so a malformed ciphertext never leaks through timing or
// error behavior.
func MLKEMDecapsulate(dk *MLKEMPrivateKey, ciphertext []byte) ([]byte, error) {
	if dk == nil || dk.key == nil {
		return nil, aerrors.NewCryptoError("MLKEMDecapsulate", aerrors.ErrInvalidKeySize)
	}

	scheme, err := schemeFor(dk.profile)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) != scheme.CiphertextSize() {
		return nil, aerrors.ErrInvalidCiphertext
	}

	ss, err := scheme.Decapsulate(dk.key, ciphertext)
	if err != nil {
		return nil, aerrors.NewCryptoError("MLKEMDecapsulate", aerrors.ErrDecapsulationFailed)
	}
	return ss, nil
}

// Profile returns the parameter set the public key belongs to.
func (pk *MLKEMPublicKey) Profile() constants.KEMProfile {
	return pk.profile
}

// Bytes returns the encoded bytes of the public key.
func (pk *MLKEMPublicKey) Bytes() []byte {
	if pk == nil || pk.key == nil {
		return nil
	}
	data, err := pk.key.MarshalBinary()
	if err != nil {
		return nil
	}
	return data
}

// PublicKeyBytes returns the encoded bytes of the encapsulation key.
func (kp *MLKEMKeyPair) PublicKeyBytes() []byte {
	return kp.EncapsulationKey.Bytes()
}

// ParseMLKEMPublicKey parses an ML-KEM public key from its encoded form.
// The length must match the profile's encapsulation key size exactly.
func ParseMLKEMPublicKey(profile constants.KEMProfile, data []byte) (*MLKEMPublicKey, error) {
	scheme, err := schemeFor(profile)
	if err != nil {
		return nil, err
	}
	if len(data) != scheme.PublicKeySize() {
		return nil, aerrors.NewCryptoError("ParseMLKEMPublicKey", aerrors.ErrInvalidKeySize)
	}

	pk, err := scheme.UnmarshalBinaryPublicKey(data)
	if err != nil {
		return nil, aerrors.NewCryptoError("ParseMLKEMPublicKey", err)
	}
	return &MLKEMPublicKey{profile: profile, key: pk}, nil
}

// Zeroize drops references to the key material.
// CIRCL does not expose direct zeroization, so this clears our references
// and lets the garbage collector reclaim the buffers.
func (kp *MLKEMKeyPair) Zeroize() {
	kp.DecapsulationKey = nil
	kp.EncapsulationKey = nil
}
