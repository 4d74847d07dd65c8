// post.go implements Power-On Self-Tests (POST).
//
// IMPORTANT: POST is production code, not test code. The self-tests run at
// module load time to verify the cryptographic implementation before any
// operation is performed. This catches corrupted binaries, hardware
// failures, and miscompiled builds.
//
// The tests verify:
//   - Ascon-XOF128 key derivation (determinism and stream consistency)
//   - Ascon-AEAD128 and ChaCha20-Poly1305 (seal/open round trip and
//     tamper rejection)
//   - ML-KEM-512 and ML-KEM-768 (deterministic keygen, encapsulate/
//     decapsulate consistency)
//
// The KEM and AEAD checks are consistency tests rather than fixed-vector
// tests: encapsulation is randomized, so the meaningful invariant is that
// both parties compute the same secret and that modified ciphertexts are
// rejected. In lightweight mode POST failures cause a panic to prevent
// use of a compromised implementation; in standard mode failures are
// recorded and surfaced through POSTPassed.
package crypto

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/lightpq/asconlink/internal/constants"
)

// POSTResult contains the results of the Power-On Self-Tests.
type POSTResult struct {
	Passed      bool
	KDFPassed   bool
	AEADPassed  bool
	MLKEMPassed bool
	Errors      []string
}

var (
	postResult     *POSTResult
	postResultOnce sync.Once
	postRan        bool
)

// postDomain is the domain separator used by the POST KDF checks.
const postDomain = "ASCONLINK-POST"

// RunPOST executes the Power-On Self-Tests and returns the results.
// Safe to call multiple times; the tests only run once.
func RunPOST() *POSTResult {
	postResultOnce.Do(func() {
		postResult = &POSTResult{Passed: true}

		if err := postKDF(); err != nil {
			postResult.Passed = false
			postResult.Errors = append(postResult.Errors, fmt.Sprintf("KDF self-test failed: %v", err))
		} else {
			postResult.KDFPassed = true
		}

		if err := postAEAD(); err != nil {
			postResult.Passed = false
			postResult.Errors = append(postResult.Errors, fmt.Sprintf("AEAD self-test failed: %v", err))
		} else {
			postResult.AEADPassed = true
		}

		if err := postMLKEM(); err != nil {
			postResult.Passed = false
			postResult.Errors = append(postResult.Errors, fmt.Sprintf("ML-KEM self-test failed: %v", err))
		} else {
			postResult.MLKEMPassed = true
		}

		postRan = true

		if LightweightMode() && !postResult.Passed {
			panic(fmt.Sprintf("lightweight POST failed: %v", postResult.Errors))
		}
	})

	return postResult
}

// POSTRan returns true if POST has been executed.
func POSTRan() bool {
	return postRan
}

// POSTPassed returns true if POST has run and all tests passed.
func POSTPassed() bool {
	return postResult != nil && postResult.Passed
}

// postKDF verifies the Ascon-XOF128 derivation: determinism across two
// invocations, sensitivity to the domain separator, and prefix
// consistency between different output lengths.
func postKDF() error {
	secret := bytes.Repeat([]byte{0x42}, 32)
	context := []byte("post-context")

	out1, err := DeriveKey(postDomain, secret, context, 32)
	if err != nil {
		return fmt.Errorf("DeriveKey failed: %w", err)
	}
	out2, err := DeriveKey(postDomain, secret, context, 32)
	if err != nil {
		return fmt.Errorf("DeriveKey failed: %w", err)
	}
	if !bytes.Equal(out1, out2) {
		return fmt.Errorf("derivation is not deterministic")
	}

	other, err := DeriveKey(postDomain+"-2", secret, context, 32)
	if err != nil {
		return fmt.Errorf("DeriveKey failed: %w", err)
	}
	if bytes.Equal(out1, other) {
		return fmt.Errorf("domain separation has no effect")
	}

	long, err := DeriveKey(postDomain, secret, context, 64)
	if err != nil {
		return fmt.Errorf("DeriveKey failed: %w", err)
	}
	if !bytes.Equal(long[:32], out1) {
		return fmt.Errorf("XOF output is not prefix-consistent")
	}

	return nil
}

// postAEAD verifies seal/open round trips and tamper rejection for every
// supported cipher suite.
func postAEAD() error {
	plaintext := []byte("ASCONLINK-POST-AEAD")
	aad := []byte("post-aad")

	for _, suite := range []constants.CipherSuite{
		constants.CipherSuiteAsconAEAD128,
		constants.CipherSuiteChaCha20Poly1305,
	} {
		key := bytes.Repeat([]byte{0x17}, suite.KeySize())

		sealer, err := NewAEAD(suite, key)
		if err != nil {
			return fmt.Errorf("%s: NewAEAD failed: %w", suite, err)
		}
		sealed, err := sealer.Seal(plaintext, aad)
		if err != nil {
			return fmt.Errorf("%s: Seal failed: %w", suite, err)
		}

		opener, err := NewAEAD(suite, key)
		if err != nil {
			return fmt.Errorf("%s: NewAEAD failed: %w", suite, err)
		}
		opened, err := opener.Open(sealed, aad)
		if err != nil {
			return fmt.Errorf("%s: Open failed: %w", suite, err)
		}
		if !bytes.Equal(opened, plaintext) {
			return fmt.Errorf("%s: round trip mismatch", suite)
		}

		tampered := append([]byte(nil), sealed...)
		tampered[len(tampered)-1] ^= 0x01
		if _, err := opener.Open(tampered, aad); err == nil {
			return fmt.Errorf("%s: tampered ciphertext accepted", suite)
		}
	}

	return nil
}

// postMLKEM verifies both parameter sets: deterministic key generation
// from a fixed seed, size invariants, and encapsulate/decapsulate
// consistency.
func postMLKEM() error {
	seed := bytes.Repeat([]byte{0xA5, 0x5A}, constants.MLKEMSeedSize/2)

	for _, profile := range []constants.KEMProfile{
		constants.KEMProfileMLKEM512,
		constants.KEMProfileMLKEM768,
	} {
		kp, err := NewMLKEMKeyPairFromSeed(profile, seed)
		if err != nil {
			return fmt.Errorf("%s: NewMLKEMKeyPairFromSeed failed: %w", profile, err)
		}

		pkBytes := kp.PublicKeyBytes()
		if len(pkBytes) != profile.PublicKeySize() {
			return fmt.Errorf("%s: public key size %d, want %d", profile, len(pkBytes), profile.PublicKeySize())
		}

		kp2, err := NewMLKEMKeyPairFromSeed(profile, seed)
		if err != nil {
			return fmt.Errorf("%s: NewMLKEMKeyPairFromSeed failed: %w", profile, err)
		}
		if !bytes.Equal(pkBytes, kp2.PublicKeyBytes()) {
			return fmt.Errorf("%s: key generation is not deterministic", profile)
		}

		ciphertext, ss1, err := MLKEMEncapsulate(kp.EncapsulationKey)
		if err != nil {
			return fmt.Errorf("%s: MLKEMEncapsulate failed: %w", profile, err)
		}
		if len(ciphertext) != profile.CiphertextSize() {
			return fmt.Errorf("%s: ciphertext size %d, want %d", profile, len(ciphertext), profile.CiphertextSize())
		}
		if len(ss1) != constants.MLKEMSharedSecretSize {
			return fmt.Errorf("%s: shared secret size %d, want %d", profile, len(ss1), constants.MLKEMSharedSecretSize)
		}

		ss2, err := MLKEMDecapsulate(kp.DecapsulationKey, ciphertext)
		if err != nil {
			return fmt.Errorf("%s: MLKEMDecapsulate failed: %w", profile, err)
		}
		if !ConstantTimeCompare(ss1, ss2) {
			return fmt.Errorf("%s: shared secret mismatch after decapsulation", profile)
		}
	}

	return nil
}

// init runs POST automatically when the package is loaded.
func init() {
	RunPOST()
}
