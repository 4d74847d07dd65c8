package akem_test

import (
	"bytes"
	"testing"

	"github.com/lightpq/asconlink/internal/constants"
	aerrors "github.com/lightpq/asconlink/internal/errors"
	"github.com/lightpq/asconlink/pkg/akem"
)

func profiles() []constants.KEMProfile {
	return []constants.KEMProfile{
		constants.KEMProfileMLKEM512,
		constants.KEMProfileMLKEM768,
	}
}

func TestEncapsulateDecapsulate(t *testing.T) {
	for _, profile := range profiles() {
		t.Run(profile.String(), func(t *testing.T) {
			kp, err := akem.GenerateKeyPair(profile)
			if err != nil {
				t.Fatalf("GenerateKeyPair failed: %v", err)
			}

			ct, ss1, err := akem.Encapsulate(kp.PublicKey())
			if err != nil {
				t.Fatalf("Encapsulate failed: %v", err)
			}

			if len(ct) != profile.CiphertextSize() {
				t.Errorf("Ciphertext size: got %d, want %d", len(ct), profile.CiphertextSize())
			}
			if len(ss1) != constants.SharedSecretSize {
				t.Errorf("Shared secret size: got %d, want %d", len(ss1), constants.SharedSecretSize)
			}

			ss2, err := akem.Decapsulate(kp, ct)
			if err != nil {
				t.Fatalf("Decapsulate failed: %v", err)
			}

			if !bytes.Equal(ss1, ss2) {
				t.Error("Shared secrets do not match")
			}
		})
	}
}

func TestSecretIsBound(t *testing.T) {
	kp, err := akem.GenerateKeyPair(constants.KEMProfileMLKEM512)
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}

	ct, ss1, err := akem.Encapsulate(kp.PublicKey())
	if err != nil {
		t.Fatalf("Encapsulate failed: %v", err)
	}

	// A flipped ciphertext bit must yield a different (implicitly
	// rejected) secret, not an error
	mutated := append([]byte(nil), ct...)
	mutated[0] ^= 0x01
	ss2, err := akem.Decapsulate(kp, mutated)
	if err != nil {
		t.Fatalf("Decapsulate of mutated ciphertext failed: %v", err)
	}
	if bytes.Equal(ss1, ss2) {
		t.Error("Mutated ciphertext produced the original secret")
	}

	// Two encapsulations against the same key must produce independent
	// secrets
	_, ss3, err := akem.Encapsulate(kp.PublicKey())
	if err != nil {
		t.Fatalf("Encapsulate failed: %v", err)
	}
	if bytes.Equal(ss1, ss3) {
		t.Error("Independent encapsulations produced identical secrets")
	}
}

func TestDeterministicKeyPair(t *testing.T) {
	seed := bytes.Repeat([]byte{0xC3}, constants.MLKEMSeedSize)

	kp1, err := akem.NewKeyPairFromSeed(constants.KEMProfileMLKEM768, seed)
	if err != nil {
		t.Fatalf("NewKeyPairFromSeed failed: %v", err)
	}
	kp2, err := akem.NewKeyPairFromSeed(constants.KEMProfileMLKEM768, seed)
	if err != nil {
		t.Fatalf("NewKeyPairFromSeed failed: %v", err)
	}

	if !bytes.Equal(kp1.PublicKey().Bytes(), kp2.PublicKey().Bytes()) {
		t.Error("Same seed should produce identical key pairs")
	}

	// Cross decapsulation: kp2 must recover secrets encapsulated for kp1
	ct, ss1, err := akem.Encapsulate(kp1.PublicKey())
	if err != nil {
		t.Fatalf("Encapsulate failed: %v", err)
	}
	ss2, err := akem.Decapsulate(kp2, ct)
	if err != nil {
		t.Fatalf("Decapsulate failed: %v", err)
	}
	if !bytes.Equal(ss1, ss2) {
		t.Error("Seed-derived twin failed to decapsulate")
	}
}

func TestPublicKeyRoundTrip(t *testing.T) {
	for _, profile := range profiles() {
		t.Run(profile.String(), func(t *testing.T) {
			kp, err := akem.GenerateKeyPair(profile)
			if err != nil {
				t.Fatalf("GenerateKeyPair failed: %v", err)
			}

			encoded := kp.PublicKey().Bytes()
			if len(encoded) != profile.PublicKeySize() {
				t.Errorf("Encoded size: got %d, want %d", len(encoded), profile.PublicKeySize())
			}

			parsed, err := akem.ParsePublicKey(profile, encoded)
			if err != nil {
				t.Fatalf("ParsePublicKey failed: %v", err)
			}

			ct, ss1, err := akem.Encapsulate(parsed)
			if err != nil {
				t.Fatalf("Encapsulate against parsed key failed: %v", err)
			}
			ss2, err := akem.Decapsulate(kp, ct)
			if err != nil {
				t.Fatalf("Decapsulate failed: %v", err)
			}
			if !bytes.Equal(ss1, ss2) {
				t.Error("Parsed public key does not interoperate")
			}
		})
	}
}

func TestInvalidInputs(t *testing.T) {
	if _, err := akem.GenerateKeyPair(constants.KEMProfile(0x99)); !aerrors.Is(err, aerrors.ErrUnsupportedProfile) {
		t.Errorf("Unknown profile: got %v, want ErrUnsupportedProfile", err)
	}

	kp, err := akem.GenerateKeyPair(constants.KEMProfileMLKEM512)
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}

	if _, err := akem.Decapsulate(kp, make([]byte, 17)); !aerrors.Is(err, aerrors.ErrInvalidCiphertext) {
		t.Errorf("Wrong-length ciphertext: got %v, want ErrInvalidCiphertext", err)
	}

	if _, err := akem.ParsePublicKey(constants.KEMProfileMLKEM512, make([]byte, 5)); err == nil {
		t.Error("Truncated public key should be rejected")
	}

	if _, _, err := akem.Encapsulate(nil); err == nil {
		t.Error("Nil recipient should be rejected")
	}
}

func TestProfilesProduceIndependentSecrets(t *testing.T) {
	seed := bytes.Repeat([]byte{0x3C}, constants.MLKEMSeedSize)

	kp512, err := akem.NewKeyPairFromSeed(constants.KEMProfileMLKEM512, seed)
	if err != nil {
		t.Fatalf("NewKeyPairFromSeed failed: %v", err)
	}
	kp768, err := akem.NewKeyPairFromSeed(constants.KEMProfileMLKEM768, seed)
	if err != nil {
		t.Fatalf("NewKeyPairFromSeed failed: %v", err)
	}

	if bytes.Equal(kp512.PublicKey().Bytes(), kp768.PublicKey().Bytes()) {
		t.Error("Profiles should derive distinct keys from the same seed")
	}
	if kp512.Profile() == kp768.Profile() {
		t.Error("Profiles should be recorded on the key pair")
	}
}
