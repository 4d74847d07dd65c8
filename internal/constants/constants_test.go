package constants

import "testing"

func TestKEMProfileSizes(t *testing.T) {
	tests := []struct {
		profile KEMProfile
		pk, sk  int
		ct      int
	}{
		{KEMProfileMLKEM512, 800, 1632, 768},
		{KEMProfileMLKEM768, 1184, 2400, 1088},
	}

	for _, tt := range tests {
		t.Run(tt.profile.String(), func(t *testing.T) {
			if got := tt.profile.PublicKeySize(); got != tt.pk {
				t.Errorf("PublicKeySize() = %d, want %d", got, tt.pk)
			}
			if got := tt.profile.PrivateKeySize(); got != tt.sk {
				t.Errorf("PrivateKeySize() = %d, want %d", got, tt.sk)
			}
			if got := tt.profile.CiphertextSize(); got != tt.ct {
				t.Errorf("CiphertextSize() = %d, want %d", got, tt.ct)
			}
		})
	}
}

func TestKEMProfileSupport(t *testing.T) {
	if !KEMProfileMLKEM512.IsSupported() {
		t.Error("ML-KEM-512 should be supported")
	}
	if !KEMProfileMLKEM768.IsSupported() {
		t.Error("ML-KEM-768 should be supported")
	}
	if KEMProfile(0xFF).IsSupported() {
		t.Error("unknown profile should not be supported")
	}
	if KEMProfile(0xFF).PublicKeySize() != 0 {
		t.Error("unknown profile should report zero sizes")
	}
}

func TestCipherSuiteProperties(t *testing.T) {
	tests := []struct {
		suite       CipherSuite
		name        string
		keySize     int
		nonceSize   int
		tagSize     int
		lightweight bool
	}{
		{CipherSuiteAsconAEAD128, "Ascon-AEAD128", 16, 16, 16, true},
		{CipherSuiteChaCha20Poly1305, "ChaCha20-Poly1305", 32, 12, 16, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.suite.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
			if !tt.suite.IsSupported() {
				t.Error("suite should be supported")
			}
			if got := tt.suite.KeySize(); got != tt.keySize {
				t.Errorf("KeySize() = %d, want %d", got, tt.keySize)
			}
			if got := tt.suite.NonceSize(); got != tt.nonceSize {
				t.Errorf("NonceSize() = %d, want %d", got, tt.nonceSize)
			}
			if got := tt.suite.TagSize(); got != tt.tagSize {
				t.Errorf("TagSize() = %d, want %d", got, tt.tagSize)
			}
			if got := tt.suite.IsLightweight(); got != tt.lightweight {
				t.Errorf("IsLightweight() = %v, want %v", got, tt.lightweight)
			}
		})
	}

	if CipherSuite(0xFFFF).IsSupported() {
		t.Error("unknown suite should not be supported")
	}
	if CipherSuite(0xFFFF).String() != "Unknown" {
		t.Error("unknown suite should stringify as Unknown")
	}
}

func TestDomainSeparatorsDistinct(t *testing.T) {
	separators := []string{
		DomainSeparatorAKEM,
		DomainSeparatorHandshake,
		DomainSeparatorTraffic,
	}
	seen := make(map[string]bool)
	for _, s := range separators {
		if seen[s] {
			t.Errorf("duplicate domain separator %q", s)
		}
		seen[s] = true
	}
}
