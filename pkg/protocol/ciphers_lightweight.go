//go:build lightweight
// +build lightweight

// This file is compiled when the "lightweight" build tag is specified.
// On constrained targets only the Ascon algorithm set is available.
package protocol

import "github.com/lightpq/asconlink/internal/constants"

// SupportedCipherSuites returns the cipher suites available in
// lightweight mode. Only Ascon-AEAD128 qualifies; its 320-bit working
// state fits targets where a ChaCha20 key schedule does not.
func SupportedCipherSuites() []constants.CipherSuite {
	return []constants.CipherSuite{constants.CipherSuiteAsconAEAD128}
}

// PreferredCipherSuite returns the preferred cipher suite for new
// connections. In lightweight mode Ascon-AEAD128 is the only option.
func PreferredCipherSuite() constants.CipherSuite {
	return constants.CipherSuiteAsconAEAD128
}

// SupportedKEMProfiles returns the KEM profiles available in lightweight
// mode. ML-KEM-512 keeps key and ciphertext buffers within the
// constrained memory budget.
func SupportedKEMProfiles() []constants.KEMProfile {
	return []constants.KEMProfile{constants.KEMProfileMLKEM512}
}

// PreferredKEMProfile returns the preferred KEM profile for new
// connections.
func PreferredKEMProfile() constants.KEMProfile {
	return constants.KEMProfileMLKEM512
}
