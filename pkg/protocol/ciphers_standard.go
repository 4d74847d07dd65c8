//go:build !lightweight
// +build !lightweight

// This file is compiled when the "lightweight" build tag is NOT
// specified. In standard mode all supported algorithms are available.
package protocol

import "github.com/lightpq/asconlink/internal/constants"

// SupportedCipherSuites returns the cipher suites available in standard
// mode.
func SupportedCipherSuites() []constants.CipherSuite {
	return []constants.CipherSuite{
		constants.CipherSuiteAsconAEAD128,
		constants.CipherSuiteChaCha20Poly1305,
	}
}

// PreferredCipherSuite returns the preferred cipher suite for new
// connections. Ascon-AEAD128 is preferred so standard and lightweight
// builds interoperate without negotiation surprises.
func PreferredCipherSuite() constants.CipherSuite {
	return constants.CipherSuiteAsconAEAD128
}

// SupportedKEMProfiles returns the KEM profiles available in standard
// mode.
func SupportedKEMProfiles() []constants.KEMProfile {
	return []constants.KEMProfile{
		constants.KEMProfileMLKEM768,
		constants.KEMProfileMLKEM512,
	}
}

// PreferredKEMProfile returns the preferred KEM profile for new
// connections.
func PreferredKEMProfile() constants.KEMProfile {
	return constants.KEMProfileMLKEM768
}
