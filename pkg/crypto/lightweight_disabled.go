//go:build !lightweight
// +build !lightweight

// This file is compiled when the "lightweight" build tag is NOT specified.
// In standard mode all supported algorithms are available.
package crypto

// LightweightMode reports whether the binary was built in lightweight mode.
// When false, all supported algorithms (ML-KEM-512/768, Ascon-AEAD128 and
// ChaCha20-Poly1305) are available.
func LightweightMode() bool { return false }
