//go:build lightweight
// +build lightweight

// This file is compiled when the "lightweight" build tag is specified.
// In lightweight mode the module restricts itself to the constrained-target
// algorithm set: ML-KEM-512 and Ascon-AEAD128 only, small I/O buffers, and
// mandatory power-on self-tests.
package crypto

// LightweightMode reports whether the binary was built in lightweight mode.
// When true, only the constrained-target algorithms (ML-KEM-512,
// Ascon-AEAD128) are available and power-on self-test failures are fatal.
func LightweightMode() bool { return true }
