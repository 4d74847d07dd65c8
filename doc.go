// Package asconlink provides a lightweight post-quantum secure link built on
// ML-KEM key encapsulation with Ascon primitives.
//
// The module replaces the SHA-3/SHAKE surface that ML-KEM deployments
// conventionally use for key derivation with the Ascon lightweight family
// (NIST SP 800-232): transcript hashing uses Ascon-Hash256, key derivation
// uses Ascon-XOF128, and the default traffic cipher is Ascon-AEAD128. The
// lattice math itself comes from cloudflare/circl; the Ascon permutation
// comes from github.com/magical/go-ascon.
//
// # Quick Start
//
// For an encrypted echo link with a KEM handshake:
//
//	import "github.com/lightpq/asconlink/pkg/link"
//
//	// Server
//	listener, _ := link.Listen(":12345", nil)
//	conn, _ := listener.Accept(ctx)
//	data, _ := conn.Receive()
//
//	// Client
//	client, _ := link.Dial("localhost:12345")
//	client.Send([]byte("hello"))
//
// For low-level Ascon-bound key encapsulation:
//
//	import "github.com/lightpq/asconlink/pkg/akem"
//
//	keyPair, _ := akem.GenerateKeyPair(constants.KEMProfileMLKEM768)
//	ciphertext, sharedSecret, _ := akem.Encapsulate(keyPair.PublicKey())
//	recoveredSecret, _ := akem.Decapsulate(keyPair, ciphertext)
//
// # Package Structure
//
//   - pkg/akem: Ascon-bound ML-KEM key encapsulation API
//   - pkg/crypto: Primitive wrappers (ML-KEM, Ascon hash/XOF, KDF, AEAD)
//   - pkg/link: KEM handshake, session state, and encrypted transport
//   - pkg/echo: Interactive echo server and client built on pkg/link
//   - pkg/protocol: Wire protocol message definitions and encoding
//   - pkg/profile: Runtime profiles, including a constrained-device preset
//   - pkg/selftest: Driver sequences verifying the KEM and Ascon plumbing
//   - pkg/bench: Handshake, KEM, and key-derivation measurement harness
//   - internal/constants: Security parameters and protocol constants
//   - internal/errors: Custom error types for detailed error handling
//
// # Security Properties
//
//   - Post-quantum key exchange: ML-KEM-512 or ML-KEM-768 (NIST FIPS 203)
//   - Lightweight symmetric layer: Ascon-Hash256/XOF128/AEAD128 (SP 800-232)
//   - Forward secrecy: ephemeral keys generated per session
//   - Authenticated encryption: Ascon-AEAD128 or ChaCha20-Poly1305
//   - Replay protection: sliding window with sequence numbers
//
// # Testing
//
//	go test ./...                                 # All tests
//	go test -fuzz=FuzzDecodeClientHello ./test/fuzz
//	go test -bench=. ./test/benchmark             # Benchmarks
//
// The asconlink binary also exposes a self-test driver that runs the full
// keygen/encapsulate/decapsulate sequence and verifies both sides derive the
// same shared secret:
//
//	asconlink selftest
//	asconlink compat --profile constrained
//
// # References
//
//   - NIST FIPS 203: Module-Lattice-Based Key-Encapsulation Mechanism Standard
//   - NIST SP 800-232: Ascon-Based Lightweight Cryptography Standards
package asconlink
