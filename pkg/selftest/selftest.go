// Package selftest provides runnable verification sequences for the
// asconlink primitives: KEM round trips, a two-party handshake
// simulation, Ascon known-answer checks, and a platform compatibility
// report. Each sequence logs its steps through the structured logger
// and returns the first failure.
package selftest

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/lightpq/asconlink/internal/constants"
	"github.com/lightpq/asconlink/pkg/akem"
	"github.com/lightpq/asconlink/pkg/crypto"
	"github.com/lightpq/asconlink/pkg/metrics"
	"github.com/lightpq/asconlink/pkg/profile"
)

// KEMRoundTrip exercises the full A-KEM cycle for one parameter set:
// key generation, public key encode/decode, encapsulation, and
// decapsulation with secret comparison.
func KEMRoundTrip(p constants.KEMProfile, log *metrics.Logger) error {
	if log == nil {
		log = metrics.GetLogger()
	}
	log = log.Named("selftest.kem").With(metrics.Fields{"profile": p.String()})

	log.Info("generating key pair")
	kp, err := akem.GenerateKeyPair(p)
	if err != nil {
		log.Error("key generation failed", metrics.Fields{"error": err.Error()})
		return fmt.Errorf("selftest: keygen: %w", err)
	}
	defer kp.Zeroize()
	log.Info("key pair generated", metrics.Fields{
		"public_key_bytes":  p.PublicKeySize(),
		"private_key_bytes": p.PrivateKeySize(),
	})

	log.Info("round-tripping public key encoding")
	pkBytes := kp.PublicKey().Bytes()
	parsed, err := akem.ParsePublicKey(p, pkBytes)
	if err != nil {
		log.Error("public key parse failed", metrics.Fields{"error": err.Error()})
		return fmt.Errorf("selftest: parse public key: %w", err)
	}
	if !bytes.Equal(parsed.Bytes(), pkBytes) {
		log.Error("public key round trip mismatch")
		return fmt.Errorf("selftest: public key round trip mismatch")
	}

	log.Info("encapsulating")
	ct, ssEnc, err := akem.Encapsulate(parsed)
	if err != nil {
		log.Error("encapsulation failed", metrics.Fields{"error": err.Error()})
		return fmt.Errorf("selftest: encapsulate: %w", err)
	}
	defer crypto.Zeroize(ssEnc)
	log.Info("encapsulation ok", metrics.Fields{
		"ciphertext_bytes":    len(ct),
		"shared_secret_bytes": len(ssEnc),
	})

	log.Info("decapsulating")
	ssDec, err := akem.Decapsulate(kp, ct)
	if err != nil {
		log.Error("decapsulation failed", metrics.Fields{"error": err.Error()})
		return fmt.Errorf("selftest: decapsulate: %w", err)
	}
	defer crypto.Zeroize(ssDec)

	if !crypto.ConstantTimeCompare(ssEnc, ssDec) {
		log.Error("shared secrets differ")
		return fmt.Errorf("selftest: shared secret mismatch")
	}
	log.Info("shared secrets match", metrics.Fields{
		"secret_prefix": hex.EncodeToString(ssDec[:8]),
	})
	return nil
}

// HandshakeSimulation performs a two-party key exchange for one
// parameter set: the server generates a key pair and publishes its
// public key, the client encapsulates against it, and the server
// decapsulates the ciphertext. Both sides must arrive at the same
// secret.
func HandshakeSimulation(p constants.KEMProfile, log *metrics.Logger) error {
	if log == nil {
		log = metrics.GetLogger()
	}
	log = log.Named("selftest.handshake").With(metrics.Fields{"profile": p.String()})

	log.Info("server generating key pair")
	serverKey, err := akem.GenerateKeyPair(p)
	if err != nil {
		log.Error("server keygen failed", metrics.Fields{"error": err.Error()})
		return fmt.Errorf("selftest: server keygen: %w", err)
	}
	defer serverKey.Zeroize()
	serverPub := serverKey.PublicKey().Bytes()
	log.Info("server public key published", metrics.Fields{"bytes": len(serverPub)})

	log.Info("client encapsulating against server key")
	clientView, err := akem.ParsePublicKey(p, serverPub)
	if err != nil {
		log.Error("client rejected server key", metrics.Fields{"error": err.Error()})
		return fmt.Errorf("selftest: parse server key: %w", err)
	}
	ct, clientSecret, err := akem.Encapsulate(clientView)
	if err != nil {
		log.Error("client encapsulation failed", metrics.Fields{"error": err.Error()})
		return fmt.Errorf("selftest: client encapsulate: %w", err)
	}
	defer crypto.Zeroize(clientSecret)
	log.Info("client encapsulation ok", metrics.Fields{"ciphertext_bytes": len(ct)})

	log.Info("server decapsulating")
	serverSecret, err := akem.Decapsulate(serverKey, ct)
	if err != nil {
		log.Error("server decapsulation failed", metrics.Fields{"error": err.Error()})
		return fmt.Errorf("selftest: server decapsulate: %w", err)
	}
	defer crypto.Zeroize(serverSecret)

	if !crypto.ConstantTimeCompare(clientSecret, serverSecret) {
		log.Error("handshake secrets differ")
		return fmt.Errorf("selftest: handshake shared secret mismatch")
	}
	log.Info("handshake simulation ok", metrics.Fields{
		"secret_prefix": hex.EncodeToString(serverSecret[:8]),
	})
	return nil
}

// AsconPrimitives verifies the Ascon hash and XOF behave coherently:
// fixed output lengths, determinism, incremental-update equivalence,
// and XOF prefix consistency across output lengths.
func AsconPrimitives(log *metrics.Logger) error {
	if log == nil {
		log = metrics.GetLogger()
	}
	log = log.Named("selftest.ascon")
	data := []byte("asconlink selftest data")

	log.Info("checking Ascon-Hash256")
	d1 := crypto.AsconHash256(data)
	if len(d1) != constants.AsconHashSize {
		log.Error("unexpected digest length", metrics.Fields{"got": len(d1)})
		return fmt.Errorf("selftest: hash digest length %d", len(d1))
	}
	if !bytes.Equal(d1, crypto.AsconHash256(data)) {
		log.Error("hash not deterministic")
		return fmt.Errorf("selftest: hash not deterministic")
	}
	multi := crypto.AsconHash256Multi(data[:8], data[8:])
	if !bytes.Equal(d1, multi) {
		log.Error("incremental hash mismatch")
		return fmt.Errorf("selftest: incremental hash mismatch")
	}
	log.Info("Ascon-Hash256 ok", metrics.Fields{
		"digest_prefix": hex.EncodeToString(d1[:8]),
	})

	log.Info("checking Ascon-XOF128")
	long, err := crypto.AsconXOF128(data, 64)
	if err != nil {
		log.Error("xof failed", metrics.Fields{"error": err.Error()})
		return fmt.Errorf("selftest: xof: %w", err)
	}
	short, err := crypto.AsconXOF128(data, 32)
	if err != nil {
		log.Error("xof failed", metrics.Fields{"error": err.Error()})
		return fmt.Errorf("selftest: xof: %w", err)
	}
	if !bytes.Equal(long[:32], short) {
		log.Error("xof outputs are not prefix-consistent")
		return fmt.Errorf("selftest: xof prefix mismatch")
	}
	if bytes.Equal(long[:32], d1) {
		log.Error("xof output collides with hash output")
		return fmt.Errorf("selftest: xof and hash not domain separated")
	}
	log.Info("Ascon-XOF128 ok", metrics.Fields{
		"output_prefix": hex.EncodeToString(long[:8]),
	})

	log.Info("checking Ascon-CXOF128 domain separation")
	a, err := crypto.AsconCXOF128("domain-a", data, 32)
	if err != nil {
		return fmt.Errorf("selftest: cxof: %w", err)
	}
	b, err := crypto.AsconCXOF128("domain-b", data, 32)
	if err != nil {
		return fmt.Errorf("selftest: cxof: %w", err)
	}
	if bytes.Equal(a, b) {
		log.Error("cxof customization has no effect")
		return fmt.Errorf("selftest: cxof domains collide")
	}
	log.Info("Ascon-CXOF128 ok")
	return nil
}

// Compat runs the profile compatibility report through the logger and
// returns the report error, if any.
func Compat(p *profile.Profile, log *metrics.Logger) error {
	if log == nil {
		log = metrics.GetLogger()
	}
	log = log.Named("selftest.compat")

	var buf bytes.Buffer
	err := p.Report(&buf)
	for _, line := range bytes.Split(bytes.TrimRight(buf.Bytes(), "\n"), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		log.Info(string(line))
	}
	if err != nil {
		log.Error("compatibility report failed", metrics.Fields{"error": err.Error()})
		return err
	}
	return nil
}

// All runs every sequence for every supported parameter set.
func All(profiles []constants.KEMProfile, log *metrics.Logger) error {
	if log == nil {
		log = metrics.GetLogger()
	}
	if err := AsconPrimitives(log); err != nil {
		return err
	}
	for _, p := range profiles {
		if err := KEMRoundTrip(p, log); err != nil {
			return err
		}
		if err := HandshakeSimulation(p, log); err != nil {
			return err
		}
	}
	return nil
}
