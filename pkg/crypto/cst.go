// cst.go implements Conditional Self-Tests (CST).
//
// Conditional Self-Tests differ from Power-On Self-Tests in that they run
// during specific cryptographic operations rather than at module
// initialization:
//
//  1. Pairwise Consistency Test: verifies that a newly generated KEM key
//     pair is consistent (encapsulating against the public key and
//     decapsulating with the private key yields the same secret).
//
//  2. RNG Health Check: verifies that the random number generator
//     produces non-zero, non-repeating output.
//
// In lightweight mode CST failures cause a panic; in standard mode they
// return errors.
package crypto

import (
	"bytes"
	"fmt"
	"sync"
)

// CSTConfig configures Conditional Self-Test behavior.
type CSTConfig struct {
	// EnablePairwiseTest enables pairwise consistency tests on key generation
	EnablePairwiseTest bool

	// EnableRNGHealthCheck enables health checks on RNG output
	EnableRNGHealthCheck bool
}

// DefaultCSTConfig returns the default CST configuration.
// In lightweight mode all tests are enabled; in standard mode they are
// opt-in.
func DefaultCSTConfig() CSTConfig {
	return CSTConfig{
		EnablePairwiseTest:   LightweightMode(),
		EnableRNGHealthCheck: LightweightMode(),
	}
}

var (
	cstConfig     = DefaultCSTConfig()
	cstMu         sync.Mutex
	lastRNGSample []byte
)

// SetCSTConfig overrides the Conditional Self-Test configuration.
// Call before any key generation if a custom configuration is needed.
func SetCSTConfig(cfg CSTConfig) {
	cstMu.Lock()
	defer cstMu.Unlock()
	cstConfig = cfg
}

// PairwiseConsistencyTest verifies that a key pair's halves correspond:
// a secret encapsulated under the public key must decapsulate to the
// same value under the private key.
func PairwiseConsistencyTest(kp *MLKEMKeyPair) error {
	ct, ss1, err := MLKEMEncapsulate(kp.EncapsulationKey)
	if err != nil {
		return fmt.Errorf("pairwise test encapsulation failed: %w", err)
	}
	ss2, err := MLKEMDecapsulate(kp.DecapsulationKey, ct)
	if err != nil {
		return fmt.Errorf("pairwise test decapsulation failed: %w", err)
	}
	if !ConstantTimeCompare(ss1, ss2) {
		return fmt.Errorf("pairwise consistency test failed for %s", kp.Profile)
	}
	return nil
}

// CheckKeyPair runs the pairwise consistency test if enabled.
// In lightweight mode a failure panics, as a broken key pair must never
// be handed to a caller.
func CheckKeyPair(kp *MLKEMKeyPair) error {
	cstMu.Lock()
	enabled := cstConfig.EnablePairwiseTest
	cstMu.Unlock()
	if !enabled {
		return nil
	}

	if err := PairwiseConsistencyTest(kp); err != nil {
		if LightweightMode() {
			panic("lightweight CST failed: " + err.Error())
		}
		return err
	}
	return nil
}

// RNGHealthCheck draws a sample from the CSPRNG and verifies it is
// neither all-zero nor identical to the previous sample. A stuck or
// zeroed generator fails both conditions long before producing usable
// randomness.
func RNGHealthCheck() error {
	sample := make([]byte, 32)
	if err := SecureRandom(sample); err != nil {
		return fmt.Errorf("RNG health check read failed: %w", err)
	}

	if bytes.Equal(sample, make([]byte, 32)) {
		return fmt.Errorf("RNG health check failed: all-zero output")
	}

	cstMu.Lock()
	defer cstMu.Unlock()
	if lastRNGSample != nil && bytes.Equal(sample, lastRNGSample) {
		return fmt.Errorf("RNG health check failed: repeated output")
	}
	lastRNGSample = sample
	return nil
}
