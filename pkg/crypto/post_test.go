package crypto_test

import (
	"testing"

	"github.com/lightpq/asconlink/internal/constants"
	"github.com/lightpq/asconlink/pkg/crypto"
)

func TestPOSTRunsOnInit(t *testing.T) {
	// POST runs from the package init; by the time any test executes it
	// must have completed
	if !crypto.POSTRan() {
		t.Fatal("POST did not run at package load")
	}
}

func TestPOSTPasses(t *testing.T) {
	result := crypto.RunPOST()
	if !result.Passed {
		t.Fatalf("POST failed: %v", result.Errors)
	}
	if !result.KDFPassed || !result.AEADPassed || !result.MLKEMPassed {
		t.Errorf("POST subsystems: KDF=%v AEAD=%v MLKEM=%v",
			result.KDFPassed, result.AEADPassed, result.MLKEMPassed)
	}
	if !crypto.POSTPassed() {
		t.Error("POSTPassed should report true after a clean run")
	}
}

func TestPOSTIdempotent(t *testing.T) {
	r1 := crypto.RunPOST()
	r2 := crypto.RunPOST()
	if r1 != r2 {
		t.Error("RunPOST should return the cached result")
	}
}

func TestPairwiseConsistency(t *testing.T) {
	kp, err := crypto.GenerateMLKEMKeyPair(constants.KEMProfileMLKEM512)
	if err != nil {
		t.Fatalf("GenerateMLKEMKeyPair failed: %v", err)
	}
	if err := crypto.PairwiseConsistencyTest(kp); err != nil {
		t.Errorf("Pairwise consistency test failed: %v", err)
	}
}

func TestRNGHealthCheck(t *testing.T) {
	for i := 0; i < 3; i++ {
		if err := crypto.RNGHealthCheck(); err != nil {
			t.Fatalf("RNG health check failed: %v", err)
		}
	}
}
