package profile

import (
	"fmt"
	"io"
	"runtime"

	"github.com/lightpq/asconlink/internal/constants"
	"github.com/lightpq/asconlink/pkg/akem"
	"github.com/lightpq/asconlink/pkg/crypto"
	"github.com/lightpq/asconlink/pkg/protocol"
)

// Report writes a compatibility report for the profile: platform
// info, build toggles, primitive smoke tests, and memory footprint of
// the key material. Intended for bring-up on new targets.
func (p *Profile) Report(w io.Writer) error {
	fmt.Fprintf(w, "=== asconlink compatibility report: %s ===\n\n", p.Name)

	fmt.Fprintf(w, "[Platform]\n")
	fmt.Fprintf(w, "  os/arch:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(w, "  go version:    %s\n", runtime.Version())
	fmt.Fprintf(w, "  num cpu:       %d\n", runtime.NumCPU())
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "[Build Toggles]\n")
	fmt.Fprintf(w, "  lightweight:   %v\n", crypto.LightweightMode())
	fmt.Fprintf(w, "  post passed:   %v\n", crypto.POSTPassed())
	fmt.Fprintf(w, "  kem profiles:  ")
	for i, kp := range protocol.SupportedKEMProfiles() {
		if i > 0 {
			fmt.Fprintf(w, ", ")
		}
		fmt.Fprintf(w, "%s", kp)
	}
	fmt.Fprintf(w, "\n  cipher suites: ")
	for i, cs := range protocol.SupportedCipherSuites() {
		if i > 0 {
			fmt.Fprintf(w, ", ")
		}
		fmt.Fprintf(w, "%s", cs)
	}
	fmt.Fprintf(w, "\n\n")

	fmt.Fprintf(w, "[Profile Settings]\n")
	fmt.Fprintf(w, "  kem profile:   %s\n", p.KEMProfile)
	fmt.Fprintf(w, "  suites:        %d offered\n", len(p.CipherSuites))
	fmt.Fprintf(w, "  buffer size:   %d bytes\n", p.BufferSize)
	fmt.Fprintf(w, "  max message:   %d bytes\n", p.MaxMessage)
	fmt.Fprintf(w, "  single sess:   %v\n", p.SingleSession)
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "[Functionality]\n")
	ok := true
	if err := p.reportKEM(w); err != nil {
		ok = false
	}
	if err := reportAscon(w); err != nil {
		ok = false
	}
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "[Memory]\n")
	fmt.Fprintf(w, "  public key:    %d bytes\n", p.KEMProfile.PublicKeySize())
	fmt.Fprintf(w, "  private key:   %d bytes\n", p.KEMProfile.PrivateKeySize())
	fmt.Fprintf(w, "  ciphertext:    %d bytes\n", p.KEMProfile.CiphertextSize())
	fmt.Fprintf(w, "  shared secret: %d bytes\n", constants.SharedSecretSize)
	fmt.Fprintf(w, "\n")

	if !ok {
		fmt.Fprintf(w, "RESULT: FAIL\n")
		return fmt.Errorf("profile %s: compatibility checks failed", p.Name)
	}
	fmt.Fprintf(w, "RESULT: OK\n")
	return nil
}

func (p *Profile) reportKEM(w io.Writer) error {
	kp, err := akem.GenerateKeyPair(p.KEMProfile)
	if err != nil {
		fmt.Fprintf(w, "  kem keygen:    FAIL (%v)\n", err)
		return err
	}
	defer kp.Zeroize()
	fmt.Fprintf(w, "  kem keygen:    ok\n")

	ct, ssEnc, err := akem.Encapsulate(kp.PublicKey())
	if err != nil {
		fmt.Fprintf(w, "  kem encap:     FAIL (%v)\n", err)
		return err
	}
	fmt.Fprintf(w, "  kem encap:     ok\n")

	ssDec, err := akem.Decapsulate(kp, ct)
	if err != nil {
		fmt.Fprintf(w, "  kem decap:     FAIL (%v)\n", err)
		return err
	}
	if !crypto.ConstantTimeCompare(ssEnc, ssDec) {
		fmt.Fprintf(w, "  kem decap:     FAIL (secret mismatch)\n")
		return fmt.Errorf("akem: shared secret mismatch")
	}
	fmt.Fprintf(w, "  kem decap:     ok\n")
	crypto.ZeroizeMultiple(ssEnc, ssDec)
	return nil
}

func reportAscon(w io.Writer) error {
	digest := crypto.AsconHash256([]byte("asconlink compat"))
	if len(digest) != constants.AsconHashSize {
		fmt.Fprintf(w, "  ascon hash:    FAIL (digest %d bytes)\n", len(digest))
		return fmt.Errorf("ascon: unexpected digest length %d", len(digest))
	}
	fmt.Fprintf(w, "  ascon hash:    ok\n")

	out, err := crypto.AsconXOF128([]byte("asconlink compat"), 64)
	if err != nil || len(out) != 64 {
		fmt.Fprintf(w, "  ascon xof:     FAIL (%v)\n", err)
		if err == nil {
			err = fmt.Errorf("ascon: unexpected xof length %d", len(out))
		}
		return err
	}
	fmt.Fprintf(w, "  ascon xof:     ok\n")
	return nil
}
