// Package fuzz provides fuzz tests for security-critical parsing functions.
//
// Run fuzz tests with:
//
//	go test -fuzz=FuzzParsePublicKey -fuzztime=30s ./test/fuzz/
//	go test -fuzz=FuzzDecodeClientHello -fuzztime=30s ./test/fuzz/
//	go test -fuzz=FuzzDecodeServerHello -fuzztime=30s ./test/fuzz/
//	go test -fuzz=FuzzAEADOpen -fuzztime=30s ./test/fuzz/
//
// Run all fuzz tests sequentially:
//
//	go test -fuzz=Fuzz -fuzztime=10s ./test/fuzz/
package fuzz

import (
	"testing"

	"github.com/lightpq/asconlink/internal/constants"
	"github.com/lightpq/asconlink/pkg/akem"
	"github.com/lightpq/asconlink/pkg/crypto"
	"github.com/lightpq/asconlink/pkg/protocol"
)

// FuzzParsePublicKey fuzzes the A-KEM public key parser.
// This is security-critical as it processes untrusted input from the network.
func FuzzParsePublicKey(f *testing.F) {
	profile := protocol.PreferredKEMProfile()
	keySize := profile.PublicKeySize()

	// Add seed corpus
	kp, _ := akem.GenerateKeyPair(profile)
	f.Add(kp.PublicKey().Bytes())

	// Edge cases
	f.Add([]byte{})
	f.Add(make([]byte, keySize-1))
	f.Add(make([]byte, keySize+1))
	f.Add(make([]byte, keySize))

	f.Fuzz(func(t *testing.T, data []byte) {
		// Should not panic regardless of input
		pk, err := akem.ParsePublicKey(profile, data)
		if err != nil {
			return
		}

		// If parsing succeeded, re-serialization should match
		if pk != nil {
			reserialized := pk.Bytes()
			if len(reserialized) != keySize {
				t.Errorf("reserialized public key has wrong size: %d", len(reserialized))
			}
		}
	})
}

// FuzzDecapsulate fuzzes decapsulation with arbitrary ciphertexts.
// ML-KEM's implicit rejection means wrong-length input is the only
// error path; valid-length garbage must still produce a secret.
func FuzzDecapsulate(f *testing.F) {
	profile := protocol.PreferredKEMProfile()
	kp, _ := akem.GenerateKeyPair(profile)
	ct, _, _ := akem.Encapsulate(kp.PublicKey())

	f.Add(ct)
	f.Add([]byte{})
	f.Add(make([]byte, profile.CiphertextSize()))
	f.Add(make([]byte, profile.CiphertextSize()-1))

	f.Fuzz(func(t *testing.T, data []byte) {
		ss, err := akem.Decapsulate(kp, data)
		if err != nil {
			return
		}
		if len(ss) != constants.SharedSecretSize {
			t.Errorf("shared secret has wrong size: %d", len(ss))
		}
	})
}

// FuzzDecodeClientHello fuzzes the ClientHello decoder.
func FuzzDecodeClientHello(f *testing.F) {
	codec := protocol.NewCodec()
	profile := protocol.PreferredKEMProfile()

	// Add valid ClientHello as seed
	kp, _ := akem.GenerateKeyPair(profile)
	validHello := &protocol.ClientHello{
		Version:      protocol.Current,
		Random:       crypto.MustSecureRandomBytes(32),
		Profile:      profile,
		PublicKey:    kp.PublicKey().Bytes(),
		CipherSuites: protocol.SupportedCipherSuites(),
	}
	encoded, _ := codec.EncodeClientHello(validHello)
	f.Add(encoded)

	// Edge cases
	f.Add([]byte{})
	f.Add([]byte{0x01})                         // Just message type
	f.Add([]byte{0x01, 0, 0, 0, 0})             // Header only
	f.Add([]byte{0x01, 0xff, 0xff, 0xff, 0xff}) // Huge length

	f.Fuzz(func(t *testing.T, data []byte) {
		// Should not panic regardless of input
		msg, err := codec.DecodeClientHello(data)
		if err != nil {
			return
		}

		// If decoding succeeded, validate the message
		if msg != nil {
			if err := msg.Validate(); err != nil {
				t.Logf("decoded invalid message: %v", err)
			}
		}
	})
}

// FuzzDecodeServerHello fuzzes the ServerHello decoder.
func FuzzDecodeServerHello(f *testing.F) {
	codec := protocol.NewCodec()
	profile := protocol.PreferredKEMProfile()

	// Add valid ServerHello as seed
	kp, _ := akem.GenerateKeyPair(profile)
	ct, _, _ := akem.Encapsulate(kp.PublicKey())

	validHello := &protocol.ServerHello{
		Version:     protocol.Current,
		Random:      crypto.MustSecureRandomBytes(32),
		Profile:     profile,
		Ciphertext:  ct,
		CipherSuite: protocol.PreferredCipherSuite(),
	}
	encoded, _ := codec.EncodeServerHello(validHello)
	f.Add(encoded)

	// Edge cases
	f.Add([]byte{})
	f.Add([]byte{0x02})
	f.Add([]byte{0x02, 0, 0, 0, 0})
	f.Add([]byte{0x02, 0xff, 0xff, 0xff, 0xff})

	f.Fuzz(func(t *testing.T, data []byte) {
		// Should not panic regardless of input
		msg, err := codec.DecodeServerHello(data)
		if err != nil {
			return
		}

		if msg != nil {
			if err := msg.Validate(); err != nil {
				t.Logf("decoded invalid message: %v", err)
			}
		}
	})
}

// FuzzDecodeData fuzzes the Data message decoder.
func FuzzDecodeData(f *testing.F) {
	codec := protocol.NewCodec()

	// Add valid Data message as seed
	validData, _ := codec.EncodeData(12345, []byte("test payload"))
	f.Add(validData)

	// Edge cases
	f.Add([]byte{})
	f.Add([]byte{0x10})
	f.Add([]byte{0x10, 0, 0, 0, 8, 0, 0, 0, 0, 0, 0, 0, 1}) // Minimal valid

	f.Fuzz(func(t *testing.T, data []byte) {
		// Should not panic regardless of input
		seq, payload, err := codec.DecodeData(data)
		if err != nil {
			return
		}
		_ = seq
		_ = payload
	})
}

// FuzzDecodeAlert fuzzes the Alert message decoder.
func FuzzDecodeAlert(f *testing.F) {
	codec := protocol.NewCodec()

	// Add valid Alert as seed
	validAlert := codec.EncodeAlert(protocol.AlertLevelFatal, protocol.AlertCodeHandshakeFailure, "test error")
	f.Add(validAlert)

	// Edge cases
	f.Add([]byte{})
	f.Add([]byte{0xF0})
	f.Add([]byte{0xF0, 0, 0, 0, 3, 0x02, 0x03, 0}) // Minimal valid

	f.Fuzz(func(t *testing.T, data []byte) {
		// Should not panic regardless of input
		level, code, desc, err := codec.DecodeAlert(data)
		if err != nil {
			return
		}
		_ = level
		_ = code
		_ = desc
	})
}

// FuzzAEADOpen fuzzes the AEAD decryption path.
// This is critical as it processes potentially malicious ciphertext.
func FuzzAEADOpen(f *testing.F) {
	key := crypto.MustSecureRandomBytes(constants.AsconKeySize)
	aead, _ := crypto.NewAEAD(constants.CipherSuiteAsconAEAD128, key)

	// Add valid ciphertext as seed
	plaintext := []byte("test plaintext data")
	validCiphertext, _ := aead.Seal(plaintext, nil)
	f.Add(validCiphertext)

	// Edge cases
	f.Add([]byte{})
	f.Add(make([]byte, constants.AsconNonceSize+constants.AsconTagSize-1)) // Too short
	f.Add(make([]byte, constants.AsconNonceSize+constants.AsconTagSize))   // Minimum size
	f.Add(make([]byte, constants.AsconNonceSize+constants.AsconTagSize+100))

	f.Fuzz(func(t *testing.T, data []byte) {
		testAEAD, _ := crypto.NewAEAD(constants.CipherSuiteAsconAEAD128, key)
		// Should not panic regardless of input
		_, err := testAEAD.Open(data, nil)
		_ = err
	})
}

// FuzzAsconXOF fuzzes the XOF over arbitrary input and output lengths.
func FuzzAsconXOF(f *testing.F) {
	f.Add([]byte("seed"), 32)
	f.Add([]byte{}, 0)
	f.Add([]byte{0xff}, 1024)

	f.Fuzz(func(t *testing.T, data []byte, outLen int) {
		if outLen > 1<<16 {
			return
		}
		out, err := crypto.AsconXOF128(data, outLen)
		if err != nil {
			return
		}
		if len(out) != outLen {
			t.Errorf("output length = %d, want %d", len(out), outLen)
		}
	})
}
