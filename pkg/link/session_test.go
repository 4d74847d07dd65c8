package link

import (
	"bytes"
	"testing"

	"github.com/lightpq/asconlink/internal/constants"
	aerrors "github.com/lightpq/asconlink/internal/errors"
	"github.com/lightpq/asconlink/pkg/crypto"
)

func TestReplayWindow(t *testing.T) {
	rw := NewReplayWindow()

	// In-order sequences are accepted
	for seq := uint64(0); seq < 10; seq++ {
		if !rw.Check(seq) {
			t.Errorf("Check(%d) rejected fresh sequence", seq)
		}
	}

	// Replays are rejected
	for seq := uint64(0); seq < 10; seq++ {
		if rw.Check(seq) {
			t.Errorf("Check(%d) accepted replay", seq)
		}
	}
}

func TestReplayWindowOutOfOrder(t *testing.T) {
	rw := NewReplayWindow()

	if !rw.Check(5) {
		t.Fatal("Check(5) rejected")
	}
	if !rw.Check(3) {
		t.Error("Check(3) rejected out-of-order delivery within window")
	}
	if rw.Check(3) {
		t.Error("Check(3) accepted replay")
	}
	if !rw.Check(4) {
		t.Error("Check(4) rejected")
	}
}

func TestReplayWindowTooOld(t *testing.T) {
	rw := NewReplayWindow()

	if !rw.Check(100) {
		t.Fatal("Check(100) rejected")
	}
	// 100 - 64 = 36 is the oldest acceptable sequence
	if rw.Check(36) {
		t.Error("Check(36) accepted sequence outside window")
	}
	if !rw.Check(37) {
		t.Error("Check(37) rejected sequence at window edge")
	}
}

func TestReplayWindowLargeJump(t *testing.T) {
	rw := NewReplayWindow()

	if !rw.Check(0) {
		t.Fatal("Check(0) rejected")
	}
	if !rw.Check(1000) {
		t.Fatal("Check(1000) rejected after jump")
	}
	// The bitmap was reset by the jump, old sequences are gone
	if rw.Check(0) {
		t.Error("Check(0) accepted after window moved past it")
	}
	if !rw.Check(999) {
		t.Error("Check(999) rejected within new window")
	}
}

func TestNewSessionClientGeneratesKeyPair(t *testing.T) {
	session, err := NewSession(RoleClient, constants.KEMProfileMLKEM512)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	defer session.Close()

	if session.LocalKeyPair == nil {
		t.Error("client session has no key pair")
	}
	if session.State() != SessionStateNew {
		t.Errorf("State() = %v, want New", session.State())
	}
}

func TestNewSessionServerHasNoKeyPair(t *testing.T) {
	session, err := NewSession(RoleServer, constants.KEMProfileMLKEM512)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	defer session.Close()

	if session.LocalKeyPair != nil {
		t.Error("server session should not generate a key pair")
	}
}

func TestNewSessionUnsupportedProfile(t *testing.T) {
	_, err := NewSession(RoleClient, constants.KEMProfile(0xFF))
	if !aerrors.Is(err, aerrors.ErrUnsupportedProfile) {
		t.Errorf("NewSession error = %v, want ErrUnsupportedProfile", err)
	}
}

// establishedPair creates two sessions sharing traffic keys, as if a
// handshake had completed.
func establishedPair(t *testing.T) (*Session, *Session) {
	t.Helper()

	client, err := NewSession(RoleClient, constants.KEMProfileMLKEM512)
	if err != nil {
		t.Fatalf("client NewSession failed: %v", err)
	}
	server, err := NewSession(RoleServer, constants.KEMProfileMLKEM512)
	if err != nil {
		t.Fatalf("server NewSession failed: %v", err)
	}

	secret := bytes.Repeat([]byte{0x42}, constants.SharedSecretSize)
	transcript := crypto.AsconHash256([]byte("session test transcript"))

	if err := client.InitializeKeys(secret, transcript, constants.CipherSuiteAsconAEAD128); err != nil {
		t.Fatalf("client InitializeKeys failed: %v", err)
	}
	if err := server.InitializeKeys(secret, transcript, constants.CipherSuiteAsconAEAD128); err != nil {
		t.Fatalf("server InitializeKeys failed: %v", err)
	}

	return client, server
}

func TestSessionEncryptDecrypt(t *testing.T) {
	client, server := establishedPair(t)
	defer client.Close()
	defer server.Close()

	if client.State() != SessionStateEstablished {
		t.Fatalf("client State() = %v, want Established", client.State())
	}

	plaintext := []byte("over the secure link")
	ciphertext, seq, err := client.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if seq != 0 {
		t.Errorf("first sequence = %d, want 0", seq)
	}

	decrypted, err := server.Decrypt(ciphertext, seq)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Error("decrypted data does not match")
	}
}

func TestSessionDirectionalKeys(t *testing.T) {
	client, server := establishedPair(t)
	defer client.Close()
	defer server.Close()

	// A message the client sends cannot be decrypted by the client's
	// own receive cipher (keys are directional).
	ciphertext, seq, err := client.Encrypt([]byte("directional"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if _, err := client.Decrypt(ciphertext, seq); err == nil {
		t.Error("client decrypted its own outgoing message")
	}
}

func TestSessionReplayRejected(t *testing.T) {
	client, server := establishedPair(t)
	defer client.Close()
	defer server.Close()

	ciphertext, seq, err := client.Encrypt([]byte("once only"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if _, err := server.Decrypt(ciphertext, seq); err != nil {
		t.Fatalf("first Decrypt failed: %v", err)
	}
	if _, err := server.Decrypt(ciphertext, seq); !aerrors.Is(err, aerrors.ErrReplayDetected) {
		t.Errorf("replayed Decrypt error = %v, want ErrReplayDetected", err)
	}
}

func TestSessionSequenceBinding(t *testing.T) {
	client, server := establishedPair(t)
	defer client.Close()
	defer server.Close()

	ciphertext, seq, err := client.Encrypt([]byte("bound to seq"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	// Renumbering the packet must fail authentication
	if _, err := server.Decrypt(ciphertext, seq+1); err == nil {
		t.Error("Decrypt accepted a renumbered packet")
	}
}

func TestSessionCloseZeroizes(t *testing.T) {
	client, server := establishedPair(t)
	defer server.Close()

	client.Close()

	if client.State() != SessionStateClosed {
		t.Errorf("State() = %v, want Closed", client.State())
	}
	if _, _, err := client.Encrypt([]byte("after close")); !aerrors.Is(err, aerrors.ErrSessionClosed) {
		t.Errorf("Encrypt after Close error = %v, want ErrSessionClosed", err)
	}
	if _, err := client.Decrypt([]byte("x"), 0); !aerrors.Is(err, aerrors.ErrSessionClosed) {
		t.Errorf("Decrypt after Close error = %v, want ErrSessionClosed", err)
	}
}

func TestSessionStats(t *testing.T) {
	client, server := establishedPair(t)
	defer client.Close()
	defer server.Close()

	payload := []byte("count me")
	ciphertext, seq, err := client.Encrypt(payload)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if _, err := server.Decrypt(ciphertext, seq); err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}

	cs := client.Stats()
	if cs.PacketsSent != 1 || cs.BytesSent != uint64(len(payload)) {
		t.Errorf("client stats = %+v, want 1 packet / %d bytes sent", cs, len(payload))
	}
	ss := server.Stats()
	if ss.PacketsRecv != 1 || ss.BytesReceived != uint64(len(payload)) {
		t.Errorf("server stats = %+v, want 1 packet / %d bytes received", ss, len(payload))
	}
}

func TestSessionStateString(t *testing.T) {
	states := map[SessionState]string{
		SessionStateNew:         "New",
		SessionStateHandshaking: "Handshaking",
		SessionStateEstablished: "Established",
		SessionStateClosed:      "Closed",
		SessionState(99):        "Unknown",
	}
	for state, want := range states {
		if got := state.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
