package link

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/lightpq/asconlink/internal/constants"
	aerrors "github.com/lightpq/asconlink/internal/errors"
	"github.com/lightpq/asconlink/pkg/protocol"
)

// runHandshake performs a full handshake over an in-memory pipe and
// returns both established sessions.
func runHandshake(t *testing.T, profile constants.KEMProfile) (*Session, *Session) {
	t.Helper()

	clientConn, serverConn := net.Pipe()
	t.Cleanup(func() {
		clientConn.Close()
		serverConn.Close()
	})

	client, err := NewSession(RoleClient, profile)
	if err != nil {
		t.Fatalf("client NewSession failed: %v", err)
	}
	server, err := NewSession(RoleServer, profile)
	if err != nil {
		t.Fatalf("server NewSession failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- ResponderHandshake(ctx, server, serverConn)
	}()

	if err := InitiatorHandshake(ctx, client, clientConn); err != nil {
		t.Fatalf("InitiatorHandshake failed: %v", err)
	}
	if err := <-serverErr; err != nil {
		t.Fatalf("ResponderHandshake failed: %v", err)
	}

	return client, server
}

func TestHandshakeCompletes(t *testing.T) {
	for _, profile := range protocol.SupportedKEMProfiles() {
		t.Run(profile.String(), func(t *testing.T) {
			client, server := runHandshake(t, profile)
			defer client.Close()
			defer server.Close()

			if client.State() != SessionStateEstablished {
				t.Errorf("client State() = %v, want Established", client.State())
			}
			if server.State() != SessionStateEstablished {
				t.Errorf("server State() = %v, want Established", server.State())
			}

			if len(client.ID) != constants.SessionIDSize {
				t.Errorf("session ID length = %d, want %d", len(client.ID), constants.SessionIDSize)
			}
			if !bytes.Equal(client.ID, server.ID) {
				t.Error("client and server derived different session IDs")
			}
			if client.CipherSuite != server.CipherSuite {
				t.Errorf("suite mismatch: client %v, server %v", client.CipherSuite, server.CipherSuite)
			}
		})
	}
}

func TestHandshakeNegotiatesPreferredSuite(t *testing.T) {
	client, server := runHandshake(t, protocol.PreferredKEMProfile())
	defer client.Close()
	defer server.Close()

	if client.CipherSuite != protocol.PreferredCipherSuite() {
		t.Errorf("negotiated suite = %v, want %v", client.CipherSuite, protocol.PreferredCipherSuite())
	}
}

func TestHandshakeTrafficKeysWork(t *testing.T) {
	client, server := runHandshake(t, protocol.PreferredKEMProfile())
	defer client.Close()
	defer server.Close()

	// Client to server
	msg := []byte("first application data")
	ciphertext, seq, err := client.Encrypt(msg)
	if err != nil {
		t.Fatalf("client Encrypt failed: %v", err)
	}
	plaintext, err := server.Decrypt(ciphertext, seq)
	if err != nil {
		t.Fatalf("server Decrypt failed: %v", err)
	}
	if !bytes.Equal(plaintext, msg) {
		t.Error("client-to-server payload mismatch")
	}

	// Server to client
	reply := []byte("and the reply")
	ciphertext, seq, err = server.Encrypt(reply)
	if err != nil {
		t.Fatalf("server Encrypt failed: %v", err)
	}
	plaintext, err = client.Decrypt(ciphertext, seq)
	if err != nil {
		t.Fatalf("client Decrypt failed: %v", err)
	}
	if !bytes.Equal(plaintext, reply) {
		t.Error("server-to-client payload mismatch")
	}
}

func TestHandshakeSessionIDsDiffer(t *testing.T) {
	a1, a2 := runHandshake(t, protocol.PreferredKEMProfile())
	defer a1.Close()
	defer a2.Close()
	b1, b2 := runHandshake(t, protocol.PreferredKEMProfile())
	defer b1.Close()
	defer b2.Close()

	if bytes.Equal(a1.ID, b1.ID) {
		t.Error("independent handshakes produced the same session ID")
	}
}

// tamperConn flips a public-key byte in the first message written
// through it.
type tamperConn struct {
	net.Conn
	tampered bool
}

func (c *tamperConn) Write(b []byte) (int, error) {
	// ClientHello public key starts after header(5) + version(2) +
	// random(32) + profile(1)
	const pkOffset = protocol.HeaderSize + 35
	if !c.tampered && len(b) > pkOffset {
		c.tampered = true
		mutated := make([]byte, len(b))
		copy(mutated, b)
		mutated[pkOffset] ^= 0x01
		return c.Conn.Write(mutated)
	}
	return c.Conn.Write(b)
}

func TestHandshakeDetectsTamperedClientHello(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	client, err := NewSession(RoleClient, protocol.PreferredKEMProfile())
	if err != nil {
		t.Fatalf("client NewSession failed: %v", err)
	}
	defer client.Close()
	server, err := NewSession(RoleServer, protocol.PreferredKEMProfile())
	if err != nil {
		t.Fatalf("server NewSession failed: %v", err)
	}
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	serverErr := make(chan error, 1)
	go func() {
		err := ResponderHandshake(ctx, server, serverConn)
		if err != nil {
			// Unblock the client's pending read
			serverConn.Close()
		}
		serverErr <- err
	}()

	// The flipped public-key byte changes the key the server
	// encapsulates against: either the key fails to parse or the
	// shared secrets diverge and Finished verification fails.
	clientErr := InitiatorHandshake(ctx, client, &tamperConn{Conn: clientConn})
	srvErr := <-serverErr

	if clientErr == nil && srvErr == nil {
		t.Fatal("handshake succeeded despite tampered ClientHello")
	}
	if client.State() == SessionStateEstablished && server.State() == SessionStateEstablished {
		t.Error("both sessions established despite tampering")
	}
}

func TestHandshakeContextCancellation(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	client, err := NewSession(RoleClient, protocol.PreferredKEMProfile())
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// No responder; the cancelled context must surface once the
	// initiator checks it. Drain the hello so the write completes.
	go func() {
		buf := make([]byte, 16384)
		serverConn.Read(buf) //nolint:errcheck
	}()

	if err := InitiatorHandshake(ctx, client, clientConn); err == nil {
		t.Error("InitiatorHandshake succeeded with cancelled context")
	}
}

func TestSelectCipherSuite(t *testing.T) {
	local := protocol.SupportedCipherSuites()

	suite, err := selectCipherSuite(local, []constants.CipherSuite{constants.CipherSuiteAsconAEAD128})
	if err != nil {
		t.Fatalf("selectCipherSuite failed: %v", err)
	}
	if suite != constants.CipherSuiteAsconAEAD128 {
		t.Errorf("selected %v, want Ascon-AEAD128", suite)
	}

	if _, err := selectCipherSuite(local, []constants.CipherSuite{constants.CipherSuite(0xFFFF)}); !aerrors.Is(err, aerrors.ErrUnsupportedSuite) {
		t.Errorf("error = %v, want ErrUnsupportedSuite", err)
	}

	if _, err := selectCipherSuite(local, nil); !aerrors.Is(err, aerrors.ErrUnsupportedSuite) {
		t.Errorf("error = %v, want ErrUnsupportedSuite", err)
	}

	// A server restricted to one suite ignores the client's broader
	// offer ordering.
	restricted := []constants.CipherSuite{constants.CipherSuiteAsconAEAD128}
	suite, err = selectCipherSuite(restricted, local)
	if err != nil {
		t.Fatalf("selectCipherSuite failed: %v", err)
	}
	if suite != constants.CipherSuiteAsconAEAD128 {
		t.Errorf("selected %v, want Ascon-AEAD128", suite)
	}
}
