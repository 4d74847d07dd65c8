package integration

import (
	"context"
	"testing"
	"time"

	"github.com/lightpq/asconlink/pkg/link"
)

func TestConnectionRateLimit(t *testing.T) {
	cfg := link.DefaultConfig()
	cfg.Limiter = link.NewIPRateLimiter(1)

	ln, err := link.Listen("127.0.0.1:0", cfg)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer func() { _ = ln.Close() }()

	// Accept connections in background; rejected connections are
	// closed inside Accept, so the loop just keeps going.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		for {
			conn, err := ln.Accept(ctx)
			if err != nil {
				return
			}
			go func() {
				time.Sleep(100 * time.Millisecond)
				_ = conn.Close()
			}()
		}
	}()

	addr := ln.Addr().String()

	// First connection should succeed.
	conn1, err := link.Dial(addr)
	if err != nil {
		t.Fatalf("First connection failed: %v", err)
	}
	defer func() { _ = conn1.Close() }()

	// Second connection from the same IP should be rejected: the
	// listener closes the raw conn before any handshake, so Dial's
	// handshake fails.
	conn2, err := link.Dial(addr)
	if err == nil {
		if _, errRead := conn2.Receive(); errRead == nil {
			t.Error("Second connection should have been closed/rejected")
		}
		_ = conn2.Close()
	} else {
		t.Logf("Second connection rejected as expected: %v", err)
	}

	// Release the slot and try again.
	_ = conn1.Close()
	time.Sleep(300 * time.Millisecond)

	conn3, err := link.Dial(addr)
	if err != nil {
		t.Errorf("Third connection failed after release: %v", err)
	}
	if conn3 != nil {
		_ = conn3.Close()
	}
}

func TestHandshakeRateLimit(t *testing.T) {
	cfg := link.DefaultConfig()
	cfg.HandshakeLimiter = link.NewHandshakeLimiter(1.0, 1)

	ln, err := link.Listen("127.0.0.1:0", cfg)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer func() { _ = ln.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		for {
			conn, err := ln.Accept(ctx)
			if err != nil {
				return
			}
			go func() {
				time.Sleep(50 * time.Millisecond)
				_ = conn.Close()
			}()
		}
	}()

	addr := ln.Addr().String()

	// First handshake consumes the burst token.
	conn1, err := link.Dial(addr)
	if err != nil {
		t.Fatalf("First handshake failed: %v", err)
	}
	defer func() { _ = conn1.Close() }()

	// Second handshake immediately should be rate limited.
	conn2, err := link.Dial(addr)
	if err == nil {
		t.Error("Second handshake should have been rate limited")
		_ = conn2.Close()
	} else {
		t.Logf("Second handshake rejected as expected: %v", err)
	}

	// Wait for the bucket to refill.
	time.Sleep(1100 * time.Millisecond)

	conn3, err := link.Dial(addr)
	if err != nil {
		t.Errorf("Third handshake failed after refill: %v", err)
	}
	if conn3 != nil {
		_ = conn3.Close()
	}
}
