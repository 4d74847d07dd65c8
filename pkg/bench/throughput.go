package bench

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/lightpq/asconlink/internal/constants"
	aerrors "github.com/lightpq/asconlink/internal/errors"
	"github.com/lightpq/asconlink/pkg/link"
)

// ThroughputResult summarizes an echo throughput run.
type ThroughputResult struct {
	Duration   time.Duration
	ChunkSize  int
	RoundTrips uint64
	Bytes      uint64
	MBPerSec   float64
	RTTMean    time.Duration
}

func (r ThroughputResult) String() string {
	return fmt.Sprintf("echo throughput: %d round trips, %d bytes in %s (%.2f MB/s, mean rtt %s)",
		r.RoundTrips, r.Bytes, r.Duration.Round(time.Millisecond), r.MBPerSec, r.RTTMean)
}

// Throughput drives an encrypted echo loop over in-memory pipes for
// the given duration: the client sends chunkSize payloads, the peer
// echoes each back, and the result counts bytes moved in both
// directions.
func Throughput(p constants.KEMProfile, duration time.Duration, chunkSize int) (ThroughputResult, error) {
	result := ThroughputResult{Duration: duration, ChunkSize: chunkSize}
	if duration <= 0 {
		duration = time.Second
		result.Duration = duration
	}
	if chunkSize <= 0 || chunkSize > constants.MaxPlaintextSize {
		return result, fmt.Errorf("bench: invalid chunk size %d", chunkSize)
	}

	cfg := link.DefaultConfig()
	cfg.Profile = p

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	serverReady := make(chan error, 1)
	go func() {
		srv, err := link.Server(context.Background(), serverConn, cfg)
		if err != nil {
			serverReady <- err
			return
		}
		serverReady <- nil
		defer srv.Close()
		for {
			payload, err := srv.Receive()
			if err != nil {
				return
			}
			if err := srv.Send(payload); err != nil {
				return
			}
		}
	}()

	cli, err := link.Client(context.Background(), clientConn, cfg)
	if err != nil {
		return result, fmt.Errorf("bench: handshake: %w", err)
	}
	defer cli.Close()
	if err := <-serverReady; err != nil {
		return result, fmt.Errorf("bench: server handshake: %w", err)
	}

	chunk := make([]byte, chunkSize)
	deadline := time.Now().Add(duration)
	start := time.Now()
	var rttTotal time.Duration

	for time.Now().Before(deadline) {
		sent := time.Now()
		if err := cli.Send(chunk); err != nil {
			if aerrors.Is(err, aerrors.ErrSessionExpired) {
				break
			}
			return result, fmt.Errorf("bench: send: %w", err)
		}
		reply, err := cli.Receive()
		if err != nil {
			return result, fmt.Errorf("bench: receive: %w", err)
		}
		rttTotal += time.Since(sent)
		result.RoundTrips++
		result.Bytes += uint64(chunkSize + len(reply))
	}

	elapsed := time.Since(start)
	result.Duration = elapsed
	if elapsed > 0 {
		result.MBPerSec = float64(result.Bytes) / elapsed.Seconds() / (1 << 20)
	}
	if result.RoundTrips > 0 {
		result.RTTMean = rttTotal / time.Duration(result.RoundTrips)
	}
	return result, nil
}
