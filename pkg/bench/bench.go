// Package bench measures asconlink performance at runtime: KEM
// operation latency, full handshake latency, key-derivation throughput
// of Ascon-XOF against SHAKE-256, echo round-trip throughput, and
// process resource usage. Results come back as printable reports for
// the CLI.
package bench

import (
	"context"
	"fmt"
	"io"
	"net"
	"sort"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/lightpq/asconlink/internal/constants"
	"github.com/lightpq/asconlink/pkg/akem"
	"github.com/lightpq/asconlink/pkg/crypto"
	"github.com/lightpq/asconlink/pkg/link"
)

// DefaultIterations for per-op measurements.
const DefaultIterations = 100

// KDFOutputLengths compared between Ascon-XOF128 and SHAKE-256.
var KDFOutputLengths = []int{16, 32, 64, 128}

// OpStats summarizes per-operation latency over a run.
type OpStats struct {
	Name      string
	Count     int
	Min       time.Duration
	Max       time.Duration
	Mean      time.Duration
	Total     time.Duration
	P95       time.Duration
	OpsPerSec float64
}

func (s OpStats) String() string {
	return fmt.Sprintf("%-24s n=%-5d min=%-10s avg=%-10s p95=%-10s max=%-10s %.1f ops/s",
		s.Name, s.Count, s.Min, s.Mean, s.P95, s.Max, s.OpsPerSec)
}

// measure runs fn n times and summarizes the per-call latency.
func measure(name string, n int, fn func() error) (OpStats, error) {
	stats := OpStats{Name: name, Count: n}
	samples := make([]time.Duration, 0, n)
	for i := 0; i < n; i++ {
		start := time.Now()
		if err := fn(); err != nil {
			return stats, fmt.Errorf("bench: %s iteration %d: %w", name, i, err)
		}
		elapsed := time.Since(start)
		samples = append(samples, elapsed)
		stats.Total += elapsed
		if stats.Min == 0 || elapsed < stats.Min {
			stats.Min = elapsed
		}
		if elapsed > stats.Max {
			stats.Max = elapsed
		}
	}
	if n > 0 {
		stats.Mean = stats.Total / time.Duration(n)
		stats.OpsPerSec = float64(n) / stats.Total.Seconds()
		sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
		idx := (n * 95) / 100
		if idx >= n {
			idx = n - 1
		}
		stats.P95 = samples[idx]
	}
	return stats, nil
}

// KEM measures keygen, encapsulation, and decapsulation latency for
// one parameter set.
func KEM(p constants.KEMProfile, iterations int) ([]OpStats, error) {
	if iterations <= 0 {
		iterations = DefaultIterations
	}

	keygen, err := measure("kem/keygen", iterations, func() error {
		kp, err := akem.GenerateKeyPair(p)
		if err != nil {
			return err
		}
		kp.Zeroize()
		return nil
	})
	if err != nil {
		return nil, err
	}

	kp, err := akem.GenerateKeyPair(p)
	if err != nil {
		return nil, fmt.Errorf("bench: keygen: %w", err)
	}
	defer kp.Zeroize()

	encap, err := measure("kem/encapsulate", iterations, func() error {
		_, ss, err := akem.Encapsulate(kp.PublicKey())
		if err != nil {
			return err
		}
		crypto.Zeroize(ss)
		return nil
	})
	if err != nil {
		return nil, err
	}

	ct, ss, err := akem.Encapsulate(kp.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("bench: encapsulate: %w", err)
	}
	crypto.Zeroize(ss)

	decap, err := measure("kem/decapsulate", iterations, func() error {
		ss, err := akem.Decapsulate(kp, ct)
		if err != nil {
			return err
		}
		crypto.Zeroize(ss)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return []OpStats{keygen, encap, decap}, nil
}

// Handshake measures full link establishment latency over in-memory
// pipes: each iteration runs a complete client/server handshake.
func Handshake(p constants.KEMProfile, iterations int) (OpStats, error) {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	cfg := link.DefaultConfig()
	cfg.Profile = p

	return measure("handshake", iterations, func() error {
		clientConn, serverConn := net.Pipe()
		defer clientConn.Close()
		defer serverConn.Close()

		errCh := make(chan error, 1)
		go func() {
			srv, err := link.Server(context.Background(), serverConn, cfg)
			if err == nil {
				srv.Close()
			}
			errCh <- err
		}()

		cli, err := link.Client(context.Background(), clientConn, cfg)
		if err != nil {
			return err
		}
		cli.Close()
		return <-errCh
	})
}

// KDFComparison holds latency for one XOF at one output length.
type KDFComparison struct {
	Algorithm string
	OutputLen int
	Stats     OpStats
}

// KeyDerivation compares Ascon-XOF128 against SHAKE-256 across the
// standard output lengths.
func KeyDerivation(iterations int) ([]KDFComparison, error) {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	input := crypto.MustSecureRandomBytes(64)

	var results []KDFComparison
	for _, outLen := range KDFOutputLengths {
		outLen := outLen

		ascon, err := measure(fmt.Sprintf("xof/ascon/%d", outLen), iterations, func() error {
			_, err := crypto.AsconXOF128(input, outLen)
			return err
		})
		if err != nil {
			return nil, err
		}
		results = append(results, KDFComparison{Algorithm: "Ascon-XOF128", OutputLen: outLen, Stats: ascon})

		out := make([]byte, outLen)
		shake, err := measure(fmt.Sprintf("xof/shake256/%d", outLen), iterations, func() error {
			h := sha3.NewShake256()
			if _, err := h.Write(input); err != nil {
				return err
			}
			_, err := io.ReadFull(h, out)
			return err
		})
		if err != nil {
			return nil, err
		}
		results = append(results, KDFComparison{Algorithm: "SHAKE-256", OutputLen: outLen, Stats: shake})
	}
	return results, nil
}
