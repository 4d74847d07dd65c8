package bench

import (
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/lightpq/asconlink/internal/constants"
)

// Options configures a full benchmark run.
type Options struct {
	Profile    constants.KEMProfile
	Iterations int
	// EchoDuration for the throughput loop. Zero skips it.
	EchoDuration time.Duration
	// ChunkSize for echo payloads.
	ChunkSize int
}

// DefaultOptions returns a short full run.
func DefaultOptions(p constants.KEMProfile) Options {
	return Options{
		Profile:      p,
		Iterations:   DefaultIterations,
		EchoDuration: 2 * time.Second,
		ChunkSize:    1024,
	}
}

// Report holds the results of a full run.
type Report struct {
	Profile   constants.KEMProfile
	KEM       []OpStats
	Handshake OpStats
	KDF       []KDFComparison
	Echo      ThroughputResult
	EchoRan   bool
	Resources ResourceSample
	WallClock time.Duration
}

// Run executes every benchmark suite and collects a report.
func Run(opts Options) (*Report, error) {
	start := time.Now()
	report := &Report{Profile: opts.Profile}

	kem, err := KEM(opts.Profile, opts.Iterations)
	if err != nil {
		return nil, err
	}
	report.KEM = kem

	hs, err := Handshake(opts.Profile, opts.Iterations)
	if err != nil {
		return nil, err
	}
	report.Handshake = hs

	kdf, err := KeyDerivation(opts.Iterations)
	if err != nil {
		return nil, err
	}
	report.KDF = kdf

	if opts.EchoDuration > 0 {
		echo, err := Throughput(opts.Profile, opts.EchoDuration, opts.ChunkSize)
		if err != nil {
			return nil, err
		}
		report.Echo = echo
		report.EchoRan = true
	}

	report.Resources = SampleResources()
	report.WallClock = time.Since(start)
	return report, nil
}

// Write renders the report in the CLI's plain-text format.
func (r *Report) Write(w io.Writer) {
	fmt.Fprintf(w, "=== asconlink benchmark (%s, %s/%s) ===\n\n",
		r.Profile, runtime.GOOS, runtime.GOARCH)

	fmt.Fprintf(w, "[KEM]\n")
	for _, s := range r.KEM {
		fmt.Fprintf(w, "  %s\n", s)
	}
	fmt.Fprintf(w, "\n[Handshake]\n  %s\n", r.Handshake)

	fmt.Fprintf(w, "\n[Key Derivation]\n")
	for _, c := range r.KDF {
		fmt.Fprintf(w, "  %-12s out=%-4d %s\n", c.Algorithm, c.OutputLen, c.Stats)
	}

	if r.EchoRan {
		fmt.Fprintf(w, "\n[Echo]\n  %s\n", r.Echo)
	}

	fmt.Fprintf(w, "\n[Resources]\n  %s\n", r.Resources)
	fmt.Fprintf(w, "\ncompleted in %s\n", r.WallClock.Round(time.Millisecond))
}
