package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/lightpq/asconlink/internal/constants"
	"github.com/lightpq/asconlink/pkg/metrics"
	"github.com/lightpq/asconlink/pkg/profile"
)

// setupObservability configures the global logger, tracer, and
// collector from CLI flags and returns them for direct wiring.
func setupObservability(logLevel, logFormat, tracing string) (*metrics.Collector, *metrics.Logger, error) {
	logger := metrics.NewLogger(
		metrics.WithOutput(os.Stderr),
		metrics.WithLevel(metrics.ParseLevel(logLevel)),
		metrics.WithFormat(metrics.ParseFormat(logFormat)),
		metrics.WithFields(metrics.Fields{"app": "asconlink"}),
	)
	metrics.SetLogger(logger)

	switch strings.ToLower(tracing) {
	case "none":
		metrics.SetTracer(metrics.NoOpTracer{})
	case "simple":
		metrics.SetTracer(metrics.NewSimpleTracer())
	case "otel":
		if !metrics.OTelEnabled() {
			return nil, nil, fmt.Errorf("otel tracing not enabled (build with -tags otel)")
		}
		metrics.SetTracer(metrics.NewOTelTracer("asconlink"))
	default:
		return nil, nil, fmt.Errorf("invalid tracing mode: %s (use none, simple, or otel)", tracing)
	}

	collector := metrics.NewCollector(metrics.Labels{
		"service": "asconlink",
	})
	metrics.SetGlobal(collector)

	return collector, logger, nil
}

// selectProfile resolves a profile name from the CLI.
func selectProfile(name string) (*profile.Profile, error) {
	var p *profile.Profile
	switch strings.ToLower(name) {
	case "default", "":
		p = profile.Default()
	case "constrained":
		p = profile.Constrained()
	default:
		return nil, fmt.Errorf("unknown profile: %s (use default or constrained)", name)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// applyCipher narrows a profile to a single named cipher suite. An
// empty name keeps the profile's own suite list.
func applyCipher(p *profile.Profile, name string) error {
	switch strings.ToLower(name) {
	case "":
		return nil
	case "ascon":
		p.CipherSuites = []constants.CipherSuite{constants.CipherSuiteAsconAEAD128}
	case "chacha20":
		p.CipherSuites = []constants.CipherSuite{constants.CipherSuiteChaCha20Poly1305}
	default:
		return fmt.Errorf("unknown cipher: %s (use ascon or chacha20)", name)
	}
	return p.Validate()
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
