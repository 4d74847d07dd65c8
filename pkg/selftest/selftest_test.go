package selftest

import (
	"testing"

	"github.com/lightpq/asconlink/pkg/metrics"
	"github.com/lightpq/asconlink/pkg/profile"
	"github.com/lightpq/asconlink/pkg/protocol"
)

func TestKEMRoundTrip(t *testing.T) {
	for _, p := range protocol.SupportedKEMProfiles() {
		t.Run(p.String(), func(t *testing.T) {
			if err := KEMRoundTrip(p, metrics.NullLogger()); err != nil {
				t.Fatalf("KEMRoundTrip() error = %v", err)
			}
		})
	}
}

func TestHandshakeSimulation(t *testing.T) {
	for _, p := range protocol.SupportedKEMProfiles() {
		t.Run(p.String(), func(t *testing.T) {
			if err := HandshakeSimulation(p, metrics.NullLogger()); err != nil {
				t.Fatalf("HandshakeSimulation() error = %v", err)
			}
		})
	}
}

func TestAsconPrimitives(t *testing.T) {
	if err := AsconPrimitives(metrics.NullLogger()); err != nil {
		t.Fatalf("AsconPrimitives() error = %v", err)
	}
}

func TestCompat(t *testing.T) {
	if err := Compat(profile.Constrained(), metrics.NullLogger()); err != nil {
		t.Fatalf("Compat() error = %v", err)
	}
}

func TestAll(t *testing.T) {
	if err := All(protocol.SupportedKEMProfiles(), metrics.NullLogger()); err != nil {
		t.Fatalf("All() error = %v", err)
	}
}

func TestNilLoggerDefaults(t *testing.T) {
	prev := metrics.GetLogger()
	metrics.SetLogger(metrics.NullLogger())
	defer metrics.SetLogger(prev)

	if err := AsconPrimitives(nil); err != nil {
		t.Fatalf("AsconPrimitives(nil) error = %v", err)
	}
}
