package metrics

import (
	"strings"
	"testing"
	"time"
)

func TestCollectorSessionCounters(t *testing.T) {
	c := NewCollector(nil)

	c.SessionStarted()
	c.SessionStarted()
	c.SessionEnded()
	c.SessionFailed()
	c.SessionExpired()

	snap := c.Snapshot()
	if snap.SessionsActive != 1 {
		t.Errorf("SessionsActive = %d, want 1", snap.SessionsActive)
	}
	if snap.SessionsTotal != 2 {
		t.Errorf("SessionsTotal = %d, want 2", snap.SessionsTotal)
	}
	if snap.SessionsFailed != 1 {
		t.Errorf("SessionsFailed = %d, want 1", snap.SessionsFailed)
	}
	if snap.SessionsExpired != 1 {
		t.Errorf("SessionsExpired = %d, want 1", snap.SessionsExpired)
	}
}

func TestCollectorSessionEndedFloor(t *testing.T) {
	c := NewCollector(nil)
	// Ending with no active sessions must not underflow
	c.SessionEnded()
	if got := c.Snapshot().SessionsActive; got != 0 {
		t.Errorf("SessionsActive = %d, want 0", got)
	}
}

func TestCollectorTrafficAndSecurity(t *testing.T) {
	c := NewCollector(Labels{"test": "yes"})

	c.RecordBytesSent(100)
	c.RecordBytesReceived(200)
	c.RecordPacketSent()
	c.RecordPacketReceived()
	c.RecordReplayBlocked()
	c.RecordAuthFailure()
	c.RecordKEMKeygen()
	c.RecordKEMEncapsulation()
	c.RecordKEMDecapsulation()
	c.RecordEncryptError()
	c.RecordDecryptError()
	c.RecordProtocolError()

	snap := c.Snapshot()
	if snap.BytesSent != 100 || snap.BytesReceived != 200 {
		t.Errorf("bytes = %d/%d, want 100/200", snap.BytesSent, snap.BytesReceived)
	}
	if snap.ReplaysBlocked != 1 || snap.AuthFailures != 1 {
		t.Error("security counters not recorded")
	}
	if snap.KEMKeygens != 1 || snap.KEMEncapsulations != 1 || snap.KEMDecapsulations != 1 {
		t.Error("KEM counters not recorded")
	}
	if snap.EncryptErrors != 1 || snap.DecryptErrors != 1 || snap.ProtocolErrors != 1 {
		t.Error("error counters not recorded")
	}
	if snap.Labels["test"] != "yes" {
		t.Error("labels not carried into snapshot")
	}
}

func TestCollectorLatencyHistograms(t *testing.T) {
	c := NewCollector(nil)

	c.RecordHandshakeLatency(20 * time.Millisecond)
	c.RecordEncryptLatency(30 * time.Microsecond)
	c.RecordDecryptLatency(40 * time.Microsecond)

	snap := c.Snapshot()
	if snap.HandshakeLatency.Count != 1 {
		t.Error("handshake latency not observed")
	}
	if snap.EncryptLatency.Count != 1 || snap.DecryptLatency.Count != 1 {
		t.Error("crypt latency not observed")
	}
}

func TestCollectorReset(t *testing.T) {
	c := NewCollector(nil)
	c.SessionStarted()
	c.RecordBytesSent(10)
	c.Reset()

	snap := c.Snapshot()
	if snap.SessionsTotal != 0 || snap.BytesSent != 0 {
		t.Error("Reset did not clear counters")
	}
}

func TestPrometheusExport(t *testing.T) {
	c := NewCollector(Labels{"instance": "t1"})
	c.SessionStarted()
	c.RecordBytesSent(64)
	c.RecordHandshakeLatency(12 * time.Millisecond)

	var sb strings.Builder
	NewPrometheusExporter(c, "asconlink").WriteMetrics(&sb)
	out := sb.String()

	for _, want := range []string{
		"# HELP asconlink_sessions_active",
		"# TYPE asconlink_sessions_active gauge",
		`asconlink_sessions_active{instance="t1"} 1`,
		`asconlink_bytes_sent_total{instance="t1"} 64`,
		"asconlink_handshake_duration_milliseconds_bucket",
		`le="+Inf"`,
		"asconlink_kem_keygens_total",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %q", want)
		}
	}
}

func TestPrometheusLabelEscaping(t *testing.T) {
	c := NewCollector(Labels{"path": `C:\x"y` + "\n"})

	var sb strings.Builder
	NewPrometheusExporter(c, "asconlink").WriteMetrics(&sb)

	if !strings.Contains(sb.String(), `path="C:\\x\"y\n"`) {
		t.Error("label value not escaped")
	}
}
