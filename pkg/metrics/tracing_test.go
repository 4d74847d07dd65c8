package metrics

import (
	"context"
	"errors"
	"testing"
)

func TestSimpleTracerRecordsSpans(t *testing.T) {
	tr := NewSimpleTracer()

	ctx, end := tr.StartSpan(context.Background(), SpanHandshakeClient, WithSpanKind(SpanKindClient))
	_, endChild := tr.StartSpan(ctx, SpanEncrypt)
	endChild(nil)
	end(errors.New("boom"))

	spans := tr.Spans()
	if len(spans) != 2 {
		t.Fatalf("recorded %d spans, want 2", len(spans))
	}

	// Child ends first
	child, parent := spans[0], spans[1]
	if child.Name != SpanEncrypt {
		t.Errorf("child span name = %q", child.Name)
	}
	if child.ParentID != parent.SpanID {
		t.Error("child span not linked to parent")
	}
	if child.TraceID != parent.TraceID {
		t.Error("child span has different trace ID")
	}
	if parent.Error == nil {
		t.Error("parent span error not recorded")
	}
	if parent.Kind != SpanKindClient {
		t.Errorf("parent kind = %v, want client", parent.Kind)
	}
}

func TestSimpleTracerReset(t *testing.T) {
	tr := NewSimpleTracer()
	_, end := tr.StartSpan(context.Background(), "x")
	end(nil)

	tr.Reset()
	if len(tr.Spans()) != 0 {
		t.Error("Reset did not clear spans")
	}
}

func TestNoOpTracer(t *testing.T) {
	var tr NoOpTracer
	ctx := context.Background()
	got, end := tr.StartSpan(ctx, "anything")
	if got != ctx {
		t.Error("NoOpTracer changed the context")
	}
	end(nil) // must not panic
}

func TestGlobalTracer(t *testing.T) {
	old := GetTracer()
	defer SetTracer(old)

	tr := NewSimpleTracer()
	SetTracer(tr)

	_, end := StartSpan(context.Background(), "global-span")
	end(nil)

	if len(tr.Spans()) != 1 {
		t.Error("global StartSpan did not use the configured tracer")
	}
}
