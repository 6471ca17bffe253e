package otelspan

import (
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Convert extracts the builder's inputs from an SDK span. The parent id is
// empty when the span has no valid parent. Spans whose end precedes their
// start report a zero duration.
func Convert(s sdktrace.ReadOnlySpan) (id, name, parentID string, duration time.Duration) {
	id = s.SpanContext().SpanID().String()
	name = s.Name()
	if parent := s.Parent(); parent.IsValid() {
		parentID = parent.SpanID().String()
	}
	duration = s.EndTime().Sub(s.StartTime())
	if duration < 0 {
		duration = 0
	}
	return id, name, parentID, duration
}
