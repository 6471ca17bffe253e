package spantree

import (
	"context"
	"sync"
	"time"
)

// spanKeyType is a private type for context keys to avoid collisions.
type spanKeyType string

const (
	spanKey spanKeyType = "spantree"
)

// Well-known tags set by Tracer.Trace.
const (
	TagError Tag = "error"
	TagPanic Tag = "panic"
)

// Span is the completion record of one unit of work, delivered to handlers
// exactly once when the work finishes.
//
//nolint:govet // Field alignment optimized for JSON serialization order
type Span struct {
	Tags     map[Tag]string `json:"tags,omitempty"`
	SpanID   string         `json:"span_id"`
	ParentID string         `json:"parent_id,omitempty"`
	Name     string         `json:"name"`
	Duration time.Duration  `json:"duration"`
}

// ActiveSpan is a span that has started and not yet finished.
// Safe for concurrent use by multiple goroutines.
type ActiveSpan struct {
	start    time.Time
	span     *Span
	tracer   *Tracer
	mu       sync.Mutex // Protects span and finished.
	finished bool
}

// SetTag attaches a key/value annotation.
// No-op once the span has finished.
func (a *ActiveSpan) SetTag(key Tag, value string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finished {
		return
	}
	if a.span.Tags == nil {
		a.span.Tags = make(map[Tag]string)
	}
	a.span.Tags[key] = value
}

// GetTag retrieves a tag value by key.
func (a *ActiveSpan) GetTag(key Tag) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	value, ok := a.span.Tags[key]
	return value, ok
}

// Finish stops the span and reports it to the tracer's handlers.
// Only the first call reports; later calls are no-ops.
func (a *ActiveSpan) Finish() {
	a.mu.Lock()
	if a.finished {
		a.mu.Unlock()
		return
	}
	a.finished = true

	elapsed := a.tracer.clock.Now().Sub(a.start)
	if elapsed < 0 {
		elapsed = 0
	}
	a.span.Duration = elapsed
	completed := a.span.clone()
	a.mu.Unlock()

	a.tracer.collectSpan(completed)
}

// Finished reports whether Finish has been called.
func (a *ActiveSpan) Finished() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.finished
}

// SpanID returns the id of this span.
func (a *ActiveSpan) SpanID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.span.SpanID
}

// ParentID returns the id of the enclosing span, or "" for a root.
func (a *ActiveSpan) ParentID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.span.ParentID
}

// Context returns a copy of parent carrying this span, so spans started
// from it become its children.
func (a *ActiveSpan) Context(parent context.Context) context.Context {
	return context.WithValue(parent, spanKey, a)
}

// FromContext returns the span carried by ctx, or nil.
func FromContext(ctx context.Context) *ActiveSpan {
	if ctx == nil {
		return nil
	}
	a, _ := ctx.Value(spanKey).(*ActiveSpan)
	return a
}

func (s *Span) clone() Span {
	out := *s
	if s.Tags != nil {
		out.Tags = make(map[Tag]string, len(s.Tags))
		for k, v := range s.Tags {
			out.Tags[k] = v
		}
	}
	return out
}
