// Package otelspan feeds spans finished by the OpenTelemetry SDK into a
// spantree.Builder.
//
// Register the exporter with a syncer so spans arrive as they end:
//
//	builder := spantree.NewBuilder()
//	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(otelspan.NewExporter(builder)))
//
// Only the span id, name, parent span id and duration are carried over.
package otelspan

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/zoobzio/spantree"
)

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger used when a span is rejected.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Exporter implements sdktrace.SpanExporter on top of a Builder.
type Exporter struct {
	builder *spantree.Builder
	logger  *slog.Logger
	stopped atomic.Bool
}

var _ sdktrace.SpanExporter = (*Exporter)(nil)

// NewExporter creates an exporter writing into builder.
func NewExporter(builder *spantree.Builder, opts ...Option) *Exporter {
	e := &Exporter{
		builder: builder,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExportSpans adds every span to the builder. Spans the builder rejects are
// skipped; their errors are joined into the result.
func (e *Exporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	if e.stopped.Load() {
		return nil
	}

	var errs []error
	for _, s := range spans {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}

		id, name, parentID, duration := Convert(s)
		if _, err := e.builder.AddNode(id, name, parentID, duration); err != nil {
			e.logger.Warn("otel span rejected", "id", id, "name", name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Shutdown stops ingestion; later ExportSpans calls do nothing.
func (e *Exporter) Shutdown(context.Context) error {
	e.stopped.Store(true)
	return nil
}
