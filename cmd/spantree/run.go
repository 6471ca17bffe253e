package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/zoobzio/clockz"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/zoobzio/spantree"
	"github.com/zoobzio/spantree/otelspan"
)

// step is one child of RootMethod.
type step struct {
	name, key, value string
}

var steps = []step{
	{name: "Method1", key: "param1", value: "value1"},
	{name: "Method2", key: "request1", value: "null"},
}

// run traces the workload, builds the forest and writes it to out.
func run(ctx context.Context, cfg config, out io.Writer, logger *slog.Logger) error {
	format, err := spantree.ParseDurationFormat(cfg.Format)
	if err != nil {
		return err
	}
	lookup, err := spantree.ParseLookup(cfg.Lookup)
	if err != nil {
		return err
	}
	if cfg.Delay < 0 {
		return fmt.Errorf("%w: negative delay %s", spantree.ErrInvalidArgument, cfg.Delay)
	}

	var (
		clock clockz.Clock = clockz.RealClock
		sleep              = wait
	)
	if cfg.Simulate {
		fake := clockz.NewFakeClock()
		clock = fake
		sleep = func(_ context.Context, d time.Duration) error {
			fake.Advance(d)
			return nil
		}
	}

	builder := spantree.NewBuilder(spantree.WithLookup(lookup), spantree.WithLogger(logger))

	switch cfg.Source {
	case "", "native":
		err = traceNative(ctx, builder, clock, cfg.Delay, sleep)
	case "otel":
		err = traceOTel(ctx, builder, clock, cfg.Delay, sleep, logger)
	default:
		return fmt.Errorf("%w: unknown source %q", spantree.ErrInvalidArgument, cfg.Source)
	}
	if err != nil {
		return err
	}

	stats := builder.Stats()
	logger.Info("forest built", "source", cfg.Source, "lookup", lookup, "roots", stats.Roots, "nodes", stats.Nodes)

	return spantree.NewExporter(spantree.WithDurationFormat(format)).Encode(out, builder.Snapshot())
}

// traceNative runs the workload on a spantree Tracer attached to builder.
func traceNative(ctx context.Context, builder *spantree.Builder, clock clockz.Clock, delay time.Duration, sleep func(context.Context, time.Duration) error) error {
	tracer := spantree.New().WithClock(clock)
	defer tracer.Close()
	builder.Attach(tracer)

	return tracer.Trace(ctx, "RootMethod", func(ctx context.Context) error {
		for _, s := range steps {
			err := tracer.Trace(ctx, s.name, func(ctx context.Context) error {
				spantree.FromContext(ctx).SetTag(s.key, s.value)
				return sleep(ctx, delay)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// traceOTel runs the workload on the global OpenTelemetry tracer, exporting
// into builder through otelspan.
func traceOTel(ctx context.Context, builder *spantree.Builder, clock clockz.Clock, delay time.Duration, sleep func(context.Context, time.Duration) error, logger *slog.Logger) error {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(otelspan.NewExporter(builder, otelspan.WithLogger(logger))))
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("tracer provider shutdown", "error", err)
		}
	}()
	otel.SetTracerProvider(tp)
	tracer := otel.Tracer("spantree")

	ctx, root := tracer.Start(ctx, "RootMethod", trace.WithTimestamp(clock.Now()))
	defer func() { root.End(trace.WithTimestamp(clock.Now())) }()

	for _, s := range steps {
		_, span := tracer.Start(ctx, s.name,
			trace.WithTimestamp(clock.Now()),
			trace.WithAttributes(attribute.String(s.key, s.value)),
		)
		err := sleep(ctx, delay)
		span.End(trace.WithTimestamp(clock.Now()))
		if err != nil {
			return err
		}
	}
	return nil
}

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
