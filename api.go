// Package spantree assembles completed trace spans into a hierarchical forest.
//
// Spans may complete in any order: a child can be reported before its parent,
// siblings can interleave, and many goroutines can report at once. The Builder
// reconciles all of that into one consistent forest.
//
// Core Components:
//   - Builder: thread-safe, order-independent forest assembly.
//   - Exporter: stateless transform of a Forest into JSON.
//   - Tracer: starts and finishes spans, reporting each completion once.
//   - Collector: buffered, non-blocking ingestion into a Builder.
//
// Basic Usage:
//
//	builder := spantree.NewBuilder()
//	tracer := spantree.New()
//	defer tracer.Close()
//	builder.Attach(tracer)
//
//	ctx, root := tracer.StartSpan(ctx, "RootMethod")
//	_, child := tracer.StartSpan(ctx, "Method1")
//	child.Finish()
//	root.Finish()
//
//	out, err := spantree.NewExporter().Marshal(builder.Snapshot())
//
// Placeholders:
//
// When a span names a parent the builder has not seen yet, an empty
// placeholder node is created for that parent. The parent's own completion
// later fills in the name and duration without disturbing its children.
//
// Thread Safety:
//
// Builder, Tracer, Collector and ActiveSpan are safe for concurrent use.
// Node and Forest values are copies and may be read freely.
package spantree

// Key represents a span operation name.
type Key = string

// Tag represents a span tag key.
type Tag = string
