package spantree

import (
	"sync"
	"sync/atomic"
)

// Collector buffers completed spans and applies them to a Builder from a
// single background goroutine, so reporting goroutines never wait on the
// builder's lock. Safe for concurrent use by multiple goroutines.
//
//nolint:govet // Field alignment optimized for readability over memory efficiency
type Collector struct {
	builder      *Builder
	spansCh      chan Span
	stopCh       chan struct{}
	done         chan struct{}
	name         string
	droppedCount atomic.Int64
	applied      atomic.Int64
	mu           sync.RWMutex // Held for reading while enqueueing, for writing while closing.
	closed       bool
	syncMode     atomic.Bool // Bypass channel for synchronous collection.
}

// NewCollector creates a collector feeding builder with room for bufferSize
// pending spans.
func NewCollector(name string, bufferSize int, builder *Builder) *Collector {
	c := &Collector{
		builder: builder,
		name:    name,
		spansCh: make(chan Span, bufferSize),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.start()
	return c
}

// Name returns the collector's name.
func (c *Collector) Name() string {
	return c.name
}

func (c *Collector) start() {
	defer close(c.done)

	for {
		select {
		case <-c.stopCh:
			// Drain remaining spans before shutdown.
			for {
				select {
				case span := <-c.spansCh:
					c.apply(span)
				default:
					return
				}
			}
		case span := <-c.spansCh:
			c.apply(span)
		}
	}
}

func (c *Collector) apply(span Span) {
	c.builder.Record(span)
	c.applied.Add(1)
}

// Collect queues a copy of span for the builder without blocking.
// When the buffer is full, or the collector is closed, the span is dropped
// and counted. In sync mode the span is applied before Collect returns.
func (c *Collector) Collect(span *Span) {
	if span == nil {
		c.droppedCount.Add(1)
		return
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		c.droppedCount.Add(1)
		return
	}

	spanCopy := span.clone()
	if c.syncMode.Load() {
		c.apply(spanCopy)
		return
	}

	select {
	case c.spansCh <- spanCopy:
	default:
		c.droppedCount.Add(1)
	}
}

// Handle has the SpanHandler signature so a collector can be registered on a Tracer.
func (c *Collector) Handle(span Span) {
	c.Collect(&span)
}

// Pending returns the number of spans queued but not yet applied.
func (c *Collector) Pending() int {
	return len(c.spansCh)
}

// Applied returns the number of spans handed to the builder.
func (c *Collector) Applied() int64 {
	return c.applied.Load()
}

// DroppedCount returns the total number of spans dropped due to backpressure.
func (c *Collector) DroppedCount() int64 {
	return c.droppedCount.Load()
}

// SetSyncMode enables synchronous collection for testing.
func (c *Collector) SetSyncMode(sync bool) {
	c.syncMode.Store(sync)
}

// Close stops accepting spans, applies everything still queued, and waits
// for the background goroutine to exit. Safe to call more than once.
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		<-c.done
		return
	}
	c.closed = true
	close(c.stopCh)
	c.mu.Unlock()

	<-c.done
}
