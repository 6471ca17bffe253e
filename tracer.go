package spantree

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/clockz"
)

// SpanHandler is called when a span completes.
type SpanHandler func(span Span)

type handlerEntry struct {
	handler SpanHandler
	id      uint64
	async   bool
}

// Tracer starts spans and reports each one to its handlers when it finishes.
// Safe for concurrent use by multiple goroutines.
//
//nolint:govet // Field order optimized for functionality over memory
type Tracer struct {
	handlers     []handlerEntry
	panicHook    func(handlerID uint64, r interface{})
	workers      *workerPool
	spanIDs      *idPool
	idFactory    func() string
	clock        clockz.Clock
	handlersLock sync.RWMutex
	idPoolOnce   sync.Once
	nextID       atomic.Uint64
	droppedSpans atomic.Uint64
}

// New creates a new tracer using the real clock.
func New() *Tracer {
	return &Tracer{
		handlers: make([]handlerEntry, 0),
		clock:    clockz.RealClock,
	}
}

// WithClock returns a new tracer with the specified clock.
// Enables clock injection for deterministic durations in tests.
func (*Tracer) WithClock(clock clockz.Clock) *Tracer {
	return &Tracer{
		handlers: make([]handlerEntry, 0),
		clock:    clock,
	}
}

// WithIDFactory replaces the span id generator. Must be called before the
// first span is started.
func (t *Tracer) WithIDFactory(factory func() string) *Tracer {
	t.idFactory = factory
	return t
}

func (t *Tracer) ensureIDPool() {
	t.idPoolOnce.Do(func() {
		t.spanIDs = newIDPool(runtime.NumCPU()*64, t.idFactory)
	})
}

// OnSpanComplete registers a synchronous handler called when spans complete.
func (t *Tracer) OnSpanComplete(handler SpanHandler) uint64 {
	return t.registerHandler(handler, false)
}

// OnSpanCompleteAsync registers an asynchronous handler called when spans complete.
// Async handlers run on the worker pool when one is enabled.
func (t *Tracer) OnSpanCompleteAsync(handler SpanHandler) uint64 {
	return t.registerHandler(handler, true)
}

func (t *Tracer) registerHandler(handler SpanHandler, async bool) uint64 {
	if handler == nil {
		return 0
	}

	id := t.nextID.Add(1)

	t.handlersLock.Lock()
	defer t.handlersLock.Unlock()

	t.handlers = append(t.handlers, handlerEntry{
		id:      id,
		handler: handler,
		async:   async,
	})

	return id
}

// RemoveHandler removes a handler by ID.
func (t *Tracer) RemoveHandler(id uint64) {
	t.handlersLock.Lock()
	defer t.handlersLock.Unlock()

	// Preserve order
	for i, h := range t.handlers {
		if h.id == id {
			copy(t.handlers[i:], t.handlers[i+1:])
			t.handlers = t.handlers[:len(t.handlers)-1]
			return
		}
	}
}

// HasHandlers reports whether any completion handler is registered.
func (t *Tracer) HasHandlers() bool {
	t.handlersLock.RLock()
	defer t.handlersLock.RUnlock()
	return len(t.handlers) > 0
}

// SetPanicHook sets a function to be called when a handler panics.
func (t *Tracer) SetPanicHook(hook func(handlerID uint64, r interface{})) {
	t.handlersLock.Lock()
	defer t.handlersLock.Unlock()
	t.panicHook = hook
}

// StartSpan starts a span and returns a context carrying it.
// If ctx already carries a span, the new span is its child.
func (t *Tracer) StartSpan(ctx context.Context, operation Key) (context.Context, *ActiveSpan) {
	if ctx == nil {
		ctx = context.Background()
	}

	t.ensureIDPool()
	span := &Span{
		SpanID: t.spanIDs.get(),
		Name:   operation,
	}
	if parent := FromContext(ctx); parent != nil {
		span.ParentID = parent.SpanID()
	}

	active := &ActiveSpan{
		start:  t.clock.Now(),
		span:   span,
		tracer: t,
	}
	return active.Context(ctx), active
}

// Trace runs fn inside a span named operation. The span finishes exactly
// once on every exit path: normal return, error return, or panic. A returned
// error is recorded under TagError; a panic is recorded under TagPanic and
// re-raised after the span finishes.
func (t *Tracer) Trace(ctx context.Context, operation Key, fn func(context.Context) error) (err error) {
	ctx, span := t.StartSpan(ctx, operation)
	defer func() {
		if r := recover(); r != nil {
			span.SetTag(TagPanic, fmt.Sprint(r))
			span.Finish()
			panic(r)
		}
		if err != nil {
			span.SetTag(TagError, err.Error())
		}
		span.Finish()
	}()
	return fn(ctx)
}

// collectSpan hands a finished span to every registered handler.
func (t *Tracer) collectSpan(span Span) {
	t.executeHandlers(span)
}

// executeHandlers calls all registered handlers with the completed span.
func (t *Tracer) executeHandlers(span Span) {
	t.handlersLock.RLock()
	if len(t.handlers) == 0 {
		t.handlersLock.RUnlock()
		return
	}

	handlers := make([]handlerEntry, len(t.handlers))
	copy(handlers, t.handlers)
	workers := t.workers
	t.handlersLock.RUnlock()

	for _, h := range handlers {
		if !h.async {
			t.safeCall(h, span)
			continue
		}
		// Each async handler gets its own copy of the tags.
		entry, own := h, span.clone()
		if workers != nil {
			workers.submit(func() {
				t.safeCall(entry, own)
			})
		} else {
			go t.safeCall(entry, own)
		}
	}
}

func (t *Tracer) safeCall(entry handlerEntry, span Span) {
	defer func() {
		if r := recover(); r != nil {
			t.handlersLock.RLock()
			hook := t.panicHook
			t.handlersLock.RUnlock()
			if hook != nil {
				hook(entry.id, r)
			}
		}
	}()
	entry.handler(span)
}

// EnableWorkerPool creates a bounded worker pool for async handlers.
func (t *Tracer) EnableWorkerPool(workers, queueSize int) error {
	if workers <= 0 {
		return errors.New("workers must be > 0")
	}
	if queueSize <= 0 {
		return errors.New("queueSize must be > 0")
	}

	t.handlersLock.Lock()
	defer t.handlersLock.Unlock()

	if t.workers != nil {
		return errors.New("worker pool already enabled")
	}

	pool := &workerPool{
		tasks:   make(chan func(), queueSize),
		stop:    make(chan struct{}),
		dropped: &t.droppedSpans,
	}
	pool.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go pool.run()
	}
	t.workers = pool

	return nil
}

// DroppedSpans returns the number of spans dropped due to full worker queue.
func (t *Tracer) DroppedSpans() uint64 {
	return t.droppedSpans.Load()
}

// Close shuts down the tracer gracefully and cleans up resources.
// Queued async work is drained before Close returns.
func (t *Tracer) Close() {
	t.handlersLock.Lock()
	t.handlers = nil
	workers := t.workers
	t.workers = nil
	t.handlersLock.Unlock()

	if workers != nil {
		workers.shutdown()
	}
	if t.spanIDs != nil {
		t.spanIDs.close()
	}
}

// workerPool manages a fixed number of workers for processing async handlers.
//
//nolint:govet // Field order optimized for functionality over memory
type workerPool struct {
	tasks   chan func()
	stop    chan struct{}
	dropped *atomic.Uint64
	wg      sync.WaitGroup
}

func (w *workerPool) run() {
	defer w.wg.Done()
	for {
		select {
		case task := <-w.tasks:
			task()
		case <-w.stop:
			// Drain what was queued before shutdown.
			for {
				select {
				case task := <-w.tasks:
					task()
				default:
					return
				}
			}
		}
	}
}

func (w *workerPool) submit(task func()) {
	select {
	case w.tasks <- task:
	default:
		w.dropped.Add(1)
	}
}

func (w *workerPool) shutdown() {
	close(w.stop)
	w.wg.Wait()
}
