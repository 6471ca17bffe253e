package spantree

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Lookup selects how a Builder resolves parent ids.
type Lookup int

const (
	// LookupIndexed resolves ids anywhere in the tree through an id index.
	LookupIndexed Lookup = iota
	// LookupRoots only searches the top-level roots. Parents nested deeper
	// than one level are not found and get a duplicate root placeholder.
	LookupRoots
)

// String returns the flag spelling of the lookup mode.
func (l Lookup) String() string {
	switch l {
	case LookupIndexed:
		return "indexed"
	case LookupRoots:
		return "roots"
	default:
		return "unknown"
	}
}

// ParseLookup maps "indexed" or "roots" to a Lookup.
func ParseLookup(s string) (Lookup, error) {
	switch strings.ToLower(s) {
	case "", "indexed":
		return LookupIndexed, nil
	case "roots":
		return LookupRoots, nil
	default:
		return LookupIndexed, fmt.Errorf("%w: unknown lookup %q", ErrInvalidArgument, s)
	}
}

// Option configures a Builder.
type Option func(*Builder)

// WithLookup sets the parent lookup mode. The default is LookupIndexed.
func WithLookup(l Lookup) Option {
	return func(b *Builder) {
		b.lookup = l
	}
}

// WithLogger sets the logger used for rejected events and placeholders.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithRegisterer registers the builder's metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(b *Builder) {
		b.metrics = newBuilderMetrics(reg)
	}
}

// Builder assembles span completion events into a Forest.
// Safe for concurrent use by multiple goroutines.
//
//nolint:govet // Field order optimized for readability over memory
type Builder struct {
	roots   []*node
	index   map[string]*node
	logger  *slog.Logger
	metrics *builderMetrics
	size    int
	mu      sync.Mutex
	lookup  Lookup
}

// Stats summarizes the builder's current forest.
type Stats struct {
	Roots        int
	Nodes        int
	Placeholders int
}

// result describes what one AddNode call did to the forest.
type result struct {
	outcome     string
	size        int
	placeholder bool
}

// NewBuilder creates an empty builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		index:  make(map[string]*node),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddNode records one completed span and returns a copy of the affected node.
//
// With a parent id, the node is appended to that parent's children, creating
// a placeholder parent at the root level when none is known yet. Without a
// parent id, an existing node with the same id is updated in place (this is
// how placeholders are reconciled) and otherwise a new root is appended.
//
// An empty id, a negative duration or an id equal to its parent id fails with
// ErrInvalidArgument and leaves the forest untouched.
func (b *Builder) AddNode(id, name, parentID string, duration time.Duration) (Node, error) {
	if err := validate(id, parentID, duration); err != nil {
		b.mu.Lock()
		b.metrics.observe(result{outcome: OutcomeRejected})
		b.mu.Unlock()
		b.logger.Warn("span rejected", "id", id, "parent_id", parentID, "error", err)
		return Node{}, err
	}

	b.mu.Lock()
	var (
		n   *node
		res result
	)
	if parentID != "" {
		n, res = b.attach(id, name, parentID, duration)
	} else {
		n, res = b.upsertRoot(id, name, duration)
	}
	res.size = b.size
	b.metrics.observe(res)
	out := n.copy()
	b.mu.Unlock()

	if res.placeholder {
		b.logger.Debug("placeholder created", "id", parentID, "child_id", id)
	}
	return out, nil
}

// attach handles an event that names a parent. Caller holds b.mu.
func (b *Builder) attach(id, name, parentID string, duration time.Duration) (*node, result) {
	var res result

	parent := b.find(parentID)
	if parent == nil {
		parent = newPlaceholder(parentID)
		b.roots = append(b.roots, parent)
		b.track(parent)
		res.placeholder = true
	}

	if b.lookup == LookupIndexed {
		if existing := b.index[id]; existing != nil {
			wasPlaceholder := !existing.reported
			existing.reconcile(name, duration)
			res.outcome = OutcomeReconciled
			if wasPlaceholder && existing.parent == nil && !existing.isAncestorOf(parent) {
				b.detachRoot(existing)
				existing.parentID = parentID
				parent.appendChild(existing)
				res.outcome = OutcomeAdopted
			}
			return existing, res
		}
	}

	n := newReported(id, name, parentID, duration)
	parent.appendChild(n)
	b.track(n)
	res.outcome = OutcomeAttached
	return n, res
}

// upsertRoot handles an event without a parent. Caller holds b.mu.
func (b *Builder) upsertRoot(id, name string, duration time.Duration) (*node, result) {
	if existing := b.find(id); existing != nil {
		existing.reconcile(name, duration)
		return existing, result{outcome: OutcomeReconciled}
	}

	n := newReported(id, name, "", duration)
	b.roots = append(b.roots, n)
	b.track(n)
	return n, result{outcome: OutcomeRoot}
}

// find resolves id according to the lookup mode. Caller holds b.mu.
func (b *Builder) find(id string) *node {
	if b.lookup == LookupRoots {
		for _, r := range b.roots {
			if r.id == id {
				return r
			}
		}
		return nil
	}
	return b.index[id]
}

func (b *Builder) track(n *node) {
	b.size++
	if b.lookup == LookupIndexed {
		b.index[n.id] = n
	}
}

func (b *Builder) detachRoot(n *node) {
	for i, r := range b.roots {
		if r == n {
			copy(b.roots[i:], b.roots[i+1:])
			b.roots[len(b.roots)-1] = nil
			b.roots = b.roots[:len(b.roots)-1]
			return
		}
	}
}

// Snapshot returns a deep copy of the forest as of the call.
func (b *Builder) Snapshot() Forest {
	b.mu.Lock()
	defer b.mu.Unlock()

	forest := make(Forest, len(b.roots))
	for i, r := range b.roots {
		forest[i] = r.copy()
	}
	return forest
}

// Len returns the number of nodes created so far, placeholders included.
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Stats counts roots, nodes and unreconciled placeholders.
func (b *Builder) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := Stats{Roots: len(b.roots)}
	stack := append([]*node(nil), b.roots...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stats.Nodes++
		if !n.reported {
			stats.Placeholders++
		}
		stack = append(stack, n.children...)
	}
	return stats
}

// Reset ends the session and drops the whole forest.
func (b *Builder) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.roots = nil
	b.index = make(map[string]*node)
	b.size = 0
	b.metrics.reset()
}

// Record feeds a completed Span into the builder.
// It has the SpanHandler signature; rejected spans are logged and dropped.
func (b *Builder) Record(span Span) {
	_, _ = b.AddNode(span.SpanID, span.Name, span.ParentID, span.Duration)
}

// Attach registers the builder as a synchronous completion handler on t.
// The returned id can be passed to t.RemoveHandler.
func (b *Builder) Attach(t *Tracer) uint64 {
	return t.OnSpanComplete(b.Record)
}
