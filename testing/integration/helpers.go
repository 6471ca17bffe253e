package integration

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/zoobzio/spantree"
)

// Harness wires a tracer on a fake clock into a builder.
//
//nolint:govet // Field alignment optimized for test helper readability
type Harness struct {
	Tracer  *spantree.Tracer
	Builder *spantree.Builder
	Advance func(time.Duration) // moves the tracer's fake clock forward.
}

// NewHarness creates a harness whose builder is attached synchronously.
func NewHarness(t *testing.T, opts ...spantree.Option) *Harness {
	clock := clockz.NewFakeClock()
	h := &Harness{
		Tracer:  spantree.New().WithClock(clock),
		Builder: spantree.NewBuilder(opts...),
		Advance: func(d time.Duration) { clock.Advance(d) },
	}
	h.Builder.Attach(h.Tracer)
	t.Cleanup(h.Tracer.Close)
	return h
}

// Event is one span completion fed straight into a builder.
type Event struct {
	ID       string
	Name     string
	ParentID string
	Duration time.Duration
}

// Apply feeds events into b in order, failing the test on any rejection.
func Apply(t *testing.T, b *spantree.Builder, events ...Event) {
	t.Helper()
	for _, e := range events {
		if _, err := b.AddNode(e.ID, e.Name, e.ParentID, e.Duration); err != nil {
			t.Fatalf("AddNode(%q): %v", e.ID, err)
		}
	}
}

// Permutations returns every ordering of events.
func Permutations(events []Event) [][]Event {
	if len(events) <= 1 {
		return [][]Event{append([]Event(nil), events...)}
	}
	var out [][]Event
	for i := range events {
		rest := make([]Event, 0, len(events)-1)
		rest = append(rest, events[:i]...)
		rest = append(rest, events[i+1:]...)
		for _, p := range Permutations(rest) {
			out = append(out, append([]Event{events[i]}, p...))
		}
	}
	return out
}

// Shape is a forest without ids, for comparing forests built from
// different id spaces.
type Shape struct {
	Name     string
	Duration time.Duration
	Children []Shape
}

// ShapeOf strips ids from a forest.
func ShapeOf(f spantree.Forest) []Shape {
	if len(f) == 0 {
		return nil
	}
	out := make([]Shape, len(f))
	for i, n := range f {
		out[i] = Shape{Name: n.Name, Duration: n.Duration, Children: ShapeOf(n.Children)}
	}
	return out
}

// PrintForest formats a forest for debugging.
func PrintForest(f spantree.Forest) string {
	var sb strings.Builder
	for i := range f {
		printNode(&sb, &f[i], 0)
	}
	return sb.String()
}

func printNode(sb *strings.Builder, n *spantree.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	name := n.Name
	if name == "" {
		name = "<placeholder " + n.ID + ">"
	}
	fmt.Fprintf(sb, "%s%s (%.2fms)\n", indent, name, n.Duration.Seconds()*1000)
	for i := range n.Children {
		printNode(sb, &n.Children[i], depth+1)
	}
}
