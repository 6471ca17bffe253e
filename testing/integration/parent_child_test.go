package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/zoobzio/spantree"
)

// TestDeepNestingChain verifies a 100-level hierarchy finished deepest first.
func TestDeepNestingChain(t *testing.T) {
	h := NewHarness(t)

	const depth = 100
	ctx := context.Background()
	spans := make([]*spantree.ActiveSpan, 0, depth)
	for i := 0; i < depth; i++ {
		var span *spantree.ActiveSpan
		ctx, span = h.Tracer.StartSpan(ctx, fmt.Sprintf("level-%03d", i))
		spans = append(spans, span)
	}

	// Finish in reverse order (deepest first).
	for i := len(spans) - 1; i >= 0; i-- {
		h.Advance(time.Millisecond)
		spans[i].Finish()
	}

	forest := h.Builder.Snapshot()
	require.Len(t, forest, 1, PrintForest(forest))
	require.Equal(t, depth, forest.Count())

	node := forest[0]
	for i := 0; i < depth; i++ {
		require.Equal(t, fmt.Sprintf("level-%03d", i), node.Name)
		// Level i finished after depth-i clock steps.
		require.Equal(t, time.Duration(depth-i)*time.Millisecond, node.Duration)
		if i < depth-1 {
			require.Len(t, node.Children, 1)
			node = node.Children[0]
		}
	}
	require.Empty(t, node.Children)
	require.Zero(t, h.Builder.Stats().Placeholders)
}

// TestSiblingOrderIsCompletionOrder checks children are ordered by completion,
// not by start.
func TestSiblingOrderIsCompletionOrder(t *testing.T) {
	h := NewHarness(t)

	ctx, parent := h.Tracer.StartSpan(context.Background(), "parent")
	children := make([]*spantree.ActiveSpan, 5)
	for i := range children {
		_, children[i] = h.Tracer.StartSpan(ctx, fmt.Sprintf("child-%d", i))
	}

	for _, i := range []int{3, 0, 4, 1, 2} {
		children[i].Finish()
	}
	parent.Finish()

	forest := h.Builder.Snapshot()
	require.Len(t, forest, 1)

	var names []string
	for _, c := range forest[0].Children {
		names = append(names, c.Name)
	}
	require.Equal(t, []string{"child-3", "child-0", "child-4", "child-1", "child-2"}, names)
}

// TestOrderIndependenceAcrossDepths runs every completion order of a
// three-level trace through the builder.
func TestOrderIndependenceAcrossDepths(t *testing.T) {
	events := []Event{
		{ID: "root", Name: "R", Duration: 10 * time.Second},
		{ID: "mid", Name: "M", ParentID: "root", Duration: 5 * time.Second},
		{ID: "leaf", Name: "L", ParentID: "mid", Duration: time.Second},
		{ID: "side", Name: "S", ParentID: "root", Duration: 2 * time.Second},
	}

	for i, perm := range Permutations(events) {
		t.Run(fmt.Sprintf("perm-%02d", i), func(t *testing.T) {
			b := spantree.NewBuilder()
			Apply(t, b, perm...)

			forest := b.Snapshot()
			require.Len(t, forest, 1, PrintForest(forest))
			require.Equal(t, 4, forest.Count())
			require.Zero(t, b.Stats().Placeholders)

			// Sibling order under root depends on which of mid/side finished first.
			var rootChildren []Shape
			for _, e := range perm {
				switch e.ID {
				case "mid":
					rootChildren = append(rootChildren, Shape{Name: "M", Duration: 5 * time.Second,
						Children: []Shape{{Name: "L", Duration: time.Second}}})
				case "side":
					rootChildren = append(rootChildren, Shape{Name: "S", Duration: 2 * time.Second})
				}
			}
			want := []Shape{{Name: "R", Duration: 10 * time.Second, Children: rootChildren}}
			if diff := cmp.Diff(want, ShapeOf(forest)); diff != "" {
				t.Errorf("forest mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestRootsLookupDuplicatesDeepParents documents the roots-only lookup.
func TestRootsLookupDuplicatesDeepParents(t *testing.T) {
	events := []Event{
		{ID: "root", Name: "R", Duration: 10 * time.Second},
		{ID: "mid", Name: "M", ParentID: "root", Duration: 5 * time.Second},
		{ID: "leaf", Name: "L", ParentID: "mid", Duration: time.Second},
	}

	indexed := spantree.NewBuilder()
	Apply(t, indexed, events...)
	require.Len(t, indexed.Snapshot(), 1)

	roots := spantree.NewBuilder(spantree.WithLookup(spantree.LookupRoots))
	Apply(t, roots, events...)

	forest := roots.Snapshot()
	require.Len(t, forest, 2, PrintForest(forest))
	require.Equal(t, "mid", forest[1].ID)
	require.Empty(t, forest[1].Name)
	require.Equal(t, 1, roots.Stats().Placeholders)
}
