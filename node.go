package spantree

import "time"

// Node is a read-only copy of one span in the forest.
// Children are ordered by the time they were attached, not by start time.
type Node struct {
	ID       string
	Name     string
	ParentID string
	Children []Node
	Duration time.Duration
}

// Forest is the ordered list of root nodes built during one session.
type Forest []Node

// Find returns the first node with the given id, searching depth-first.
func (f Forest) Find(id string) (Node, bool) {
	for i := range f {
		if n, ok := f[i].find(id); ok {
			return n, true
		}
	}
	return Node{}, false
}

// Count returns the number of nodes in the forest, roots included.
func (f Forest) Count() int {
	total := 0
	for i := range f {
		total += f[i].count()
	}
	return total
}

func (n *Node) find(id string) (Node, bool) {
	if n.ID == id {
		return *n, true
	}
	for i := range n.Children {
		if found, ok := n.Children[i].find(id); ok {
			return found, true
		}
	}
	return Node{}, false
}

func (n *Node) count() int {
	total := 1
	for i := range n.Children {
		total += n.Children[i].count()
	}
	return total
}

// node is the mutable entry owned by a Builder.
// Never handed out; readers get Node copies.
type node struct {
	parent   *node
	id       string
	name     string
	parentID string
	children []*node
	duration time.Duration
	reported bool // false while the node is only a placeholder.
}

func newPlaceholder(id string) *node {
	return &node{id: id}
}

func newReported(id, name, parentID string, duration time.Duration) *node {
	return &node{
		id:       id,
		name:     name,
		parentID: parentID,
		duration: duration,
		reported: true,
	}
}

// reconcile overwrites name and duration in place. Children are untouched.
func (n *node) reconcile(name string, duration time.Duration) {
	n.name = name
	n.duration = duration
	n.reported = true
}

func (n *node) appendChild(child *node) {
	child.parent = n
	n.children = append(n.children, child)
}

// isAncestorOf reports whether n appears on the parent chain of other.
func (n *node) isAncestorOf(other *node) bool {
	for p := other; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// copy returns a deep Node copy of the subtree rooted at n.
func (n *node) copy() Node {
	out := Node{
		ID:       n.id,
		Name:     n.name,
		ParentID: n.parentID,
		Duration: n.duration,
	}
	if len(n.children) > 0 {
		out.Children = make([]Node, len(n.children))
		for i, c := range n.children {
			out.Children[i] = c.copy()
		}
	}
	return out
}
