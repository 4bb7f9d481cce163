// Package windowtree builds and represents the rooted tree of window
// boundary nodes described in §3/§4.3: the trigger is the root, and every
// window is a node that anchors to its parent's resolved start or end
// boundary and derives its own other boundary from that anchor.
//
// This generalizes the teacher's internal/orchestrator/graph.go
// DependencyGraph (a flat ports DAG with Kahn's-algorithm level ordering)
// to a strictly rooted tree with typed edges and two boundary fields per
// non-root node.
package windowtree

import (
	"github.com/n0roo/aces/internal/timeref"
)

// EdgeKind classifies how a node's anchor boundary is derived from its
// parent's resolved boundary (§3: "edges carry endpoint expressions...
// typed as temporal or event-bound").
type EdgeKind int

const (
	// EdgeTemporal is a fixed signed-duration offset from the parent anchor.
	EdgeTemporal EdgeKind = iota
	// EdgeEventNext searches forward from the parent anchor for the next
	// row where Predicate > 0.
	EdgeEventNext
	// EdgeEventPrev searches backward from the parent anchor for the
	// previous row where Predicate > 0.
	EdgeEventPrev
)

// AnchorEdge describes the edge from a node's parent-resolved boundary to
// this node's AnchorSide boundary.
type AnchorEdge struct {
	Kind      EdgeKind
	Delta     timeref.Duration // meaningful when Kind == EdgeTemporal
	Predicate string           // meaningful when Kind == EdgeEventNext/EdgeEventPrev
}

// FarKind classifies how a node's non-anchor ("far") boundary is derived
// from its own anchor boundary.
type FarKind int

const (
	// FarRecordBound means the far boundary is the subject's earliest (if
	// the far side is Start) or latest (if the far side is End) event.
	FarRecordBound FarKind = iota
	FarTemporal
	FarEventNext
	FarEventPrev
)

// FarEdge describes how this node's far boundary is computed from its own
// anchor boundary.
type FarEdge struct {
	Kind      FarKind
	Delta     timeref.Duration // meaningful when Kind == FarTemporal
	Predicate string           // meaningful when Kind == FarEventNext/FarEventPrev
}

// HasConstraint is an inclusive [Min, Max] range on a predicate's count
// within a window; a nil bound is unbounded on that side (§6 `has` syntax).
type HasConstraint struct {
	Min *int64
	Max *int64
}

// Node is one window in the tree (or the synthetic root representing the
// trigger, identified by Name == "").
type Node struct {
	Name   string
	Parent *Node

	// AnchorFromParentSide selects which of the parent's two boundaries
	// (Start or End) this node's anchor attaches to. Ignored for children
	// of the root, since the trigger has a single timestamp.
	AnchorFromParentSide timeref.Side

	// AnchorSide selects which of this node's own two boundaries (Start or
	// End) receives the value derived via Anchor from the parent.
	AnchorSide timeref.Side
	Anchor     AnchorEdge

	// Far describes how this node's other boundary (opposite AnchorSide)
	// is derived from its own anchor boundary.
	Far FarEdge

	StartInclusive bool
	EndInclusive   bool

	Has map[string]HasConstraint

	Label           string // name of the predicate this window labels, if any
	IndexTimestamp  string // "start" or "end", if this window provides it

	Children []*Node
}

// FarSide returns the boundary opposite AnchorSide.
func (n *Node) FarSide() timeref.Side {
	if n.AnchorSide == timeref.SideStart {
		return timeref.SideEnd
	}
	return timeref.SideStart
}

// IsRoot reports whether n is the synthetic trigger root.
func (n *Node) IsRoot() bool { return n.Parent == nil && n.Name == "" }

// Tree is the fully-built window tree rooted at the trigger.
type Tree struct {
	Root   *Node
	ByName map[string]*Node
}

// PreOrder returns all non-root nodes in pre-order (parent before
// children, children in the order their WindowSpecs were passed to Build)
// — the order
// §4.6 requires for result columns, matching the teacher's
// preorder traversal idiom used throughout bigtree-style trees in the
// original implementation.
func (t *Tree) PreOrder() []*Node {
	var out []*Node
	var visit func(n *Node)
	visit = func(n *Node) {
		if !n.IsRoot() {
			out = append(out, n)
		}
		for _, c := range n.Children {
			visit(c)
		}
	}
	visit(t.Root)
	return out
}
