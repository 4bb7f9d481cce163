package windowtree

import (
	"fmt"

	"github.com/n0roo/aces/internal/timeref"
	"github.com/n0roo/aces/internal/xerrors"
)

// WindowSpec is the compiled, pre-validated shape of one configured window,
// as produced by package taskconfig. windowtree only needs the endpoint
// expressions, inclusivity flags, has-constraints, and the label/index
// markers; name resolution and predicate existence are already done by the
// caller.
type WindowSpec struct {
	Name           string
	StartExpr      timeref.EndpointExpr
	EndExpr        timeref.EndpointExpr
	StartInclusive bool
	EndInclusive   bool
	Has            map[string]HasConstraint
	Label          string
	IndexTimestamp string
}

// Build compiles a set of window specs into a Tree rooted at the trigger.
// It resolves each window's anchor/far boundary split, validates the
// reference graph is a connected, acyclic, single-parent tree, and
// validates the direction/sign rules that keep every window's start at or
// before its end.
func Build(windows []WindowSpec) (*Tree, error) {
	byName := make(map[string]WindowSpec, len(windows))
	for _, w := range windows {
		if _, dup := byName[w.Name]; dup {
			return nil, xerrors.NewConfigError("windows", fmt.Errorf("duplicate window name %q", w.Name))
		}
		byName[w.Name] = w
	}

	nodes := make(map[string]*Node, len(windows))
	anchorRefs := make(map[string]timeref.Reference, len(windows))
	for _, w := range windows {
		n, ref, err := classify(w)
		if err != nil {
			return nil, err
		}
		nodes[w.Name] = n
		anchorRefs[w.Name] = ref
	}

	root := &Node{Name: ""}

	for _, w := range windows {
		n := nodes[w.Name]
		ref := anchorRefs[w.Name]
		if ref.Kind == timeref.RefTrigger {
			n.Parent = root
			root.Children = append(root.Children, n)
			continue
		}
		if ref.Window == w.Name {
			return nil, xerrors.NewConfigError("windows", fmt.Errorf(
				"window %q anchors to itself", w.Name))
		}
		parent, ok := nodes[ref.Window]
		if !ok {
			return nil, xerrors.NewConfigError("windows", fmt.Errorf(
				"window %q references undefined window %q", w.Name, ref.Window))
		}
		n.AnchorFromParentSide = refSide(ref)
		n.Parent = parent
		parent.Children = append(parent.Children, n)
	}

	if err := checkTree(root, nodes); err != nil {
		return nil, err
	}

	return &Tree{Root: root, ByName: nodes}, nil
}

func refSide(ref timeref.Reference) timeref.Side {
	if ref.Kind == timeref.RefWindowEnd {
		return timeref.SideEnd
	}
	return timeref.SideStart
}

// refersToOwnOtherSide reports whether expr is a reference to window
// name's own boundary opposite side (a "far side" self-reference, per
// SPEC §4.3: "the other must... reference the first field").
func refersToOwnOtherSide(expr timeref.EndpointExpr, side timeref.Side, name string) bool {
	if expr.Kind == timeref.ExprNull {
		return false
	}
	if expr.Ref.Window != name {
		return false
	}
	switch side {
	case timeref.SideStart:
		return expr.Ref.Kind == timeref.RefWindowEnd
	default:
		return expr.Ref.Kind == timeref.RefWindowStart
	}
}

// classify resolves which of a window's two boundary expressions is the
// anchor (reaches outward to the trigger or another window) and which is
// the far side (NULL, or derived from this window's own anchor), and
// validates the direction/sign invariants described in SPEC §4.1/§4.3:
// a far-side NEXT must produce the end, a far-side PREV must produce the
// start, and a far-side fixed offset's sign must keep start at or before
// end.
func classify(w WindowSpec) (*Node, timeref.Reference, error) {
	startAnchored := w.StartExpr.Kind != timeref.ExprNull && !refersToOwnOtherSide(w.StartExpr, timeref.SideStart, w.Name)
	endAnchored := w.EndExpr.Kind != timeref.ExprNull && !refersToOwnOtherSide(w.EndExpr, timeref.SideEnd, w.Name)

	if startAnchored == endAnchored {
		return nil, timeref.Reference{}, xerrors.NewConfigError("windows", fmt.Errorf(
			"window %q must have exactly one of start/end reference the trigger or another window; the other must be NULL or reference the first field", w.Name))
	}

	n := &Node{
		Name:           w.Name,
		StartInclusive: w.StartInclusive,
		EndInclusive:   w.EndInclusive,
		Has:            w.Has,
		Label:          w.Label,
		IndexTimestamp: w.IndexTimestamp,
	}

	var anchorExpr, farExpr timeref.EndpointExpr
	if startAnchored {
		n.AnchorSide = timeref.SideStart
		anchorExpr, farExpr = w.StartExpr, w.EndExpr
	} else {
		n.AnchorSide = timeref.SideEnd
		anchorExpr, farExpr = w.EndExpr, w.StartExpr
	}

	switch anchorExpr.Kind {
	case timeref.ExprIdentity:
		n.Anchor = AnchorEdge{Kind: EdgeTemporal, Delta: 0}
	case timeref.ExprOffset:
		n.Anchor = AnchorEdge{Kind: EdgeTemporal, Delta: anchorExpr.Offset}
	case timeref.ExprNext:
		n.Anchor = AnchorEdge{Kind: EdgeEventNext, Predicate: anchorExpr.Predicate}
	case timeref.ExprPrev:
		n.Anchor = AnchorEdge{Kind: EdgeEventPrev, Predicate: anchorExpr.Predicate}
	default:
		return nil, timeref.Reference{}, xerrors.NewConfigError("windows", fmt.Errorf(
			"window %q anchor side must not be NULL", w.Name))
	}

	farSide := n.FarSide()
	switch farExpr.Kind {
	case timeref.ExprNull:
		n.Far = FarEdge{Kind: FarRecordBound}
	case timeref.ExprIdentity:
		n.Far = FarEdge{Kind: FarTemporal, Delta: 0}
	case timeref.ExprOffset:
		if farSide == timeref.SideEnd && farExpr.Offset <= 0 {
			return nil, timeref.Reference{}, xerrors.NewConfigError("windows", fmt.Errorf(
				"window %q: end offset from its own start must be positive", w.Name))
		}
		if farSide == timeref.SideStart && farExpr.Offset >= 0 {
			return nil, timeref.Reference{}, xerrors.NewConfigError("windows", fmt.Errorf(
				"window %q: start offset from its own end must be negative", w.Name))
		}
		n.Far = FarEdge{Kind: FarTemporal, Delta: farExpr.Offset}
	case timeref.ExprNext:
		if farSide != timeref.SideEnd {
			return nil, timeref.Reference{}, xerrors.NewConfigError("windows", fmt.Errorf(
				"window %q: NEXT referencing its own boundary must target the end", w.Name))
		}
		n.Far = FarEdge{Kind: FarEventNext, Predicate: farExpr.Predicate}
	case timeref.ExprPrev:
		if farSide != timeref.SideStart {
			return nil, timeref.Reference{}, xerrors.NewConfigError("windows", fmt.Errorf(
				"window %q: PREV referencing its own boundary must target the start", w.Name))
		}
		n.Far = FarEdge{Kind: FarEventPrev, Predicate: farExpr.Predicate}
	}

	return n, anchorExpr.Ref, nil
}

// checkTree validates that the parent pointers assembled by Build reach
// every window from root with no repeats, which rules out both cycles and
// disconnected sub-trees (windows anchored to each other but never
// reaching the trigger). This generalizes the teacher's
// DependencyGraph.HasCycle, adapted from a flat port DAG to a rooted tree
// with a synthetic root.
func checkTree(root *Node, nodes map[string]*Node) error {
	seen := map[*Node]bool{root: true}
	limit := len(nodes) + 1
	var walk func(node *Node, depth int) error
	walk = func(node *Node, depth int) error {
		if depth > limit {
			return xerrors.NewConfigError("windows", fmt.Errorf("reference cycle detected at window %q", node.Name))
		}
		for _, c := range node.Children {
			if seen[c] {
				return xerrors.NewConfigError("windows", fmt.Errorf("window %q has more than one parent", c.Name))
			}
			seen[c] = true
			if err := walk(c, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root, 0); err != nil {
		return err
	}
	for name, n := range nodes {
		if !seen[n] {
			return xerrors.NewConfigError("windows", fmt.Errorf(
				"window %q does not reach the trigger (reference cycle)", name))
		}
	}
	return nil
}
