// Package extract implements the Recursive Extractor (§4.5): an iterative,
// stack-driven walk of the window tree that resolves every window's span
// and predicate counts per subject, drops realizations that fail a `has`
// constraint or an event-bound search, and joins surviving branches back
// together by requiring every named window to have resolved.
//
// The teacher's internal/orchestrator package walks a flat dependency
// graph with Kahn's-algorithm level ordering and fans work out per node;
// this package keeps that "explicit frontier, no recursion" shape (Design
// Note §9: "can be realized iteratively with an explicit stack of frames")
// but walks a tree instead of a DAG and carries per-subject realization
// state through the stack rather than dispatching isolated units of work.
package extract

import (
	"github.com/n0roo/aces/internal/aggregate"
	"github.com/n0roo/aces/internal/predtable"
	"github.com/n0roo/aces/internal/taskconfig"
	"github.com/n0roo/aces/internal/timeref"
	"github.com/n0roo/aces/internal/windowtree"
)

// WindowResult is the resolved span and predicate counts for one window
// within one realization (§4.5 step 3: "a per-realization struct
// {window_name, start_ts, end_ts, {pred: count,...}}").
type WindowResult struct {
	Start  int64
	End    int64
	Counts map[string]int64
}

// Realization is one candidate cohort row: a subject, the trigger event
// timestamp that anchored it, and the resolved struct for every window it
// has survived so far.
type Realization struct {
	SubjectID   int64
	TriggerTime int64
	Windows     map[string]*WindowResult
}

// boundary pairs a realization with the parent-resolved timestamp it
// should anchor the current node from.
type boundary struct {
	r  *Realization
	ts int64
}

// Extract runs the full tree walk over tbl using cfg, returning every
// realization that survived every window in the tree (§4.5 step 5: "a
// realization survives only if every branch succeeds").
func Extract(tbl *predtable.Table, cfg *taskconfig.TaskConfig) []*Realization {
	if tbl.IsEmpty() || !tbl.HasColumn(cfg.Trigger) {
		return nil
	}

	all := initialRealizations(tbl, cfg.Trigger)
	if len(all) == 0 {
		return nil
	}

	type frame struct {
		node    *windowtree.Node
		entries []boundary
	}

	root := make([]boundary, len(all))
	for i, r := range all {
		root[i] = boundary{r: r, ts: r.TriggerTime}
	}

	stack := make([]frame, 0, len(cfg.Tree.Root.Children))
	for _, child := range cfg.Tree.Root.Children {
		stack = append(stack, frame{node: child, entries: root})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		survivors := processNode(tbl, f.node, f.entries)

		for _, child := range f.node.Children {
			entries := make([]boundary, len(survivors))
			for i, s := range survivors {
				entries[i] = boundary{r: s.r, ts: childBoundaryTS(f.node, child, s.r)}
			}
			stack = append(stack, frame{node: child, entries: entries})
		}
	}

	out := make([]*Realization, 0, len(all))
	total := len(cfg.Tree.ByName)
	for _, r := range all {
		if len(r.Windows) == total {
			out = append(out, r)
		}
	}
	return out
}

// childBoundaryTS picks, from the parent's just-resolved window, the
// timestamp that child should anchor from, per child.AnchorFromParentSide.
func childBoundaryTS(parent, child *windowtree.Node, r *Realization) int64 {
	wr := r.Windows[parent.Name]
	if child.AnchorFromParentSide == parent.AnchorSide {
		return sideTS(parent.AnchorSide, wr)
	}
	return sideTS(parent.FarSide(), wr)
}

func sideTS(side timeref.Side, wr *WindowResult) int64 {
	if side == timeref.SideStart {
		return wr.Start
	}
	return wr.End
}

// initialRealizations applies the trigger predicate's positivity filter
// (§4.5 "Initialization (root call)") to every row of the table.
func initialRealizations(tbl *predtable.Table, trigger string) []*Realization {
	col := tbl.Columns[trigger]
	var out []*Realization
	for i, v := range col {
		if v > 0 {
			out = append(out, &Realization{
				SubjectID:   tbl.SubjectID[i],
				TriggerTime: tbl.Timestamp[i],
				Windows:     make(map[string]*WindowResult),
			})
		}
	}
	return out
}

// processNode resolves node's anchor boundary from each entry's parent
// timestamp, then resolves node's far boundary and predicate counts,
// applies the `has` filter, and records a WindowResult on every surviving
// realization, returning the survivors.
func processNode(tbl *predtable.Table, node *windowtree.Node, entries []boundary) []boundary {
	anchorTS, ok := resolveAnchor(tbl, node, entries)

	var liveEntries []boundary
	var liveAnchors []int64
	for i, e := range entries {
		if ok[i] {
			liveEntries = append(liveEntries, e)
			liveAnchors = append(liveAnchors, anchorTS[i])
		}
	}
	if len(liveEntries) == 0 {
		return nil
	}

	anchors := make([]aggregate.Anchor, len(liveEntries))
	for i, e := range liveEntries {
		anchors[i] = aggregate.Anchor{SubjectID: e.r.SubjectID, Timestamp: liveAnchors[i]}
	}

	results := resolveFar(tbl, node, anchors)

	var survivors []boundary
	for i, res := range results {
		if !res.Matched || !satisfiesHas(node.Has, res.Counts) {
			continue
		}
		liveEntries[i].r.Windows[node.Name] = &WindowResult{
			Start:  res.StartTime,
			End:    res.EndTime,
			Counts: res.Counts,
		}
		survivors = append(survivors, liveEntries[i])
	}
	return survivors
}

// resolveAnchor computes node's AnchorSide timestamp for every entry from
// its parent-boundary timestamp (symmetric to §4.3's "edge from each
// window's anchor side to the other side", here applied to the edge from
// the parent's resolved boundary into this node's anchor side).
//
// NEXT/PREV anchor references are always strict: the grammar (§3) reads
// "next/previous row ... strictly after/before the reference", so a row
// exactly at the parent boundary never ties as its own anchor.
func resolveAnchor(tbl *predtable.Table, node *windowtree.Node, entries []boundary) ([]int64, []bool) {
	out := make([]int64, len(entries))
	ok := make([]bool, len(entries))

	if node.Anchor.Kind == windowtree.EdgeTemporal {
		for i, e := range entries {
			out[i] = e.ts + int64(node.Anchor.Delta)
			ok[i] = true
		}
		return out, ok
	}

	anchors := make([]aggregate.Anchor, len(entries))
	for i, e := range entries {
		anchors[i] = aggregate.Anchor{SubjectID: e.r.SubjectID, Timestamp: e.ts}
	}

	forward := node.Anchor.Kind == windowtree.EdgeEventNext
	var results []aggregate.Result
	if forward {
		results = aggregate.AggEvent(tbl, anchors, node.Anchor.Predicate, 0, false, true, true)
	} else {
		results = aggregate.AggEvent(tbl, anchors, node.Anchor.Predicate, 0, true, false, false)
	}
	for i, res := range results {
		if !res.Matched {
			continue
		}
		if forward {
			out[i] = res.EndTime
		} else {
			out[i] = res.StartTime
		}
		ok[i] = true
	}
	return out, ok
}

// resolveFar resolves node's far boundary and predicate counts from its
// already-resolved anchor boundary (§4.4, invoked per §4.5 step 1).
func resolveFar(tbl *predtable.Table, node *windowtree.Node, anchors []aggregate.Anchor) []aggregate.Result {
	startIncl, endIncl := node.StartInclusive, node.EndInclusive
	switch node.Far.Kind {
	case windowtree.FarRecordBound:
		return aggregate.AggRecordBound(tbl, anchors, node.AnchorSide == timeref.SideEnd, startIncl, endIncl)
	case windowtree.FarTemporal:
		return aggregate.AggTemporal(tbl, anchors, node.Far.Delta, startIncl, endIncl)
	case windowtree.FarEventNext:
		return aggregate.AggEvent(tbl, anchors, node.Far.Predicate, 0, startIncl, endIncl, true)
	default: // FarEventPrev
		return aggregate.AggEvent(tbl, anchors, node.Far.Predicate, 0, startIncl, endIncl, false)
	}
}

// satisfiesHas reports whether counts satisfies every has constraint.
func satisfiesHas(has map[string]windowtree.HasConstraint, counts map[string]int64) bool {
	for pred, c := range has {
		v := counts[pred]
		if c.Min != nil && v < *c.Min {
			return false
		}
		if c.Max != nil && v > *c.Max {
			return false
		}
	}
	return true
}
