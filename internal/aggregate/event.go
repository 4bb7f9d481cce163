package aggregate

import (
	"github.com/n0roo/aces/internal/predtable"
	"github.com/n0roo/aces/internal/timeref"
)

// AggEvent implements §4.4.2: for each anchor, locate the next (forward)
// or previous (!forward) row within the same subject, at or after/before
// anchor+offset, whose boundaryPred column is nonzero, then sum every
// predicate column over the span between anchor+offset and that row.
//
// startIncl governs whether anchor+offset itself is eligible to match
// when forward (it becomes the window's start); endIncl governs the same
// tie when !forward (it becomes the window's end). A subject with no
// qualifying row produces Result{Matched: false} (§4.4.2: "no matching
// child anchor within the subject").
func AggEvent(tbl *predtable.Table, anchors []Anchor, boundaryPred string, offset timeref.Duration, startIncl, endIncl, forward bool) []Result {
	groupByID := subjectGroups(tbl)
	boundaryCol, hasBoundary := tbl.Columns[boundaryPred]
	off := microsFromDuration(offset)

	out := make([]Result, len(anchors))
	runParallel(len(anchors), func(i int) {
		a := anchors[i]
		g, ok := groupByID[a.SubjectID]
		if !ok || !hasBoundary {
			out[i] = Result{SubjectID: a.SubjectID, AnchorTime: a.Timestamp, Matched: false}
			return
		}
		startPoint := a.Timestamp + off

		var matchIdx int
		var matched bool
		if forward {
			matchIdx, matched = firstMatchForward(tbl.Timestamp, boundaryCol, g.Start, g.End, startPoint, startIncl)
		} else {
			matchIdx, matched = firstMatchBackward(tbl.Timestamp, boundaryCol, g.Start, g.End, startPoint, endIncl)
		}
		if !matched {
			out[i] = Result{SubjectID: a.SubjectID, AnchorTime: a.Timestamp, Matched: false}
			return
		}

		matchTS := tbl.Timestamp[matchIdx]
		lo, hi := startPoint, matchTS
		if !forward {
			lo, hi = matchTS, startPoint
		}
		loIdx, hiIdx := boundRange(tbl.Timestamp, g.Start, g.End, lo, hi, startIncl, endIncl)
		out[i] = Result{
			SubjectID:  a.SubjectID,
			AnchorTime: a.Timestamp,
			StartTime:  lo,
			EndTime:    hi,
			Counts:     sumColumns(tbl, loIdx, hiIdx),
			Matched:    true,
		}
	})
	return out
}

// firstMatchForward finds the lowest-index row in [start,end) at or after
// (selfIncl) / strictly after (!selfIncl) startPoint with a nonzero
// boundary count.
func firstMatchForward(ts []int64, boundary []int64, start, end int, startPoint int64, selfIncl bool) (int, bool) {
	for i := start; i < end; i++ {
		if ts[i] < startPoint {
			continue
		}
		if ts[i] == startPoint && !selfIncl {
			continue
		}
		if boundary[i] > 0 {
			return i, true
		}
	}
	return 0, false
}

// firstMatchBackward finds the highest-index row in [start,end) at or
// before (selfIncl) / strictly before (!selfIncl) startPoint with a
// nonzero boundary count.
func firstMatchBackward(ts []int64, boundary []int64, start, end int, startPoint int64, selfIncl bool) (int, bool) {
	for i := end - 1; i >= start; i-- {
		if ts[i] > startPoint {
			continue
		}
		if ts[i] == startPoint && !selfIncl {
			continue
		}
		if boundary[i] > 0 {
			return i, true
		}
	}
	return 0, false
}
