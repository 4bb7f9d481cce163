package aggregate

import (
	"sort"

	"github.com/n0roo/aces/internal/predtable"
	"github.com/n0roo/aces/internal/timeref"
)

// AggTemporal implements §4.4.1: for each anchor, resolve the window
// [anchor, anchor+delta] (reordered so the earlier timestamp is Start)
// and sum every predicate column over it, honoring startIncl/endIncl at
// the respective boundary.
//
// By construction (internal/windowtree rejects any configuration where a
// far-side offset would invert start/end) the earlier timestamp of the
// pair is always the window's start and the later is always its end, so
// there is no need to track which field delta was signed relative to.
func AggTemporal(tbl *predtable.Table, anchors []Anchor, delta timeref.Duration, startIncl, endIncl bool) []Result {
	d := microsFromDuration(delta)
	groupByID := subjectGroups(tbl)

	out := make([]Result, len(anchors))
	runParallel(len(anchors), func(i int) {
		a := anchors[i]
		g, ok := groupByID[a.SubjectID]
		if !ok {
			out[i] = Result{SubjectID: a.SubjectID, AnchorTime: a.Timestamp, Matched: false}
			return
		}
		lo, hi := a.Timestamp, a.Timestamp+d
		if d < 0 {
			lo, hi = hi, lo
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

// subjectGroups indexes a Table's Groups by subject id for O(1) per-anchor
// lookup.
func subjectGroups(tbl *predtable.Table) map[int64]predtable.Group {
	groups := tbl.Groups()
	m := make(map[int64]predtable.Group, len(groups))
	for _, g := range groups {
		m[g.SubjectID] = g
	}
	return m
}

// boundRange returns the half-open row index range [loIdx, hiIdx) within
// ts[start:end] (already sorted ascending) whose timestamps fall in
// [lo, hi], honoring loIncl/hiIncl at each boundary.
func boundRange(ts []int64, start, end int, lo, hi int64, loIncl, hiIncl bool) (int, int) {
	loIdx := start + sort.Search(end-start, func(i int) bool {
		v := ts[start+i]
		if loIncl {
			return v >= lo
		}
		return v > lo
	})
	hiIdx := start + sort.Search(end-start, func(i int) bool {
		v := ts[start+i]
		if hiIncl {
			return v > hi
		}
		return v >= hi
	})
	if hiIdx < loIdx {
		hiIdx = loIdx
	}
	return loIdx, hiIdx
}

// sumColumns sums every predicate column over row range [loIdx, hiIdx).
func sumColumns(tbl *predtable.Table, loIdx, hiIdx int) map[string]int64 {
	counts := make(map[string]int64, len(tbl.ColumnNames()))
	for _, col := range tbl.ColumnNames() {
		var sum int64
		vals := tbl.Columns[col]
		for i := loIdx; i < hiIdx; i++ {
			sum += vals[i]
		}
		counts[col] = sum
	}
	return counts
}
