package aggregate

import "github.com/n0roo/aces/internal/predtable"

// AggRecordBound implements the NULL endpoint case (§3: "earliest/latest
// event in the subject's record"): for each anchor, the window runs from
// the subject's first row to the anchor (anchorIsEnd) or from the anchor
// to the subject's last row (!anchorIsEnd).
func AggRecordBound(tbl *predtable.Table, anchors []Anchor, anchorIsEnd bool, startIncl, endIncl bool) []Result {
	groupByID := subjectGroups(tbl)

	out := make([]Result, len(anchors))
	runParallel(len(anchors), func(i int) {
		a := anchors[i]
		g, ok := groupByID[a.SubjectID]
		if !ok || g.Start >= g.End {
			out[i] = Result{SubjectID: a.SubjectID, AnchorTime: a.Timestamp, Matched: false}
			return
		}
		lo, hi := a.Timestamp, tbl.Timestamp[g.End-1]
		if anchorIsEnd {
			lo, hi = tbl.Timestamp[g.Start], a.Timestamp
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
