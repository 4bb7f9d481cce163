// Package result implements the Result Shaper (§4.6): it turns the
// extractor's surviving realizations into the final per-subject row shape,
// attaching label/index_timestamp columns and ordering both columns and
// rows the way §4.6 specifies.
package result

import (
	"sort"

	"github.com/n0roo/aces/internal/extract"
	"github.com/n0roo/aces/internal/taskconfig"
)

// WindowStruct is one window's column group in a result row: the fixed
// {name, start, end, <predName>: int, ...} shape of §6's "Result table".
type WindowStruct struct {
	Name   string
	Start  int64
	End    int64
	Counts map[string]int64
}

// Row is one output row: a subject's surviving realization, reshaped with
// the label/index_timestamp columns and windows in pre-order.
type Row struct {
	SubjectID      int64
	IndexTimestamp *int64 // nil if no window carries index_timestamp
	Label          *int64 // nil if no window carries label
	TriggerTime    int64
	Windows        []WindowStruct // pre-order traversal of the window tree
}

// Shape builds the final row set from realizations, per §4.6: attaches
// label/index_timestamp, orders window columns in pre-order, and sorts rows
// by (subject_id, index_timestamp).
func Shape(realizations []*extract.Realization, cfg *taskconfig.TaskConfig) []Row {
	order := cfg.Tree.PreOrder()

	rows := make([]Row, len(realizations))
	for i, r := range realizations {
		row := Row{
			SubjectID:   r.SubjectID,
			TriggerTime: r.TriggerTime,
			Windows:     make([]WindowStruct, len(order)),
		}
		for j, n := range order {
			wr := r.Windows[n.Name]
			row.Windows[j] = WindowStruct{Name: n.Name, Start: wr.Start, End: wr.End, Counts: wr.Counts}
		}
		if cfg.LabelWindow != "" {
			wr := r.Windows[cfg.LabelWindow]
			n := cfg.Tree.ByName[cfg.LabelWindow]
			count := wr.Counts[n.Label]
			row.Label = &count
		}
		if cfg.IndexWindow != "" {
			wr := r.Windows[cfg.IndexWindow]
			n := cfg.Tree.ByName[cfg.IndexWindow]
			ts := wr.Start
			if n.IndexTimestamp == "end" {
				ts = wr.End
			}
			row.IndexTimestamp = &ts
		}
		rows[i] = row
	}

	sort.SliceStable(rows, func(a, b int) bool {
		if rows[a].SubjectID != rows[b].SubjectID {
			return rows[a].SubjectID < rows[b].SubjectID
		}
		at, bt := indexSortKey(rows[a]), indexSortKey(rows[b])
		return at < bt
	})
	return rows
}

// indexSortKey returns the timestamp rows are ordered by within a subject:
// index_timestamp if present, falling back to the trigger timestamp so rows
// from configurations without an index_timestamp window still sort
// deterministically.
func indexSortKey(r Row) int64 {
	if r.IndexTimestamp != nil {
		return *r.IndexTimestamp
	}
	return r.TriggerTime
}

// Threshold collapses a raw label predicate count into a binary label
// (1 if count >= min, else 0), without the core ever baking that choice in
// (§9 Design Notes: label preserves the raw count by default).
func Threshold(label *int64, min int64) int64 {
	if label == nil || *label < min {
		return 0
	}
	return 1
}
