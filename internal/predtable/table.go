// Package predtable implements the predicate-count table contract of §3:
// a per-subject, timestamp-sorted table where every column other than
// subject_id/timestamp is a non-negative integer count of how many times a
// predicate fired at that (subject_id, timestamp).
//
// This is the one boundary the core package set shares with the outside
// world. Everything downstream of Table (timeref, predicate, taskconfig,
// windowtree, aggregate, extract, result) depends only on this in-memory
// type, never on a specific ingestion engine (Design Note §9).
package predtable

import (
	"fmt"
	"sort"
	"time"

	"github.com/n0roo/aces/internal/predicate"
	"github.com/n0roo/aces/internal/xerrors"
)

// Row is one input record: a subject, an event timestamp (zero Time for a
// static/demographic row, which the core ignores per §3), and predicate
// counts keyed by predicate name.
type Row struct {
	SubjectID int64
	Timestamp time.Time
	Static    bool
	Counts    map[string]int64
}

// Table is the columnar, per-subject-sorted in-memory representation of the
// predicates table. All slices are the same length and row-index aligned.
type Table struct {
	SubjectID []int64
	Timestamp []int64 // microseconds since Unix epoch
	Columns   map[string][]int64
	colNames  []string // deterministic column iteration order

	groups      []Group
	groupsBuilt bool
}

// Group is a contiguous, sorted run of rows belonging to one subject.
type Group struct {
	SubjectID  int64
	Start, End int // half-open row range [Start, End) into the Table's slices
}

// Build assembles a Table from rows, validating the data contract of §3 and
// sorting by (subject_id, timestamp) if not already sorted. Static rows
// (Row.Static true, or a zero Timestamp) are dropped: the core ignores them
// (§3), leaving patient-demographics handling to ingestion collaborators.
func Build(rows []Row) (*Table, error) {
	live := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.Static || r.Timestamp.IsZero() {
			continue
		}
		live = append(live, r)
	}

	colSet := map[string]bool{}
	for _, r := range live {
		for col := range r.Counts {
			colSet[col] = true
		}
	}
	colSet[predicate.AnyEventColumn] = true

	colNames := make([]string, 0, len(colSet))
	for c := range colSet {
		colNames = append(colNames, c)
	}
	sort.Strings(colNames)

	t := &Table{
		SubjectID: make([]int64, len(live)),
		Timestamp: make([]int64, len(live)),
		Columns:   make(map[string][]int64, len(colNames)),
		colNames:  colNames,
	}
	for _, c := range colNames {
		t.Columns[c] = make([]int64, len(live))
	}

	type keyed struct {
		idx int
		r   Row
	}
	sorted := make([]keyed, len(live))
	for i, r := range live {
		sorted[i] = keyed{i, r}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].r, sorted[j].r
		if a.SubjectID != b.SubjectID {
			return a.SubjectID < b.SubjectID
		}
		return a.Timestamp.Before(b.Timestamp)
	})

	for i, k := range sorted {
		r := k.r
		t.SubjectID[i] = r.SubjectID
		t.Timestamp[i] = r.Timestamp.UnixMicro()
		for _, c := range colNames {
			v := r.Counts[c]
			if c == predicate.AnyEventColumn && v == 0 {
				v = 1
			}
			t.Columns[c][i] = v
		}
	}

	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// validate enforces the uniqueness invariant of §3 and that every count is
// non-negative (§7 SchemaError: "non-integer predicate counts" — Go's int64
// typing already rules out non-integers, so this covers negativity instead).
func (t *Table) validate() error {
	for i := 1; i < len(t.SubjectID); i++ {
		if t.SubjectID[i] == t.SubjectID[i-1] && t.Timestamp[i] == t.Timestamp[i-1] {
			return xerrors.NewSchemaError("timestamp", fmt.Errorf(
				"duplicate (subject_id, timestamp) pair: subject %d at %s",
				t.SubjectID[i], time.UnixMicro(t.Timestamp[i]).UTC(),
			))
		}
	}
	for _, c := range t.colNames {
		for _, v := range t.Columns[c] {
			if v < 0 {
				return xerrors.NewSchemaError(c, fmt.Errorf("negative predicate count %d", v))
			}
		}
	}
	if _, ok := t.Columns[predicate.AnyEventColumn]; !ok {
		return xerrors.NewSchemaError(predicate.AnyEventColumn, fmt.Errorf("required column is missing"))
	}
	return nil
}

// NumRows returns the number of rows in the table.
func (t *Table) NumRows() int { return len(t.SubjectID) }

// IsEmpty reports whether the table has no rows.
func (t *Table) IsEmpty() bool { return len(t.SubjectID) == 0 }

// ColumnNames returns all predicate column names present, sorted.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.colNames))
	copy(out, t.colNames)
	return out
}

// HasColumn reports whether name is a present predicate column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Columns[name]
	return ok
}

// Groups returns the per-subject contiguous row ranges, computing and
// caching them on first use. The table must already be sorted by
// (subject_id, timestamp), which Build guarantees.
func (t *Table) Groups() []Group {
	if t.groupsBuilt {
		return t.groups
	}
	var groups []Group
	start := 0
	for i := 1; i <= len(t.SubjectID); i++ {
		if i == len(t.SubjectID) || t.SubjectID[i] != t.SubjectID[start] {
			groups = append(groups, Group{SubjectID: t.SubjectID[start], Start: start, End: i})
			start = i
		}
	}
	t.groups = groups
	t.groupsBuilt = true
	return groups
}

// TimestampAt returns row i's timestamp as a time.Time.
func (t *Table) TimestampAt(i int) time.Time {
	return time.UnixMicro(t.Timestamp[i]).UTC()
}

// ApplyDerived computes and stores one column per derived predicate in
// predicates, evaluating its and()/or() combination of operand counts (each
// treated as "present" when > 0) into a 0/1 column at every row (§2 item 2,
// §3 "Derived predicate"). It must run after Build, since every operand is
// read from a column Build already assembled, or from a derived column this
// function computed for an earlier name, since a derived predicate's
// operands may themselves be derived. A plain operand with no column counts
// as zero at every row. Mirrors the original implementation's
// get_predicates_df step: "for name, code in cfg.derived_predicates.items():
// data = data.with_columns(code.eval_expr()...)".
func ApplyDerived(t *Table, predicates *predicate.Set) error {
	computed := map[string][]int64{}

	var compute func(name string) ([]int64, error)
	compute = func(name string) ([]int64, error) {
		if col, ok := t.Columns[name]; ok {
			return col, nil
		}
		if col, ok := computed[name]; ok {
			return col, nil
		}
		if _, ok := predicates.Plain(name); ok {
			// A plain predicate that fires on no row has no column (Build
			// only creates columns named in some row's Counts).
			return make([]int64, t.NumRows()), nil
		}
		d, ok := predicates.Derived(name)
		if !ok {
			return nil, xerrors.NewSchemaError(name, fmt.Errorf("derived predicate operand %q has no column in the predicates table", name))
		}
		values := make([]int64, t.NumRows())
		for i := range values {
			result := d.Op == predicate.OpAnd
			for _, operand := range d.Operands {
				col, err := compute(operand)
				if err != nil {
					return nil, err
				}
				present := col[i] > 0
				if d.Op == predicate.OpAnd {
					result = result && present
				} else {
					result = result || present
				}
			}
			if result {
				values[i] = 1
			}
		}
		computed[name] = values
		return values, nil
	}

	for _, name := range predicates.Names() {
		if _, ok := predicates.Derived(name); !ok {
			continue
		}
		values, err := compute(name)
		if err != nil {
			return err
		}
		t.addColumn(name, values)
	}
	return nil
}

// addColumn stores values under name, appending to colNames (kept sorted)
// when name is new.
func (t *Table) addColumn(name string, values []int64) {
	if _, exists := t.Columns[name]; !exists {
		t.colNames = append(t.colNames, name)
		sort.Strings(t.colNames)
	}
	t.Columns[name] = values
}
