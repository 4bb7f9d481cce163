package aggregate

import (
	"testing"
	"time"

	"github.com/n0roo/aces/internal/predtable"
	"github.com/n0roo/aces/internal/timeref"
)

func mkTable(t *testing.T, rows []predtable.Row) *predtable.Table {
	tbl, err := predtable.Build(rows)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return tbl
}

func ts(hour int) time.Time {
	return time.Date(2020, 1, 1, hour, 0, 0, 0, time.UTC)
}

func TestAggTemporalForwardWindow(t *testing.T) {
	tbl := mkTable(t, []predtable.Row{
		{SubjectID: 1, Timestamp: ts(0), Counts: map[string]int64{"fever": 1}},
		{SubjectID: 1, Timestamp: ts(1), Counts: map[string]int64{"fever": 1}},
		{SubjectID: 1, Timestamp: ts(3), Counts: map[string]int64{"fever": 1}},
		{SubjectID: 1, Timestamp: ts(5), Counts: map[string]int64{"fever": 1}},
	})
	anchors := []Anchor{{SubjectID: 1, Timestamp: ts(0).UnixMicro()}}
	results := AggTemporal(tbl, anchors, 3*timeref.Hour, true, true)
	if len(results) != 1 || !results[0].Matched {
		t.Fatalf("results = %+v", results)
	}
	if got := results[0].Counts["fever"]; got != 3 {
		t.Errorf("fever count = %d, want 3 (hours 0,1,3)", got)
	}
	if results[0].EndTime != ts(3).UnixMicro() {
		t.Errorf("end time = %d, want %d", results[0].EndTime, ts(3).UnixMicro())
	}
}

func TestAggTemporalEndExclusive(t *testing.T) {
	tbl := mkTable(t, []predtable.Row{
		{SubjectID: 1, Timestamp: ts(0), Counts: map[string]int64{"fever": 1}},
		{SubjectID: 1, Timestamp: ts(3), Counts: map[string]int64{"fever": 1}},
	})
	anchors := []Anchor{{SubjectID: 1, Timestamp: ts(0).UnixMicro()}}
	results := AggTemporal(tbl, anchors, 3*timeref.Hour, true, false)
	if got := results[0].Counts["fever"]; got != 1 {
		t.Errorf("fever count = %d, want 1 (end exclusive drops hour-3 row)", got)
	}
}

func TestAggTemporalNegativeDelta(t *testing.T) {
	tbl := mkTable(t, []predtable.Row{
		{SubjectID: 1, Timestamp: ts(0), Counts: map[string]int64{"fever": 1}},
		{SubjectID: 1, Timestamp: ts(2), Counts: map[string]int64{"fever": 1}},
		{SubjectID: 1, Timestamp: ts(4), Counts: map[string]int64{"fever": 1}},
	})
	anchors := []Anchor{{SubjectID: 1, Timestamp: ts(4).UnixMicro()}}
	results := AggTemporal(tbl, anchors, -4*timeref.Hour, true, true)
	if results[0].StartTime != ts(0).UnixMicro() || results[0].EndTime != ts(4).UnixMicro() {
		t.Errorf("window = [%d,%d], want [%d,%d]", results[0].StartTime, results[0].EndTime, ts(0).UnixMicro(), ts(4).UnixMicro())
	}
	if got := results[0].Counts["fever"]; got != 3 {
		t.Errorf("fever count = %d, want 3", got)
	}
}

func TestAggTemporalNoSuchSubject(t *testing.T) {
	tbl := mkTable(t, []predtable.Row{
		{SubjectID: 1, Timestamp: ts(0), Counts: map[string]int64{"fever": 1}},
	})
	anchors := []Anchor{{SubjectID: 99, Timestamp: ts(0).UnixMicro()}}
	results := AggTemporal(tbl, anchors, timeref.Hour, true, true)
	if results[0].Matched {
		t.Error("expected no match for unknown subject")
	}
}

func TestAggEventForwardFindsNextBoundary(t *testing.T) {
	tbl := mkTable(t, []predtable.Row{
		{SubjectID: 1, Timestamp: ts(0), Counts: map[string]int64{"labA": 1}},
		{SubjectID: 1, Timestamp: ts(1), Counts: map[string]int64{"labA": 1}},
		{SubjectID: 1, Timestamp: ts(2), Counts: map[string]int64{"discharge": 1}},
		{SubjectID: 1, Timestamp: ts(3), Counts: map[string]int64{"labA": 1}},
	})
	anchors := []Anchor{{SubjectID: 1, Timestamp: ts(0).UnixMicro()}}
	results := AggEvent(tbl, anchors, "discharge", 0, true, true, true)
	if !results[0].Matched {
		t.Fatal("expected a match")
	}
	if results[0].EndTime != ts(2).UnixMicro() {
		t.Errorf("end time = %d, want discharge at hour 2", results[0].EndTime)
	}
	if got := results[0].Counts["labA"]; got != 2 {
		t.Errorf("labA count = %d, want 2 (hours 0,1, excludes hour 3 after discharge)", got)
	}
}

func TestAggEventForwardNoMatch(t *testing.T) {
	tbl := mkTable(t, []predtable.Row{
		{SubjectID: 1, Timestamp: ts(0), Counts: map[string]int64{"labA": 1}},
	})
	anchors := []Anchor{{SubjectID: 1, Timestamp: ts(0).UnixMicro()}}
	results := AggEvent(tbl, anchors, "discharge", 0, true, true, true)
	if results[0].Matched {
		t.Error("expected no match: no subsequent discharge event")
	}
}

func TestAggEventTieExcludedWhenStartExclusive(t *testing.T) {
	tbl := mkTable(t, []predtable.Row{
		{SubjectID: 1, Timestamp: ts(0), Counts: map[string]int64{"discharge": 1}},
		{SubjectID: 1, Timestamp: ts(5), Counts: map[string]int64{"discharge": 1}},
	})
	anchors := []Anchor{{SubjectID: 1, Timestamp: ts(0).UnixMicro()}}
	results := AggEvent(tbl, anchors, "discharge", 0, false, true, true)
	if !results[0].Matched {
		t.Fatal("expected a match at hour 5")
	}
	if results[0].EndTime != ts(5).UnixMicro() {
		t.Errorf("end time = %d, want hour 5 (hour 0 tie excluded by start_inclusive=false)", results[0].EndTime)
	}
}

func TestAggEventTieIncludedWhenStartInclusive(t *testing.T) {
	tbl := mkTable(t, []predtable.Row{
		{SubjectID: 1, Timestamp: ts(0), Counts: map[string]int64{"discharge": 1}},
		{SubjectID: 1, Timestamp: ts(5), Counts: map[string]int64{"discharge": 1}},
	})
	anchors := []Anchor{{SubjectID: 1, Timestamp: ts(0).UnixMicro()}}
	results := AggEvent(tbl, anchors, "discharge", 0, true, true, true)
	if results[0].EndTime != ts(0).UnixMicro() {
		t.Errorf("end time = %d, want hour 0 (zero-width tie match)", results[0].EndTime)
	}
}

func TestAggEventBackwardFindsPrevBoundary(t *testing.T) {
	tbl := mkTable(t, []predtable.Row{
		{SubjectID: 1, Timestamp: ts(0), Counts: map[string]int64{"admit": 1}},
		{SubjectID: 1, Timestamp: ts(2), Counts: map[string]int64{"labA": 1}},
		{SubjectID: 1, Timestamp: ts(3), Counts: map[string]int64{"labA": 1}},
	})
	anchors := []Anchor{{SubjectID: 1, Timestamp: ts(3).UnixMicro()}}
	results := AggEvent(tbl, anchors, "admit", 0, true, true, false)
	if !results[0].Matched {
		t.Fatal("expected a match")
	}
	if results[0].StartTime != ts(0).UnixMicro() {
		t.Errorf("start time = %d, want admit at hour 0", results[0].StartTime)
	}
	if got := results[0].Counts["labA"]; got != 2 {
		t.Errorf("labA count = %d, want 2", got)
	}
}
