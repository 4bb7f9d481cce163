package extract

import (
	"testing"
	"time"

	"github.com/n0roo/aces/internal/predtable"
	"github.com/n0roo/aces/internal/taskconfig"
)

func hoursAfter(base time.Time, h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

func mustParse(t *testing.T, doc string) *taskconfig.TaskConfig {
	cfg, err := taskconfig.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return cfg
}

func mustBuild(t *testing.T, rows []predtable.Row) *predtable.Table {
	tbl, err := predtable.Build(rows)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return tbl
}

// Scenario A (§8): admission trigger, target = [NULL, trigger+24h], has
// _ANY_EVENT:(5,), label=death, index_timestamp=end.
func scenarioAConfig(t *testing.T) *taskconfig.TaskConfig {
	return mustParse(t, `
predicates:
  admission:
    code: ADMISSION
  death:
    code: DEATH
trigger: admission
windows:
  target:
    start: NULL
    end: trigger + 24h
    has:
      _ANY_EVENT: "(5, )"
    label: death
    index_timestamp: end
`)
}

func TestScenarioA_FailsAnyEventThreshold(t *testing.T) {
	cfg := scenarioAConfig(t)
	base := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	tbl := mustBuild(t, []predtable.Row{
		{SubjectID: 1, Timestamp: base, Counts: map[string]int64{"admission": 1}},
		{SubjectID: 1, Timestamp: hoursAfter(base, 12), Counts: map[string]int64{}},
		{SubjectID: 1, Timestamp: hoursAfter(base, 30), Counts: map[string]int64{}},
		{SubjectID: 1, Timestamp: hoursAfter(base, 72), Counts: map[string]int64{"death": 1}},
	})
	results := Extract(tbl, cfg)
	if len(results) != 0 {
		t.Fatalf("expected 0 rows (only 2 events in first 24h), got %d", len(results))
	}
}

func TestScenarioA_SucceedsWithFiveEvents(t *testing.T) {
	cfg := scenarioAConfig(t)
	base := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []predtable.Row{
		{SubjectID: 1, Timestamp: base, Counts: map[string]int64{"admission": 1}},
	}
	for h := 1; h <= 4; h++ {
		rows = append(rows, predtable.Row{SubjectID: 1, Timestamp: hoursAfter(base, h), Counts: map[string]int64{}})
	}
	rows = append(rows, predtable.Row{SubjectID: 1, Timestamp: hoursAfter(base, 20), Counts: map[string]int64{"death": 1}})
	rows = append(rows, predtable.Row{SubjectID: 1, Timestamp: hoursAfter(base, 72), Counts: map[string]int64{}})
	tbl := mustBuild(t, rows)

	results := Extract(tbl, cfg)
	if len(results) != 1 {
		t.Fatalf("expected 1 row, got %d", len(results))
	}
	wr := results[0].Windows["target"]
	if wr.End != hoursAfter(base, 24).UnixMicro() {
		t.Errorf("target.end = %d, want t0+24h", wr.End)
	}
	if got := wr.Counts["death"]; got != 1 {
		t.Errorf("label predicate count = %d, want 1", got)
	}
}

// Scenario B (§8): gap=[trigger, trigger+2h], target=[gap.end, gap.end+24h],
// label=death.
func TestScenarioB_GapThenTarget(t *testing.T) {
	cfg := mustParse(t, `
predicates:
  admission:
    code: ADMISSION
  death:
    code: DEATH
trigger: admission
windows:
  gap:
    start: trigger
    end: gap.start + 2h
  target:
    start: gap.end
    end: target.start + 24h
    label: death
`)
	base := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	tbl := mustBuild(t, []predtable.Row{
		{SubjectID: 2, Timestamp: base, Counts: map[string]int64{"admission": 1}},
		{SubjectID: 2, Timestamp: hoursAfter(base, 10), Counts: map[string]int64{"death": 1}},
	})

	results := Extract(tbl, cfg)
	if len(results) != 1 {
		t.Fatalf("expected 1 row, got %d", len(results))
	}
	r := results[0]
	gap := r.Windows["gap"]
	if gap.End != hoursAfter(base, 2).UnixMicro() {
		t.Errorf("gap.end = %d, want t0+2h", gap.End)
	}
	target := r.Windows["target"]
	if target.Start != gap.End {
		t.Errorf("target.start = %d, want gap.end = %d", target.Start, gap.End)
	}
	if got := target.Counts["death"]; got != 1 {
		t.Errorf("death count in target = %d, want 1", got)
	}
}

// Scenario D (§8): no admission rows at all yields an empty result, no error.
func TestScenarioD_EmptyTrigger(t *testing.T) {
	cfg := scenarioAConfig(t)
	tbl := mustBuild(t, []predtable.Row{
		{SubjectID: 1, Timestamp: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), Counts: map[string]int64{"death": 1}},
	})
	results := Extract(tbl, cfg)
	if len(results) != 0 {
		t.Fatalf("expected 0 rows for empty trigger, got %d", len(results))
	}
}

// Scenario C (§8): trigger normal_spo2; gap=(trigger, trigger+24h]; target=
// (gap.end, gap.end+7d] with has abnormal_spo2:(1,None) and label=abnormal_spo2.
// A single abnormal reading 3 days after trigger falls inside target and
// yields one row with label=1.
func TestScenarioC_AbnormalSpO2(t *testing.T) {
	cfg := mustParse(t, `
predicates:
  normal_spo2:
    code: SPO2_NORMAL
  abnormal_spo2:
    code: SPO2_ABNORMAL
trigger: normal_spo2
windows:
  gap:
    start: trigger
    end: gap.start + 24h
    start_inclusive: false
    end_inclusive: true
  target:
    start: gap.end
    end: target.start + 7d
    start_inclusive: false
    end_inclusive: true
    has:
      abnormal_spo2: "(1, )"
    label: abnormal_spo2
`)
	base := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	tbl := mustBuild(t, []predtable.Row{
		{SubjectID: 4, Timestamp: base, Counts: map[string]int64{"normal_spo2": 1}},
		{SubjectID: 4, Timestamp: base.AddDate(0, 0, 3), Counts: map[string]int64{"abnormal_spo2": 1}},
	})

	results := Extract(tbl, cfg)
	if len(results) != 1 {
		t.Fatalf("expected 1 row, got %d", len(results))
	}
	target := results[0].Windows["target"]
	if got := target.Counts["abnormal_spo2"]; got != 1 {
		t.Errorf("label predicate count = %d, want 1", got)
	}
}

// A derived predicate's and()/or() combination (§2 item 2, §3 "Derived
// predicate") must be computed before extraction can use it, whether in a
// `has` constraint or as a NEXT boundary predicate. fever_either is used as
// both here: the window's end is the next row where fever_either fires, and
// its own has constraint also checks fever_either's count.
func TestDerivedPredicateAsHasConstraintAndEventBoundary(t *testing.T) {
	cfg := mustParse(t, `
predicates:
  admission:
    code: ADMISSION
  fevera:
    code: FEVER_A
  feverb:
    code: FEVER_B
  fever_either:
    expr: "or(fevera, feverb)"
trigger: admission
windows:
  target:
    start: trigger
    end: target.start -> fever_either
    has:
      fever_either: "(1, )"
`)
	base := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	tbl := mustBuild(t, []predtable.Row{
		{SubjectID: 5, Timestamp: base, Counts: map[string]int64{"admission": 1}},
		{SubjectID: 5, Timestamp: hoursAfter(base, 1), Counts: map[string]int64{"feverb": 1}},
	})
	if err := predtable.ApplyDerived(tbl, cfg.Predicates); err != nil {
		t.Fatalf("ApplyDerived: %v", err)
	}

	results := Extract(tbl, cfg)
	if len(results) != 1 {
		t.Fatalf("expected 1 row, got %d", len(results))
	}
	target := results[0].Windows["target"]
	if got := target.Counts["fever_either"]; got != 1 {
		t.Errorf("fever_either count = %d, want 1", got)
	}
}

// Scenario F (§8): two sibling windows off the trigger; subject satisfies
// one but not the other → inner-join semantics drop the subject entirely.
func TestScenarioF_SiblingIntersection(t *testing.T) {
	cfg := mustParse(t, `
predicates:
  admission:
    code: ADMISSION
  feverpred:
    code: FEVER
  labpred:
    code: LAB
trigger: admission
windows:
  fever_window:
    start: trigger
    end: fever_window.start + 6h
    has:
      feverpred: "(1, )"
  lab_window:
    start: trigger
    end: lab_window.start + 6h
    has:
      labpred: "(1, )"
`)
	base := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	tbl := mustBuild(t, []predtable.Row{
		{SubjectID: 3, Timestamp: base, Counts: map[string]int64{"admission": 1}},
		{SubjectID: 3, Timestamp: hoursAfter(base, 1), Counts: map[string]int64{"feverpred": 1}},
	})

	results := Extract(tbl, cfg)
	if len(results) != 0 {
		t.Fatalf("expected 0 rows (lab_window never satisfied), got %d", len(results))
	}
}
