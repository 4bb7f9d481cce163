package taskconfig

import (
	"strings"
	"testing"
)

func TestParseScenarioAConfig(t *testing.T) {
	doc := `
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
    start_inclusive: true
    end_inclusive: true
    has:
      _ANY_EVENT: "(5, )"
    label: death
    index_timestamp: end
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Trigger != "admission" {
		t.Errorf("trigger = %q", cfg.Trigger)
	}
	if cfg.LabelWindow != "target" {
		t.Errorf("label window = %q, want target", cfg.LabelWindow)
	}
	if cfg.IndexWindow != "target" {
		t.Errorf("index window = %q, want target", cfg.IndexWindow)
	}
	n := cfg.Tree.ByName["target"]
	if n == nil {
		t.Fatal("window target missing from tree")
	}
	c, ok := n.Has["_ANY_EVENT"]
	if !ok || c.Min == nil || *c.Min != 5 || c.Max != nil {
		t.Errorf("has constraint = %+v", c)
	}
}

func TestParseScenarioBConfig(t *testing.T) {
	doc := `
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
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	target := cfg.Tree.ByName["target"]
	gap := cfg.Tree.ByName["gap"]
	if target.Parent != gap {
		t.Errorf("target's parent should be gap")
	}
}

func TestCompileRejectsMissingTrigger(t *testing.T) {
	doc := `
predicates:
  admission:
    code: ADMISSION
windows:
  w:
    start: trigger
    end: w.start + 1h
`
	if _, err := Parse([]byte(doc)); err == nil {
		t.Fatal("expected error for missing trigger")
	}
}

func TestCompileRejectsUndefinedTriggerPredicate(t *testing.T) {
	doc := `
predicates:
  admission:
    code: ADMISSION
trigger: ghost
windows:
  w:
    start: trigger
    end: w.start + 1h
`
	if _, err := Parse([]byte(doc)); err == nil {
		t.Fatal("expected error for undefined trigger predicate")
	}
}

func TestCompileRejectsTwoLabels(t *testing.T) {
	doc := `
predicates:
  admission:
    code: ADMISSION
  death:
    code: DEATH
trigger: admission
windows:
  a:
    start: trigger
    end: a.start + 1h
    label: death
  b:
    start: a.end
    end: b.start + 1h
    label: death
`
	if _, err := Parse([]byte(doc)); err == nil {
		t.Fatal("expected error for two label windows")
	}
}

func TestCompileRejectsDerivedCycle(t *testing.T) {
	doc := `
predicates:
  admission:
    code: ADMISSION
  p:
    expr: "and(q, admission)"
  q:
    expr: "and(p, admission)"
trigger: admission
windows:
  w:
    start: trigger
    end: w.start + 1h
`
	if _, err := Parse([]byte(doc)); err == nil {
		t.Fatal("expected error for cyclic derived predicate DAG")
	}
}

func TestCompileRejectsMalformedHasBound(t *testing.T) {
	doc := `
predicates:
  admission:
    code: ADMISSION
trigger: admission
windows:
  w:
    start: trigger
    end: w.start + 1h
    has:
      _ANY_EVENT: "not-a-range"
`
	_, err := Parse([]byte(doc))
	if err == nil {
		t.Fatal("expected error for malformed has constraint")
	}
	if !strings.Contains(err.Error(), "has constraint") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestParseRejectsUnknownWindowField(t *testing.T) {
	doc := `
predicates:
  admission:
    code: ADMISSION
trigger: admission
windows:
  w:
    start: trigger
    end: w.start + 1h
    labell: admission
`
	if _, err := Parse([]byte(doc)); err == nil {
		t.Fatal("expected error for unknown field \"labell\" in window block")
	}
}

func TestParseRejectsUnknownPredicateField(t *testing.T) {
	doc := `
predicates:
  admission:
    cod: ADMISSION
trigger: admission
windows:
  w:
    start: trigger
    end: w.start + 1h
`
	if _, err := Parse([]byte(doc)); err == nil {
		t.Fatal("expected error for unknown field \"cod\" in predicate block")
	}
}

func TestCompileDerivedPredicate(t *testing.T) {
	doc := `
predicates:
  admission:
    code: ADMISSION
  fever:
    code: FEVER
  tachycardia:
    code: TACHY
  sepsis_signs:
    expr: "and(fever, tachycardia)"
trigger: admission
windows:
  w:
    start: trigger
    end: w.start + 1h
    has:
      sepsis_signs: "(1, )"
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !cfg.Predicates.Has("sepsis_signs") {
		t.Error("expected derived predicate sepsis_signs to be registered")
	}
}
