package windowtree

import (
	"testing"

	"github.com/n0roo/aces/internal/timeref"
)

func mustRef(t *testing.T, s string) timeref.Reference {
	t.Helper()
	ref, err := timeref.ParseReference(s)
	if err != nil {
		t.Fatalf("ParseReference(%q): %v", s, err)
	}
	return ref
}

func TestBuildSimpleGapTarget(t *testing.T) {
	gap := WindowSpec{
		Name:      "gap",
		StartExpr: timeref.Identity(timeref.Trigger),
		EndExpr:   timeref.Offset(mustRef(t, "gap.start"), 24*timeref.Hour),
	}
	target := WindowSpec{
		Name:      "target",
		StartExpr: timeref.Identity(mustRef(t, "gap.end")),
		EndExpr:   timeref.Offset(mustRef(t, "target.start"), 7*timeref.Day),
	}

	tree, err := Build([]WindowSpec{gap, target})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	g := tree.ByName["gap"]
	if g.Parent != tree.Root {
		t.Errorf("gap's parent should be the root")
	}
	if g.AnchorSide != timeref.SideStart {
		t.Errorf("gap should anchor on start, got %v", g.AnchorSide)
	}
	if g.Far.Kind != FarTemporal || g.Far.Delta != 24*timeref.Hour {
		t.Errorf("gap far edge = %+v", g.Far)
	}

	tg := tree.ByName["target"]
	if tg.Parent != g {
		t.Errorf("target's parent should be gap")
	}
	if tg.AnchorFromParentSide != timeref.SideEnd {
		t.Errorf("target should anchor off gap's end, got %v", tg.AnchorFromParentSide)
	}
	if tg.Far.Kind != FarTemporal || tg.Far.Delta != 7*timeref.Day {
		t.Errorf("target far edge = %+v", tg.Far)
	}
}

func TestBuildNullFarSideIsRecordBound(t *testing.T) {
	w := WindowSpec{
		Name:      "historical",
		StartExpr: timeref.Null(timeref.SideStart),
		EndExpr:   timeref.Identity(timeref.Trigger),
	}
	tree, err := Build([]WindowSpec{w})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	n := tree.ByName["historical"]
	if n.AnchorSide != timeref.SideEnd {
		t.Errorf("expected anchor on end, got %v", n.AnchorSide)
	}
	if n.Far.Kind != FarRecordBound {
		t.Errorf("expected FarRecordBound, got %v", n.Far.Kind)
	}
}

func TestBuildEventBoundNextOnFarEnd(t *testing.T) {
	w := WindowSpec{
		Name:      "until_discharge",
		StartExpr: timeref.Identity(timeref.Trigger),
		EndExpr:   timeref.Next(mustRef(t, "until_discharge.start"), "discharge"),
	}
	tree, err := Build([]WindowSpec{w})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	n := tree.ByName["until_discharge"]
	if n.Far.Kind != FarEventNext || n.Far.Predicate != "discharge" {
		t.Errorf("unexpected far edge: %+v", n.Far)
	}
}

func TestBuildRejectsNextOnFarStart(t *testing.T) {
	w := WindowSpec{
		Name:      "bad",
		StartExpr: timeref.Next(mustRef(t, "bad.end"), "admission"),
		EndExpr:   timeref.Identity(timeref.Trigger),
	}
	if _, err := Build([]WindowSpec{w}); err == nil {
		t.Fatal("expected error: NEXT on far start is illegal")
	}
}

func TestBuildRejectsPrevOnFarEnd(t *testing.T) {
	w := WindowSpec{
		Name:      "bad",
		StartExpr: timeref.Identity(timeref.Trigger),
		EndExpr:   timeref.Prev(mustRef(t, "bad.start"), "discharge"),
	}
	if _, err := Build([]WindowSpec{w}); err == nil {
		t.Fatal("expected error: PREV on far end is illegal")
	}
}

func TestBuildRejectsWrongOffsetSign(t *testing.T) {
	w := WindowSpec{
		Name:      "bad",
		StartExpr: timeref.Identity(timeref.Trigger),
		EndExpr:   timeref.Offset(mustRef(t, "bad.start"), -1*timeref.Hour),
	}
	if _, err := Build([]WindowSpec{w}); err == nil {
		t.Fatal("expected error: negative offset from own start to end")
	}
}

func TestBuildRejectsBothSidesAnchored(t *testing.T) {
	w := WindowSpec{
		Name:      "w",
		StartExpr: timeref.Identity(timeref.Trigger),
		EndExpr:   timeref.Offset(mustRef(t, "w.start"), 24*timeref.Hour),
	}
	other := WindowSpec{
		Name:      "other",
		StartExpr: timeref.Identity(timeref.Trigger),
		EndExpr:   timeref.Offset(mustRef(t, "other.start"), 48*timeref.Hour),
	}
	// Both windows anchor independently off trigger, which is fine on its
	// own; the illegal case is a single window with both sides anchored.
	if _, err := Build([]WindowSpec{w, other}); err != nil {
		t.Fatalf("two independent trigger-anchored windows should be legal: %v", err)
	}

	bad := WindowSpec{
		Name:      "bad2",
		StartExpr: timeref.Identity(timeref.Trigger),
		EndExpr:   timeref.Identity(timeref.Trigger),
	}
	if _, err := Build([]WindowSpec{bad}); err == nil {
		t.Fatal("expected error: both sides independently anchored")
	}
}

func TestBuildRejectsUndefinedWindowReference(t *testing.T) {
	w := WindowSpec{
		Name:      "orphan",
		StartExpr: timeref.Identity(mustRef(t, "ghost.end")),
		EndExpr:   timeref.Offset(mustRef(t, "orphan.start"), time1h()),
	}
	if _, err := Build([]WindowSpec{w}); err == nil {
		t.Fatal("expected error: reference to undefined window")
	}
}

func TestBuildRejectsCycle(t *testing.T) {
	a := WindowSpec{
		Name:      "a",
		StartExpr: timeref.Identity(mustRef(t, "b.end")),
		EndExpr:   timeref.Offset(mustRef(t, "a.start"), time1h()),
	}
	b := WindowSpec{
		Name:      "b",
		StartExpr: timeref.Identity(mustRef(t, "a.end")),
		EndExpr:   timeref.Offset(mustRef(t, "b.start"), time1h()),
	}
	if _, err := Build([]WindowSpec{a, b}); err == nil {
		t.Fatal("expected error: mutual reference cycle")
	}
}

func TestPreOrder(t *testing.T) {
	gap := WindowSpec{
		Name:      "gap",
		StartExpr: timeref.Identity(timeref.Trigger),
		EndExpr:   timeref.Offset(mustRef(t, "gap.start"), 24*timeref.Hour),
	}
	target := WindowSpec{
		Name:      "target",
		StartExpr: timeref.Identity(mustRef(t, "gap.end")),
		EndExpr:   timeref.Offset(mustRef(t, "target.start"), 7*timeref.Day),
	}
	tree, err := Build([]WindowSpec{gap, target})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	order := tree.PreOrder()
	if len(order) != 2 || order[0].Name != "gap" || order[1].Name != "target" {
		names := make([]string, len(order))
		for i, n := range order {
			names[i] = n.Name
		}
		t.Errorf("unexpected pre-order: %v", names)
	}
}

func time1h() timeref.Duration { return timeref.Hour }
