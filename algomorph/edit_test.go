package algomorph

import (
	"math/rand"
	"testing"

	"github.com/xandramax/Volume1-sub000/algorithm"
)

func TestEditStateMachine(t *testing.T) {
	m := newTestModule(t, nil)
	s := m.Session()
	if s.State() != Idle {
		t.Fatalf("expected idle, got %s", s.State())
	}

	m.PressEdit()
	if s.State() != EditingScene || s.EditScene() != 0 {
		t.Fatalf("expected editing scene 0, got %s scene=%d", s.State(), s.EditScene())
	}
	m.PressOperator(2)
	if s.State() != EditingOperator || s.ConfigOp() != 2 {
		t.Fatalf("expected editing op 2, got %s op=%d", s.State(), s.ConfigOp())
	}
	m.PressOperator(2)
	if s.State() != EditingScene {
		t.Fatalf("second press should deselect, got %s", s.State())
	}
	m.PressOperator(1)
	m.PressEdit()
	if s.State() != Idle || s.ConfigOp() != -1 {
		t.Fatalf("edit press should leave editing, got %s op=%d", s.State(), s.ConfigOp())
	}
}

func TestEditEntersNearestScene(t *testing.T) {
	m := newTestModule(t, func(p *Params) { p.Morph = 1.75 })
	var in Frame
	runFrames(m, &in, 1)
	m.PressEdit()
	if m.Session().EditScene() != 2 {
		t.Fatalf("expected nearest scene 2, got %d", m.Session().EditScene())
	}
}

func TestOperatorPressWhileIdleEntersEditing(t *testing.T) {
	m := newTestModule(t, nil)
	m.PressOperator(3)
	if m.Session().State() != EditingOperator || m.Session().ConfigOp() != 3 {
		t.Fatalf("got %s op=%d", m.Session().State(), m.Session().ConfigOp())
	}
}

func TestModulatorPressTogglesRoutes(t *testing.T) {
	m := newTestModule(t, nil)
	m.PressEdit()
	m.PressScene(1)
	if m.Session().EditScene() != 1 || m.BaseScene() != 0 {
		t.Fatalf("scene press while editing should move the edit scene only")
	}

	m.PressOperator(0)
	m.PressModulator(3)
	sc := m.Bank().Scene(1)
	if !sc.DiagonalTo(0, 3) {
		t.Fatalf("expected op0 -> op3 in scene 1")
	}
	m.PressModulator(0)
	if !sc.Horizontal(0) {
		t.Fatalf("expected horizontal on op0")
	}
	m.PressOperator(0)
	m.PressModulator(2)
	if !sc.ForcedCarrier(2) {
		t.Fatalf("expected forced carrier on op2")
	}
	if m.Bank().Scene(0).DiagonalTo(0, 3) {
		t.Fatalf("edits leaked into scene 0")
	}
}

func TestModulatorPressWhileIdleForcesCarrier(t *testing.T) {
	m := newTestModule(t, nil)
	m.PressModulator(1)
	if m.Session().State() != EditingScene {
		t.Fatalf("got %s", m.Session().State())
	}
	if !m.Bank().Scene(0).ForcedCarrier(1) {
		t.Fatalf("expected forced carrier on op1")
	}
}

func TestExitOnConnect(t *testing.T) {
	m := newTestModule(t, func(p *Params) { p.ExitOnConnect = true })
	m.PressOperator(1)
	m.PressModulator(2)
	if m.Session().State() != Idle {
		t.Fatalf("expected idle after connect, got %s", m.Session().State())
	}
	if !m.Bank().Scene(0).DiagonalTo(1, 2) {
		t.Fatalf("connection not made")
	}

	m.PressModulator(3)
	if m.Session().State() != EditingScene {
		t.Fatalf("forced-carrier toggle should not exit, got %s", m.Session().State())
	}
}

func TestScenePressWhileIdleSetsBase(t *testing.T) {
	m := newTestModule(t, nil)
	m.PressScene(2)
	if m.BaseScene() != 2 {
		t.Fatalf("base scene=%d", m.BaseScene())
	}
	m.PressScene(7)
	if m.BaseScene() != 2 {
		t.Fatalf("out of range press should be ignored")
	}
}

func TestUndoRedoToggles(t *testing.T) {
	m := newTestModule(t, nil)
	m.PressOperator(0)
	m.PressModulator(1)
	m.PressModulator(0)
	sc := m.Bank().Scene(0)

	if !m.Undo() || sc.Horizontal(0) {
		t.Fatalf("undo should remove horizontal")
	}
	if !m.Undo() || sc.DiagonalTo(0, 1) {
		t.Fatalf("undo should remove diagonal")
	}
	if m.Undo() {
		t.Fatalf("nothing left to undo")
	}
	if !m.Redo() || !sc.DiagonalTo(0, 1) {
		t.Fatalf("redo should restore diagonal")
	}

	m.PressModulator(2)
	if m.History().CanRedo() {
		t.Fatalf("new edit should discard redo tail")
	}
	if !sc.Carrier(3) || sc.Carrier(0) {
		t.Fatalf("derived carriers wrong after redo")
	}
}

func TestRandomizeAndInitializeAreUndoable(t *testing.T) {
	m := New(testSampleRate, nil, WithRand(rand.New(rand.NewSource(7))))
	m.Bank().ToggleDiagonal(0, 2, 1)
	before := m.Bank().Snapshot(0)

	m.Initialize()
	if m.Bank().Scene(0).HasOutgoing(2) {
		t.Fatalf("initialize should clear routes")
	}
	if !m.Undo() || m.Bank().Snapshot(0) != before {
		t.Fatalf("undo should restore the previous scene")
	}

	m.PressEdit()
	m.PressScene(1)
	m.Randomize()
	after := m.Bank().Snapshot(1)
	if after.CarrierCount() == 0 {
		t.Fatalf("randomized scene has no carrier")
	}
	m.Undo()
	if m.Bank().Snapshot(1) != algorithm.NewScene() {
		t.Fatalf("undo randomize should restore empty scene 1")
	}
	m.Redo()
	if m.Bank().Snapshot(1) != after {
		t.Fatalf("redo randomize mismatch")
	}
}

func TestHistoryLimitDropsOldest(t *testing.T) {
	m := New(testSampleRate, nil, WithHistoryLimit(2))
	m.PressModulator(0)
	m.PressModulator(1)
	m.PressModulator(2)
	undone := 0
	for m.Undo() {
		undone++
	}
	if undone != 2 {
		t.Fatalf("undid %d edits, want 2", undone)
	}
	if !m.Bank().Scene(0).ForcedCarrier(0) {
		t.Fatalf("oldest edit should have been dropped, not undone")
	}
}

func TestRedrawFlagRaisedByEdits(t *testing.T) {
	m := newTestModule(t, nil)
	m.Bank().ClearRedraw()
	m.PressOperator(0)
	m.PressModulator(1)
	if !m.Bank().NeedsRedraw() {
		t.Fatalf("edit should raise redraw flag")
	}
}
