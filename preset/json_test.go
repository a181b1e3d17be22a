package preset

import (
	"bytes"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xandramax/Volume1-sub000/algomorph"
	"github.com/xandramax/Volume1-sub000/algorithm"
)

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func TestSaveLoadRoundTrip(t *testing.T) {
	src := algomorph.New(48000, nil)
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < algorithm.NumScenes; i++ {
		src.Bank().Randomize(i, rng)
	}
	src.Bank().ToggleForcedCarrier(1, 0) // may disable op0
	src.SetBaseScene(2)
	src.PressEdit()
	src.PressScene(1)
	src.Aux().Assign(0, algomorph.RoleMorph, true)
	src.Aux().Assign(0, algomorph.RoleClock, true)
	src.Aux().Assign(4, algomorph.RoleShadow4, true)
	p := src.Params()
	p.RingMorph = true
	p.Mode = algomorph.AlterEgo
	p.ClickFilterSlew = 250
	p.OutputGain = 0.5
	p.Morph = -1.25

	path := filepath.Join(t.TempDir(), "presets", "a.json")
	if err := SaveJSON(path, Capture(src)); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}

	dst := algomorph.New(48000, nil)
	logger, logs := captureLogger()
	if err := LoadInto(path, dst, logger); err != nil {
		t.Fatalf("LoadInto: %v", err)
	}
	if logs.Len() != 0 {
		t.Fatalf("complete document should load without warnings:\n%s", logs.String())
	}

	for i := 0; i < algorithm.NumScenes; i++ {
		want := src.Bank().Snapshot(i)
		got := dst.Bank().Snapshot(i)
		if got != want {
			t.Fatalf("scene %d mismatch: got=%+v want=%+v", i, got, want)
		}
		for op := 0; op < algorithm.NumOperators; op++ {
			if got.Carrier(op) != want.Carrier(op) || got.Disabled(op) != want.Disabled(op) {
				t.Fatalf("scene %d op %d derived flags differ", i, op)
			}
		}
	}
	if dst.BaseScene() != 2 || !dst.Session().ConfigMode() || dst.Session().EditScene() != 1 {
		t.Fatalf("scene state mismatch: base=%d config=%v edit=%d", dst.BaseScene(), dst.Session().ConfigMode(), dst.Session().EditScene())
	}
	for i := 0; i < algomorph.NumAuxInputs; i++ {
		if dst.Aux().Assigned(i) != src.Aux().Assigned(i) {
			t.Fatalf("aux %d roles mismatch: got=%v want=%v", i, dst.Aux().Assigned(i).Roles(), src.Aux().Assigned(i).Roles())
		}
	}
	dp := dst.Params()
	if *dp != *p {
		t.Fatalf("params mismatch:\n got=%+v\nwant=%+v", *dp, *p)
	}
}

func TestRoundTripRoutesIdentically(t *testing.T) {
	src := algomorph.New(48000, nil)
	src.Bank().ToggleDiagonal(0, 0, 0)
	src.Bank().ToggleHorizontal(0, 3)
	src.Params().ClickFilterEnabled = false

	dir := t.TempDir()
	path := filepath.Join(dir, "p.json")
	if err := SaveJSON(path, Capture(src)); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	dst := algomorph.New(48000, nil)
	if err := LoadInto(path, dst, nil); err != nil {
		t.Fatalf("LoadInto: %v", err)
	}

	var in algomorph.Frame
	for op := 0; op < 4; op++ {
		in.SetOperator(op, float32(op+1))
	}
	var a, b algomorph.Output
	src.Process(&in, &a)
	dst.Process(&in, &b)
	if a != b {
		t.Fatalf("loaded module routes differently:\n got=%+v\nwant=%+v", b, a)
	}
}

func TestApplyPartialDocumentUsesDefaults(t *testing.T) {
	d, err := Parse([]byte(`{"scenes": [{"diagonal": 1}], "ring_morph": true}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	m := algomorph.New(48000, nil)
	m.SetBaseScene(1)
	m.Bank().ToggleDiagonal(2, 1, 1)
	logger, logs := captureLogger()
	Apply(m, d, logger)

	if !m.Params().RingMorph {
		t.Fatalf("expected ring_morph from document")
	}
	if !m.Bank().Scene(0).Diagonal(0, 0) {
		t.Fatalf("expected scene 0 diagonal bit")
	}
	if m.Bank().Scene(2).HasOutgoing(1) {
		t.Fatalf("missing scene should reset to empty")
	}
	if m.BaseScene() != 0 {
		t.Fatalf("missing base_scene should default to 0, got %d", m.BaseScene())
	}
	if !m.Params().ClickFilterEnabled || m.Params().ClickFilterSlew != algomorph.DefaultClickFilterSlew {
		t.Fatalf("missing click filter fields should use defaults: %+v", *m.Params())
	}
	for _, field := range []string{"version", "base_scene", "scenes[0].horizontal", "scenes[2]"} {
		if !strings.Contains(logs.String(), field) {
			t.Fatalf("expected warning mentioning %s:\n%s", field, logs.String())
		}
	}
}

func TestApplyOutOfRangeValues(t *testing.T) {
	doc := `{
  "version": 9,
  "scenes": [{"diagonal": 99999, "horizontal": -1, "forced_carrier": 3}, {}, {}],
  "base_scene": 5,
  "edit_scene": -2,
  "click_filter_slew": -10,
  "output_gain": 1000,
  "aux_roles": [["morph", "volume"], [], [], [], [], ["clock"]]
}`
	d, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	m := algomorph.New(48000, nil)
	logger, logs := captureLogger()
	Apply(m, d, logger)

	s0 := m.Bank().Snapshot(0)
	d0, h0, f0 := s0.Bits()
	if d0 != 0 || h0 != 0 || f0 != 3 {
		t.Fatalf("scene 0 bits: diag=%d horiz=%d forced=%d", d0, h0, f0)
	}
	if m.BaseScene() != 0 || m.Session().EditScene() != 0 {
		t.Fatalf("out of range indices should reset to 0")
	}
	if m.Params().ClickFilterSlew != algomorph.DefaultClickFilterSlew || m.Params().OutputGain != 1 {
		t.Fatalf("out of range floats should use defaults: %+v", *m.Params())
	}
	if got := m.Aux().Assigned(0); !got.Has(algomorph.RoleMorph) || len(got.Roles()) != 1 {
		t.Fatalf("aux 0 roles: %v", got.Roles())
	}
	for _, want := range []string{"newer schema", "volume", "extra aux inputs", "click_filter_slew"} {
		if !strings.Contains(logs.String(), want) {
			t.Fatalf("expected warning containing %q:\n%s", want, logs.String())
		}
	}
}

func TestLoadJSONErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadJSON(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"scenes": [`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadJSON(bad); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
}
