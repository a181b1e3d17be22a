package morph

import (
	"math"
	"testing"
)

func TestWrapStaysInRange(t *testing.T) {
	for m := float32(-100); m <= 100; m += 0.037 {
		w := Wrap(m)
		if w < -Range || w > Range {
			t.Fatalf("wrap(%f) out of range: %f", m, w)
		}
	}
	for _, m := range []float32{float32(math.NaN()), float32(math.Inf(1)), float32(math.Inf(-1))} {
		if w := Wrap(m); w != 0 {
			t.Fatalf("expected non-finite input to wrap to 0, got %f", w)
		}
	}
}

func TestWrapContinuesRamp(t *testing.T) {
	cases := []struct {
		in, want float32
	}{
		{0, 0},
		{2.5, 2.5},
		{3, 3},
		{-3, -3},
		{3.5, -2.5},
		{-3.5, 2.5},
		{7, 1},
		{-7, -1},
		{9.25, -2.75},
	}
	for _, tc := range cases {
		if got := Wrap(tc.in); math.Abs(float64(got-tc.want)) > 1e-5 {
			t.Fatalf("wrap(%f): got=%f want=%f", tc.in, got, tc.want)
		}
	}
}

func TestResolveBandTable(t *testing.T) {
	cases := []struct {
		m                          float32
		center, forward, backward int
		magnitude                  float32
	}{
		{0.25, 0, 1, 2, 0.25},
		{1.5, 1, 2, 0, 0.5},
		{2.75, 2, 0, 1, 0.75},
		{-0.25, 0, 2, 1, 0.25},
		{-1.5, 2, 1, 0, 0.5},
		{-2.75, 1, 0, 2, 0.75},
	}
	for _, tc := range cases {
		st := Resolve(tc.m, 0, 0, false)
		if st.Center != tc.center || st.Forward != tc.forward || st.Backward != tc.backward {
			t.Fatalf("m=%f: got center=%d forward=%d backward=%d want %d %d %d",
				tc.m, st.Center, st.Forward, st.Backward, tc.center, tc.forward, tc.backward)
		}
		if math.Abs(float64(st.Magnitude-tc.magnitude)) > 1e-6 {
			t.Fatalf("m=%f: magnitude got=%f want=%f", tc.m, st.Magnitude, tc.magnitude)
		}
	}
}

func TestResolveSettlesAtIntegers(t *testing.T) {
	cases := []struct {
		m     float32
		scene int
	}{
		{0, 1}, {1, 2}, {2, 0}, {3, 1}, {-1, 0}, {-2, 2}, {-3, 1},
	}
	for _, tc := range cases {
		st := Resolve(tc.m, 1, 0, false)
		if !st.Settled() {
			t.Fatalf("m=%f: expected settled state, magnitude=%f", tc.m, st.Magnitude)
		}
		if st.Center != tc.scene || st.Forward != tc.scene || st.Backward != tc.scene {
			t.Fatalf("m=%f: expected all scenes = %d, got %+v", tc.m, tc.scene, st)
		}
	}
}

func TestResolveAppliesOffset(t *testing.T) {
	a := Resolve(0.4, 2, 0, false)
	b := Resolve(0.4, 0, 2, false)
	c := Resolve(0.4, 1, -2, false)
	if a != b || a != c {
		t.Fatalf("expected base+offset to be interchangeable: %+v %+v %+v", a, b, c)
	}
}

// weights returns the contribution of each scene to the linear blend.
func weights(st State) [numScenes]float32 {
	var w [numScenes]float32
	w[st.Center] += 1 - st.Magnitude
	w[st.Forward] += st.Magnitude
	return w
}

func checkContinuity(t *testing.T, ring bool) {
	t.Helper()
	const step = 1.0 / 512.0
	prev := Resolve(-9, 0, 0, ring)
	for i := 1; i <= 18*512; i++ {
		m := float32(-9 + float64(i)*step)
		st := Resolve(m, 0, 0, ring)
		if st.Magnitude < 0 || st.Magnitude > 1 {
			t.Fatalf("m=%f: magnitude out of range: %f", m, st.Magnitude)
		}
		pw, w := weights(prev), weights(st)
		limit := float32(step * 1.01)
		if ring {
			limit *= 2
		}
		for s := 0; s < numScenes; s++ {
			if d := float32(math.Abs(float64(w[s] - pw[s]))); d > limit+1e-5 {
				t.Fatalf("discontinuity at m=%f scene %d: prev=%+v cur=%+v", m, s, prev, st)
			}
		}
		if ring {
			if d := math.Abs(float64(st.Magnitude - prev.Magnitude)); st.Backward != prev.Backward && d > 0 && prev.Magnitude != 0 && st.Magnitude != 0 {
				t.Fatalf("ring backward scene changed mid-blend at m=%f: prev=%+v cur=%+v", m, prev, st)
			}
		}
		prev = st
	}
}

func TestResolveLinearIsContinuous(t *testing.T) {
	checkContinuity(t, false)
}

func TestResolveRingIsContinuous(t *testing.T) {
	checkContinuity(t, true)
}

func TestResolveRingKeepsCenterOnBase(t *testing.T) {
	for _, m := range []float32{0.1, 0.5, 1, 1.7, 2.4, 2.9, -0.3, -1.2, -2.6} {
		st := Resolve(m, 2, 0, true)
		if st.Center != 2 {
			t.Fatalf("m=%f: expected ring center on base scene, got %d", m, st.Center)
		}
	}

	if st := Resolve(0.5, 0, 0, true); st.Magnitude != 1 || st.Forward != 1 || st.Backward != 2 {
		t.Fatalf("expected full blend toward next scene at +0.5, got %+v", st)
	}
	if st := Resolve(-0.5, 0, 0, true); st.Magnitude != 1 || st.Forward != 2 || st.Backward != 1 {
		t.Fatalf("expected mirrored neighbors at -0.5, got %+v", st)
	}
	if st := Resolve(0.25, 0, 0, true); math.Abs(float64(st.Magnitude-0.5)) > 1e-6 {
		t.Fatalf("expected doubled ramp, got magnitude %f", st.Magnitude)
	}
	for _, tc := range []struct{ m, want float32 }{
		{1.5, 1},
		{2, 1},
		{2.25, 0.75},
		{2.5, 0.5},
		{2.75, 0.25},
		{-2.5, 0.5},
	} {
		st := Resolve(tc.m, 0, 0, true)
		if math.Abs(float64(st.Magnitude-tc.want)) > 1e-6 || st.Center != 0 {
			t.Fatalf("m=%.2f: expected fold back over 2..3 to magnitude %f, got %+v", tc.m, tc.want, st)
		}
	}
	if st := Resolve(3, 1, 0, true); !st.Settled() || st.Center != 1 {
		t.Fatalf("expected settled base scene at +3, got %+v", st)
	}
}

func TestNearest(t *testing.T) {
	if got := Resolve(0.4, 0, 0, false).Nearest(); got != 0 {
		t.Fatalf("expected nearest center, got %d", got)
	}
	if got := Resolve(0.6, 0, 0, false).Nearest(); got != 1 {
		t.Fatalf("expected nearest forward, got %d", got)
	}
}

func TestPhaseVoltage(t *testing.T) {
	if v := PhaseVoltage(-3, false); v != 0 {
		t.Fatalf("expected 0V at -3, got %f", v)
	}
	if v := PhaseVoltage(3, false); v != 10 {
		t.Fatalf("expected 10V at +3, got %f", v)
	}
	if v := PhaseVoltage(0, false); v != 5 {
		t.Fatalf("expected 5V at 0, got %f", v)
	}
	if v := PhaseVoltage(-3, true); v != -5 {
		t.Fatalf("expected -5V at -3 bipolar, got %f", v)
	}
	if v := PhaseVoltage(1.5, true); v != 2.5 {
		t.Fatalf("expected 2.5V at 1.5 bipolar, got %f", v)
	}
}
