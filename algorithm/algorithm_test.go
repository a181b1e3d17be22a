package algorithm

import (
	"math/rand"
	"testing"
)

func expectedCarrier(s *Scene, op int) bool {
	disabled := s.ForcedCarrier(op) && s.HasOutgoing(op)
	return (!s.HasOutgoing(op) && !disabled) || (s.ForcedCarrier(op) && !disabled)
}

func checkDerived(t *testing.T, s *Scene) {
	t.Helper()
	for op := 0; op < NumOperators; op++ {
		if got, want := s.Carrier(op), expectedCarrier(s, op); got != want {
			t.Fatalf("carrier mismatch for op %d: got=%v want=%v", op, got, want)
		}
		if got, want := s.Disabled(op), s.ForcedCarrier(op) && s.HasOutgoing(op); got != want {
			t.Fatalf("disabled mismatch for op %d: got=%v want=%v", op, got, want)
		}
	}
}

func TestNewSceneAllCarriers(t *testing.T) {
	s := NewScene()
	if s.CarrierCount() != NumOperators {
		t.Fatalf("expected every operator to be a carrier, got %d", s.CarrierCount())
	}
	for op := 0; op < NumOperators; op++ {
		if s.Disabled(op) || s.HasOutgoing(op) || s.Horizontal(op) {
			t.Fatalf("expected op %d to be unconnected", op)
		}
	}
}

func TestThreeToFourRoundTrip(t *testing.T) {
	for op := 0; op < NumOperators; op++ {
		if FourToThree[op][op] != -1 {
			t.Fatalf("expected -1 on the diagonal for op %d", op)
		}
		for rel := 0; rel < NumModulators; rel++ {
			dest := ThreeToFour[op][rel]
			if dest == op {
				t.Fatalf("op %d rel %d maps onto itself", op, rel)
			}
			if FourToThree[op][dest] != rel {
				t.Fatalf("round trip failed for op %d rel %d: got=%d", op, rel, FourToThree[op][dest])
			}
		}
	}
}

func TestDiagonalConnectionRemovesCarrier(t *testing.T) {
	s := NewScene()
	s.ToggleDiagonal(0, FourToThree[0][1])

	if s.Carrier(0) {
		t.Fatalf("expected op 0 to stop being a carrier once it modulates op 1")
	}
	for op := 1; op < NumOperators; op++ {
		if !s.Carrier(op) {
			t.Fatalf("expected op %d to remain a carrier", op)
		}
	}
	if !s.DiagonalTo(0, 1) || s.DiagonalTo(0, 2) || s.DiagonalTo(0, 0) {
		t.Fatalf("unexpected DiagonalTo results")
	}
}

func TestForcedCarrierOnModulatorDisables(t *testing.T) {
	s := NewScene()
	s.ToggleDiagonal(2, 0)
	s.ToggleForcedCarrier(2)
	if !s.Disabled(2) {
		t.Fatalf("expected forced carrier with outgoing connections to be disabled")
	}
	if s.Carrier(2) {
		t.Fatalf("expected disabled operator not to be a carrier")
	}

	s.ToggleDiagonal(2, 0)
	if s.Disabled(2) || !s.Carrier(2) {
		t.Fatalf("expected forced leaf operator to be an enabled carrier")
	}
}

func TestToggleIsInvolution(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		s := SceneFromBits(uint16(rng.Intn(1<<12)), uint8(rng.Intn(16)), uint8(rng.Intn(16)))
		before := s
		op := rng.Intn(NumOperators)
		rel := rng.Intn(NumModulators)

		s.ToggleDiagonal(op, rel)
		s.ToggleDiagonal(op, rel)
		if s != before {
			t.Fatalf("diagonal toggle twice changed state: got=%+v want=%+v", s, before)
		}
		s.ToggleHorizontal(op)
		s.ToggleHorizontal(op)
		if s != before {
			t.Fatalf("horizontal toggle twice changed state: got=%+v want=%+v", s, before)
		}
		s.ToggleForcedCarrier(op)
		s.ToggleForcedCarrier(op)
		if s != before {
			t.Fatalf("forced toggle twice changed state: got=%+v want=%+v", s, before)
		}
	}
}

func TestCarrierInvariantUnderRandomToggles(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	b := NewBank()
	for i := 0; i < 5000; i++ {
		scene := rng.Intn(NumScenes)
		op := rng.Intn(NumOperators)
		switch rng.Intn(3) {
		case 0:
			b.ToggleDiagonal(scene, op, rng.Intn(NumModulators))
		case 1:
			b.ToggleHorizontal(scene, op)
		default:
			b.ToggleForcedCarrier(scene, op)
		}
		checkDerived(t, b.Scene(scene))
	}
}

func TestSetBitsMasksAndRecomputes(t *testing.T) {
	s := SceneFromBits(0xFFFF, 0xFF, 0xFF)
	d, h, f := s.Bits()
	if d != 0x0FFF || h != 0x0F || f != 0x0F {
		t.Fatalf("expected masked bits, got d=%#x h=%#x f=%#x", d, h, f)
	}
	checkDerived(t, &s)
	if s.CarrierCount() != 0 {
		t.Fatalf("expected fully connected forced scene to have no carriers, got %d", s.CarrierCount())
	}
}

func TestRandomizeProducesValidScenes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	b := NewBank()
	for i := 0; i < 1000; i++ {
		scene := i % NumScenes
		b.Randomize(scene, rng)
		s := b.Scene(scene)
		checkDerived(t, s)

		natural := false
		for op := 0; op < NumOperators; op++ {
			if s.Disabled(op) {
				t.Fatalf("randomize disabled op %d", op)
			}
			if !s.HasOutgoing(op) {
				natural = true
			}
		}
		if !natural {
			t.Fatalf("randomize produced a scene without a natural carrier")
		}
	}
}

func TestInitializeClearsScene(t *testing.T) {
	b := NewBank()
	b.Randomize(1, rand.New(rand.NewSource(3)))
	b.ToggleDiagonal(1, 0, 0)
	b.Initialize(1)
	d, h, f := b.Scene(1).Bits()
	if d != 0 || h != 0 || f != 0 {
		t.Fatalf("expected cleared bits, got d=%#x h=%#x f=%#x", d, h, f)
	}
	if b.Scene(1).CarrierCount() != NumOperators {
		t.Fatalf("expected all carriers after initialize")
	}
}

func TestMutatorsRaiseRedraw(t *testing.T) {
	b := NewBank()
	b.ClearRedraw()

	mutators := []func(){
		func() { b.ToggleDiagonal(0, 1, 2) },
		func() { b.ToggleHorizontal(1, 3) },
		func() { b.ToggleForcedCarrier(2, 0) },
		func() { b.Initialize(0) },
		func() { b.Randomize(2, rand.New(rand.NewSource(9))) },
		func() { b.SetBits(1, 1, 0, 0) },
	}
	for i, m := range mutators {
		m()
		if !b.NeedsRedraw() {
			t.Fatalf("mutator %d did not raise the redraw flag", i)
		}
		b.ClearRedraw()
		if b.NeedsRedraw() {
			t.Fatalf("ClearRedraw did not clear the flag")
		}
	}
}

func TestEncodePacksDiagonalAndHorizontal(t *testing.T) {
	s := NewScene()
	s.ToggleDiagonal(0, 0)
	s.ToggleDiagonal(3, 2)
	s.ToggleHorizontal(1)
	s.ToggleForcedCarrier(2)

	got := Encode(s)
	want := LookupKey(1 | 1<<11 | 1<<13)
	if got != want {
		t.Fatalf("encode mismatch: got=%#x want=%#x", got, want)
	}
}
