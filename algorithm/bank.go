package algorithm

import (
	"math/rand"
	"sync/atomic"
)

// Bank holds the three scenes of a module and the display-refresh flag the
// drawing side polls. Indices passed to Bank methods are assumed valid.
type Bank struct {
	scenes [NumScenes]Scene
	redraw atomic.Bool
}

// NewBank returns a bank of three empty scenes.
func NewBank() *Bank {
	b := &Bank{}
	for i := range b.scenes {
		b.scenes[i] = NewScene()
	}
	b.redraw.Store(true)
	return b
}

// Scene returns scene i for reading. Mutate through the Bank so the redraw
// flag is raised.
func (b *Bank) Scene(i int) *Scene {
	return &b.scenes[i]
}

// Snapshot returns a copy of scene i.
func (b *Bank) Snapshot(i int) Scene {
	return b.scenes[i]
}

// Restore replaces scene i with s, recomputing derived state from its bits.
func (b *Bank) Restore(i int, s Scene) {
	b.scenes[i].SetBits(s.diagonal, s.horizontal, s.forced)
	b.redraw.Store(true)
}

// SetBits replaces the source bits of scene i.
func (b *Bank) SetBits(i int, diagonal uint16, horizontal, forced uint8) {
	b.scenes[i].SetBits(diagonal, horizontal, forced)
	b.redraw.Store(true)
}

// ToggleDiagonal flips op's route to its relMod-th modulator in scene.
func (b *Bank) ToggleDiagonal(scene, op, relMod int) {
	b.scenes[scene].ToggleDiagonal(op, relMod)
	b.redraw.Store(true)
}

// ToggleHorizontal flips op's self-modulation route in scene.
func (b *Bank) ToggleHorizontal(scene, op int) {
	b.scenes[scene].ToggleHorizontal(op)
	b.redraw.Store(true)
}

// ToggleForcedCarrier flips whether op is forced onto the sum output in
// scene. A forced operator that also modulates is disabled.
func (b *Bank) ToggleForcedCarrier(scene, op int) {
	b.scenes[scene].ToggleForcedCarrier(op)
	b.redraw.Store(true)
}

// Initialize clears scene i back to four unconnected carriers.
func (b *Bank) Initialize(scene int) {
	b.scenes[scene].Clear()
	b.redraw.Store(true)
}

// Randomize assigns a random configuration to scene i. The result always has
// at least one natural carrier and never disables an operator.
func (b *Bank) Randomize(scene int, rng *rand.Rand) {
	var diagonal uint16
	var horizontal, forced uint8

	for op := 0; op < NumOperators; op++ {
		for rel := 0; rel < NumModulators; rel++ {
			// Sparse graphs sound better than dense ones.
			if rng.Intn(3) == 0 {
				diagonal |= diagonalBit(op, rel)
			}
		}
		if rng.Intn(4) == 0 {
			horizontal |= 1 << uint(op)
		}
	}

	if !hasNaturalCarrier(diagonal) {
		op := rng.Intn(NumOperators)
		diagonal &^= outgoingMask << uint(op*NumModulators)
	}

	for op := 0; op < NumOperators; op++ {
		outgoing := (diagonal>>uint(op*NumModulators))&outgoingMask != 0
		if outgoing {
			continue
		}
		if rng.Intn(4) == 0 {
			forced |= 1 << uint(op)
		}
	}

	b.SetBits(scene, diagonal, horizontal, forced)
}

func hasNaturalCarrier(diagonal uint16) bool {
	for op := 0; op < NumOperators; op++ {
		if (diagonal>>uint(op*NumModulators))&outgoingMask == 0 {
			return true
		}
	}
	return false
}

// NeedsRedraw reports whether any scene changed since the last ClearRedraw.
func (b *Bank) NeedsRedraw() bool {
	return b.redraw.Load()
}

// ClearRedraw acknowledges a redraw.
func (b *Bank) ClearRedraw() {
	b.redraw.Store(false)
}
