// Package algorithm holds the per-scene operator graphs routed by the engine.
//
// A scene records, for each of the four operators, which other operators it
// modulates (diagonal connections), whether it feeds back into its own
// modulator output (horizontal connection) and whether it is forced to act as
// a carrier. Carrier and disabled flags are derived from those three bitsets
// and are recomputed on every change; they are never set directly.
package algorithm

const (
	NumOperators  = 4
	NumScenes     = 3
	NumModulators = NumOperators - 1
)

// ThreeToFour maps an operator's relative modulator index to the absolute
// destination operator.
var ThreeToFour = [NumOperators][NumModulators]int{
	{1, 2, 3},
	{0, 2, 3},
	{0, 1, 3},
	{0, 1, 2},
}

// FourToThree is the inverse of ThreeToFour. The diagonal is -1.
var FourToThree = [NumOperators][NumOperators]int{
	{-1, 0, 1, 2},
	{0, -1, 1, 2},
	{0, 1, -1, 2},
	{0, 1, 2, -1},
}

const (
	diagonalMask = 1<<(NumOperators*NumModulators) - 1
	operatorMask = 1<<NumOperators - 1
	outgoingMask = 1<<NumModulators - 1
)

// Scene is one algorithm. The zero value has no connections and every
// operator is a carrier once derived state is computed (see NewScene).
type Scene struct {
	diagonal   uint16
	horizontal uint8
	forced     uint8

	carrier  uint8
	disabled uint8
}

// NewScene returns a scene with no connections.
func NewScene() Scene {
	var s Scene
	s.update()
	return s
}

// SceneFromBits builds a scene from its source-of-truth bitsets. Bits outside
// the valid range are dropped.
func SceneFromBits(diagonal uint16, horizontal, forced uint8) Scene {
	var s Scene
	s.SetBits(diagonal, horizontal, forced)
	return s
}

// Bits returns the independent bitsets: 12 diagonal bits (bit op*3+relMod),
// 4 horizontal bits and 4 forced-carrier bits.
func (s *Scene) Bits() (diagonal uint16, horizontal, forced uint8) {
	return s.diagonal, s.horizontal, s.forced
}

// SetBits replaces all source bits and recomputes derived state.
func (s *Scene) SetBits(diagonal uint16, horizontal, forced uint8) {
	s.diagonal = diagonal & diagonalMask
	s.horizontal = horizontal & operatorMask
	s.forced = forced & operatorMask
	s.update()
}

// Clear removes every connection and forced flag.
func (s *Scene) Clear() {
	s.SetBits(0, 0, 0)
}

func diagonalBit(op, relMod int) uint16 {
	return 1 << uint(op*NumModulators+relMod)
}

// Diagonal reports whether op modulates the destination at relative index relMod.
func (s *Scene) Diagonal(op, relMod int) bool {
	return s.diagonal&diagonalBit(op, relMod) != 0
}

// DiagonalTo reports whether op modulates the absolute operator dest.
func (s *Scene) DiagonalTo(op, dest int) bool {
	rel := FourToThree[op][dest]
	if rel < 0 {
		return false
	}
	return s.Diagonal(op, rel)
}

// Horizontal reports whether op feeds its own modulator output.
func (s *Scene) Horizontal(op int) bool {
	return s.horizontal&(1<<uint(op)) != 0
}

// ForcedCarrier reports the user override for op.
func (s *Scene) ForcedCarrier(op int) bool {
	return s.forced&(1<<uint(op)) != 0
}

// Carrier reports whether op is summed to the carrier output.
func (s *Scene) Carrier(op int) bool {
	return s.carrier&(1<<uint(op)) != 0
}

// Disabled reports whether op is silenced: forced to carry while it still has
// outgoing modulation.
func (s *Scene) Disabled(op int) bool {
	return s.disabled&(1<<uint(op)) != 0
}

// HasOutgoing reports whether op modulates at least one other operator.
func (s *Scene) HasOutgoing(op int) bool {
	return (s.diagonal>>uint(op*NumModulators))&outgoingMask != 0
}

// CarrierCount returns the number of carriers in the scene.
func (s *Scene) CarrierCount() int {
	n := 0
	for op := 0; op < NumOperators; op++ {
		if s.Carrier(op) {
			n++
		}
	}
	return n
}

// ToggleDiagonal flips the connection op -> ThreeToFour[op][relMod].
func (s *Scene) ToggleDiagonal(op, relMod int) {
	s.diagonal ^= diagonalBit(op, relMod)
	s.updateOperator(op)
}

// ToggleHorizontal flips op's self route.
func (s *Scene) ToggleHorizontal(op int) {
	s.horizontal ^= 1 << uint(op)
	s.updateOperator(op)
}

// ToggleForcedCarrier flips op's forced-carrier flag.
func (s *Scene) ToggleForcedCarrier(op int) {
	s.forced ^= 1 << uint(op)
	s.updateOperator(op)
}

func (s *Scene) update() {
	for op := 0; op < NumOperators; op++ {
		s.updateOperator(op)
	}
}

func (s *Scene) updateOperator(op int) {
	bit := uint8(1) << uint(op)
	forced := s.forced&bit != 0
	outgoing := s.HasOutgoing(op)

	// Forcing carrier-hood on an operator that still modulates silences it.
	disabled := forced && outgoing
	carrier := (!outgoing || forced) && !disabled

	s.disabled &^= bit
	if disabled {
		s.disabled |= bit
	}
	s.carrier &^= bit
	if carrier {
		s.carrier |= bit
	}
}

// LookupKey identifies a graph layout for the drawing collaborator.
type LookupKey uint16

// Encode packs the diagonal bits and the horizontal bits into one key.
func Encode(s Scene) LookupKey {
	return LookupKey(s.diagonal | uint16(s.horizontal)<<(NumOperators*NumModulators))
}
