package algomorph

import (
	"github.com/xandramax/Volume1-sub000/algorithm"
	"github.com/xandramax/Volume1-sub000/dsp"
	"github.com/xandramax/Volume1-sub000/morph"
)

const (
	numOps  = algorithm.NumOperators
	numMods = algorithm.NumModulators
)

// Buses accumulate routed signal for one sample.
type Buses struct {
	Mod [numOps][MaxChannels]float32 // modulator bus per destination operator
	Sum [MaxChannels]float32
}

// Router holds click-filtered connection gains, per route and per channel.
// The ring arrays carry the backward scene, which is subtracted from the
// primary signal while ring morph is active.
type Router struct {
	diag     [numOps][numMods][MaxChannels]float32
	diagRing [numOps][numMods][MaxChannels]float32
	self     [numOps][MaxChannels]float32
	selfRing [numOps][MaxChannels]float32
	sum      [numOps][MaxChannels]float32
	sumRing  [numOps][MaxChannels]float32
}

// DiagonalGain returns the current gain of op's route to its relMod-th modulator.
func (r *Router) DiagonalGain(op, relMod, c int) float32 { return r.diag[op][relMod][c] }

// DiagonalRingGain returns the inverted backward-scene gain of a diagonal route.
func (r *Router) DiagonalRingGain(op, relMod, c int) float32 { return r.diagRing[op][relMod][c] }

// HorizontalGain returns the current gain of op's self-modulation route.
func (r *Router) HorizontalGain(op, c int) float32 { return r.self[op][c] }

// HorizontalRingGain returns the inverted backward-scene gain of a
// self-modulation route.
func (r *Router) HorizontalRingGain(op, c int) float32 { return r.selfRing[op][c] }

// SumGain returns how much of op reaches the sum output.
func (r *Router) SumGain(op, c int) float32 { return r.sum[op][c] }

// SumRingGain returns the inverted backward-scene gain of op on the sum output.
func (r *Router) SumRingGain(op, c int) float32 { return r.sumRing[op][c] }

func diagonalWeight(s *algorithm.Scene, op, relMod int, mode RoutingMode) float32 {
	if s.Disabled(op) || !s.Diagonal(op, relMod) {
		return 0
	}
	if mode == Standard && s.Horizontal(op) {
		return 0
	}
	return 1
}

func horizontalWeight(s *algorithm.Scene, op int) float32 {
	if s.Disabled(op) || !s.Horizontal(op) {
		return 0
	}
	return 1
}

func sumWeight(s *algorithm.Scene, op int) float32 {
	if s.Carrier(op) {
		return 1
	}
	return 0
}

func blend(center, forward, mu float32) float32 {
	return center + (forward-center)*mu
}

// Process routes one sample of every active channel. Gains move toward their
// targets by at most delta[c] per sample; a zero delta jumps.
func (r *Router) Process(
	bank *algorithm.Bank,
	states *[MaxChannels]morph.State,
	delta *[MaxChannels]float32,
	in *[numOps][MaxChannels]float32,
	channels int,
	mode RoutingMode,
	ring bool,
	out *Buses,
) {
	for c := 0; c < channels; c++ {
		st := &states[c]
		sc := bank.Scene(st.Center)
		sf := bank.Scene(st.Forward)
		sb := bank.Scene(st.Backward)
		mu := st.Magnitude
		var ringMu float32
		if ring {
			ringMu = mu
		}
		d := delta[c]

		for op := 0; op < numOps; op++ {
			x := in[op][c]

			for rel := 0; rel < numMods; rel++ {
				t := blend(diagonalWeight(sc, op, rel, mode), diagonalWeight(sf, op, rel, mode), mu)
				g := dsp.Slew(r.diag[op][rel][c], t, d)
				r.diag[op][rel][c] = g

				gr := dsp.Slew(r.diagRing[op][rel][c], diagonalWeight(sb, op, rel, mode)*ringMu, d)
				r.diagRing[op][rel][c] = gr

				dest := algorithm.ThreeToFour[op][rel]
				out.Mod[dest][c] += x*g - x*gr
			}

			g := dsp.Slew(r.self[op][c], blend(horizontalWeight(sc, op), horizontalWeight(sf, op), mu), d)
			r.self[op][c] = g
			gr := dsp.Slew(r.selfRing[op][c], horizontalWeight(sb, op)*ringMu, d)
			r.selfRing[op][c] = gr
			out.Mod[op][c] += x*g - x*gr

			g = dsp.Slew(r.sum[op][c], blend(sumWeight(sc, op), sumWeight(sf, op), mu), d)
			r.sum[op][c] = g
			gr = dsp.Slew(r.sumRing[op][c], sumWeight(sb, op)*ringMu, d)
			r.sumRing[op][c] = gr
			out.Sum[c] += x*g - x*gr
		}
	}
}

// Snap sets every gain on every channel to its target immediately.
func (r *Router) Snap(bank *algorithm.Bank, states *[MaxChannels]morph.State, mode RoutingMode, ring bool) {
	var (
		zero [MaxChannels]float32
		in   [numOps][MaxChannels]float32
		out  Buses
	)
	r.Process(bank, states, &zero, &in, MaxChannels, mode, ring, &out)
}
