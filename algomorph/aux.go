package algomorph

import (
	"math"

	"github.com/xandramax/Volume1-sub000/dsp"
)

const triggerRoles = RoleSet(1<<uint(RoleClock) | 1<<uint(RoleReverseClock) | 1<<uint(RoleReset) | 1<<uint(RoleRun))

// AuxScaler turns auxiliary input voltages into per-role, per-channel scalars.
//
// A role's table entry is rebuilt only when one of its sources changed
// voltage or channel count, or when the assignment changed. Roles without a
// patched source hold their neutral value: 0 for summing roles, 1 for
// multiplying ones.
type AuxScaler struct {
	assigned  [NumAuxInputs]RoleSet
	dirty     [NumAuxRoles]bool
	last      [NumAuxInputs][MaxChannels]float32
	lastChans [NumAuxInputs]int
	scaled    [NumAuxRoles][MaxChannels]float32
	triggers  [NumAuxInputs]dsp.SchmittTrigger
}

// NewAuxScaler returns a scaler with no assignments.
func NewAuxScaler() *AuxScaler {
	a := &AuxScaler{}
	for r := 0; r < NumAuxRoles; r++ {
		a.fill(AuxRole(r))
	}
	return a
}

func (a *AuxScaler) fill(r AuxRole) {
	n := r.neutral()
	for c := range a.scaled[r] {
		a.scaled[r][c] = n
	}
}

// Assign adds or removes role on aux input i.
func (a *AuxScaler) Assign(i int, role AuxRole, on bool) {
	if i < 0 || i >= NumAuxInputs || role < 0 || int(role) >= NumAuxRoles {
		return
	}
	if on {
		a.SetAssigned(i, a.assigned[i].With(role))
	} else {
		a.SetAssigned(i, a.assigned[i].Without(role))
	}
}

// SetAssigned replaces every role on aux input i.
func (a *AuxScaler) SetAssigned(i int, roles RoleSet) {
	if i < 0 || i >= NumAuxInputs {
		return
	}
	roles &= 1<<uint(NumAuxRoles) - 1
	changed := a.assigned[i] ^ roles
	a.assigned[i] = roles
	for r := 0; r < NumAuxRoles; r++ {
		if changed.Has(AuxRole(r)) {
			a.dirty[r] = true
		}
	}
	if changed&triggerRoles != 0 {
		a.triggers[i].Reset()
	}
}

// Assigned returns the roles on aux input i.
func (a *AuxScaler) Assigned(i int) RoleSet {
	if i < 0 || i >= NumAuxInputs {
		return 0
	}
	return a.assigned[i]
}

// Active reports whether any aux input carries role.
func (a *AuxScaler) Active(role AuxRole) bool {
	for i := range a.assigned {
		if a.assigned[i].Has(role) {
			return true
		}
	}
	return false
}

// Value returns the scaled value of role on channel c.
func (a *AuxScaler) Value(role AuxRole, c int) float32 {
	return a.scaled[role][c]
}

// Reset clears trigger state and forces a full rescale.
func (a *AuxScaler) Reset() {
	for i := range a.triggers {
		a.triggers[i].Reset()
	}
	for r := range a.dirty {
		a.dirty[r] = true
	}
}

// Process reads one frame of aux voltages, refreshes dirty roles and returns
// the trigger roles that saw a rising edge.
func (a *AuxScaler) Process(in *Frame) RoleSet {
	var fired RoleSet
	for i := 0; i < NumAuxInputs; i++ {
		roles := a.assigned[i]
		if roles == 0 {
			continue
		}
		chans := clampChannels(in.AuxChannels[i])
		changed := chans != a.lastChans[i]
		for c := 0; c < MaxChannels; c++ {
			var v float32
			if c < chans {
				v = in.Aux[i][c]
			}
			if v != a.last[i][c] {
				a.last[i][c] = v
				changed = true
			}
		}
		a.lastChans[i] = chans

		if changed {
			for r := 0; r < NumAuxRoles; r++ {
				if roles.Has(AuxRole(r)) && AuxRole(r).Kind() != KindTrigger {
					a.dirty[r] = true
				}
			}
		}
		if roles&triggerRoles != 0 && a.triggers[i].Process(a.last[i][0]) {
			fired |= roles & triggerRoles
		}
	}

	for r := 0; r < NumAuxRoles; r++ {
		if a.dirty[r] {
			a.rescale(AuxRole(r))
			a.dirty[r] = false
		}
	}
	return fired
}

func (a *AuxScaler) voltage(i, c int) float32 {
	switch chans := a.lastChans[i]; {
	case chans == 1:
		return a.last[i][0]
	case c < chans:
		return a.last[i][c]
	default:
		return 0
	}
}

func (a *AuxScaler) rescale(r AuxRole) {
	kind := r.Kind()
	if kind == KindTrigger {
		return
	}
	for c := 0; c < MaxChannels; c++ {
		acc := r.neutral()
		for i := 0; i < NumAuxInputs; i++ {
			if !a.assigned[i].Has(r) || a.lastChans[i] == 0 {
				continue
			}
			x := scaleAux(r, a.voltage(i, c))
			if kind == KindMultiply {
				acc *= x
			} else {
				acc += x
			}
		}
		a.scaled[r][c] = acc
	}
}

// scaleAux maps a voltage onto the role's units.
func scaleAux(r AuxRole, v float32) float32 {
	switch r {
	case RoleMorph:
		return v / 5
	case RoleDoubleMorph:
		return v / 5 * 2
	case RoleTripleMorph:
		return v / 5 * 3
	case RoleMorphAtten:
		return dsp.Clamp(v/5, -1, 1)
	case RoleDoubleMorphAtten:
		return dsp.Clamp(v/5, -1, 1) * 2
	case RoleTripleMorphAtten:
		return dsp.Clamp(v/5, -1, 1) * 3
	case RoleSumAtten, RoleModAtten:
		return dsp.Clamp(v/10, 0, 1)
	case RoleClickFilter:
		return dsp.Clamp(v/5, 0, 2)
	case RoleSceneOffset:
		return float32(math.Round(float64(v)))
	default:
		return v
	}
}
