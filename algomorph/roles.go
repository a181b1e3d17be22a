package algomorph

import (
	"fmt"
	"strings"
)

// AuxRole is a function an auxiliary input can be assigned to.
type AuxRole int

const (
	RoleMorphAtten AuxRole = iota
	RoleDoubleMorphAtten
	RoleTripleMorphAtten
	RoleClock
	RoleReverseClock
	RoleReset
	RoleRun
	RoleMorph
	RoleDoubleMorph
	RoleTripleMorph
	RoleSumAtten
	RoleModAtten
	RoleClickFilter
	RoleWildcardMod
	RoleWildcardSum
	RoleShadow1
	RoleShadow2
	RoleShadow3
	RoleShadow4
	RoleSceneOffset

	NumAuxRoles = int(RoleSceneOffset) + 1
)

// RoleKind selects how several inputs on one role combine.
type RoleKind int

const (
	KindSum RoleKind = iota
	KindMultiply
	KindTrigger
)

var roleNames = [NumAuxRoles]string{
	"morph_atten",
	"double_morph_atten",
	"triple_morph_atten",
	"clock",
	"reverse_clock",
	"reset",
	"run",
	"morph",
	"double_morph",
	"triple_morph",
	"sum_atten",
	"mod_atten",
	"click_filter",
	"wildcard_mod",
	"wildcard_sum",
	"shadow_1",
	"shadow_2",
	"shadow_3",
	"shadow_4",
	"scene_offset",
}

func (r AuxRole) String() string {
	if r < 0 || int(r) >= NumAuxRoles {
		return fmt.Sprintf("AuxRole(%d)", int(r))
	}
	return roleNames[r]
}

// Kind reports how the role combines multiple sources.
func (r AuxRole) Kind() RoleKind {
	switch r {
	case RoleClock, RoleReverseClock, RoleReset, RoleRun:
		return KindTrigger
	case RoleMorphAtten, RoleDoubleMorphAtten, RoleTripleMorphAtten,
		RoleSumAtten, RoleModAtten, RoleClickFilter:
		return KindMultiply
	default:
		return KindSum
	}
}

// neutral is the value of a role with no assigned input.
func (r AuxRole) neutral() float32 {
	if r.Kind() == KindMultiply {
		return 1
	}
	return 0
}

// ParseAuxRole resolves a role name as written by String.
func ParseAuxRole(name string) (AuxRole, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range roleNames {
		if n == name {
			return AuxRole(i), nil
		}
	}
	return 0, fmt.Errorf("unknown aux role %q", name)
}

// ShadowRole returns the shadow role overlaying operator op.
func ShadowRole(op int) AuxRole {
	return RoleShadow1 + AuxRole(op)
}

// RoleSet is a bitmask of roles.
type RoleSet uint32

func (s RoleSet) Has(r AuxRole) bool {
	return s&(1<<uint(r)) != 0
}

func (s RoleSet) With(r AuxRole) RoleSet {
	return s | 1<<uint(r)
}

func (s RoleSet) Without(r AuxRole) RoleSet {
	return s &^ (1 << uint(r))
}

// Roles lists the members in role order.
func (s RoleSet) Roles() []AuxRole {
	var out []AuxRole
	for r := 0; r < NumAuxRoles; r++ {
		if s.Has(AuxRole(r)) {
			out = append(out, AuxRole(r))
		}
	}
	return out
}
