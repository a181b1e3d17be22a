package algomorph

import "github.com/xandramax/Volume1-sub000/settings"

// RoutingMode selects how horizontal routes relate to diagonal ones.
type RoutingMode int

const (
	// Standard: a horizontal route replaces the operator's diagonal routes.
	Standard RoutingMode = iota
	// AlterEgo: horizontal and diagonal routes are independent and sum.
	AlterEgo
)

func (m RoutingMode) String() string {
	if m == AlterEgo {
		return "alter_ego"
	}
	return "standard"
}

// Default click filter slew in gain units per second: a full 0->1 step takes 1ms.
const DefaultClickFilterSlew = 1000

// Params holds panel controls and persisted settings.
type Params struct {
	Morph      float32 // knob, morph units
	MorphAtten float32 // attenuverter for the morph CV input, -3..3

	InputGain    float32 // operator inputs
	ModGain      float32 // modulator outputs
	SumGain      float32 // carrier sum output
	WildcardGain float32
	OutputGain   float32 // persisted output-gain setting, applied to the sum

	ClickFilterEnabled  bool
	ClickFilterSlew     float32 // gain units per second
	ClickFilterStrength float32 // multiplier on filter time; 0 bypasses the filter

	RingMorph       bool
	Mode            RoutingMode
	ExitOnConnect   bool
	VULights        bool
	CCWSceneAdvance bool
	WildcardSumming bool
	RunSilencer     bool
	BipolarPhase    bool
}

// NewDefaultParams creates default parameters.
func NewDefaultParams() *Params {
	return &Params{
		Morph:               0,
		MorphAtten:          1,
		InputGain:           1,
		ModGain:             1,
		SumGain:             1,
		WildcardGain:        1,
		OutputGain:          1,
		ClickFilterEnabled:  true,
		ClickFilterSlew:     DefaultClickFilterSlew,
		ClickFilterStrength: 1,
		RingMorph:           false,
		Mode:                Standard,
		ExitOnConnect:       false,
		VULights:            true,
		CCWSceneAdvance:     false,
		WildcardSumming:     false,
		RunSilencer:         false,
		BipolarPhase:        false,
	}
}

// ApplyDefaults copies user-level defaults onto p.
func (p *Params) ApplyDefaults(d settings.Defaults) {
	p.RingMorph = d.RingMorph
	p.ClickFilterEnabled = d.ClickFilterEnabled
	if d.ClickFilterSlew > 0 {
		p.ClickFilterSlew = d.ClickFilterSlew
	}
	p.ExitOnConnect = d.ExitOnConnect
	p.Mode = Standard
	if d.AlterEgo {
		p.Mode = AlterEgo
	}
	p.VULights = d.VULights
	p.CCWSceneAdvance = d.CCWSceneAdvance
	p.WildcardSumming = d.WildcardSumming
	p.RunSilencer = d.RunSilencer
	p.BipolarPhase = d.BipolarPhase
}

// NewParamsFromDefaults returns default parameters overlaid with user defaults.
func NewParamsFromDefaults(d settings.Defaults) *Params {
	p := NewDefaultParams()
	p.ApplyDefaults(d)
	return p
}
