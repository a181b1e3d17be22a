// Package preset saves and restores module state as a versioned JSON document.
//
// Only source-of-truth fields are stored. Carrier and disabled flags are
// recomputed from the scene bits on load. Loading is tolerant: a missing or
// out-of-range field falls back to a neutral value and is reported as a
// warning through the logger, never as an error.
package preset

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/xandramax/Volume1-sub000/algomorph"
	"github.com/xandramax/Volume1-sub000/algorithm"
	"github.com/xandramax/Volume1-sub000/morph"
)

// Version is the schema version written by SaveJSON.
const Version = 1

// Document is the JSON schema for a saved module.
type Document struct {
	Version *int `json:"version"`

	Scenes     []Scene `json:"scenes"`
	BaseScene  *int    `json:"base_scene"`
	EditScene  *int    `json:"edit_scene"`
	ConfigMode *bool   `json:"config_mode"`
	Running    *bool   `json:"running"`

	Morph      *float32 `json:"morph"`
	MorphAtten *float32 `json:"morph_atten"`

	RingMorph          *bool    `json:"ring_morph"`
	ClickFilterEnabled *bool    `json:"click_filter_enabled"`
	ClickFilterSlew    *float32 `json:"click_filter_slew"`
	ExitOnConnect      *bool    `json:"exit_on_connect"`
	AlterEgo           *bool    `json:"alter_ego"`
	VULights           *bool    `json:"vu_lights"`
	CCWSceneAdvance    *bool    `json:"ccw_scene_advance"`
	WildcardSumming    *bool    `json:"wildcard_summing"`
	RunSilencer        *bool    `json:"run_silencer"`
	BipolarPhase       *bool    `json:"bipolar_phase"`
	OutputGain         *float32 `json:"output_gain"`

	AuxRoles [][]string `json:"aux_roles"`
}

// Scene holds the packed bits of one algorithm.
type Scene struct {
	Diagonal      *int `json:"diagonal"`
	Horizontal    *int `json:"horizontal"`
	ForcedCarrier *int `json:"forced_carrier"`
}

func ptr[T any](v T) *T { return &v }

// Capture snapshots m into a document.
func Capture(m *algomorph.Module) *Document {
	p := m.Params()
	d := &Document{
		Version:            ptr(Version),
		BaseScene:          ptr(m.BaseScene()),
		EditScene:          ptr(m.Session().EditScene()),
		ConfigMode:         ptr(m.Session().ConfigMode()),
		Running:            ptr(m.Running()),
		Morph:              ptr(p.Morph),
		MorphAtten:         ptr(p.MorphAtten),
		RingMorph:          ptr(p.RingMorph),
		ClickFilterEnabled: ptr(p.ClickFilterEnabled),
		ClickFilterSlew:    ptr(p.ClickFilterSlew),
		ExitOnConnect:      ptr(p.ExitOnConnect),
		AlterEgo:           ptr(p.Mode == algomorph.AlterEgo),
		VULights:           ptr(p.VULights),
		CCWSceneAdvance:    ptr(p.CCWSceneAdvance),
		WildcardSumming:    ptr(p.WildcardSumming),
		RunSilencer:        ptr(p.RunSilencer),
		BipolarPhase:       ptr(p.BipolarPhase),
		OutputGain:         ptr(p.OutputGain),
	}
	for i := 0; i < algorithm.NumScenes; i++ {
		s := m.Bank().Snapshot(i)
		diag, horiz, forced := s.Bits()
		d.Scenes = append(d.Scenes, Scene{
			Diagonal:      ptr(int(diag)),
			Horizontal:    ptr(int(horiz)),
			ForcedCarrier: ptr(int(forced)),
		})
	}
	for i := 0; i < algomorph.NumAuxInputs; i++ {
		names := []string{}
		for _, r := range m.Aux().Assigned(i).Roles() {
			names = append(names, r.String())
		}
		d.AuxRoles = append(d.AuxRoles, names)
	}
	return d
}

// reader applies document fields with fallbacks, warning on each one.
type reader struct {
	logger *slog.Logger
}

func (r reader) warn(field string, msg string, args ...any) {
	r.logger.Warn("preset: "+msg, append([]any{"field", field}, args...)...)
}

func (r reader) boolean(field string, v *bool, def bool) bool {
	if v == nil {
		r.warn(field, "missing field, using default", "default", def)
		return def
	}
	return *v
}

func (r reader) index(field string, v *int, n int) int {
	if v == nil {
		r.warn(field, "missing field, using default", "default", 0)
		return 0
	}
	if *v < 0 || *v >= n {
		r.warn(field, "value out of range, using default", "value", *v, "default", 0)
		return 0
	}
	return *v
}

func (r reader) bits(field string, v *int, width uint) int {
	if v == nil {
		r.warn(field, "missing field, using default", "default", 0)
		return 0
	}
	if *v < 0 || *v >= 1<<width {
		r.warn(field, "value out of range, using default", "value", *v, "default", 0)
		return 0
	}
	return *v
}

func (r reader) float(field string, v *float32, def, lo, hi float32) float32 {
	if v == nil {
		r.warn(field, "missing field, using default", "default", def)
		return def
	}
	if math.IsNaN(float64(*v)) || *v < lo || *v > hi {
		r.warn(field, "value out of range, using default", "value", *v, "default", def)
		return def
	}
	return *v
}

// Apply loads d into m. It must not run concurrently with Process; hosts
// with a running audio thread wrap it in a Command. A nil logger uses
// slog.Default().
func Apply(m *algomorph.Module, d *Document, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	r := reader{logger: logger}

	switch {
	case d.Version == nil:
		r.warn("version", "missing schema version, reading as current")
	case *d.Version > Version:
		r.warn("version", "newer schema version, loading best effort", "value", *d.Version, "supported", Version)
	}

	if len(d.Scenes) > algorithm.NumScenes {
		r.warn("scenes", "extra scenes ignored", "count", len(d.Scenes))
	}
	for i := 0; i < algorithm.NumScenes; i++ {
		var s Scene
		if i < len(d.Scenes) {
			s = d.Scenes[i]
		} else {
			r.warn(fmt.Sprintf("scenes[%d]", i), "missing scene, using empty algorithm")
			m.Bank().SetBits(i, 0, 0, 0)
			continue
		}
		diag := r.bits(fmt.Sprintf("scenes[%d].diagonal", i), s.Diagonal, algorithm.NumOperators*algorithm.NumModulators)
		horiz := r.bits(fmt.Sprintf("scenes[%d].horizontal", i), s.Horizontal, algorithm.NumOperators)
		forced := r.bits(fmt.Sprintf("scenes[%d].forced_carrier", i), s.ForcedCarrier, algorithm.NumOperators)
		m.Bank().SetBits(i, uint16(diag), uint8(horiz), uint8(forced))
	}

	defaults := algomorph.NewDefaultParams()
	p := m.Params()
	p.Morph = r.float("morph", d.Morph, defaults.Morph, -morph.Range, morph.Range)
	p.MorphAtten = r.float("morph_atten", d.MorphAtten, defaults.MorphAtten, -3, 3)
	p.RingMorph = r.boolean("ring_morph", d.RingMorph, defaults.RingMorph)
	p.ClickFilterEnabled = r.boolean("click_filter_enabled", d.ClickFilterEnabled, defaults.ClickFilterEnabled)
	p.ClickFilterSlew = r.float("click_filter_slew", d.ClickFilterSlew, defaults.ClickFilterSlew, 1e-3, 1e6)
	p.ExitOnConnect = r.boolean("exit_on_connect", d.ExitOnConnect, defaults.ExitOnConnect)
	p.Mode = algomorph.Standard
	if r.boolean("alter_ego", d.AlterEgo, false) {
		p.Mode = algomorph.AlterEgo
	}
	p.VULights = r.boolean("vu_lights", d.VULights, defaults.VULights)
	p.CCWSceneAdvance = r.boolean("ccw_scene_advance", d.CCWSceneAdvance, defaults.CCWSceneAdvance)
	p.WildcardSumming = r.boolean("wildcard_summing", d.WildcardSumming, defaults.WildcardSumming)
	p.RunSilencer = r.boolean("run_silencer", d.RunSilencer, defaults.RunSilencer)
	p.BipolarPhase = r.boolean("bipolar_phase", d.BipolarPhase, defaults.BipolarPhase)
	p.OutputGain = r.float("output_gain", d.OutputGain, defaults.OutputGain, 0, 16)

	m.SetBaseScene(r.index("base_scene", d.BaseScene, algorithm.NumScenes))
	m.SetRunning(r.boolean("running", d.Running, true))
	m.Session().Restore(
		r.boolean("config_mode", d.ConfigMode, false),
		r.index("edit_scene", d.EditScene, algorithm.NumScenes),
	)

	if len(d.AuxRoles) > algomorph.NumAuxInputs {
		r.warn("aux_roles", "extra aux inputs ignored", "count", len(d.AuxRoles))
	}
	for i := 0; i < algomorph.NumAuxInputs; i++ {
		var set algomorph.RoleSet
		if i < len(d.AuxRoles) {
			for _, name := range d.AuxRoles[i] {
				role, err := algomorph.ParseAuxRole(name)
				if err != nil {
					r.warn(fmt.Sprintf("aux_roles[%d]", i), "unknown role ignored", "role", name)
					continue
				}
				set = set.With(role)
			}
		}
		m.Aux().SetAssigned(i, set)
	}
}

// Parse decodes a document.
func Parse(b []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("parse preset: %w", err)
	}
	return &d, nil
}

// LoadJSON reads a preset file.
func LoadJSON(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset: %w", err)
	}
	return Parse(b)
}

// LoadInto reads a preset file and applies it to m.
func LoadInto(path string, m *algomorph.Module, logger *slog.Logger) error {
	d, err := LoadJSON(path)
	if err != nil {
		return err
	}
	Apply(m, d, logger)
	return nil
}

// SaveJSON writes d to path, creating parent directories as needed.
func SaveJSON(path string, d *Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create preset dir: %w", err)
	}
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write preset: %w", err)
	}
	return nil
}
