// Package settings stores user-level defaults applied to newly created modules.
//
// Defaults are loaded from and saved to a JSON file through a Store. Nothing
// in the engine reads this package implicitly: hosts load Defaults and pass
// them in when they build parameters.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Defaults are the user-chosen starting values for new modules.
type Defaults struct {
	RingMorph          bool    `json:"ring_morph"`
	ClickFilterEnabled bool    `json:"click_filter_enabled"`
	ClickFilterSlew    float32 `json:"click_filter_slew"`
	ExitOnConnect      bool    `json:"exit_on_connect"`
	AlterEgo           bool    `json:"alter_ego"`
	VULights           bool    `json:"vu_lights"`
	CCWSceneAdvance    bool    `json:"ccw_scene_advance"`
	WildcardSumming    bool    `json:"wildcard_summing"`
	RunSilencer        bool    `json:"run_silencer"`
	BipolarPhase       bool    `json:"bipolar_phase"`
}

// NewDefaults returns the factory defaults.
func NewDefaults() Defaults {
	return Defaults{
		ClickFilterEnabled: true,
		ClickFilterSlew:    1000,
		VULights:           true,
	}
}

// Store reads and writes Defaults at a fixed path.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a store for path. A nil logger uses slog.Default().
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

// DefaultPath returns the per-user settings file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "algomorph", "settings.json"), nil
}

// Path returns the file the store reads and writes.
func (s *Store) Path() string {
	return s.path
}

// Load reads the settings file. A missing file yields factory defaults;
// fields absent from the file keep their factory values.
func (s *Store) Load() (Defaults, error) {
	d := NewDefaults()
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("settings file not found, using defaults", "path", s.path)
		return d, nil
	}
	if err != nil {
		return d, fmt.Errorf("read settings: %w", err)
	}
	if err := json.Unmarshal(b, &d); err != nil {
		return NewDefaults(), fmt.Errorf("parse settings %s: %w", s.path, err)
	}
	if d.ClickFilterSlew <= 0 {
		s.logger.Warn("invalid click_filter_slew in settings, using default", "value", d.ClickFilterSlew)
		d.ClickFilterSlew = NewDefaults().ClickFilterSlew
	}
	return d, nil
}

// Save writes d, creating the parent directory if needed.
func (s *Store) Save(d Defaults) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
