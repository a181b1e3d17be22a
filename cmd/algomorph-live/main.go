package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/xandramax/Volume1-sub000/algomorph"
	"github.com/xandramax/Volume1-sub000/algorithm"
	"github.com/xandramax/Volume1-sub000/preset"
	"github.com/xandramax/Volume1-sub000/settings"
	"golang.org/x/sync/errgroup"
)

type config struct {
	sampleRate    int
	bufferFrames  int
	midiPort      int
	ratios        [algorithm.NumOperators]float64
	index         float64
	gain          float64
	cc            ccMap
	sceneNoteBase int
	meterEvery    time.Duration
	presetPath    string
	settingsPath  string
	savePreset    string
	verbose       bool
}

func parseFlags(args []string) (*config, error) {
	fs := flag.NewFlagSet("algomorph-live", flag.ContinueOnError)
	cfg := &config{}
	fs.IntVar(&cfg.sampleRate, "sample-rate", 48000, "Output sample rate in Hz")
	fs.IntVar(&cfg.bufferFrames, "buffer", 2048, "Audio buffer size in frames (>= 1024)")
	fs.IntVar(&cfg.midiPort, "midi-port", 0, "MIDI input port index")
	ratios := fs.String("ratios", "1,2,3,4", "Comma-separated frequency ratios for operators 1-4")
	fs.Float64Var(&cfg.index, "index", 1, "Phase modulation depth per 5V of modulator bus")
	fs.Float64Var(&cfg.gain, "gain", 0.5, "Output gain applied after full-scale conversion")
	fs.IntVar(&cfg.cc.morph, "cc-morph", 1, "Controller number for the morph knob (0 = off)")
	fs.IntVar(&cfg.cc.click, "cc-click", 74, "Controller number for click filter strength (0 = off)")
	fs.IntVar(&cfg.cc.randomize, "cc-randomize", 80, "Controller number that randomizes the current scene (0 = off)")
	fs.IntVar(&cfg.cc.edit, "cc-edit", 81, "Controller number that presses Edit (0 = off)")
	fs.IntVar(&cfg.cc.ring, "cc-ring", 82, "Controller number that switches ring morph (0 = off)")
	fs.IntVar(&cfg.sceneNoteBase, "scene-notes", 0, "First of three notes that press the scene buttons (0 = off)")
	fs.DurationVar(&cfg.meterEvery, "meter-interval", time.Second, "Interval for operator meter logging (needs VU lights)")
	fs.StringVar(&cfg.presetPath, "preset", "", "Preset JSON file to load")
	fs.StringVar(&cfg.settingsPath, "settings", "", "User settings file (default: per-user config dir)")
	fs.StringVar(&cfg.savePreset, "save-preset", "", "Write the module state to this preset file on exit")
	fs.BoolVar(&cfg.verbose, "v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.sampleRate <= 0 {
		return nil, fmt.Errorf("sample-rate must be > 0")
	}
	if cfg.bufferFrames < 1024 {
		return nil, fmt.Errorf("buffer must be >= 1024 frames")
	}
	if cfg.meterEvery <= 0 {
		return nil, fmt.Errorf("meter-interval must be > 0")
	}
	r, err := parseRatios(*ratios)
	if err != nil {
		return nil, err
	}
	cfg.ratios = r
	return cfg, nil
}

func parseRatios(raw string) ([algorithm.NumOperators]float64, error) {
	out := [algorithm.NumOperators]float64{1, 1, 1, 1}
	parts := strings.Split(raw, ",")
	if len(parts) > algorithm.NumOperators {
		return out, fmt.Errorf("ratios: at most %d values", algorithm.NumOperators)
	}
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v <= 0 {
			return out, fmt.Errorf("ratios: invalid ratio %q", p)
		}
		out[i] = v
	}
	return out, nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newModule(cfg *config, logger *slog.Logger) (*algomorph.Module, error) {
	path := cfg.settingsPath
	if path == "" {
		p, err := settings.DefaultPath()
		if err == nil {
			path = p
		}
	}
	defaults := settings.NewDefaults()
	if path != "" {
		d, err := settings.NewStore(path, logger).Load()
		if err != nil {
			return nil, err
		}
		defaults = d
	}
	m := algomorph.New(cfg.sampleRate, algomorph.NewParamsFromDefaults(defaults), algomorph.WithLogger(logger))
	if cfg.presetPath != "" {
		if err := preset.LoadInto(cfg.presetPath, m, logger); err != nil {
			return nil, err
		}
		running := m.Running()
		m.Reset()
		m.SetRunning(running)
	}
	return m, nil
}

// reportMeters logs the operator meters while VU lights are enabled.
func reportMeters(ctx context.Context, m *algomorph.Module, every time.Duration, logger *slog.Logger) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			var levels [algorithm.NumOperators]float32
			for op := range levels {
				levels[op] = m.Meter(op)
			}
			logger.Debug("meters", "op1", levels[0], "op2", levels[1], "op3", levels[2], "op4", levels[3])
		}
	}
}

func run(ctx context.Context, cfg *config, logger *slog.Logger) error {
	m, err := newModule(cfg, logger)
	if err != nil {
		return err
	}
	v := newVoice(cfg.sampleRate, cfg.ratios, cfg.index)
	ctl := &controller{
		module:        m,
		voice:         v,
		logger:        logger,
		cc:            cfg.cc,
		sceneNoteBase: cfg.sceneNoteBase,
	}
	eng := newEngine(m, v, float32(cfg.gain), logger)
	vu := m.Params().VULights

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return eng.play(ctx, cfg.sampleRate, cfg.bufferFrames)
	})
	g.Go(func() error {
		return listenMIDI(ctx, logger, cfg.midiPort, ctl.handle)
	})
	if vu {
		g.Go(func() error {
			return reportMeters(ctx, m, cfg.meterEvery, logger)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if cfg.savePreset != "" {
		if err := preset.SaveJSON(cfg.savePreset, preset.Capture(m)); err != nil {
			return err
		}
		logger.Info("saved preset", "path", cfg.savePreset)
	}
	return nil
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	logger := newLogger(cfg.verbose)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("algomorph-live failed", "err", err)
		os.Exit(1)
	}
}
