package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/signal"
	"github.com/xandramax/Volume1-sub000/algomorph"
	"github.com/xandramax/Volume1-sub000/algorithm"
	"github.com/xandramax/Volume1-sub000/analysis"
	"github.com/xandramax/Volume1-sub000/dsp"
	"github.com/xandramax/Volume1-sub000/internal/wavio"
	"github.com/xandramax/Volume1-sub000/preset"
	"github.com/xandramax/Volume1-sub000/settings"
)

type config struct {
	sampleRate    int
	duration      float64
	channels      int
	spread        float64
	morphStart    float64
	morphEnd      float64
	freqs         [algorithm.NumOperators]float64
	inputs        [algorithm.NumOperators]string
	amplitude     float64
	fullScale     float64
	clickStrength float64
	ring          bool
	alterEgo      bool
	seed          int64
	irPath        string
	presetPath    string
	settingsPath  string
	savePreset    string
	output        string
	modsOutput    string
	report        bool
	verbose       bool
}

func parseFlags(args []string) (*config, error) {
	fs := flag.NewFlagSet("algomorph-render", flag.ContinueOnError)
	cfg := &config{}
	fs.IntVar(&cfg.sampleRate, "sample-rate", 48000, "Render sample rate in Hz")
	fs.Float64Var(&cfg.duration, "duration", 4.0, "Duration in seconds")
	fs.IntVar(&cfg.channels, "channels", 1, "Polyphony channels (1-16)")
	fs.Float64Var(&cfg.spread, "spread", 0.5, "Morph offset between adjacent polyphony channels")
	fs.Float64Var(&cfg.morphStart, "morph-start", 0, "Morph knob at the start of the render")
	fs.Float64Var(&cfg.morphEnd, "morph-end", 3, "Morph knob at the end of the render")
	freqs := fs.String("freqs", "110,220,330,440", "Comma-separated sine frequencies for operators 1-4 (0 = silent)")
	inputs := fs.String("inputs", "", "Comma-separated WAV files replacing operator sines (empty entries keep the sine)")
	fs.Float64Var(&cfg.amplitude, "amplitude", 5, "Operator sine amplitude in volts")
	fs.Float64Var(&cfg.fullScale, "full-scale", 10, "Volts mapped to WAV full scale")
	fs.Float64Var(&cfg.clickStrength, "click-strength", 0.5, "Click filter strength knob (0-1, 0.5 = default)")
	fs.BoolVar(&cfg.ring, "ring", false, "Enable ring morph")
	fs.BoolVar(&cfg.alterEgo, "alter-ego", false, "Route horizontal connections alongside diagonal ones")
	fs.Int64Var(&cfg.seed, "randomize", 0, "Randomize all scenes with this seed (0 = keep preset)")
	fs.StringVar(&cfg.irPath, "ir", "", "Impulse response WAV convolved into the carrier sum")
	fs.StringVar(&cfg.presetPath, "preset", "", "Preset JSON file to load")
	fs.StringVar(&cfg.settingsPath, "settings", "", "User settings file (default: per-user config dir)")
	fs.StringVar(&cfg.savePreset, "save-preset", "", "Write the final module state to this preset file")
	fs.StringVar(&cfg.output, "output", "algomorph.wav", "Carrier sum WAV (one channel per polyphony channel)")
	fs.StringVar(&cfg.modsOutput, "mods-output", "", "Optional 4-channel WAV of polyphony channel 0's modulator buses")
	fs.BoolVar(&cfg.report, "report", false, "Print a JSON measurement report for the rendered outputs")
	fs.BoolVar(&cfg.verbose, "v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.sampleRate <= 0 {
		return nil, fmt.Errorf("sample-rate must be > 0")
	}
	if cfg.duration <= 0 {
		return nil, fmt.Errorf("duration must be > 0")
	}
	if cfg.channels < 1 || cfg.channels > algomorph.MaxChannels {
		return nil, fmt.Errorf("channels must be in 1..%d", algomorph.MaxChannels)
	}
	if cfg.fullScale <= 0 {
		return nil, fmt.Errorf("full-scale must be > 0")
	}
	f, err := parseFreqs(*freqs)
	if err != nil {
		return nil, err
	}
	cfg.freqs = f
	in, err := splitInputs(*inputs)
	if err != nil {
		return nil, err
	}
	cfg.inputs = in
	return cfg, nil
}

func parseFreqs(raw string) ([algorithm.NumOperators]float64, error) {
	var out [algorithm.NumOperators]float64
	parts := strings.Split(raw, ",")
	if len(parts) > algorithm.NumOperators {
		return out, fmt.Errorf("freqs: at most %d values", algorithm.NumOperators)
	}
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 {
			return out, fmt.Errorf("freqs: invalid frequency %q", p)
		}
		out[i] = v
	}
	return out, nil
}

func splitInputs(raw string) ([algorithm.NumOperators]string, error) {
	var out [algorithm.NumOperators]string
	if strings.TrimSpace(raw) == "" {
		return out, nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) > algorithm.NumOperators {
		return out, fmt.Errorf("inputs: at most %d files", algorithm.NumOperators)
	}
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out, nil
}

// morphAt returns the morph knob position for frame i of n.
func morphAt(start, end float64, i, n int) float32 {
	if n <= 1 {
		return float32(start)
	}
	t := float64(i) / float64(n-1)
	return float32(start + (end-start)*t)
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadDefaults(path string, logger *slog.Logger) (settings.Defaults, error) {
	if path == "" {
		p, err := settings.DefaultPath()
		if err != nil {
			logger.Debug("no user config dir, using factory settings", "err", err)
			return settings.NewDefaults(), nil
		}
		path = p
	}
	return settings.NewStore(path, logger).Load()
}

// operatorSignals builds one buffer per operator: a WAV file when given,
// otherwise a sine.
func operatorSignals(cfg *config, frames int) ([algorithm.NumOperators][]float64, error) {
	var out [algorithm.NumOperators][]float64
	gen := signal.NewGenerator(core.WithSampleRate(float64(cfg.sampleRate)))
	for op := 0; op < algorithm.NumOperators; op++ {
		if path := cfg.inputs[op]; path != "" {
			x, err := wavio.ReadMonoAt(path, cfg.sampleRate)
			if err != nil {
				return out, fmt.Errorf("operator %d input: %w", op+1, err)
			}
			buf := make([]float64, frames)
			for i := range buf {
				if i < len(x) {
					buf[i] = x[i] * cfg.fullScale
				}
			}
			out[op] = buf
			continue
		}
		if cfg.freqs[op] == 0 {
			out[op] = make([]float64, frames)
			continue
		}
		x, err := gen.Sine(cfg.freqs[op], cfg.amplitude, frames)
		if err != nil {
			return out, fmt.Errorf("operator %d sine: %w", op+1, err)
		}
		out[op] = x
	}
	return out, nil
}

func run(cfg *config, logger *slog.Logger) error {
	defaults, err := loadDefaults(cfg.settingsPath, logger)
	if err != nil {
		return err
	}
	params := algomorph.NewParamsFromDefaults(defaults)
	m := algomorph.New(cfg.sampleRate, params, algomorph.WithLogger(logger))

	if cfg.presetPath != "" {
		if err := preset.LoadInto(cfg.presetPath, m, logger); err != nil {
			return err
		}
	}
	if cfg.seed != 0 {
		rng := rand.New(rand.NewSource(cfg.seed))
		for s := 0; s < algorithm.NumScenes; s++ {
			m.Bank().Randomize(s, rng)
		}
	}
	p := m.Params()
	if cfg.ring {
		p.RingMorph = true
	}
	if cfg.alterEgo {
		p.Mode = algomorph.AlterEgo
	}
	p.ClickFilterStrength = dsp.ExpCurve(float32(cfg.clickStrength), 0.1, 10)
	// Snap gains to the loaded scenes; Reset would also restart the transport.
	running := m.Running()
	m.Reset()
	m.SetRunning(running)

	frames := int(float64(cfg.sampleRate) * cfg.duration)
	if frames < 1 {
		frames = 1
	}
	ops, err := operatorSignals(cfg, frames)
	if err != nil {
		return err
	}

	logger.Info("rendering",
		"frames", frames,
		"sample_rate", cfg.sampleRate,
		"channels", cfg.channels,
		"morph_start", cfg.morphStart,
		"morph_end", cfg.morphEnd,
		"mode", p.Mode,
		"ring", p.RingMorph,
	)
	for s := 0; s < algorithm.NumScenes; s++ {
		sc := m.Bank().Snapshot(s)
		logger.Debug("scene", "index", s, "key", algorithm.Encode(sc), "carriers", sc.CarrierCount())
	}

	sums := make([][]float32, cfg.channels)
	for c := range sums {
		sums[c] = make([]float32, frames)
	}
	var mods [][]float32
	if cfg.modsOutput != "" {
		mods = make([][]float32, algorithm.NumOperators)
		for op := range mods {
			mods[op] = make([]float32, frames)
		}
	}

	var in algomorph.Frame
	var out algomorph.Output
	in.MorphChannels = cfg.channels
	for c := 0; c < cfg.channels; c++ {
		// Morph CV in volts: 5V per morph unit.
		in.Morph[c] = float32(float64(c) * cfg.spread * 5)
	}
	scale := float32(1 / cfg.fullScale)
	for i := 0; i < frames; i++ {
		p.Morph = morphAt(cfg.morphStart, cfg.morphEnd, i, frames)
		for op := 0; op < algorithm.NumOperators; op++ {
			in.SetOperator(op, float32(ops[op][i]))
		}
		m.Process(&in, &out)
		for c := 0; c < cfg.channels; c++ {
			sums[c][i] = out.Sum[c] * scale
		}
		for op := range mods {
			mods[op][i] = out.Modulators[op][0] * scale
		}
	}

	if cfg.irPath != "" {
		conv, err := loadConvolver(cfg.irPath, cfg.sampleRate)
		if err != nil {
			return err
		}
		for c := range sums {
			if err := conv.apply(sums[c]); err != nil {
				return fmt.Errorf("convolve channel %d: %w", c, err)
			}
		}
		logger.Info("applied impulse response", "path", cfg.irPath, "length", len(conv.ir))
	}

	if err := wavio.WriteMulti(cfg.output, sums, cfg.sampleRate); err != nil {
		return fmt.Errorf("write %s: %w", cfg.output, err)
	}
	logger.Info("wrote carrier sum", "path", cfg.output)
	if mods != nil {
		if err := wavio.WriteMulti(cfg.modsOutput, mods, cfg.sampleRate); err != nil {
			return fmt.Errorf("write %s: %w", cfg.modsOutput, err)
		}
		logger.Info("wrote modulator buses", "path", cfg.modsOutput)
	}
	if cfg.savePreset != "" {
		if err := preset.SaveJSON(cfg.savePreset, preset.Capture(m)); err != nil {
			return err
		}
		logger.Info("saved preset", "path", cfg.savePreset)
	}
	if cfg.report {
		return writeReport(os.Stdout, cfg.sampleRate, sums, mods)
	}
	return nil
}

type renderReport struct {
	Sum        []analysis.Report `json:"sum"`
	Modulators []analysis.Report `json:"modulators,omitempty"`
}

func writeReport(w io.Writer, sampleRate int, sums, mods [][]float32) error {
	var r renderReport
	for _, ch := range sums {
		r.Sum = append(r.Sum, analysis.Measure(toFloat64(ch), sampleRate))
	}
	for _, ch := range mods {
		r.Modulators = append(r.Modulators, analysis.Measure(toFloat64(ch), sampleRate))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func toFloat64(x []float32) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}
	return out
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
	if err := run(cfg, newLogger(cfg.verbose)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
