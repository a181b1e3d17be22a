// Package algomorph is a polyphonic routing engine that morphs between three
// four-operator FM algorithms.
//
// A Module reads operator signals and control voltages one frame at a time,
// resolves each channel's morph position against the three scenes, and writes
// click-filtered modulator-bus and carrier-sum outputs. Panel gestures and
// host actions reach the audio thread through Send.
package algomorph

import (
	"log/slog"
	"math"
	"math/rand"
	"sync/atomic"

	"github.com/xandramax/Volume1-sub000/algorithm"
	"github.com/xandramax/Volume1-sub000/dsp"
	"github.com/xandramax/Volume1-sub000/morph"
)

const (
	MaxChannels  = 16
	NumAuxInputs = 5

	defaultCommandQueue = 64
	meterRelease        = 0.3 // seconds to fall by 1/e
)

// Frame is one sample of every input. A channel count of 1 is broadcast to
// all active channels; 0 means unpatched.
type Frame struct {
	Operators        [numOps][MaxChannels]float32
	OperatorChannels [numOps]int

	Morph         [MaxChannels]float32
	MorphChannels int

	Aux         [NumAuxInputs][MaxChannels]float32
	AuxChannels [NumAuxInputs]int
}

// SetOperator sets a monophonic operator input.
func (f *Frame) SetOperator(op int, v float32) {
	f.Operators[op][0] = v
	f.OperatorChannels[op] = 1
}

// SetAux sets a monophonic aux input.
func (f *Frame) SetAux(i int, v float32) {
	f.Aux[i][0] = v
	f.AuxChannels[i] = 1
}

// Output is one sample of every output. Channels beyond Channels are zero.
type Output struct {
	Modulators [numOps][MaxChannels]float32
	Sum        [MaxChannels]float32
	ModSum     [MaxChannels]float32
	Phase      [MaxChannels]float32
	Channels   int
}

// Command is a mutation run on the audio thread at the start of Process.
type Command func(m *Module)

// Option configures a Module.
type Option func(*Module)

// WithLogger sets the logger. Nothing is logged from Process.
func WithLogger(l *slog.Logger) Option {
	return func(m *Module) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithCommandQueue sets the command queue capacity.
func WithCommandQueue(size int) Option {
	return func(m *Module) {
		if size > 0 {
			m.commands = make(chan Command, size)
		}
	}
}

// WithRand sets the source used by Randomize.
func WithRand(r *rand.Rand) Option {
	return func(m *Module) {
		if r != nil {
			m.rng = r
		}
	}
}

// WithHistoryLimit bounds the undo history.
func WithHistoryLimit(n int) Option {
	return func(m *Module) {
		m.history = NewHistory(n)
	}
}

// Module is the routing engine.
type Module struct {
	sampleRate float32
	params     *Params
	logger     *slog.Logger
	rng        *rand.Rand

	bank      *algorithm.Bank
	baseScene int

	aux       *AuxScaler
	router    Router
	transport transport
	history   *History
	session   *EditSession
	commands  chan Command

	channels   int
	states     [MaxChannels]morph.State
	delta      [MaxChannels]float32
	inputs     [numOps][MaxChannels]float32
	buses      Buses
	meterDecay float32
	meterLevel [numOps]float32
	meters     [numOps]atomic.Uint32
}

// New creates a module. A nil params uses NewDefaultParams.
func New(sampleRate int, params *Params, opts ...Option) *Module {
	if params == nil {
		params = NewDefaultParams()
	}
	m := &Module{
		sampleRate: float32(sampleRate),
		params:     params,
		logger:     slog.Default(),
		rng:        rand.New(rand.NewSource(1)),
		bank:       algorithm.NewBank(),
		aux:        NewAuxScaler(),
		transport:  newTransport(float32(sampleRate)),
		commands:   make(chan Command, defaultCommandQueue),
		channels:   1,
	}
	m.meterDecay = float32(math.Exp(-1 / (meterRelease * float64(sampleRate))))
	for _, opt := range opts {
		opt(m)
	}
	if m.history == nil {
		m.history = NewHistory(DefaultHistoryLimit)
	}
	m.session = NewEditSession(m.bank, m.history, m, m.params)
	m.resolveStates()
	m.router.Snap(m.bank, &m.states, m.params.Mode, m.params.RingMorph)
	m.logger.Debug("algomorph module created", "sample_rate", sampleRate, "mode", m.params.Mode, "ring", m.params.RingMorph)
	return m
}

func wrapScene(s int) int {
	s %= algorithm.NumScenes
	if s < 0 {
		s += algorithm.NumScenes
	}
	return s
}

func clampChannels(n int) int {
	switch {
	case n < 0:
		return 0
	case n > MaxChannels:
		return MaxChannels
	default:
		return n
	}
}

// voltageAt reads channel c of a polyphonic input, broadcasting mono.
func voltageAt(v *[MaxChannels]float32, chans, c int) float32 {
	switch {
	case chans == 1:
		return v[0]
	case c < chans:
		return v[c]
	default:
		return 0
	}
}

func (m *Module) channelCount(in *Frame) int {
	n := clampChannels(in.MorphChannels)
	for op := 0; op < numOps; op++ {
		if c := clampChannels(in.OperatorChannels[op]); c > n {
			n = c
		}
	}
	for i := 0; i < NumAuxInputs; i++ {
		if m.aux.assigned[i] == 0 {
			continue
		}
		if c := clampChannels(in.AuxChannels[i]); c > n {
			n = c
		}
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Send queues cmd for the audio thread. It reports false when the queue is full.
func (m *Module) Send(cmd Command) bool {
	select {
	case m.commands <- cmd:
		return true
	default:
		return false
	}
}

func (m *Module) drainCommands() {
	for i := cap(m.commands); i > 0; i-- {
		select {
		case cmd := <-m.commands:
			cmd(m)
		default:
			return
		}
	}
}

func (m *Module) morphValue(c int, in *Frame) float32 {
	p := m.params
	a := m.aux
	atten := p.MorphAtten *
		a.Value(RoleMorphAtten, c) *
		a.Value(RoleDoubleMorphAtten, c) *
		a.Value(RoleTripleMorphAtten, c)
	cv := voltageAt(&in.Morph, clampChannels(in.MorphChannels), c) / 5
	return p.Morph + cv*atten +
		a.Value(RoleMorph, c) + a.Value(RoleDoubleMorph, c) + a.Value(RoleTripleMorph, c)
}

func (m *Module) clickDelta(c int) float32 {
	p := m.params
	if !p.ClickFilterEnabled || p.ClickFilterSlew <= 0 {
		return 0
	}
	strength := p.ClickFilterStrength * m.aux.Value(RoleClickFilter, c)
	if strength <= 0 {
		return 0
	}
	return p.ClickFilterSlew / strength / m.sampleRate
}

func (m *Module) resolveStates() {
	for c := 0; c < MaxChannels; c++ {
		m.states[c] = morph.Resolve(m.params.Morph, m.baseScene, 0, m.params.RingMorph)
	}
}

// Process computes one frame. It does not allocate or block.
func (m *Module) Process(in *Frame, out *Output) {
	m.drainCommands()
	p := m.params

	channels := m.channelCount(in)
	m.channels = channels

	if fired := m.aux.Process(in); fired != 0 {
		m.handleTriggers(fired)
	}

	for c := 0; c < channels; c++ {
		offset := int(m.aux.Value(RoleSceneOffset, c))
		m.states[c] = morph.Resolve(m.morphValue(c, in), m.baseScene, offset, p.RingMorph)
		m.delta[c] = m.clickDelta(c)
		for op := 0; op < numOps; op++ {
			x := voltageAt(&in.Operators[op], clampChannels(in.OperatorChannels[op]), c)
			m.inputs[op][c] = x*p.InputGain + m.aux.Value(ShadowRole(op), c)
		}
	}

	m.buses = Buses{}
	m.router.Process(m.bank, &m.states, &m.delta, &m.inputs, channels, p.Mode, p.RingMorph, &m.buses)

	silence := m.transport.gain(p.RunSilencer)
	*out = Output{Channels: channels}
	for c := 0; c < channels; c++ {
		wildMod := m.aux.Value(RoleWildcardMod, c) * p.WildcardGain
		wildSum := m.aux.Value(RoleWildcardSum, c) * p.WildcardGain
		modAtten := m.aux.Value(RoleModAtten, c) * silence

		var modSum float32
		for op := 0; op < numOps; op++ {
			v := (m.buses.Mod[op][c]*p.ModGain + wildMod) * modAtten
			out.Modulators[op][c] = v
			modSum += v
		}
		out.ModSum[c] = modSum

		sum := m.buses.Sum[c]*p.SumGain + wildSum
		if p.WildcardSumming {
			sum += wildMod
		}
		out.Sum[c] = sum * m.aux.Value(RoleSumAtten, c) * p.OutputGain * silence
		out.Phase[c] = morph.PhaseVoltage(m.states[c].Wrapped, p.BipolarPhase)
	}

	if p.VULights {
		m.updateMeters(channels)
	}
}

func (m *Module) updateMeters(channels int) {
	for op := 0; op < numOps; op++ {
		var peak float32
		for c := 0; c < channels; c++ {
			v := m.inputs[op][c]
			if v < 0 {
				v = -v
			}
			if v > peak {
				peak = v
			}
		}
		level := dsp.FlushDenormals(m.meterLevel[op] * m.meterDecay)
		if peak > level {
			level = peak
		}
		m.meterLevel[op] = level
		m.meters[op].Store(math.Float32bits(level))
	}
}

// Meter returns operator op's decaying peak input level in volts. It is safe
// to call from any goroutine.
func (m *Module) Meter(op int) float32 {
	if op < 0 || op >= numOps {
		return 0
	}
	return math.Float32frombits(m.meters[op].Load())
}

// Reset returns transport and trigger state to power-on, re-resolves the
// morph from the base scene and knob, and snaps every gain to it.
func (m *Module) Reset() {
	m.aux.Reset()
	m.transport.reset()
	m.resolveStates()
	m.router.Snap(m.bank, &m.states, m.params.Mode, m.params.RingMorph)
	for op := range m.meterLevel {
		m.meterLevel[op] = 0
		m.meters[op].Store(0)
	}
}

// NearestScene returns the scene carrying most weight on channel 0.
func (m *Module) NearestScene() int {
	return m.states[0].Nearest()
}

func (m *Module) Params() *Params         { return m.params }
func (m *Module) Bank() *algorithm.Bank   { return m.bank }
func (m *Module) Aux() *AuxScaler         { return m.aux }
func (m *Module) Router() *Router         { return &m.router }
func (m *Module) History() *History       { return m.history }
func (m *Module) Session() *EditSession   { return m.session }
func (m *Module) SampleRate() int         { return int(m.sampleRate) }
func (m *Module) Channels() int           { return m.channels }
func (m *Module) BaseScene() int          { return m.baseScene }
func (m *Module) Running() bool           { return m.transport.running }
func (m *Module) SetRunning(running bool) { m.transport.running = running }

// MorphState returns the resolved morph position of channel c.
func (m *Module) MorphState(c int) morph.State { return m.states[c] }

// SetBaseScene selects the scene the morph is anchored on.
func (m *Module) SetBaseScene(scene int) {
	m.baseScene = wrapScene(scene)
}

// PressScene selects the edit scene while editing and the base scene otherwise.
func (m *Module) PressScene(scene int) {
	if scene < 0 || scene >= algorithm.NumScenes {
		return
	}
	if m.session.ConfigMode() {
		m.session.SelectEditScene(scene)
		return
	}
	m.baseScene = scene
}

func (m *Module) PressEdit()             { m.session.PressEdit() }
func (m *Module) PressOperator(op int)   { m.session.PressOperator(op) }
func (m *Module) PressModulator(mod int) { m.session.PressModulator(mod) }

// targetScene is the scene whole-scene actions apply to.
func (m *Module) targetScene() int {
	if m.session.ConfigMode() {
		return m.session.EditScene()
	}
	return m.baseScene
}

// Randomize replaces the target scene with a random valid algorithm.
func (m *Module) Randomize() {
	scene := m.targetScene()
	before := m.bank.Snapshot(scene)
	m.bank.Randomize(scene, m.rng)
	m.history.Push(Edit{Kind: EditReplace, Scene: scene, Before: before, After: m.bank.Snapshot(scene)})
}

// Initialize clears the target scene.
func (m *Module) Initialize() {
	scene := m.targetScene()
	before := m.bank.Snapshot(scene)
	m.bank.Initialize(scene)
	m.history.Push(Edit{Kind: EditReplace, Scene: scene, Before: before, After: m.bank.Snapshot(scene)})
}

func (m *Module) Undo() bool { return m.history.Undo(m.bank) }
func (m *Module) Redo() bool { return m.history.Redo(m.bank) }
