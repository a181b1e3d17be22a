package algomorph

import "github.com/xandramax/Volume1-sub000/dsp"

// Run silencer fade time in seconds.
const runSilencerTime = 0.01

// transport tracks the run state driven by clock, reset and run triggers.
type transport struct {
	running  bool
	silencer *dsp.SlewLimiter
}

func newTransport(sampleRate float32) transport {
	t := transport{
		running:  true,
		silencer: dsp.NewSlewLimiter(1/runSilencerTime, sampleRate),
	}
	t.silencer.Reset(1)
	return t
}

// gain returns the run silencer level for this sample.
func (t *transport) gain(enabled bool) float32 {
	target := float32(1)
	if enabled && !t.running {
		target = 0
	}
	if t.silencer.Value() == target {
		return target
	}
	return t.silencer.Process(target)
}

func (t *transport) reset() {
	t.running = true
	t.silencer.Reset(1)
}

// handleTriggers applies the trigger roles that fired this sample. A reset
// swallows clocks arriving in the same sample.
func (m *Module) handleTriggers(fired RoleSet) {
	if fired.Has(RoleRun) {
		m.transport.running = !m.transport.running
	}
	if fired.Has(RoleReset) {
		m.baseScene = 0
		m.transport.running = true
		return
	}
	if !m.transport.running {
		return
	}
	step := 1
	if m.params.CCWSceneAdvance {
		step = -1
	}
	if fired.Has(RoleClock) {
		m.advance(step)
	}
	if fired.Has(RoleReverseClock) {
		m.advance(-step)
	}
}

func (m *Module) advance(step int) {
	m.baseScene = wrapScene(m.baseScene + step)
}
