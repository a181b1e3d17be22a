package main

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/hajimehoshi/oto"
	"github.com/xandramax/Volume1-sub000/algomorph"
	"github.com/xandramax/Volume1-sub000/algorithm"
	"github.com/xandramax/Volume1-sub000/dsp"
)

const (
	channelNum      = 2
	bitDepthInBytes = 2
	bytesPerFrame   = channelNum * bitDepthInBytes

	operatorVolts = 5.0
	fullScale     = 10.0
	gateAttack    = 0.005 // seconds for the gate to open
	gateRelease   = 0.05  // seconds for the gate to close
)

// voice drives the four operator inputs with phase-modulated sines. Each
// operator's phase is offset by the modulator bus the engine produced for it
// on the previous sample.
type voice struct {
	sampleRate float64
	ratios     [algorithm.NumOperators]float64
	phase      [algorithm.NumOperators]float64
	index      float64

	freqBits atomic.Uint64
	gateOn   atomic.Bool
	gate     *dsp.SlewLimiter
}

func newVoice(sampleRate int, ratios [algorithm.NumOperators]float64, index float64) *voice {
	v := &voice{
		sampleRate: float64(sampleRate),
		ratios:     ratios,
		index:      index,
		gate:       &dsp.SlewLimiter{},
	}
	sr := float32(sampleRate)
	v.gate.SetRiseFall(dsp.SlewDelta(1/gateAttack, sr), dsp.SlewDelta(1/gateRelease, sr))
	v.setFreq(220)
	return v
}

func (v *voice) setFreq(hz float64) { v.freqBits.Store(math.Float64bits(hz)) }
func (v *voice) freq() float64      { return math.Float64frombits(v.freqBits.Load()) }

func (v *voice) noteOn(note int) {
	v.setFreq(noteToFreq(note))
	v.gateOn.Store(true)
}

func (v *voice) noteOff() {
	v.gateOn.Store(false)
}

// render writes one frame of operator voltages from the previous output.
func (v *voice) render(f *algomorph.Frame, prev *algomorph.Output) {
	target := float32(0)
	if v.gateOn.Load() {
		target = 1
	}
	amp := float64(v.gate.Process(target)) * operatorVolts
	base := v.freq()
	for op := 0; op < algorithm.NumOperators; op++ {
		pm := float64(prev.Modulators[op][0]) / operatorVolts * v.index
		f.SetOperator(op, float32(amp*math.Sin(v.phase[op]+pm)))
		v.phase[op] += 2 * math.Pi * base * v.ratios[op] / v.sampleRate
		if v.phase[op] >= 2*math.Pi {
			v.phase[op] -= 2 * math.Pi
		}
	}
}

func noteToFreq(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

// engine renders the module into 16-bit stereo for oto.
type engine struct {
	ctx    context.Context
	module *algomorph.Module
	voice  *voice
	gain   float32
	logger *slog.Logger

	frame algomorph.Frame
	out   algomorph.Output
}

var _ io.Reader = (*engine)(nil)

func newEngine(module *algomorph.Module, v *voice, gain float32, logger *slog.Logger) *engine {
	return &engine{
		ctx:    context.Background(),
		module: module,
		voice:  v,
		gain:   gain,
		logger: logger,
	}
}

func (e *engine) Read(buf []byte) (int, error) {
	select {
	case <-e.ctx.Done():
		return 0, io.EOF
	default:
	}
	frames := len(buf) / bytesPerFrame
	for i := 0; i < frames; i++ {
		e.voice.render(&e.frame, &e.out)
		e.module.Process(&e.frame, &e.out)
		s := int16(dsp.Clamp(e.out.Sum[0]/fullScale*e.gain, -1, 1) * 32767)
		for ch := 0; ch < channelNum; ch++ {
			buf[i*bytesPerFrame+2*ch] = byte(s)
			buf[i*bytesPerFrame+2*ch+1] = byte(s >> 8)
		}
	}
	return frames * bytesPerFrame, nil
}

// play streams the engine to the default output until ctx is cancelled.
func (e *engine) play(ctx context.Context, sampleRate, bufferFrames int) error {
	otoContext, err := oto.NewContext(sampleRate, channelNum, bitDepthInBytes, bufferFrames*bytesPerFrame)
	if err != nil {
		return err
	}
	defer otoContext.Close()

	p := otoContext.NewPlayer()
	defer func() {
		if err := p.Close(); err != nil {
			e.logger.Error("close player", "err", err)
		}
	}()
	e.ctx = ctx

	e.logger.Info("audio started", "sample_rate", sampleRate, "buffer_frames", bufferFrames)
	if _, err := io.CopyBuffer(p, e, make([]byte, bufferFrames*bytesPerFrame)); err != nil {
		return err
	}
	e.logger.Info("audio stopped")
	return nil
}
