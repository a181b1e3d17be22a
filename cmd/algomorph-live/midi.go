package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xandramax/Volume1-sub000/algomorph"
	"github.com/xandramax/Volume1-sub000/algorithm"
	"github.com/xandramax/Volume1-sub000/dsp"
	"github.com/xandramax/Volume1-sub000/morph"
	"gitlab.com/gomidi/midi"
	"gitlab.com/gomidi/rtmididrv"
)

const (
	statusNoteOff    = 0x80
	statusNoteOn     = 0x90
	statusCC         = 0xB0
	statusProgram    = 0xC0
	ccTriggerOnValue = 64
)

// ccMap assigns controller numbers to module controls. Zero disables a
// mapping.
type ccMap struct {
	morph     int
	click     int
	randomize int
	edit      int
	ring      int
}

// controller turns MIDI messages into module commands. When sceneNoteBase is
// set, the NumScenes notes starting there press the scene buttons. Every other
// note plays the voice.
type controller struct {
	module        *algomorph.Module
	voice         *voice
	logger        *slog.Logger
	cc            ccMap
	sceneNoteBase int
	held          int
}

func (c *controller) send(name string, cmd algomorph.Command) {
	if !c.module.Send(cmd) {
		c.logger.Warn("command queue full, dropping", "command", name)
	}
}

func (c *controller) handle(data []byte) {
	if len(data) < 2 {
		return
	}
	switch data[0] & 0xF0 {
	case statusNoteOn:
		if len(data) < 3 {
			return
		}
		if data[2] == 0 {
			c.noteOff(int(data[1]))
			return
		}
		c.noteOn(int(data[1]))
	case statusNoteOff:
		c.noteOff(int(data[1]))
	case statusCC:
		if len(data) < 3 {
			return
		}
		c.controlChange(int(data[1]), int(data[2]))
	case statusProgram:
		scene := int(data[1]) % algorithm.NumScenes
		c.send("scene", func(m *algomorph.Module) { m.PressScene(scene) })
	}
}

func (c *controller) isSceneNote(note int) bool {
	return c.sceneNoteBase > 0 && note >= c.sceneNoteBase && note < c.sceneNoteBase+algorithm.NumScenes
}

func (c *controller) noteOn(note int) {
	if c.isSceneNote(note) {
		scene := note - c.sceneNoteBase
		c.send("scene", func(m *algomorph.Module) { m.PressScene(scene) })
		return
	}
	c.held = note
	c.voice.noteOn(note)
}

func (c *controller) noteOff(note int) {
	if c.isSceneNote(note) || note != c.held {
		return
	}
	c.voice.noteOff()
}

func (c *controller) controlChange(num, value int) {
	if num == 0 {
		return
	}
	x := float32(value) / 127
	switch num {
	case c.cc.morph:
		knob := ccToMorph(value)
		c.send("morph", func(m *algomorph.Module) { m.Params().Morph = knob })
	case c.cc.click:
		strength := dsp.ExpCurve(x, 0.1, 10)
		c.send("click", func(m *algomorph.Module) { m.Params().ClickFilterStrength = strength })
	case c.cc.randomize:
		if value >= ccTriggerOnValue {
			c.send("randomize", func(m *algomorph.Module) { m.Randomize() })
		}
	case c.cc.edit:
		if value >= ccTriggerOnValue {
			c.send("edit", func(m *algomorph.Module) { m.PressEdit() })
		}
	case c.cc.ring:
		on := value >= ccTriggerOnValue
		c.send("ring", func(m *algomorph.Module) { m.Params().RingMorph = on })
	}
}

// ccToMorph maps 0..127 onto the full knob range.
func ccToMorph(value int) float32 {
	return float32(value)/127*2*morph.Range - morph.Range
}

// listenMIDI feeds messages from input port to handle until ctx is done. A
// missing driver or port is logged and treated as no input.
func listenMIDI(ctx context.Context, logger *slog.Logger, port int, handle func([]byte)) error {
	drv, err := rtmididrv.New()
	if err != nil {
		logger.Warn("MIDI driver unavailable", "err", err)
		<-ctx.Done()
		return nil
	}
	defer func() {
		if err := drv.Close(); err != nil {
			logger.Error("close MIDI driver", "err", err)
		}
	}()
	ins, err := drv.Ins()
	if err != nil {
		return fmt.Errorf("list MIDI inputs: %w", err)
	}
	in, err := selectInput(ins, port)
	if err != nil {
		logger.Warn("no MIDI input", "err", err)
		<-ctx.Done()
		return nil
	}
	if err := in.Open(); err != nil {
		return fmt.Errorf("open MIDI input %s: %w", in, err)
	}
	defer func() {
		if err := in.Close(); err != nil {
			logger.Error("close MIDI input", "err", err)
		}
	}()
	logger.Info("listening for MIDI", "input", in.String())
	if err := in.SetListener(func(data []byte, deltaMicroseconds int64) {
		handle(data)
	}); err != nil {
		return fmt.Errorf("set MIDI listener: %w", err)
	}
	defer func() {
		if err := in.StopListening(); err != nil {
			logger.Error("stop MIDI listener", "err", err)
		}
	}()
	<-ctx.Done()
	return nil
}

func selectInput(ins []midi.In, port int) (midi.In, error) {
	if len(ins) == 0 {
		return nil, fmt.Errorf("no MIDI inputs found")
	}
	if port < 0 || port >= len(ins) {
		return nil, fmt.Errorf("MIDI port %d out of range (0..%d)", port, len(ins)-1)
	}
	return ins[port], nil
}
