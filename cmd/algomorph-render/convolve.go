package main

import (
	"fmt"

	dspconv "github.com/cwbudde/algo-dsp/dsp/conv"
	"github.com/xandramax/Volume1-sub000/internal/wavio"
)

const convolverBlock = 128

// convolver runs a mono impulse response over rendered channels with
// partitioned overlap-add.
type convolver struct {
	ir  []float32
	out []float32
	pad []float32
}

func newConvolver(ir []float32) (*convolver, error) {
	if len(ir) == 0 {
		return nil, fmt.Errorf("empty impulse response")
	}
	return &convolver{
		ir:  ir,
		out: make([]float32, convolverBlock),
		pad: make([]float32, convolverBlock),
	}, nil
}

func loadConvolver(path string, sampleRate int) (*convolver, error) {
	x, err := wavio.ReadMonoAt(path, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("impulse response: %w", err)
	}
	return newConvolver(wavio.ToFloat32(x))
}

// apply convolves x in place, truncating the tail to len(x). Each call starts
// from silence.
func (c *convolver) apply(x []float32) error {
	ola, err := dspconv.NewStreamingOverlapAdd32(c.ir, convolverBlock)
	if err != nil {
		return err
	}
	for start := 0; start < len(x); start += convolverBlock {
		end := min(start+convolverBlock, len(x))
		block := x[start:end]
		if len(block) < convolverBlock {
			clear(c.pad)
			copy(c.pad, block)
			block = c.pad
		}
		if err := ola.ProcessBlockTo(c.out, block); err != nil {
			return err
		}
		copy(x[start:end], c.out)
	}
	return nil
}
