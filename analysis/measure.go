// Package analysis measures rendered engine outputs: level, clicks and
// spectral content.
package analysis

import (
	"math"
)

// Report summarizes one rendered channel.
type Report struct {
	SampleRate int `json:"sample_rate"`
	Frames     int `json:"frames"`

	RMS     float64 `json:"rms"`
	RMSDB   float64 `json:"rms_db"`
	Peak    float64 `json:"peak"`
	CrestDB float64 `json:"crest_db"`

	// MaxStep is the largest sample-to-sample change, a cheap click detector.
	MaxStep float64 `json:"max_step"`

	DominantHz float64 `json:"dominant_hz"`
	CentroidHz float64 `json:"centroid_hz"`
}

// Measure computes a report for x.
func Measure(x []float64, sampleRate int) Report {
	r := Report{SampleRate: sampleRate, Frames: len(x)}
	if len(x) == 0 {
		r.RMSDB = LinToDB(0)
		return r
	}
	r.RMS = RMS(x)
	r.RMSDB = LinToDB(r.RMS)
	r.Peak = Peak(x)
	if r.RMS > 0 {
		r.CrestDB = LinToDB(r.Peak / r.RMS)
	}
	r.MaxStep = MaxStep(x)

	if sampleRate > 0 {
		if mag, n, err := Spectrum(x, DefaultFFTSize); err == nil {
			r.DominantHz = DominantFrequency(mag, n, sampleRate)
			r.CentroidHz = SpectralCentroid(mag, n, sampleRate)
		}
	}
	return r
}

// RMS returns the root mean square of x.
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

// Peak returns the largest absolute sample.
func Peak(x []float64) float64 {
	var p float64
	for _, v := range x {
		if a := math.Abs(v); a > p {
			p = a
		}
	}
	return p
}

// MaxStep returns the largest absolute difference between adjacent samples.
func MaxStep(x []float64) float64 {
	var m float64
	for i := 1; i < len(x); i++ {
		if d := math.Abs(x[i] - x[i-1]); d > m {
			m = d
		}
	}
	return m
}

// RMSEnvelope returns frame RMS values every hop samples.
func RMSEnvelope(x []float64, frame, hop int) []float64 {
	if frame <= 0 || hop <= 0 || len(x) < frame {
		return nil
	}
	n := 1 + (len(x)-frame)/hop
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i * hop
		out[i] = RMS(x[start : start+frame])
	}
	return out
}

// RMSE returns the root mean square difference over the common length.
func RMSE(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

// LinToDB converts an amplitude to dB, floored at -240 dB.
func LinToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20.0 * math.Log10(x)
}
