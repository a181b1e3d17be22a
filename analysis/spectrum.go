package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
)

// DefaultFFTSize is the analysis frame used by Measure.
const DefaultFFTSize = 4096

// Spectrum returns the Hann-windowed magnitude spectrum of the first size
// samples of x, averaged over half-overlapping frames when x is longer.
// Short input is zero padded. size must be a power of two; the returned n is
// the FFT size the bins refer to.
func Spectrum(x []float64, size int) ([]float64, int, error) {
	if size < 2 || size&(size-1) != 0 {
		return nil, 0, fmt.Errorf("fft size %d is not a power of two", size)
	}
	plan, err := algofft.NewPlanReal64(size)
	if err != nil {
		return nil, 0, fmt.Errorf("fft plan: %w", err)
	}

	hann := make([]float64, size)
	for i := range hann {
		hann[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(size-1))
	}
	spec := make([]complex128, size/2+1)
	buf := make([]float64, size)
	mag := make([]float64, size/2)

	hop := size / 2
	frames := 0
	for pos := 0; frames == 0 || pos+size <= len(x); pos += hop {
		for i := range buf {
			buf[i] = 0
			if pos+i < len(x) {
				buf[i] = x[pos+i] * hann[i]
			}
		}
		plan.Forward(spec, buf)
		for k := range mag {
			mag[k] += cmplx.Abs(spec[k])
		}
		frames++
	}
	scale := 1 / float64(frames)
	for k := range mag {
		mag[k] *= scale
	}
	return mag, size, nil
}

// DominantFrequency returns the centre frequency of the strongest bin above DC.
func DominantFrequency(mag []float64, n, sampleRate int) float64 {
	best, bestK := 0.0, 0
	for k := 1; k < len(mag); k++ {
		if mag[k] > best {
			best, bestK = mag[k], k
		}
	}
	return float64(bestK) * float64(sampleRate) / float64(n)
}

// SpectralCentroid returns the magnitude-weighted mean frequency, ignoring DC.
func SpectralCentroid(mag []float64, n, sampleRate int) float64 {
	binHz := float64(sampleRate) / float64(n)
	var num, den float64
	for k := 1; k < len(mag); k++ {
		num += float64(k) * binHz * mag[k]
		den += mag[k]
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// SpectralDistanceDB returns the RMS difference in dB between the spectra of
// a and b.
func SpectralDistanceDB(a, b []float64, size int) (float64, error) {
	ma, _, err := Spectrum(a, size)
	if err != nil {
		return 0, err
	}
	mb, _, err := Spectrum(b, size)
	if err != nil {
		return 0, err
	}
	var sum float64
	for k := 1; k < len(ma); k++ {
		d := LinToDB(ma[k]) - LinToDB(mb[k])
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(ma)-1)), nil
}
