// Package response computes the frequency response of a complex FIR tap
// set for diagnostic purposes: verifying a supplied tap set has the
// expected passband shape before wiring it into filter.New. It is not on
// the real-time convolution path.
package response

import (
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// Bin holds the analysis result for one DFT bin.
type Bin struct {
	// FreqNormalized is the bin's frequency as a fraction of the sample
	// rate, in [-0.5, 0.5).
	FreqNormalized float64

	// MagnitudeDB is 20*log10(|H|), with |H|==0 reported as -240 dB
	// rather than -Inf.
	MagnitudeDB float64

	// PhaseRad is the bin's phase angle in radians, in (-pi, pi].
	PhaseRad float64
}

// silenceFloorDB is reported for a zero-magnitude bin instead of -Inf.
const silenceFloorDB = -240.0

// Analyze computes the frequency response of the complex tap set
// (coeffsRe, coeffsIm), zero-padded to fftSize (must be a power of two and
// >= len(coeffsRe)), returning one Bin per FFT output index reordered so
// FreqNormalized runs from -0.5 (inclusive) to 0.5 (exclusive).
func Analyze(coeffsRe, coeffsIm []int16, fftSize int) ([]Bin, error) {
	n := len(coeffsRe)
	if n == 0 || n != len(coeffsIm) {
		return nil, fmt.Errorf("response: coeffsRe and coeffsIm must be equal non-zero length")
	}
	if fftSize < n {
		return nil, fmt.Errorf("response: fftSize %d smaller than tap count %d", fftSize, n)
	}
	if fftSize&(fftSize-1) != 0 {
		return nil, fmt.Errorf("response: fftSize %d must be a power of two", fftSize)
	}

	plan, err := algofft.NewPlan32(fftSize)
	if err != nil {
		return nil, fmt.Errorf("response: creating FFT plan: %w", err)
	}

	time := make([]complex64, fftSize)
	for i := 0; i < n; i++ {
		time[i] = complex(q15ToFloat32(coeffsRe[i]), q15ToFloat32(coeffsIm[i]))
	}

	freq := make([]complex64, fftSize)
	if err := plan.Forward(freq, time); err != nil {
		return nil, fmt.Errorf("response: forward FFT: %w", err)
	}

	bins := make([]Bin, fftSize)
	for k := 0; k < fftSize; k++ {
		// Reorder so index 0 is the most negative frequency: natural FFT
		// output order is [0, +1/N, ..., +0.5) then wraps to negative
		// frequencies at index fftSize/2.
		shifted := (k + fftSize/2) % fftSize
		c := complex128(freq[shifted])
		mag := cmplx.Abs(c)

		magDB := silenceFloorDB
		if mag > 0 {
			magDB = 20 * math.Log10(mag)
		}

		bins[k] = Bin{
			FreqNormalized: float64(k)/float64(fftSize) - 0.5,
			MagnitudeDB:    magDB,
			PhaseRad:       cmplx.Phase(c),
		}
	}

	return bins, nil
}

func q15ToFloat32(v int16) float32 {
	return float32(v) / 32768.0
}
