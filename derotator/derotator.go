// Package derotator implements the per-output-sample complex phase
// rotation ("derotation") used to shift a filter's output spectrum around
// a baseband offset.
package derotator

import (
	"fmt"
	"math"

	"sdrfir/fixedpoint"
)

// Derotator tracks the current Q.15 phasor and the fixed Q.15 increment
// applied to it after every produced output sample.
type Derotator struct {
	phaseRe, phaseIm int16
	incrRe, incrIm   int16
	counter          uint64
}

// New creates a Derotator with the given Q.15 increment and an initial
// phasor of (32767, 0), the largest Q.15 value below 1.0. A zero increment
// in both components disables rotation: Apply then passes its input
// through unchanged and Counter never advances.
func New(incrRe, incrIm int16) *Derotator {
	return &Derotator{
		phaseRe: int16(fixedpoint.Q15One - 1),
		phaseIm: 0,
		incrRe:  incrRe,
		incrIm:  incrIm,
	}
}

// NewFromShift computes the Q.15 increment exp(-j*omega*decimation) for a
// baseband frequency shift of freqShiftHz at sampleRateHz, where
// omega = 2*pi*freqShiftHz/sampleRateHz, and returns a Derotator primed
// with that increment. decimation must be the filter's decimation factor
// so that the phasor advances once per produced (decimated) output sample.
func NewFromShift(sampleRateHz uint32, freqShiftHz int32, decimation int) (*Derotator, error) {
	if sampleRateHz == 0 {
		return nil, fmt.Errorf("derotator: sample rate must be > 0")
	}
	if decimation <= 0 {
		return nil, fmt.Errorf("derotator: decimation must be > 0, got %d", decimation)
	}

	omega := 2 * math.Pi * float64(freqShiftHz) / float64(sampleRateHz)
	theta := -omega * float64(decimation)

	incrRe := toQ15(math.Cos(theta))
	incrIm := toQ15(math.Sin(theta))

	return New(incrRe, incrIm), nil
}

func toQ15(x float64) int16 {
	v := math.Round(x * float64(fixedpoint.Q15One))
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	default:
		return int16(v)
	}
}

// Disabled reports whether rotation is a no-op (both increment components
// are zero).
func (d *Derotator) Disabled() bool {
	return d.incrRe == 0 && d.incrIm == 0
}

// Counter reports how many times Apply has advanced the phasor.
func (d *Derotator) Counter() uint64 {
	return d.counter
}

// Apply takes one already Q.15-rounded convolution output (acc_re, acc_im)
// and, if rotation is enabled, rotates it by the current phasor, rounds
// the Q.30 product back to Q.15, and advances the phasor by the
// increment. If rotation is disabled, it returns accRe/accIm unchanged and
// leaves the phasor and counter untouched.
func (d *Derotator) Apply(accRe, accIm int16) (outRe, outIm int16) {
	if d.Disabled() {
		return accRe, accIm
	}

	rotRe, rotIm := fixedpoint.CMulQ15Q30(int32(accRe), int32(accIm), int32(d.phaseRe), int32(d.phaseIm))
	outRe = fixedpoint.RoundQ30Q15(rotRe)
	outIm = fixedpoint.RoundQ30Q15(rotIm)

	d.phaseRe, d.phaseIm = fixedpoint.CMulQ15Q15(d.phaseRe, d.phaseIm, d.incrRe, d.incrIm)
	d.counter++

	return outRe, outIm
}
