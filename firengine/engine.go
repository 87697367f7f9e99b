// Package firengine implements the decimating, fixed-point complex FIR
// convolution engine: the sample-buffer-chained inner loop that splices
// reads across the active and next sample buffer, applies the tap set,
// decimates, and optionally derotates, one output sample per invocation.
package firengine

import (
	"errors"
	"fmt"

	"sdrfir/derotator"
	"sdrfir/fixedpoint"
	"sdrfir/samplebuf"
)

// Errors returned by Engine methods. Drained is never returned as an
// error from ProcessSample; it is reported through Status instead, since
// it is a normal backpressure signal rather than a failure.
var (
	// ErrInvalidArgument is returned by New for malformed
	// configuration: mismatched or empty tap arrays, non-positive
	// decimation.
	ErrInvalidArgument = errors.New("firengine: invalid argument")

	// ErrBusy is returned by Push when both buffer slots are already
	// occupied. The caller must drain output via ProcessSample before
	// retrying.
	ErrBusy = errors.New("firengine: busy, both buffer slots occupied")
)

// Status reports the outcome of ProcessSample.
type Status int

const (
	// StatusOK indicates a valid output sample was produced.
	StatusOK Status = iota

	// StatusDrained indicates the next convolution would read past all
	// currently held input; the caller must Push more before retrying.
	StatusDrained
)

// Engine holds the tap set, decimation stride, optional derotator, and the
// chained sample-buffer cursor state described in the specification's
// filter data model.
type Engine struct {
	coeffsRe, coeffsIm []int16
	n                  int
	decimation         int
	rot                *derotator.Derotator

	active, next samplebuf.Buffer
	sampleOffset int
	nrSamples    int
}

// New builds an Engine from caller-supplied Q.15 taps (copied into owned
// storage), a decimation stride, and a derotator (pass derotator.New(0, 0)
// for no derotation). Fails with ErrInvalidArgument on mismatched or empty
// tap arrays, or non-positive decimation.
func New(coeffsRe, coeffsIm []int16, decimation int, rot *derotator.Derotator) (*Engine, error) {
	if len(coeffsRe) == 0 || len(coeffsIm) == 0 {
		return nil, fmt.Errorf("%w: tap count must be > 0", ErrInvalidArgument)
	}
	if len(coeffsRe) != len(coeffsIm) {
		return nil, fmt.Errorf("%w: coeffs_re and coeffs_im must have equal length", ErrInvalidArgument)
	}
	if decimation <= 0 {
		return nil, fmt.Errorf("%w: decimation must be > 0, got %d", ErrInvalidArgument, decimation)
	}
	if rot == nil {
		return nil, fmt.Errorf("%w: rot must not be nil (use derotator.New(0, 0) to disable)", ErrInvalidArgument)
	}

	re := make([]int16, len(coeffsRe))
	im := make([]int16, len(coeffsIm))
	copy(re, coeffsRe)
	copy(im, coeffsIm)

	return &Engine{
		coeffsRe:   re,
		coeffsIm:   im,
		n:          len(re),
		decimation: decimation,
		rot:        rot,
	}, nil
}

// N reports the tap count.
func (e *Engine) N() int { return e.n }

// Decimation reports the configured decimation stride.
func (e *Engine) Decimation() int { return e.decimation }

// NRSamples reports the total unconsumed input samples across both held
// buffers, per the spec's sample-accounting invariant.
func (e *Engine) NRSamples() int { return e.nrSamples }

// Full reports whether the next-buffer slot is occupied, i.e. whether a
// further Push would be rejected with ErrBusy.
func (e *Engine) Full() bool { return e.next != nil }

// CanProcess reports whether at least N unconsumed samples are held, and
// floor(nr_samples / N) as an estimate of how many outputs can be
// produced. The estimate is not a bound: the exact count depends on the
// decimation stride, and ProcessSample also reports StatusDrained while
// fewer than Decimation samples are held.
func (e *Engine) CanProcess() (ok bool, estimate int) {
	if e.nrSamples < e.n {
		return false, 0
	}
	return true, e.nrSamples / e.n
}

// Push transfers ownership of one reference on b into the engine. If the
// active slot is empty, b becomes active; else if the next slot is empty,
// b becomes next; else Push returns ErrBusy without consuming the
// reference. Pushing a buffer instance already held by the engine is a
// programming error and panics.
func (e *Engine) Push(b samplebuf.Buffer) error {
	if b == nil {
		return fmt.Errorf("%w: buffer must not be nil", ErrInvalidArgument)
	}
	if b.Len() <= 0 {
		return fmt.Errorf("%w: buffer length must be > 0", ErrInvalidArgument)
	}
	if b == e.active || b == e.next {
		panic("firengine: pushed a buffer instance already held by the engine")
	}

	switch {
	case e.active == nil:
		e.active = b
	case e.next == nil:
		e.next = b
	default:
		return ErrBusy
	}

	e.nrSamples += b.Len()
	return nil
}

// Close releases any buffers still held (decref'ing each exactly once) and
// resets the engine to an empty state. Taps are not freed (Go's GC owns
// that); callers should not reuse the Engine after Close.
func (e *Engine) Close() {
	if e.active != nil {
		e.active.Decref()
		e.active = nil
	}
	if e.next != nil {
		e.next.Decref()
		e.next = nil
	}
	e.sampleOffset = 0
	e.nrSamples = 0
}

// ProcessSample runs one decimating convolution step: it gathers N taps'
// worth of input (splicing across active and next as needed), advances
// the read cursor by the decimation stride (retiring and decref'ing a
// fully consumed active buffer), and applies the derotator.
//
// It panics if sb_active is empty (programming error per spec: callers
// must check CanProcess or tolerate StatusDrained from a prior call before
// calling again with no buffers at all).
//
// If the total unconsumed input is insufficient either to gather N taps or
// to advance by decimation without needing to retire more than one buffer
// in a single stride (an undefined case in the source specification), it
// returns StatusDrained and leaves all state unchanged.
func (e *Engine) ProcessSample() (outRe, outIm int16, status Status) {
	if e.active == nil {
		panic("firengine: ProcessSample called with no active buffer")
	}

	activeLen := e.active.Len()
	nextLen := 0
	if e.next != nil {
		nextLen = e.next.Len()
	}
	totalAvailable := (activeLen - e.sampleOffset) + nextLen

	required := e.n
	if e.decimation > required {
		required = e.decimation
	}
	if totalAvailable < required {
		return 0, 0, StatusDrained
	}

	accRe, accIm := e.convolve()

	e.advance(activeLen)
	e.nrSamples -= e.decimation

	outRe15 := fixedpoint.RoundQ30Q15(accRe)
	outIm15 := fixedpoint.RoundQ30Q15(accIm)
	outRe, outIm = e.rot.Apply(outRe15, outIm15)

	return outRe, outIm, StatusOK
}

// advance moves the read cursor by the decimation stride, retiring the
// active buffer (decref and promote next) if the stride would run off its
// end. Exact-fit retirement uses the >= boundary, matching the corrected
// SIMD behavior (see the module's open-question decision).
func (e *Engine) advance(activeLen int) {
	newOffset := e.sampleOffset + e.decimation
	if newOffset >= activeLen {
		e.active.Decref()
		e.active = e.next
		e.next = nil
		e.sampleOffset = newOffset - activeLen
	} else {
		e.sampleOffset = newOffset
	}
}
