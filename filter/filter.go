// Package filter implements the public driver API for the decimating
// complex FIR filter: New, Close, Push, Process, CanProcess, and Full. It
// wraps the firengine convolution engine with buffer-admission error
// mapping and structured logging, mirroring the teacher's pattern of a
// thin, logged public type around a lower-level engine.
package filter

import (
	"errors"
	"fmt"
	"log/slog"

	"sdrfir/derotator"
	"sdrfir/firengine"
	"sdrfir/samplebuf"
)

// ErrInvalidArgument is returned by New for malformed configuration.
var ErrInvalidArgument = firengine.ErrInvalidArgument

// ErrBusy is returned by Push when both buffer slots are already
// occupied.
var ErrBusy = firengine.ErrBusy

// Config carries everything New needs to build a Filter.
type Config struct {
	// CoeffsRe, CoeffsIm are the Q.15 FIR taps, equal non-zero length.
	CoeffsRe, CoeffsIm []int16

	// Decimation is the output stride; must be >= 1.
	Decimation int

	// Derotate enables phase derotation computed from SampleRateHz and
	// FreqShiftHz. When false, SampleRateHz/FreqShiftHz are ignored and
	// the filter's output is not rotated.
	Derotate bool

	// SampleRateHz, FreqShiftHz configure the derotation increment (see
	// derotator.NewFromShift). Required when Derotate is true.
	SampleRateHz uint32
	FreqShiftHz  int32

	// Logger receives structural events (initialization, buffer
	// admission/rejection, drained signals, close) at debug level. Buffer
	// retirement happens inside the engine and is not logged. Defaults to
	// slog.Default() if nil.
	Logger *slog.Logger
}

// Filter is the public handle to a single decimating complex FIR filter
// instance. It is not safe for concurrent use: all methods require
// exclusive access from a single goroutine, matching the specification's
// single-threaded scheduling model.
type Filter struct {
	engine *firengine.Engine
	log    *slog.Logger
}

// New builds a Filter from cfg. It fails with ErrInvalidArgument on
// malformed tap arrays or decimation, or if Derotate is set with a zero
// SampleRateHz.
func New(cfg Config) (*Filter, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var rot *derotator.Derotator
	if cfg.Derotate {
		var err error
		rot, err = derotator.NewFromShift(cfg.SampleRateHz, cfg.FreqShiftHz, cfg.Decimation)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
	} else {
		rot = derotator.New(0, 0)
	}

	engine, err := firengine.New(cfg.CoeffsRe, cfg.CoeffsIm, cfg.Decimation, rot)
	if err != nil {
		return nil, err
	}

	logger.Debug("filter initialized",
		"taps", engine.N(),
		"decimation", engine.Decimation(),
		"derotate", cfg.Derotate)

	return &Filter{engine: engine, log: logger}, nil
}

// Close releases any buffers still held by the filter. The Filter must
// not be used after Close.
func (f *Filter) Close() error {
	f.engine.Close()
	f.log.Debug("filter closed")
	return nil
}

// Push transfers ownership of one reference on b into the filter. Returns
// ErrBusy if both buffer slots are already occupied; the caller must
// Process before retrying. Returns ErrInvalidArgument for a nil or
// zero-length buffer.
func (f *Filter) Push(b samplebuf.Buffer) error {
	err := f.engine.Push(b)
	switch {
	case err == nil:
		f.log.Debug("buffer pushed", "len", b.Len(), "nr_samples", f.engine.NRSamples())
	case errors.Is(err, ErrBusy):
		f.log.Debug("push rejected: busy")
	default:
		f.log.Debug("push rejected: invalid argument", "error", err)
	}
	return err
}

// Process repeatedly runs the convolution engine, writing interleaved
// (re, im) Q.15 samples to out[0], out[1], out[2], out[3], ... It stops
// early, returning the count of complex samples generated so far, when
// input is exhausted (the internal "drained" signal, not an error) or
// when nrOutSamples have been produced. If no buffers are held, it
// returns 0 immediately. Returns ErrInvalidArgument if out is too short
// for nrOutSamples or nrOutSamples is 0.
func (f *Filter) Process(out []int16, nrOutSamples int) (int, error) {
	if nrOutSamples <= 0 {
		return 0, fmt.Errorf("%w: nrOutSamples must be > 0", ErrInvalidArgument)
	}
	if len(out) < 2*nrOutSamples {
		return 0, fmt.Errorf("%w: out too short for %d samples", ErrInvalidArgument, nrOutSamples)
	}

	generated := 0
	for generated < nrOutSamples {
		ok, _ := f.engine.CanProcess()
		if !ok && f.engine.NRSamples() == 0 {
			// No buffers at all (or nothing held): per spec, Process
			// returns 0 / the count so far rather than calling into an
			// engine with no active buffer.
			break
		}

		re, im, status := f.engine.ProcessSample()
		if status == firengine.StatusDrained {
			f.log.Debug("process drained", "generated", generated)
			break
		}

		out[2*generated] = re
		out[2*generated+1] = im
		generated++
	}

	return generated, nil
}

// CanProcess reports whether at least N (the tap count) unconsumed samples
// are held, and floor(held samples / N) as an estimate of how many outputs
// can be produced. The estimate is not a bound; the exact count depends
// on the decimation stride.
func (f *Filter) CanProcess() (bool, int) {
	return f.engine.CanProcess()
}

// Full reports whether the filter cannot accept another buffer without
// first calling Process.
func (f *Filter) Full() bool {
	return f.engine.Full()
}
