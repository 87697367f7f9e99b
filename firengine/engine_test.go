package firengine

import (
	"errors"
	"testing"

	"sdrfir/derotator"
	"sdrfir/samplebuf"
)

func identityTaps() ([]int16, []int16) {
	return []int16{32767}, []int16{0}
}

func noRotation() *derotator.Derotator {
	return derotator.New(0, 0)
}

func TestNewRejectsInvalidArguments(t *testing.T) {
	re, im := identityTaps()

	if _, err := New(nil, nil, 1, noRotation()); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty taps: got %v, want ErrInvalidArgument", err)
	}
	if _, err := New(re, []int16{0, 0}, 1, noRotation()); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("mismatched taps: got %v, want ErrInvalidArgument", err)
	}
	if _, err := New(re, im, 0, noRotation()); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("zero decimation: got %v, want ErrInvalidArgument", err)
	}
	if _, err := New(re, im, 1, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil rot: got %v, want ErrInvalidArgument", err)
	}
}

func TestIdentityFilter(t *testing.T) {
	re, im := identityTaps()
	e, err := New(re, im, 1, noRotation())
	if err != nil {
		t.Fatal(err)
	}

	buf := samplebuf.New([]int16{1000, -2000, 3000, 4000})
	if err := e.Push(buf); err != nil {
		t.Fatal(err)
	}

	o1Re, o1Im, status := e.ProcessSample()
	if status != StatusOK {
		t.Fatalf("status = %v, want StatusOK", status)
	}
	assertNear(t, o1Re, 1000, 1)
	assertNear(t, o1Im, -2000, 1)

	o2Re, o2Im, status := e.ProcessSample()
	if status != StatusOK {
		t.Fatalf("status = %v, want StatusOK", status)
	}
	assertNear(t, o2Re, 3000, 1)
	assertNear(t, o2Im, 4000, 1)

	// The second output's stride lands exactly on the end of the buffer,
	// so it is retired and the engine holds nothing; ProcessSample must
	// not be called again, and CanProcess must report no more output.
	if ok, _ := e.CanProcess(); ok {
		t.Fatal("CanProcess() = true after exhausting input, want false")
	}
}

func TestDelayLine(t *testing.T) {
	re := []int16{0, 0, 0, 32767}
	im := []int16{0, 0, 0, 0}
	e, err := New(re, im, 1, noRotation())
	if err != nil {
		t.Fatal(err)
	}

	buf := samplebuf.New([]int16{10, 0, 20, 0, 30, 0, 40, 0, 50, 0})
	if err := e.Push(buf); err != nil {
		t.Fatal(err)
	}

	o1Re, _, status := e.ProcessSample()
	if status != StatusOK {
		t.Fatal("expected StatusOK")
	}
	assertNear(t, o1Re, 10, 1)

	o2Re, _, status := e.ProcessSample()
	if status != StatusOK {
		t.Fatal("expected StatusOK")
	}
	assertNear(t, o2Re, 20, 1)
}

func TestDecimationByTwo(t *testing.T) {
	re := []int16{16384, 16384}
	im := []int16{0, 0}
	e, err := New(re, im, 2, noRotation())
	if err != nil {
		t.Fatal(err)
	}

	buf := samplebuf.New([]int16{4, 0, 4, 0, 8, 0, 8, 0})
	if err := e.Push(buf); err != nil {
		t.Fatal(err)
	}

	o1Re, _, status := e.ProcessSample()
	if status != StatusOK {
		t.Fatal("expected StatusOK")
	}
	assertNear(t, o1Re, 4, 1)

	o2Re, _, status := e.ProcessSample()
	if status != StatusOK {
		t.Fatal("expected StatusOK")
	}
	assertNear(t, o2Re, 8, 1)
}

func TestBufferStraddle(t *testing.T) {
	re := []int16{0, 0, 0, 32767}
	im := []int16{0, 0, 0, 0}
	e, err := New(re, im, 1, noRotation())
	if err != nil {
		t.Fatal(err)
	}

	b1 := samplebuf.New([]int16{1, 0, 2, 0})
	b2 := samplebuf.New([]int16{3, 0, 4, 0, 5, 0, 6, 0})
	if err := e.Push(b1); err != nil {
		t.Fatal(err)
	}
	if err := e.Push(b2); err != nil {
		t.Fatal(err)
	}

	o1Re, _, status := e.ProcessSample()
	if status != StatusOK {
		t.Fatal("expected StatusOK")
	}
	assertNear(t, o1Re, 1, 1)
}

func TestBusyRejectionAndRetirementFreesSlot(t *testing.T) {
	re, im := identityTaps()
	e, err := New(re, im, 1, noRotation())
	if err != nil {
		t.Fatal(err)
	}

	b1 := samplebuf.New([]int16{1, 0})
	b2 := samplebuf.New([]int16{2, 0})
	b3 := samplebuf.New([]int16{3, 0})

	if err := e.Push(b1); err != nil {
		t.Fatal(err)
	}
	if err := e.Push(b2); err != nil {
		t.Fatal(err)
	}
	if !e.Full() {
		t.Fatal("expected Full() after two pushes")
	}
	if err := e.Push(b3); !errors.Is(err, ErrBusy) {
		t.Fatalf("third push: got %v, want ErrBusy", err)
	}

	// Consume b1 fully (N=1, decimation=1): one ProcessSample retires it.
	if _, _, status := e.ProcessSample(); status != StatusOK {
		t.Fatal("expected StatusOK")
	}
	if e.Full() {
		t.Fatal("expected Full()==false after b1 retired")
	}
	if err := e.Push(b3); err != nil {
		t.Fatalf("push after retirement: got %v, want nil", err)
	}
}

func TestPushAlreadyHeldPanics(t *testing.T) {
	re, im := identityTaps()
	e, err := New(re, im, 1, noRotation())
	if err != nil {
		t.Fatal(err)
	}
	b := samplebuf.New([]int16{1, 0})
	if err := e.Push(b); err != nil {
		t.Fatal(err)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic pushing an already-held buffer")
		}
	}()
	_ = e.Push(b)
}

func TestProcessSampleWithNoActivePanics(t *testing.T) {
	re, im := identityTaps()
	e, err := New(re, im, 1, noRotation())
	if err != nil {
		t.Fatal(err)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic with no active buffer")
		}
	}()
	e.ProcessSample()
}

func TestNRSamplesAccounting(t *testing.T) {
	re, im := identityTaps()
	e, err := New(re, im, 1, noRotation())
	if err != nil {
		t.Fatal(err)
	}

	b := samplebuf.New([]int16{1, 0, 2, 0, 3, 0})
	if err := e.Push(b); err != nil {
		t.Fatal(err)
	}
	if e.NRSamples() != 3 {
		t.Fatalf("NRSamples() = %d, want 3", e.NRSamples())
	}

	e.ProcessSample()
	if e.NRSamples() != 2 {
		t.Fatalf("NRSamples() = %d, want 2", e.NRSamples())
	}
}

func TestDecimationSkippingBothBuffersDrains(t *testing.T) {
	re, im := identityTaps()
	e, err := New(re, im, 10, noRotation())
	if err != nil {
		t.Fatal(err)
	}
	b1 := samplebuf.New([]int16{1, 0, 2, 0})
	b2 := samplebuf.New([]int16{3, 0, 4, 0})
	if err := e.Push(b1); err != nil {
		t.Fatal(err)
	}
	if err := e.Push(b2); err != nil {
		t.Fatal(err)
	}

	// N=1 so the tap gather alone would succeed, but decimation=10 exceeds
	// the 4 samples held across both buffers: this must drain rather than
	// retire past both buffers.
	if _, _, status := e.ProcessSample(); status != StatusDrained {
		t.Fatalf("status = %v, want StatusDrained", status)
	}
	if e.NRSamples() != 4 {
		t.Fatalf("NRSamples() = %d, want 4 (unchanged on drain)", e.NRSamples())
	}
}

func assertNear(t *testing.T, got, want int16, tolerance int16) {
	t.Helper()
	d := got - want
	if d < 0 {
		d = -d
	}
	if d > tolerance {
		t.Errorf("got %d, want %d (+/- %d)", got, want, tolerance)
	}
}

