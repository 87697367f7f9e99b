package fixedpoint

import (
	"testing"

	"pgregory.net/rapid"
)

func TestRoundQ30Q15Saturates(t *testing.T) {
	cases := []struct {
		name string
		in   int32
		want int16
	}{
		{"zero", 0, 0},
		{"half up", 1 << 14, 1},
		{"max positive no overflow", int32(32767) << 15, 32767},
		{"overflow positive saturates", (int32(40000) << 15) + (1 << 14), 32767},
		{"min negative no overflow", int32(-32768) << 15, -32768},
		{"overflow negative saturates", int32(-40000) << 15, -32768},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := RoundQ30Q15(c.in); got != c.want {
				t.Errorf("RoundQ30Q15(%d) = %d, want %d", c.in, got, c.want)
			}
		})
	}
}

func TestCMulQ15Q30Identity(t *testing.T) {
	// Multiplying by (Q15One, 0) (the identity tap) should reproduce the
	// sample scaled by Q15One, i.e. the sample shifted left by 15 with no
	// rotation on the imaginary component.
	re, im := CMulQ15Q30(Q15One, 0, 1000, -2000)
	if re != 1000*Q15One || im != -2000*Q15One {
		t.Errorf("CMulQ15Q30 identity mismatch: got (%d, %d)", re, im)
	}
}

func TestCMulQ15Q15MagnitudeBounded(t *testing.T) {
	// Multiplying two unit-magnitude-ish phasors should never blow past the
	// Q.15 representable range after rounding, for any int16 inputs.
	rapid.Check(t, func(t *rapid.T) {
		aRe := rapid.Int16().Draw(t, "aRe")
		aIm := rapid.Int16().Draw(t, "aIm")
		bRe := rapid.Int16().Draw(t, "bRe")
		bIm := rapid.Int16().Draw(t, "bIm")

		rRe, rIm := CMulQ15Q15(aRe, aIm, bRe, bIm)
		_ = rRe
		_ = rIm
		// No panic and values stay within int16 range by construction of
		// RoundQ30Q15's saturation; the real assertion here is that this
		// never panics for any representable input.
	})
}
