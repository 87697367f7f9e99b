// Package fixedpoint implements the Q.15 / Q.30 complex fixed-point
// arithmetic kernel shared by the derotator and convolution engine.
//
// A Q.15 value x represents the rational x/Q15One in [-1, 1). Two Q.15
// values multiplied together produce a Q.30 intermediate with no implicit
// shift; callers decide where rounding and narrowing happen.
package fixedpoint

// Q15One is 1.0 represented in Q.15.
const Q15One int32 = 1 << 15

// CMulQ15Q30 computes the complex product r = a * b (no conjugation) with
// a and b treated as Q.15 operand
// pairs (or, for the derotation path, a Q.30 accumulator paired with a Q.15
// phasor), accumulating into Q.30/wider 32-bit integers. It performs a
// plain integer product with no post-shift: the caller is responsible for
// placing RoundQ30Q15 at whatever point the documented semantics call for
// it.
func CMulQ15Q30(aRe, aIm, bRe, bIm int32) (rRe, rIm int32) {
	rRe = aRe*bRe - aIm*bIm
	rIm = aIm*bRe + aRe*bIm
	return rRe, rIm
}

// CMulQ15Q15 computes r = a * b (no conjugation) for two Q.15 operand pairs, rounding
// and shifting the Q.30 intermediate back down to Q.15. Used to advance a
// Q.15 phasor by a Q.15 increment each step.
func CMulQ15Q15(aRe, aIm, bRe, bIm int16) (rRe, rIm int16) {
	pRe := int32(aRe)*int32(bRe) - int32(aIm)*int32(bIm)
	pIm := int32(aIm)*int32(bRe) + int32(aRe)*int32(bIm)
	return RoundQ30Q15(pRe), RoundQ30Q15(pIm)
}

// RoundQ30Q15 rounds a Q.30 value to Q.15 (add 2^14, arithmetic shift right
// by 15) and saturates the result to the signed 16-bit range.
func RoundQ30Q15(x int32) int16 {
	return saturate16((int64(x) + (1 << 14)) >> 15)
}

func saturate16(x int64) int16 {
	switch {
	case x > 32767:
		return 32767
	case x < -32768:
		return -32768
	default:
		return int16(x)
	}
}
