//go:build !simd

package firengine

import "sdrfir/fixedpoint"

// convolve runs the scalar inner loop: for each of the N taps, fetch the
// matching input sample (splicing from active into next as the cursor
// crosses the buffer boundary) and accumulate cmul_q15_q30(coeff, sample)
// into a 32-bit Q.30 accumulator. It assumes the caller has already
// verified enough input is available across active and next.
func (e *Engine) convolve() (accRe, accIm int32) {
	remaining := e.n
	cur := e.active
	off := e.sampleOffset

	for remaining > 0 {
		data := cur.Data()
		take := cur.Len() - off
		if take > remaining {
			take = remaining
		}

		startCoeff := e.n - remaining
		for i := 0; i < take; i++ {
			sRe := data[2*(off+i)]
			sIm := data[2*(off+i)+1]
			cRe := e.coeffsRe[startCoeff+i]
			cIm := e.coeffsIm[startCoeff+i]

			fRe, fIm := fixedpoint.CMulQ15Q30(int32(cRe), int32(cIm), int32(sRe), int32(sIm))
			accRe += fRe
			accIm += fIm
		}

		remaining -= take
		off = 0
		cur = e.next
	}

	return accRe, accIm
}
