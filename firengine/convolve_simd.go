//go:build simd

package firengine

import "sdrfir/fixedpoint"

// convolve runs the vectorized inner loop: taps are processed four at a
// time using four independent widening-multiply-accumulate lanes, reduced
// by a horizontal add at the end of each take-sized chunk, with a scalar
// remainder loop for take % 4. Because all arithmetic here is exact 32-bit
// integer addition (not floating point), lane grouping never changes the
// result: this variant is bit-identical to the scalar path for every tap
// count, not only multiples of 4.
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

		var lane0Re, lane1Re, lane2Re, lane3Re int32
		var lane0Im, lane1Im, lane2Im, lane3Im int32

		i := 0
		for ; i+4 <= take; i += 4 {
			lane0Re, lane0Im = mac(lane0Re, lane0Im, e.coeffsRe[startCoeff+i], e.coeffsIm[startCoeff+i], data, off+i)
			lane1Re, lane1Im = mac(lane1Re, lane1Im, e.coeffsRe[startCoeff+i+1], e.coeffsIm[startCoeff+i+1], data, off+i+1)
			lane2Re, lane2Im = mac(lane2Re, lane2Im, e.coeffsRe[startCoeff+i+2], e.coeffsIm[startCoeff+i+2], data, off+i+2)
			lane3Re, lane3Im = mac(lane3Re, lane3Im, e.coeffsRe[startCoeff+i+3], e.coeffsIm[startCoeff+i+3], data, off+i+3)
		}

		accRe += lane0Re + lane1Re + lane2Re + lane3Re
		accIm += lane0Im + lane1Im + lane2Im + lane3Im

		// Scalar remainder loop for take mod 4.
		for ; i < take; i++ {
			cRe := e.coeffsRe[startCoeff+i]
			cIm := e.coeffsIm[startCoeff+i]
			sRe := data[2*(off+i)]
			sIm := data[2*(off+i)+1]

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

// mac performs one lane's widening multiply-accumulate: coeff * sample
// added into the running (laneRe, laneIm) pair.
func mac(laneRe, laneIm int32, cRe, cIm int16, data []int16, sampleIdx int) (int32, int32) {
	sRe := data[2*sampleIdx]
	sIm := data[2*sampleIdx+1]
	fRe, fIm := fixedpoint.CMulQ15Q30(int32(cRe), int32(cIm), int32(sRe), int32(sIm))
	return laneRe + fRe, laneIm + fIm
}
