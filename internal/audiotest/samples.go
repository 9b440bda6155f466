// SPDX-License-Identifier: EPL-2.0

package audiotest

import "math"

// Sine returns frames samples of a sine at freq Hz scaled by amp.
func Sine(frames, rate int, freq, amp float64) []float32 {
	out := make([]float32, frames)
	for i := range out {
		out[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

// Ramp returns 0, 1, 2, ... scaled by step, which makes frame positions
// recoverable from sample values.
func Ramp(frames int, step float32) []float32 {
	out := make([]float32, frames)
	for i := range out {
		out[i] = float32(i) * step
	}
	return out
}

func Const(frames int, v float32) []float32 {
	out := make([]float32, frames)
	for i := range out {
		out[i] = v
	}
	return out
}

// Stereo returns two independent copies of mono.
func Stereo(mono []float32) [][]float32 {
	return [][]float32{append([]float32(nil), mono...), append([]float32(nil), mono...)}
}

// MaxAbs returns the peak magnitude of s.
func MaxAbs(s []float32) float32 {
	var peak float32
	for _, v := range s {
		peak = max(peak, float32(math.Abs(float64(v))))
	}
	return peak
}

// Near reports whether a and b differ by at most tol.
func Near(a, b, tol float32) bool {
	return math.Abs(float64(a-b)) <= float64(tol)
}
