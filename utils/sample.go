// SPDX-License-Identifier: EPL-2.0

// Package utils holds small per-sample helpers shared by the decoders, the
// resampler and the real-time producers. Everything here is allocation free.
package utils

import "math"

// CubicInterpolate returns the Catmull-Rom value between y1 and y2 at the
// fractional position x in [0, 1]. y0 and y3 are the outer neighbours.
func CubicInterpolate(y0, y1, y2, y3, x float32) float32 {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2

	return ((a0*x+a1)*x+a2)*x + y1
}

// Float32ToInt16 clamps x to [-1, 1] and scales it to 16-bit PCM.
func Float32ToInt16(x float32) int16 {
	return int16(Clamp(x, -1, 1) * 32767.0)
}

// Clamp limits x to [lo, hi]. NaN maps to lo.
func Clamp(x, lo, hi float32) float32 {
	if x != x || x < lo {
		return lo
	}
	if x > hi {
		return hi
	}

	return x
}

// Clamp64 is Clamp for float64 parameters.
func Clamp64(x, lo, hi float64) float64 {
	if math.IsNaN(x) || x < lo {
		return lo
	}
	if x > hi {
		return hi
	}

	return x
}

// DecibelsToGain converts a level in dB to a linear factor.
func DecibelsToGain(db float64) float64 {
	return math.Pow(10, db/20)
}

// MaxFrames caps SecondsToFrames. It is far beyond any buffer the engine
// allocates, so a capped position always lies past the end.
const MaxFrames = math.MaxInt32

// SecondsToFrames truncates seconds*rate to a frame index in [0, MaxFrames].
func SecondsToFrames(seconds float64, rate int) int {
	if seconds <= 0 || rate <= 0 || math.IsNaN(seconds) {
		return 0
	}

	f := seconds * float64(rate)
	if f >= MaxFrames {
		return MaxFrames
	}
	return int(f)
}
