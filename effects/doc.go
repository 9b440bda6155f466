// SPDX-License-Identifier: EPL-2.0

// Package effects is the master effects chain: a resonant lowpass, a
// feedback delay, a Freeverb-style reverb and a tanh drive, applied in that
// order to the mixed stereo signal. The DSP itself comes from
// github.com/cwbudde/algo-dsp; this package maps the user-facing parameter
// ranges onto it and hands parameter changes to the audio goroutine.
package effects
