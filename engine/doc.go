// SPDX-License-Identifier: EPL-2.0

// Package engine is the mixing root. It owns the file transport, the live
// looper, the step sequencer, the sample slicer and the master effects
// chain, and renders them into one stereo block per device callback.
//
// Two goroutines touch an Engine. The audio goroutine calls PrepareToPlay,
// GetNextAudioBlock and ReleaseResources; everything else is control-side
// and may run concurrently with it.
package engine
