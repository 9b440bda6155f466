// SPDX-License-Identifier: EPL-2.0

// Package looper records the live input into a fixed-capacity buffer and
// plays the committed take back as a loop over an adjustable region.
//
// Recording and playback are independent: the take being recorded never
// leaks into the loop that is playing until StopRecording commits it.
package looper
