// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MPEG-1/2 Layer III streams with
// github.com/hajimehoshi/go-mp3.
//
// The decoder always produces 16-bit stereo, so the returned audio.Source
// reports two channels regardless of the file's channel mode. When the
// input is an io.Seeker the length is known up front and exposed through
// audio.FrameCounter.
package mp3
