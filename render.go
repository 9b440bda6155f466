// SPDX-License-Identifier: EPL-2.0

package groovedeck

import (
	"fmt"
	"io"

	"github.com/ik5/groovedeck/audio"
	"github.com/ik5/groovedeck/engine"
	"github.com/ik5/groovedeck/formats/wav"
)

// Render prepares e for its session's block size and rate, then pulls frames
// frames of output from it one block at a time with silent input. The
// returned buffer is stereo at the engine rate.
//
// Render drives the audio side of e, so it must not run while a device
// callback is also calling e.
func Render(e *engine.Engine, frames int) *audio.Buffer {
	rate := e.SampleRate()
	block := e.Session().BlockSize

	e.PrepareToPlay(block, rate)
	out := audio.NewBuffer(2, frames, rate)
	for start := 0; start < frames; start += block {
		e.GetNextAudioBlock(out, start, min(block, frames-start))
	}

	return out
}

// Bounce renders frames frames of e and writes them to ws as 16-bit PCM WAV.
func Bounce(ws io.WriteSeeker, e *engine.Engine, frames int) error {
	if frames <= 0 {
		return fmt.Errorf("%w: %d", ErrNoFrames, frames)
	}

	if err := wav.Encode(ws, Render(e, frames)); err != nil {
		return fmt.Errorf("bouncing %d frames: %w", frames, err)
	}
	return nil
}
