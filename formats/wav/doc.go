// SPDX-License-Identifier: EPL-2.0

// Package wav decodes and encodes RIFF/WAVE files on top of
// github.com/go-audio/wav.
//
// Decoder accepts integer PCM at 8, 16, 24 and 32 bits with any channel
// count and sample rate and returns an audio.Source that also reports its
// length through audio.FrameCounter:
//
//	f, _ := os.Open("loop.wav")
//	src, err := wav.Decoder{}.Decode(f)
//	if err != nil {
//	    return err
//	}
//	buf, err := audio.ReadAll(src)
//
// Encode writes an audio.Buffer as 16-bit PCM, which is how offline renders
// are bounced to disk.
package wav
