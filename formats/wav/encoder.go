// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
	"github.com/ik5/groovedeck/audio"
	"github.com/ik5/groovedeck/utils"
)

const encodeChunkFrames = 4096

// Encode writes buf as 16-bit integer PCM. Samples outside [-1, 1] are
// clipped. The header sizes are patched on close, hence the WriteSeeker.
func Encode(ws io.WriteSeeker, buf *audio.Buffer) error {
	channels := buf.Channels()
	if channels == 0 {
		return ErrNoChannels
	}

	enc := gowav.NewEncoder(ws, buf.SampleRate, 16, channels, formatPCM)
	ints := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: buf.SampleRate},
		Data:           make([]int, encodeChunkFrames*channels),
		SourceBitDepth: 16,
	}

	frames := buf.Frames()
	for start := 0; start < frames; start += encodeChunkFrames {
		n := min(encodeChunkFrames, frames-start)
		ints.Data = ints.Data[:n*channels]
		for f := range n {
			for ch := range channels {
				ints.Data[f*channels+ch] = int(utils.Float32ToInt16(buf.Data[ch][start+f]))
			}
		}

		if err := enc.Write(ints); err != nil {
			_ = enc.Close()
			return fmt.Errorf("writing PCM: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing WAV header: %w", err)
	}

	return nil
}
