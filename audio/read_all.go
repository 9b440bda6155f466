// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
)

// ReadAll drains src into a deinterleaved Buffer at the source's rate. When
// src implements FrameCounter the buffer is sized once up front. The source
// is not closed.
func ReadAll(src Source) (*Buffer, error) {
	channels := src.Channels()
	if channels <= 0 {
		return nil, ErrNoChannels
	}
	if src.SampleRate() <= 0 {
		return nil, ErrInvalidRate
	}

	hint := 0
	if fc, ok := src.(FrameCounter); ok {
		hint = max(fc.Frames(), 0)
	}

	data := make([][]float32, channels)
	for ch := range data {
		data[ch] = make([]float32, 0, hint)
	}

	chunk := src.BufSize()
	if chunk <= 0 {
		chunk = 4096
	}
	chunk -= chunk % channels
	if chunk == 0 {
		chunk = channels
	}
	tmp := make([]float32, chunk)

	for {
		n, err := src.ReadSamples(tmp)
		for f := range n / channels {
			for ch := range channels {
				data[ch] = append(data[ch], tmp[f*channels+ch])
			}
		}

		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading samples: %w", err)
		}
		if n == 0 {
			break
		}
	}

	buf := &Buffer{Data: data, SampleRate: src.SampleRate()}
	if buf.Frames() == 0 {
		return nil, ErrEmptyStream
	}

	return buf, nil
}

// Resample returns buf converted to rate. A buffer already at rate is
// returned as is.
func Resample(buf *Buffer, rate int) (*Buffer, error) {
	if rate <= 0 || buf == nil || buf.SampleRate <= 0 {
		return nil, ErrInvalidRate
	}
	if buf.SampleRate == rate {
		return buf, nil
	}

	out, err := ReadAll(NewResampler(buf.Source(), rate))
	if err != nil {
		return nil, fmt.Errorf("resampling %d Hz to %d Hz: %w", buf.SampleRate, rate, err)
	}

	return out, nil
}

// ToStereo returns buf as two channels, duplicating mono and folding wider
// layouts the same way StereoMixer does.
func ToStereo(buf *Buffer) (*Buffer, error) {
	if buf.Channels() == 2 {
		return buf, nil
	}

	out, err := ReadAll(NewStereoMixer(buf.Source()))
	if err != nil {
		return nil, fmt.Errorf("fitting %d channels to stereo: %w", buf.Channels(), err)
	}

	return out, nil
}
