// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// StereoMixer fits any channel layout to two channels. Mono is copied to
// both sides, stereo passes through and wider layouts fold even channels
// left and odd channels right.
type StereoMixer struct {
	src Source
	tmp []float32
}

func NewStereoMixer(src Source) *StereoMixer {
	return &StereoMixer{
		src: src,
		tmp: make([]float32, 8192),
	}
}

func (m *StereoMixer) SampleRate() int { return m.src.SampleRate() }
func (m *StereoMixer) Channels() int   { return 2 }
func (m *StereoMixer) BufSize() int    { return m.src.BufSize() }

// Frames forwards the length hint of the wrapped source, or -1.
func (m *StereoMixer) Frames() int {
	if fc, ok := m.src.(FrameCounter); ok {
		return fc.Frames()
	}
	return -1
}

func (m *StereoMixer) Close() error {
	if err := m.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

func (m *StereoMixer) ReadSamples(dst []float32) (int, error) {
	if len(dst)%2 != 0 {
		return 0, ErrInvalidDstSize
	}
	if len(dst) == 0 {
		return 0, nil
	}

	channels := m.src.Channels()
	switch {
	case channels <= 0:
		return 0, ErrNoChannels
	case channels == 2:
		return m.src.ReadSamples(dst)
	}

	frames := len(dst) / 2
	needed := frames * channels
	if cap(m.tmp) < needed {
		m.tmp = make([]float32, max(needed, 8192))
	}
	m.tmp = m.tmp[:needed]

	n, err := m.src.ReadSamples(m.tmp)
	if n == 0 {
		return 0, err
	}
	frames = n / channels

	if channels == 1 {
		for f := range frames {
			dst[f<<1] = m.tmp[f]
			dst[f<<1+1] = m.tmp[f]
		}
		return frames * 2, err
	}

	left := float32(1) / float32((channels+1)/2)
	right := float32(1) / float32(channels/2)
	for f := range frames {
		var l, r float32
		base := f * channels
		for c := range channels {
			if c&1 == 0 {
				l += m.tmp[base+c]
			} else {
				r += m.tmp[base+c]
			}
		}
		dst[f<<1] = l * left
		dst[f<<1+1] = r * right
	}

	return frames * 2, err
}
