// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/ik5/groovedeck/utils"
)

// Resampler converts an interleaved stream to another sample rate with
// Catmull-Rom interpolation. Channel count is preserved. When downsampling a
// one-pole lowpass runs ahead of the interpolator.
type Resampler struct {
	src      Source
	dstRate  int
	step     float64 // source frames consumed per output frame
	channels int

	// window holds four consecutive source frames: t-1, t0, t+1, t+2.
	window [4][]float32
	valid  [4]bool
	primed bool
	frac   float64
	eof    bool

	scratch []float32

	smooth float32
	state  []float32
}

func NewResampler(src Source, dstRate int) *Resampler {
	channels := max(src.Channels(), 1)
	step := float64(src.SampleRate()) / float64(max(dstRate, 1))

	r := &Resampler{
		src:      src,
		dstRate:  dstRate,
		step:     step,
		channels: channels,
		scratch:  make([]float32, channels),
		state:    make([]float32, channels),
	}
	if step > 1 {
		r.smooth = 0.5
	}
	for i := range r.window {
		r.window[i] = make([]float32, channels)
	}

	return r
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

// Frames estimates the output length from the wrapped source's hint.
func (r *Resampler) Frames() int {
	fc, ok := r.src.(FrameCounter)
	if !ok || fc.Frames() < 0 {
		return -1
	}
	return int(math.Ceil(float64(fc.Frames()) / r.step))
}

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// pull reads one frame into slot, filtering it when downsampling. It reports
// false once the source is drained.
func (r *Resampler) pull(slot int) (bool, error) {
	if r.eof {
		return false, nil
	}

	n, err := r.src.ReadSamples(r.scratch)
	if errors.Is(err, io.EOF) {
		r.eof = true
	} else if err != nil {
		return false, fmt.Errorf("%w", err)
	}
	if n < r.channels {
		r.eof = true
		return false, nil
	}

	copy(r.window[slot], r.scratch)
	if r.smooth > 0 {
		for c, v := range r.window[slot] {
			if !r.primed && slot == 1 {
				r.state[c] = v
			}
			v = r.smooth*v + (1-r.smooth)*r.state[c]
			r.state[c] = v
			r.window[slot][c] = v
		}
	}

	return true, nil
}

// prime loads t0, t+1 and t+2. The leading edge repeats t0 as t-1 and a
// short source repeats its last frame.
func (r *Resampler) prime() error {
	ok, err := r.pull(1)
	if err != nil {
		return err
	}
	if !ok {
		return io.EOF
	}
	copy(r.window[0], r.window[1])
	r.valid[0], r.valid[1] = true, true

	for slot := 2; slot < len(r.window); slot++ {
		if ok, err = r.pull(slot); err != nil {
			return err
		}
		if !ok {
			copy(r.window[slot], r.window[slot-1])
		}
		r.valid[slot] = ok
	}
	r.primed = true

	return nil
}

func (r *Resampler) advance() error {
	r.window[0], r.window[1], r.window[2], r.window[3] = r.window[1], r.window[2], r.window[3], r.window[0]
	r.valid[0], r.valid[1], r.valid[2] = r.valid[1], r.valid[2], r.valid[3]
	if !r.valid[1] {
		return io.EOF
	}

	ok, err := r.pull(3)
	if err != nil {
		return err
	}
	if !ok {
		copy(r.window[3], r.window[2])
	}
	r.valid[3] = ok

	return nil
}

// ReadSamples produces interleaved samples at the destination rate. len(dst)
// must be a multiple of Channels.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	if !r.primed {
		if err := r.prime(); err != nil {
			return 0, err
		}
	}

	want := len(dst) / r.channels
	written := 0
	for written < want {
		for r.frac >= 1 {
			r.frac--
			if err := r.advance(); err != nil {
				if errors.Is(err, io.EOF) {
					return written * r.channels, io.EOF
				}
				return written * r.channels, err
			}
		}

		x := float32(r.frac)
		out := dst[written*r.channels : (written+1)*r.channels]
		for c := range out {
			out[c] = utils.CubicInterpolate(r.window[0][c], r.window[1][c], r.window[2][c], r.window[3][c], x)
		}

		written++
		r.frac += r.step
	}

	return written * r.channels, nil
}
