// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"time"
)

// Buffer is deinterleaved PCM indexed [channel][frame]. Once a Buffer has
// been handed to a producer it is treated as immutable; edits go through
// Clone or Reversed and a fresh publish.
type Buffer struct {
	Data       [][]float32
	SampleRate int
}

// NewBuffer allocates a zeroed buffer.
func NewBuffer(channels, frames, sampleRate int) *Buffer {
	channels = max(channels, 0)
	frames = max(frames, 0)

	data := make([][]float32, channels)
	backing := make([]float32, channels*frames)
	for ch := range data {
		data[ch] = backing[ch*frames : (ch+1)*frames : (ch+1)*frames]
	}

	return &Buffer{Data: data, SampleRate: sampleRate}
}

func (b *Buffer) Channels() int {
	if b == nil {
		return 0
	}
	return len(b.Data)
}

// Frames returns the length of the shortest channel.
func (b *Buffer) Frames() int {
	if b == nil || len(b.Data) == 0 {
		return 0
	}

	n := len(b.Data[0])
	for _, ch := range b.Data[1:] {
		n = min(n, len(ch))
	}

	return n
}

// Duration is Frames divided by SampleRate.
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// Seconds is the length in seconds as a float, the unit slice and loop
// bounds are expressed in.
func (b *Buffer) Seconds() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

func (b *Buffer) Clear() {
	if b == nil {
		return
	}

	for _, ch := range b.Data {
		clear(ch)
	}
}

// ClearRange zeroes frames [start, start+count) clipped to the buffer.
func (b *Buffer) ClearRange(start, count int) {
	if b == nil {
		return
	}

	start, end := b.Span(start, count)
	for _, ch := range b.Data {
		clear(ch[start:end])
	}
}

// Span clips [start, start+count) to the valid frame range and returns the
// resulting half-open bounds. An empty span has start == end.
func (b *Buffer) Span(start, count int) (int, int) {
	frames := b.Frames()
	start = min(max(start, 0), frames)
	if count <= 0 {
		return start, start
	}

	return start, min(start+count, frames)
}

func (b *Buffer) Clone() *Buffer {
	if b == nil {
		return nil
	}

	out := NewBuffer(len(b.Data), b.Frames(), b.SampleRate)
	for ch := range out.Data {
		copy(out.Data[ch], b.Data[ch])
	}

	return out
}

// Head copies the first n frames into a new buffer.
func (b *Buffer) Head(n int) *Buffer {
	if b == nil {
		return nil
	}

	n = min(max(n, 0), b.Frames())

	out := NewBuffer(len(b.Data), n, b.SampleRate)
	for ch := range out.Data {
		copy(out.Data[ch], b.Data[ch][:n])
	}

	return out
}

// Reversed returns a copy with frame i moved to N-1-i on every channel.
func (b *Buffer) Reversed() *Buffer {
	out := b.Clone()
	if out == nil {
		return nil
	}

	for _, ch := range out.Data {
		for i, j := 0, len(ch)-1; i < j; i, j = i+1, j-1 {
			ch[i], ch[j] = ch[j], ch[i]
		}
	}

	return out
}

// Source exposes the buffer as an interleaved stream, which lets it run
// through the Resampler and the other Source stages.
func (b *Buffer) Source() Source {
	return &bufferSource{buf: b}
}

type bufferSource struct {
	buf *Buffer
	pos int
}

func (s *bufferSource) SampleRate() int { return s.buf.SampleRate }
func (s *bufferSource) Channels() int   { return s.buf.Channels() }
func (s *bufferSource) BufSize() int    { return 4096 }
func (s *bufferSource) Close() error    { return nil }
func (s *bufferSource) Frames() int     { return s.buf.Frames() }

func (s *bufferSource) ReadSamples(dst []float32) (int, error) {
	channels := s.buf.Channels()
	if channels == 0 {
		return 0, io.EOF
	}
	if len(dst)%channels != 0 {
		return 0, ErrInvalidDstSize
	}

	remaining := s.buf.Frames() - s.pos
	if remaining <= 0 {
		return 0, io.EOF
	}

	frames := min(len(dst)/channels, remaining)
	for f := range frames {
		for ch := range channels {
			dst[f*channels+ch] = s.buf.Data[ch][s.pos+f]
		}
	}
	s.pos += frames

	if s.pos >= s.buf.Frames() {
		return frames * channels, io.EOF
	}

	return frames * channels, nil
}
