// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"encoding/binary"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/ik5/groovedeck/audio"
)

// go-mp3 always emits signed 16-bit little-endian stereo.
const (
	channels      = 2
	bytesPerFrame = channels * 2
)

// mp3Reader is the part of *gomp3.Decoder the source reads from.
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
	Length() int64
}

type source struct {
	dec  mp3Reader
	buf  []byte
	tail int // bytes of a split sample carried over from the last read
}

func (s *source) SampleRate() int { return s.dec.SampleRate() }
func (s *source) Channels() int   { return channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return cap(s.buf) / 2 }

// Frames reports the decoded length, or -1 when the stream is not seekable.
func (s *source) Frames() int {
	n := s.dec.Length()
	if n <= 0 {
		return -1
	}
	return int(n / bytesPerFrame)
}

func (s *source) ReadSamples(dst []float32) (int, error) {
	if len(dst)%channels != 0 {
		return 0, audio.ErrInvalidDstSize
	}
	if len(dst) == 0 {
		return 0, nil
	}

	need := len(dst) * 2
	if cap(s.buf) < need {
		grown := make([]byte, need)
		copy(grown, s.buf[:s.tail])
		s.buf = grown
	}
	s.buf = s.buf[:need]

	n, err := s.dec.Read(s.buf[s.tail:])
	filled := s.tail + n
	for filled < bytesPerFrame && err == nil {
		n, err = s.dec.Read(s.buf[filled:])
		if n == 0 && err == nil {
			err = io.ErrNoProgress
		}
		filled += n
	}

	// Convert whole frames only and keep the remainder for the next call.
	whole := filled - filled%bytesPerFrame
	for i := range whole / 2 {
		dst[i] = float32(int16(binary.LittleEndian.Uint16(s.buf[2*i:]))) / 32768
	}
	s.tail = copy(s.buf, s.buf[whole:filled])

	if err != nil && err != io.EOF {
		return whole / 2, fmt.Errorf("decoding mp3: %w", err)
	}

	return whole / 2, err
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotMP3, err)
	}

	return &source{
		dec: dec,
		buf: make([]byte, 8192),
	}, nil
}
