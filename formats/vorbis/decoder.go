// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"fmt"
	"io"

	"github.com/ik5/groovedeck/audio"
	"github.com/jfreymuth/oggvorbis"
)

// oggReader is the part of *oggvorbis.Reader the source reads from.
type oggReader interface {
	SampleRate() int
	Channels() int
	Length() int64
	Read([]float32) (int, error)
}

type source struct {
	dec oggReader
}

func (s *source) SampleRate() int { return s.dec.SampleRate() }
func (s *source) Channels() int   { return s.dec.Channels() }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return 4096 - 4096%max(s.dec.Channels(), 1) }

// Frames is the stream length from the last granule position, or -1 when
// the reader could not seek to find it.
func (s *source) Frames() int {
	if n := s.dec.Length(); n > 0 {
		return int(n)
	}
	return -1
}

// ReadSamples reads straight into dst. oggvorbis returns interleaved samples
// and already stops on frame boundaries.
func (s *source) ReadSamples(dst []float32) (int, error) {
	if len(dst)%s.dec.Channels() != 0 {
		return 0, audio.ErrInvalidDstSize
	}

	n, err := s.dec.Read(dst)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("decoding vorbis: %w", err)
	}

	return n, err
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotVorbis, err)
	}
	if dec.Channels() <= 0 {
		return nil, fmt.Errorf("%w: no channels", ErrNotVorbis)
	}

	return &source{dec: dec}, nil
}
