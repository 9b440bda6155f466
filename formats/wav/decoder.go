// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
	"github.com/ik5/groovedeck/audio"
)

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
)

// pcmReader is the part of *gowav.Decoder the source reads from.
type pcmReader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

type source struct {
	dec        pcmReader
	sampleRate int
	channels   int
	frames     int
	unsigned   bool
	scale      float32
	ints       *goaudio.IntBuffer
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Frames() int     { return s.frames }
func (s *source) BufSize() int    { return cap(s.ints.Data) }
func (s *source) Close() error    { return nil }

func (s *source) ReadSamples(dst []float32) (int, error) {
	if len(dst)%s.channels != 0 {
		return 0, audio.ErrInvalidDstSize
	}
	if cap(s.ints.Data) < len(dst) {
		s.ints.Data = make([]int, len(dst))
	}
	s.ints.Data = s.ints.Data[:len(dst)]

	n, err := s.dec.PCMBuffer(s.ints)
	eof := errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
	if err != nil && !eof {
		return 0, fmt.Errorf("reading PCM: %w", err)
	}

	// A truncated file can end mid-frame.
	n -= n % s.channels
	if n == 0 {
		return 0, io.EOF
	}

	for i, v := range s.ints.Data[:n] {
		if s.unsigned {
			v -= 128
		}
		dst[i] = float32(v) * s.scale
	}

	if eof {
		return n, io.EOF
	}
	return n, nil
}

// Decoder reads RIFF/WAVE integer PCM at 8, 16, 24 or 32 bits.
type Decoder struct{}

// Decode parses the header and positions the stream at the PCM data. The
// parser needs to seek, so a plain io.Reader is buffered in memory first.
func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("buffering WAV stream: %w", err)
		}
		rs = bytes.NewReader(data)
	}

	dec := gowav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotWavFile
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotWavFile, err)
	}
	if dec.WavAudioFormat != formatPCM && dec.WavAudioFormat != formatExtensible {
		return nil, fmt.Errorf("%w: format tag %#x", ErrUnsupportedFormat, dec.WavAudioFormat)
	}

	format := dec.Format()
	if format == nil || format.NumChannels <= 0 {
		return nil, ErrNoChannels
	}

	bitDepth := int(dec.SampleBitDepth())
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownBitDepth, bitDepth)
	}

	bytesPerFrame := bitDepth / 8 * format.NumChannels
	const chunk = 4096

	return &source{
		dec:        dec,
		sampleRate: format.SampleRate,
		channels:   format.NumChannels,
		frames:     int(dec.PCMLen()) / bytesPerFrame,
		unsigned:   bitDepth == 8,
		scale:      1 / float32(int64(1)<<(bitDepth-1)),
		ints: &goaudio.IntBuffer{
			Format:         format,
			Data:           make([]int, chunk-chunk%format.NumChannels),
			SourceBitDepth: bitDepth,
		},
	}, nil
}
