// SPDX-License-Identifier: EPL-2.0

// Package session describes one audio device session: the rate and block
// size the device runs at, the decoders available for loading files and the
// logger shared by the control side. Nothing in here runs on the audio
// goroutine.
package session

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ik5/groovedeck/audio"
	"github.com/ik5/groovedeck/formats/aiff"
	"github.com/ik5/groovedeck/formats/mp3"
	"github.com/ik5/groovedeck/formats/vorbis"
	"github.com/ik5/groovedeck/formats/wav"
	"github.com/mitchellh/go-homedir"
)

const (
	DefaultSampleRate = 44100
	DefaultBlockSize  = 512
)

type Session struct {
	SampleRate int
	BlockSize  int
	Registry   *audio.Registry
	Logger     *slog.Logger
}

// New returns a session with every built-in decoder registered. A nil logger
// discards output; non-positive sizes fall back to the defaults.
func New(sampleRate, blockSize int, logger *slog.Logger) *Session {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Session{
		SampleRate: sampleRate,
		BlockSize:  blockSize,
		Registry:   DefaultRegistry(),
		Logger:     logger,
	}
}

// DefaultRegistry maps the supported file extensions to their decoders.
func DefaultRegistry() *audio.Registry {
	r := audio.NewRegistry()
	r.Register(wav.Decoder{}, "wav", "wave")
	r.Register(mp3.Decoder{}, "mp3")
	r.Register(vorbis.Decoder{}, "ogg", "oga")
	r.Register(aiff.Decoder{}, "aif", "aiff")

	return r
}

// Decode reads the whole file at path into a stereo buffer at the file's
// own sample rate. The decoder is chosen by extension. A leading ~ and
// environment variables in path are expanded.
func (s *Session) Decode(path string) (*audio.Buffer, error) {
	path, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	buf, err := s.DecodeReader(f, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	return buf, nil
}

// ExpandPath resolves ~ to the user's home directory and expands $VARS.
func ExpandPath(path string) (string, error) {
	p, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("expanding %s: %w", path, err)
	}
	return os.ExpandEnv(p), nil
}

// DecodeReader is Decode for an already open stream of the given format.
func (s *Session) DecodeReader(r io.Reader, format string) (*audio.Buffer, error) {
	dec, ok := s.Registry.Get(format)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	started := time.Now()
	src, err := dec.Decode(r)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	s.Logger.Debug("decoding audio",
		"format", format,
		"sampleRate", src.SampleRate(),
		"channels", src.Channels(),
	)

	buf, err := audio.ReadAll(audio.NewStereoMixer(src))
	if err != nil {
		return nil, err
	}

	s.Logger.Debug("decoded audio",
		"format", format,
		"frames", buf.Frames(),
		"seconds", buf.Seconds(),
		"elapsed", time.Since(started),
	)

	return buf, nil
}
