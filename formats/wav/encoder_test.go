// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ik5/groovedeck/audio"
	"github.com/ik5/groovedeck/internal/audiotest"
)

func encodeToFile(t *testing.T, buf *audio.Buffer) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := Encode(f, buf); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	return path
}

func TestEncode_RoundTrip(t *testing.T) {
	t.Parallel()

	// Longer than one encode chunk so the chunk loop is exercised.
	frames := encodeChunkFrames*2 + 123
	in := &audio.Buffer{
		Data:       [][]float32{audiotest.Sine(frames, 44100, 440, 0.8), audiotest.Sine(frames, 44100, 220, -0.4)},
		SampleRate: 44100,
	}

	f, err := os.Open(encodeToFile(t, in))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	src, err := Decoder{}.Decode(f)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	out, err := audio.ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	if out.SampleRate != 44100 || out.Channels() != 2 || out.Frames() != frames {
		t.Fatalf("round trip = %d Hz %d ch %d frames", out.SampleRate, out.Channels(), out.Frames())
	}
	for ch := range in.Data {
		for i := range frames {
			if !audiotest.Near(out.Data[ch][i], in.Data[ch][i], 2.0/32768) {
				t.Fatalf("ch %d frame %d = %v, want %v", ch, i, out.Data[ch][i], in.Data[ch][i])
			}
		}
	}
}

func TestEncode_Clips(t *testing.T) {
	t.Parallel()

	in := &audio.Buffer{Data: [][]float32{{1.5, -3}, {0.5, 2}}, SampleRate: 8000}

	f, err := os.Open(encodeToFile(t, in))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	src, err := Decoder{}.Decode(f)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	out, err := audio.ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	for ch, want := range [][]float32{{1, -1}, {0.5, 1}} {
		for i, w := range want {
			if !audiotest.Near(out.Data[ch][i], w, 1e-3) {
				t.Errorf("ch %d frame %d = %v, want %v", ch, i, out.Data[ch][i], w)
			}
		}
	}
}

func TestEncode_NoChannels(t *testing.T) {
	t.Parallel()

	f, err := os.Create(filepath.Join(t.TempDir(), "empty.wav"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := Encode(f, &audio.Buffer{SampleRate: 8000}); !errors.Is(err, ErrNoChannels) {
		t.Errorf("Encode() error = %v, want ErrNoChannels", err)
	}
}
