// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"testing"

	"github.com/ik5/groovedeck/internal/audiotest"
)

func TestReadAll(t *testing.T) {
	t.Parallel()

	buf, err := ReadAll(audiotest.NewChannelSource(22050, 2, 10000))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if buf.Frames() != 10000 || buf.Channels() != 2 || buf.SampleRate != 22050 {
		t.Fatalf("ReadAll() = %d frames %d ch %d Hz", buf.Frames(), buf.Channels(), buf.SampleRate)
	}
	if buf.Data[0][9999] != 1 || buf.Data[1][0] != 2 {
		t.Error("samples were not deinterleaved per channel")
	}
	if cap(buf.Data[0]) != 10000 {
		t.Errorf("cap = %d, want the 10000 frame hint", cap(buf.Data[0]))
	}
}

func TestReadAll_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  Source
		want error
	}{
		{"no channels", audiotest.NewSilentSource(8000, 0, 10), ErrNoChannels},
		{"no rate", audiotest.NewSilentSource(0, 1, 10), ErrInvalidRate},
		{"empty", audiotest.NewSilentSource(8000, 1, 0), ErrEmptyStream},
		{"read failure", audiotest.NewSilentSource(8000, 1, 10000).FailAfter(5000), audiotest.ErrInjected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := ReadAll(tt.src); !errors.Is(err, tt.want) {
				t.Errorf("ReadAll() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestResample(t *testing.T) {
	t.Parallel()

	buf := &Buffer{Data: audiotest.Stereo(audiotest.Const(4800, 0.5)), SampleRate: 48000}

	same, err := Resample(buf, 48000)
	if err != nil || same != buf {
		t.Errorf("Resample to the same rate = %p, %v; want the input", same, err)
	}

	half, err := Resample(buf, 24000)
	if err != nil {
		t.Fatalf("Resample() error = %v", err)
	}
	if half.SampleRate != 24000 || half.Channels() != 2 {
		t.Errorf("Resample() = %d Hz %d ch", half.SampleRate, half.Channels())
	}
	if d := half.Frames() - 2400; d < -2 || d > 2 {
		t.Errorf("Resample() frames = %d, want about 2400", half.Frames())
	}

	if _, err := Resample(nil, 44100); !errors.Is(err, ErrInvalidRate) {
		t.Errorf("Resample(nil) error = %v, want ErrInvalidRate", err)
	}
	if _, err := Resample(buf, 0); !errors.Is(err, ErrInvalidRate) {
		t.Errorf("Resample(rate 0) error = %v, want ErrInvalidRate", err)
	}
}

func TestToStereo(t *testing.T) {
	t.Parallel()

	mono := &Buffer{Data: [][]float32{audiotest.Ramp(100, 0.01)}, SampleRate: 8000}
	st, err := ToStereo(mono)
	if err != nil {
		t.Fatalf("ToStereo() error = %v", err)
	}
	if st.Channels() != 2 || st.Frames() != 100 {
		t.Fatalf("ToStereo() = %d ch %d frames", st.Channels(), st.Frames())
	}
	for i := range 100 {
		if st.Data[0][i] != mono.Data[0][i] || st.Data[1][i] != mono.Data[0][i] {
			t.Fatalf("frame %d not duplicated", i)
		}
	}

	already := &Buffer{Data: audiotest.Stereo(audiotest.Const(4, 1)), SampleRate: 8000}
	if got, _ := ToStereo(already); got != already {
		t.Error("ToStereo copied a stereo buffer")
	}
}
