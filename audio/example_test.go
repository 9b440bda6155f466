// SPDX-License-Identifier: EPL-2.0

package audio_test

import (
	"fmt"

	"github.com/ik5/groovedeck/audio"
	"github.com/ik5/groovedeck/internal/audiotest"
)

func ExampleReadAll() {
	// One second of a mono 440 Hz tone at 44.1 kHz.
	src := audiotest.NewSineSource(44100, 1, 44100, 440)

	buf, err := audio.ReadAll(audio.NewStereoMixer(src))
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Printf("%d channels, %d frames, %v\n", buf.Channels(), buf.Frames(), buf.Duration())
	// Output: 2 channels, 44100 frames, 1s
}

func ExampleResample() {
	buf := &audio.Buffer{
		Data:       audiotest.Stereo(audiotest.Sine(44100, 44100, 440, 0.5)),
		SampleRate: 44100,
	}

	out, err := audio.Resample(buf, 16000)
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Printf("%d Hz, %d frames\n", out.SampleRate, out.Frames())
	// Output: 16000 Hz, 16000 frames
}

func ExampleBuffer_Reversed() {
	buf := &audio.Buffer{Data: [][]float32{{1, 2, 3}, {4, 5, 6}}, SampleRate: 3}
	rev := buf.Reversed()

	fmt.Println(rev.Data[0], rev.Data[1])
	// Output: [3 2 1] [6 5 4]
}

func ExampleRegistry() {
	r := audio.NewRegistry()
	r.Register(nil, "wav", ".WAVE")
	r.Register(nil, "mp3")

	fmt.Println(r.Formats())
	// Output: [mp3 wav wave]
}
