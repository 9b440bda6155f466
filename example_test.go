// SPDX-License-Identifier: EPL-2.0

package groovedeck_test

import (
	"fmt"

	"github.com/ik5/groovedeck"
	"github.com/ik5/groovedeck/engine"
	"github.com/ik5/groovedeck/session"
)

// Example_render renders one bar of a four-on-the-floor click without an
// audio device.
func Example_render() {
	e := engine.New(session.New(8000, 256, nil))
	e.SetEffectsEnabled(false)

	seq := e.Sequencer()
	for step := 0; step < seq.NumSteps(); step += 4 {
		seq.SetStepActive(step, true)
	}
	seq.Start()

	// 120 bpm, four beats.
	out := groovedeck.Render(e, 2*8000)

	var onsets []int
	for i, v := range out.Data[0] {
		if v != 0 && (i == 0 || out.Data[0][i-1] == 0) {
			onsets = append(onsets, i)
		}
	}
	fmt.Println(onsets)
	// Output: [0 4000 8000 12000]
}

// Example_apply drives the engine by function name, the way a control
// surface does.
func Example_apply() {
	e := engine.New(session.New(44100, 512, nil))

	for _, name := range []string{"transport.gain", "looper.gain", "slicer.gain"} {
		e.Apply(name, 0.5)
	}
	fmt.Println(e.Transport().Gain(), e.Looper().LoopGain(), e.Slicer().Gain())
	// Output: 0.5 0.5 0.5
}
