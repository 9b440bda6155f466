// SPDX-License-Identifier: EPL-2.0

package sequencer

import (
	"math/rand/v2"
	"testing"

	"github.com/ik5/groovedeck/audio"
)

// At 48 kHz and 120 bpm a step is exactly 6000 frames and a pulse 480.
const (
	rate       = 48000
	stepFrames = 6000
	pulse      = 480
)

func newPlaying(t testing.TB, opts ...Option) *Sequencer {
	t.Helper()

	s := New(opts...)
	s.Prepare(512, rate)
	s.Start()
	return s
}

// run feeds frames through the sequencer in 512-frame blocks and returns
// the left channel.
func run(s *Sequencer, frames int) []float32 {
	dst := audio.NewBuffer(2, frames, rate)
	for start := 0; start < frames; start += 512 {
		s.ProduceBlock(dst, start, min(512, frames-start))
	}
	return dst.Data[0]
}

func TestSequencer_Defaults(t *testing.T) {
	t.Parallel()

	s := New()
	if s.NumSteps() != DefaultSteps || s.Tempo() != DefaultTempo || s.StepTime() != 0.125 {
		t.Errorf("defaults: steps=%d tempo=%v stepTime=%v", s.NumSteps(), s.Tempo(), s.StepTime())
	}
	if got := s.Step(3); got != DefaultStep() {
		t.Errorf("Step(3) = %+v, want %+v", got, DefaultStep())
	}
	if got := s.Step(99); got != DefaultStep() {
		t.Errorf("Step(99) = %+v, want the default step", got)
	}
}

func TestSequencer_StepAdvancesAtStepTime(t *testing.T) {
	t.Parallel()

	s := newPlaying(t)
	run(s, stepFrames-1)
	if got := s.CurrentStep(); got != 0 {
		t.Fatalf("CurrentStep() after %d frames = %d, want 0", stepFrames-1, got)
	}

	run(s, 1)
	if got := s.CurrentStep(); got != 1 {
		t.Fatalf("CurrentStep() after one step = %d, want 1", got)
	}

	run(s, 15*stepFrames)
	if got := s.CurrentStep(); got != 0 {
		t.Errorf("CurrentStep() after a full bar = %d, want 0", got)
	}
}

func TestSequencer_Pulse(t *testing.T) {
	t.Parallel()

	s := newPlaying(t)
	s.SetStepActive(0, true)
	s.SetStepVelocity(0, 0.8)
	s.SetStepActive(1, true)

	out := run(s, 2*stepFrames)

	for i, v := range out {
		var want float32
		switch {
		case i < pulse:
			want = 0.4
		case i >= stepFrames && i < stepFrames+pulse:
			want = 0.5
		}
		if v != want {
			t.Fatalf("frame %d = %v, want %v", i, v, want)
		}
	}
}

func TestSequencer_AddsToInput(t *testing.T) {
	t.Parallel()

	s := newPlaying(t)
	s.SetStepActive(0, true)

	dst := audio.NewBuffer(2, 4, rate)
	for ch := range dst.Data {
		for i := range dst.Data[ch] {
			dst.Data[ch][i] = 0.25
		}
	}
	s.ProduceBlock(dst, 0, 4)

	if dst.Data[1][3] != 0.75 {
		t.Errorf("frame 3 = %v, want input 0.25 plus pulse 0.5", dst.Data[1][3])
	}
}

func TestSequencer_StoppedIsSilent(t *testing.T) {
	t.Parallel()

	s := newPlaying(t)
	s.SetStepActive(0, true)
	s.Stop()

	for i, v := range run(s, 1000) {
		if v != 0 {
			t.Fatalf("stopped sequencer wrote %v at frame %d", v, i)
		}
	}
}

func TestSequencer_StopKeepsPositionResetRewinds(t *testing.T) {
	t.Parallel()

	s := newPlaying(t)
	run(s, 3*stepFrames)
	s.Stop()
	run(s, stepFrames)
	if got := s.CurrentStep(); got != 3 {
		t.Fatalf("CurrentStep() after Stop = %d, want 3", got)
	}

	s.Reset()
	if got := s.CurrentStep(); got != 0 {
		t.Errorf("CurrentStep() after Reset = %d, want 0", got)
	}
	if s.IsPlaying() {
		t.Error("Reset started playback")
	}
}

func TestSequencer_Tempo(t *testing.T) {
	t.Parallel()

	s := newPlaying(t)
	s.SetTempo(0)
	s.SetTempo(-10)
	if s.Tempo() != DefaultTempo {
		t.Fatalf("non-positive tempo accepted: %v", s.Tempo())
	}

	s.SetTempo(60)
	if s.StepTime() != 0.25 {
		t.Errorf("StepTime() at 60 bpm = %v, want 0.25", s.StepTime())
	}
	run(s, 2*stepFrames)
	if got := s.CurrentStep(); got != 1 {
		t.Errorf("CurrentStep() after 0.25 s at 60 bpm = %d, want 1", got)
	}
}

func TestSequencer_SetSteps(t *testing.T) {
	t.Parallel()

	s := New()
	s.SetStepActive(2, true)
	s.SetStepActive(10, true)

	s.SetSteps(8)
	if s.NumSteps() != 8 || !s.Step(2).Active {
		t.Fatalf("shrink lost overlap: %d steps, step 2 active=%v", s.NumSteps(), s.Step(2).Active)
	}

	s.SetSteps(12)
	if s.Step(10).Active || s.Step(10) != DefaultStep() {
		t.Errorf("grown slot = %+v, want the default step", s.Step(10))
	}

	s.SetSteps(0)
	s.SetSteps(-4)
	if s.NumSteps() != 12 {
		t.Errorf("non-positive size accepted: %d", s.NumSteps())
	}
}

func TestSequencer_StepSetters(t *testing.T) {
	t.Parallel()

	s := New()
	s.SetStepVelocity(0, 2)
	s.SetStepVelocity(1, -1)
	s.SetStepStartTime(2, 0.5)
	s.SetStepDuration(2, 0.1)
	s.SetStepActive(-1, true)
	s.SetStepActive(16, true)

	if s.Step(0).Velocity != 1 || s.Step(1).Velocity != 0 {
		t.Errorf("velocity not clamped: %v, %v", s.Step(0).Velocity, s.Step(1).Velocity)
	}
	if st := s.Step(2); st.StartTime != 0.5 || st.Duration != 0.1 {
		t.Errorf("Step(2) = %+v", st)
	}
	for i, st := range s.Steps() {
		if st.Active {
			t.Errorf("out-of-range write activated step %d", i)
		}
	}
}

func TestSequencer_ShiftRoundTrip(t *testing.T) {
	t.Parallel()

	for _, k := range []int{0, 1, 5, 16, 17, -3, -33} {
		s := New(WithRand(rand.New(rand.NewPCG(1, 2))))
		s.RandomizePattern()
		before := s.Steps()

		s.ShiftPattern(k)
		s.ShiftPattern(-k)

		for i, st := range s.Steps() {
			if st != before[i] {
				t.Fatalf("shift(%d)+shift(%d) changed step %d", k, -k, i)
			}
		}
	}
}

func TestSequencer_ShiftMovesSteps(t *testing.T) {
	t.Parallel()

	s := New()
	s.SetStepActive(0, true)
	s.SetStepActive(15, true)

	s.ShiftPattern(1)
	if !s.Step(1).Active || !s.Step(0).Active || s.Step(15).Active {
		t.Errorf("after shift(1) active steps are wrong: %+v", s.Steps())
	}
}

func TestSequencer_RandomizeAndClear(t *testing.T) {
	t.Parallel()

	s := New(WithRand(rand.New(rand.NewPCG(7, 7))))
	s.SetSteps(64)
	s.RandomizePattern()

	active := 0
	for _, st := range s.Steps() {
		if st.Active {
			active++
		}
		if st.Velocity < 0 || st.Velocity >= 1 {
			t.Errorf("velocity %v outside [0, 1)", st.Velocity)
		}
	}
	if active == 0 || active == 64 {
		t.Errorf("%d of 64 steps active, want a mix", active)
	}

	s.ClearPattern()
	for i, st := range s.Steps() {
		if st.Active || st.Velocity != 1 {
			t.Fatalf("step %d after ClearPattern = %+v", i, st)
		}
	}
}

func TestSequencer_RandomizeIsDeterministicWithSeed(t *testing.T) {
	t.Parallel()

	a := New(WithRand(rand.New(rand.NewPCG(3, 4))))
	b := New(WithRand(rand.New(rand.NewPCG(3, 4))))
	a.RandomizePattern()
	b.RandomizePattern()

	for i := range a.NumSteps() {
		if a.Step(i) != b.Step(i) {
			t.Fatalf("step %d differs with the same seed", i)
		}
	}
}

func TestSequencer_PatternSwapDuringPlayback(t *testing.T) {
	t.Parallel()

	s := newPlaying(t)
	run(s, 10*stepFrames)
	s.SetSteps(4)
	run(s, 1)

	if got := s.CurrentStep(); got >= 4 {
		t.Errorf("CurrentStep() = %d after shrinking to 4 steps", got)
	}
}

func TestSequencer_ZeroAllocs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping allocation test in short mode")
	}

	s := newPlaying(t)
	s.SetStepActive(0, true)
	dst := audio.NewBuffer(2, 512, rate)

	allocs := testing.AllocsPerRun(100, func() {
		s.ProduceBlock(dst, 0, 512)
	})
	if allocs > 0 {
		t.Errorf("ProduceBlock allocated %v times per block, want 0", allocs)
	}
}

func BenchmarkSequencer_ProduceBlock(b *testing.B) {
	s := newPlaying(b)
	s.SetStepActive(0, true)
	s.SetStepActive(4, true)
	dst := audio.NewBuffer(2, 512, rate)
	b.ReportAllocs()

	for range b.N {
		s.ProduceBlock(dst, 0, 512)
	}
}
