// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ik5/groovedeck/audio"
	"github.com/ik5/groovedeck/formats/wav"
	"github.com/ik5/groovedeck/internal/audiotest"
	"github.com/ik5/groovedeck/project"
	"github.com/ik5/groovedeck/session"
)

const (
	rate  = 1000
	block = 64
)

// newEngine returns a prepared engine with effects switched off, so block
// contents are exact sums of the producers.
func newEngine(t testing.TB) *Engine {
	t.Helper()

	e := New(session.New(rate, block, nil))
	e.PrepareToPlay(block, rate)
	e.SetEffectsEnabled(false)
	t.Cleanup(e.ReleaseResources)

	return e
}

func constBuffer(frames, sampleRate int, v float32) *audio.Buffer {
	return &audio.Buffer{Data: audiotest.Stereo(audiotest.Const(frames, v)), SampleRate: sampleRate}
}

func writeWAV(t *testing.T, buf *audio.Buffer) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "take.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := wav.Encode(f, buf); err != nil {
		t.Fatal(err)
	}
	return path
}

func assertAll(t *testing.T, dst *audio.Buffer, from, to int, want, tol float32) {
	t.Helper()

	for ch := range dst.Data {
		for i := from; i < to; i++ {
			if got := dst.Data[ch][i]; !audiotest.Near(got, want, tol) {
				t.Fatalf("ch %d frame %d = %v, want %v", ch, i, got, want)
			}
		}
	}
}

func TestEngine_SilenceReplacesInput(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	dst := constBuffer(block, rate, 0.8)
	e.GetNextAudioBlock(dst, 0, block)

	assertAll(t, dst, 0, block, 0, 0)
}

func TestEngine_PlaysLoadedFile(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	path := writeWAV(t, constBuffer(200, rate, 0.25))

	if !e.LoadAudioFile(path) {
		t.Fatal("LoadAudioFile failed")
	}
	if e.AudioFile() != path {
		t.Errorf("AudioFile() = %q, want %q", e.AudioFile(), path)
	}
	if e.Transport().IsPlaying() {
		t.Error("a fresh file must not be playing")
	}

	e.SetGain(2)
	e.StartPlayback()

	dst := audio.NewBuffer(2, block, rate)
	e.GetNextAudioBlock(dst, 0, block)
	assertAll(t, dst, 0, block, 0.5, 1e-3)
}

func TestEngine_LoadResamplesToDeviceRate(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	if !e.LoadAudioFile(writeWAV(t, constBuffer(100, rate/2, 0.25))) {
		t.Fatal("LoadAudioFile failed")
	}

	file := e.Transport().File()
	if file.SampleRate != rate {
		t.Errorf("file rate = %d, want %d", file.SampleRate, rate)
	}
	if got := e.Transport().Length(); math.Abs(got-0.2) > 0.01 {
		t.Errorf("Length() = %v, want about 0.2", got)
	}
}

func TestEngine_LoadFailureUnloads(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	if !e.LoadAudioFile(writeWAV(t, constBuffer(100, rate, 0.25))) {
		t.Fatal("LoadAudioFile failed")
	}

	if e.LoadAudioFile(filepath.Join(t.TempDir(), "missing.wav")) {
		t.Fatal("loading a missing file succeeded")
	}
	if e.Transport().Loaded() {
		t.Error("previous file survived a failed load")
	}
	if e.AudioFile() != "" {
		t.Errorf("AudioFile() = %q after failure", e.AudioFile())
	}
}

func TestEngine_LooperRecordsInput(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	l := e.Looper()

	l.StartRecording()
	dst := constBuffer(block, rate, 0.3)
	e.GetNextAudioBlock(dst, 0, block)
	assertAll(t, dst, 0, block, 0, 0)
	l.StopRecording()

	if got := l.LoopLength(); got != float64(block)/rate {
		t.Fatalf("LoopLength() = %v, want %v", got, float64(block)/rate)
	}

	l.StartPlayback()
	dst = constBuffer(block, rate, 0.9)
	e.GetNextAudioBlock(dst, 0, block)
	assertAll(t, dst, 0, block, 0.3, 0)
}

func TestEngine_MixIsAdditive(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	e.Transport().Load(constBuffer(rate, rate, 0.25))
	e.StartPlayback()

	s := e.Slicer()
	if err := s.LoadBuffer(constBuffer(rate, rate, 0.5)); err != nil {
		t.Fatal(err)
	}
	s.AddSlice(0, 1, "")
	s.PlaySlice(0)

	dst := audio.NewBuffer(2, block, rate)
	e.GetNextAudioBlock(dst, 0, block)
	assertAll(t, dst, 0, block, 0.75, 0)
}

func TestEngine_EffectsRunLast(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	e.Transport().Load(constBuffer(rate, rate, 0.25))
	e.StartPlayback()

	dry := audio.NewBuffer(2, block, rate)
	e.GetNextAudioBlock(dry, 0, block)
	assertAll(t, dry, 0, block, 0.25, 0)

	e.SetEffectsEnabled(true)
	wet := audio.NewBuffer(2, block, rate)
	e.GetNextAudioBlock(wet, 0, block)

	if reflect.DeepEqual(dry.Data, wet.Data) {
		t.Error("enabled effects left the block untouched")
	}
	for ch := range wet.Data {
		for i, v := range wet.Data[ch] {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				t.Fatalf("ch %d frame %d = %v", ch, i, v)
			}
		}
	}
}

func TestEngine_ClampsRange(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	e.GetNextAudioBlock(nil, 0, block)

	dst := constBuffer(32, rate, 0.7)
	e.GetNextAudioBlock(dst, 20, 100)
	assertAll(t, dst, 0, 20, 0.7, 0)
	assertAll(t, dst, 20, 32, 0, 0)

	e.GetNextAudioBlock(dst, 40, 8)
	e.GetNextAudioBlock(dst, -5, 0)
}

func TestEngine_SnapshotRestore(t *testing.T) {
	t.Parallel()

	src := newEngine(t)
	src.Transport().Load(constBuffer(rate, rate, 0.1))
	src.SetGain(0.7)
	src.SetLooping(true)
	src.SetEffectsEnabled(true)
	src.Effects().SetFilterParameters(500, 2)

	seq := src.Sequencer()
	seq.SetSteps(8)
	seq.SetTempo(96)
	seq.SetStepActive(3, true)
	seq.SetStepVelocity(3, 0.4)

	sl := src.Slicer()
	if err := sl.LoadBuffer(constBuffer(rate, rate, 0.1)); err != nil {
		t.Fatal(err)
	}
	sl.AddSlice(0, 0.5, "a")
	sl.AddSlice(0.5, 1, "b")
	sl.SetGain(0.8)

	snap := src.Snapshot()

	dst := newEngine(t)
	dst.Transport().Load(constBuffer(rate, rate, 0.1))
	if err := dst.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if got := dst.Snapshot(); !reflect.DeepEqual(got, snap) {
		t.Errorf("restored snapshot differs\n got: %+v\nwant: %+v", got, snap)
	}
}

func TestEngine_RestoreRegion(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	l := e.Looper()
	l.StartRecording()
	e.GetNextAudioBlock(constBuffer(block, rate, 0.3), 0, block)
	l.StopRecording()

	snap := e.Snapshot()
	snap.Looper.LoopStart = 0.016
	snap.Looper.LoopEnd = 0.048

	if err := e.Restore(snap); err != nil {
		t.Fatal(err)
	}
	start, end := l.Region()
	if start != 0.016 || end != 0.048 {
		t.Errorf("Region() = [%v, %v), want [0.016, 0.048)", start, end)
	}
}

func TestEngine_RestoreOutOfRangeRegion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name               string
		start, end         float64
		wantStart, wantEnd float64
	}{
		{"huge start", 1e300, 0.048, 0, 0.048},
		{"infinite start", math.Inf(1), 0.048, 0, 0.048},
		{"huge end", 0.016, 1e300, 0.016, 0.064},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newEngine(t)
			l := e.Looper()
			l.StartRecording()
			e.GetNextAudioBlock(constBuffer(block, rate, 0.3), 0, block)
			l.StopRecording()

			snap := e.Snapshot()
			snap.Looper.LoopStart = tt.start
			snap.Looper.LoopEnd = tt.end
			if err := e.Restore(snap); err != nil {
				t.Fatal(err)
			}

			start, end := l.Region()
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("Region() = [%v, %v), want [%v, %v)", start, end, tt.wantStart, tt.wantEnd)
			}

			l.StartPlayback()
			dst := audio.NewBuffer(2, 4*block, rate)
			e.GetNextAudioBlock(dst, 0, 4*block)
			assertAll(t, dst, 0, 4*block, 0.3, 0)
		})
	}
}

func TestEngine_RestoreRejectsMismatched(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	snap := e.Snapshot()
	snap.Transport.Gain = 0.1
	snap.Sequencer.NumSteps = 4
	snap.Sequencer.Active = make([]bool, 2)

	err := e.Restore(snap)
	if !errors.Is(err, project.ErrMismatchedArrays) {
		t.Fatalf("Restore error = %v, want %v", err, project.ErrMismatchedArrays)
	}
	if e.Transport().Gain() != 1 {
		t.Error("a rejected snapshot was partially applied")
	}
}

func TestEngine_OpenProject(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	path := writeWAV(t, constBuffer(100, rate, 0.25))

	p := e.Project("demo")
	p.Snapshot.Transport.File = path
	p.Snapshot.Transport.Gain = 0.6
	p.Snapshot.Slicer.SampleFile = filepath.Join(t.TempDir(), "missing.wav")

	err := e.OpenProject(p)
	if !errors.Is(err, ErrFileNotLoaded) {
		t.Fatalf("OpenProject error = %v, want %v", err, ErrFileNotLoaded)
	}
	if e.AudioFile() != path {
		t.Errorf("AudioFile() = %q, want %q", e.AudioFile(), path)
	}
	if e.Transport().Gain() != 0.6 {
		t.Errorf("gain = %v, want 0.6", e.Transport().Gain())
	}
}

func TestEngine_Apply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		function string
		value    float32
		check    func(e *Engine) bool
	}{
		{"transport.gain", 0.5, func(e *Engine) bool { return e.Transport().Gain() == 0.5 }},
		{"transport.play", 1, func(e *Engine) bool { return e.Transport().IsPlaying() }},
		{"transport.loop", 1, func(e *Engine) bool { return e.Transport().IsLooping() }},
		{"looper.gain", 0.25, func(e *Engine) bool { return e.Looper().LoopGain() == 0.25 }},
		{"looper.record", 1, func(e *Engine) bool { return e.Looper().IsRecording() }},
		{"looper.record", 0, func(e *Engine) bool { return !e.Looper().IsRecording() }},
		{"sequencer.tempo", 140, func(e *Engine) bool { return e.Sequencer().Tempo() == 140 }},
		{"sequencer.start", 1, func(e *Engine) bool { return e.Sequencer().IsPlaying() }},
		{"slicer.gain", 0.75, func(e *Engine) bool { return e.Slicer().Gain() == 0.75 }},
		{"slicer.play", 0.9, func(e *Engine) bool { return e.Slicer().ActiveSlice() == 1 }},
		{"effects.enabled", 1, func(e *Engine) bool { return e.EffectsEnabled() }},
		{"effects.filter.cutoff", 500, func(e *Engine) bool { return e.Effects().Params().Filter.Cutoff == 500 }},
		{"effects.filter.resonance", 2, func(e *Engine) bool { return e.Effects().Params().Filter.Resonance == 2 }},
		{"effects.delay.time", 0.25, func(e *Engine) bool { return e.Effects().Params().Delay.Time == 0.25 }},
		{"effects.delay.feedback", 5, func(e *Engine) bool { return e.Effects().Params().Delay.Feedback == 0.99 }},
		{"effects.delay.mix", 0.5, func(e *Engine) bool { return e.Effects().Params().Delay.Mix == 0.5 }},
		{"effects.reverb.room", 0.75, func(e *Engine) bool { return e.Effects().Params().Reverb.RoomSize == 0.75 }},
		{"effects.reverb.wet", 0.5, func(e *Engine) bool { return e.Effects().Params().Reverb.WetLevel == 0.5 }},
		{"effects.drive", 0.5, func(e *Engine) bool { return e.Effects().Params().Drive.Drive == 0.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.function, func(t *testing.T) {
			t.Parallel()

			e := newEngine(t)
			e.Transport().Load(constBuffer(rate, rate, 0.1))
			if err := e.Slicer().LoadBuffer(constBuffer(rate, rate, 0.1)); err != nil {
				t.Fatal(err)
			}
			e.Slicer().AutoSlice(0.25)

			if !e.Apply(tt.function, tt.value) {
				t.Fatalf("Apply(%q) reported an unknown function", tt.function)
			}
			if !tt.check(e) {
				t.Errorf("Apply(%q, %v) had no effect", tt.function, tt.value)
			}
		})
	}

	if newEngine(t).Apply("no.such.function", 1) {
		t.Error("Apply accepted an unknown name")
	}
}

func TestEngine_ApplyToggles(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	l := e.Looper()

	e.Apply("looper.record", 1)
	e.GetNextAudioBlock(constBuffer(block, rate, 0.3), 0, block)
	e.Apply("looper.record", 1)
	if l.IsRecording() || !l.HasLoop() {
		t.Fatalf("second press left state %v, loop %v", l.State(), l.HasLoop())
	}

	e.Apply("looper.play", 1)
	if !l.IsPlaying() {
		t.Error("looper.play did not start playback")
	}
	e.Apply("looper.play", 1)
	if l.IsPlaying() {
		t.Error("looper.play did not stop playback")
	}

	e.Apply("looper.clear", 1)
	if l.HasLoop() {
		t.Error("looper.clear kept the loop")
	}
}

func TestEngine_Functions(t *testing.T) {
	t.Parallel()

	names := newEngine(t).Functions()
	if len(names) != 23 {
		t.Errorf("Functions() has %d names, want 23: %v", len(names), names)
	}
	for _, name := range names {
		if !newEngine(t).Apply(name, 0) {
			t.Errorf("listed function %q is not accepted", name)
		}
	}
}

func TestEngine_ZeroAllocs(t *testing.T) {
	e := newEngine(t)
	e.Transport().Load(constBuffer(4*rate, rate, 0.1))
	e.SetLooping(true)
	e.StartPlayback()

	l := e.Looper()
	l.StartRecording()
	e.GetNextAudioBlock(constBuffer(block, rate, 0.2), 0, block)
	l.StopRecording()
	l.StartPlayback()

	e.Sequencer().SetStepActive(0, true)
	e.Sequencer().Start()

	if err := e.Slicer().LoadBuffer(constBuffer(rate, rate, 0.1)); err != nil {
		t.Fatal(err)
	}
	e.Slicer().AddSlice(0, 1, "")
	e.Slicer().PlaySlice(0)
	e.SetEffectsEnabled(true)

	dst := audio.NewBuffer(2, block, rate)
	allocs := testing.AllocsPerRun(100, func() {
		e.GetNextAudioBlock(dst, 0, block)
	})
	if allocs != 0 {
		t.Errorf("GetNextAudioBlock allocates %v times per block", allocs)
	}
}

func BenchmarkEngine_GetNextAudioBlock(b *testing.B) {
	e := New(session.New(44100, 512, nil))
	e.PrepareToPlay(512, 44100)
	e.Transport().Load(constBuffer(44100, 44100, 0.1))
	e.SetLooping(true)
	e.StartPlayback()
	e.Sequencer().SetStepActive(0, true)
	e.Sequencer().Start()

	dst := audio.NewBuffer(2, 512, 44100)

	b.ReportAllocs()
	for b.Loop() {
		e.GetNextAudioBlock(dst, 0, 512)
	}
}
