// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"errors"
	"fmt"

	"github.com/ik5/groovedeck/project"
	"github.com/ik5/groovedeck/sequencer"
	"github.com/ik5/groovedeck/slicer"
)

// Snapshot captures every persisted setting. It performs no I/O.
func (e *Engine) Snapshot() project.Snapshot {
	var s project.Snapshot

	s.Transport = project.TransportState{
		File:    e.AudioFile(),
		Gain:    e.transport.Gain(),
		Looping: e.transport.IsLooping(),
	}

	s.Effects = project.EffectsState{
		Enabled: e.effects.IsEffectEnabled(),
		Params:  e.effects.Params(),
	}

	steps := e.sequencer.Steps()
	seq := project.SequencerState{
		NumSteps: len(steps),
		Tempo:    e.sequencer.Tempo(),
		Active:   make([]bool, len(steps)),
		Velocity: make([]float32, len(steps)),
	}
	for i, st := range steps {
		seq.Active[i] = st.Active
		seq.Velocity[i] = st.Velocity
	}
	s.Sequencer = seq

	start, end := e.looper.Region()
	s.Looper = project.LooperState{
		HasLoop:    e.looper.HasLoop(),
		LoopLength: e.looper.LoopLength(),
		LoopStart:  start,
		LoopEnd:    end,
		LoopGain:   e.looper.LoopGain(),
	}

	list := e.slicer.Slices()
	sl := project.SlicerState{
		Gain:   e.slicer.Gain(),
		Names:  make([]string, len(list)),
		Starts: make([]float64, len(list)),
		Ends:   make([]float64, len(list)),
	}
	if smp := e.slicer.Sample(); smp != nil {
		sl.SampleFile = smp.Path
	}
	for i, c := range list {
		sl.Names[i] = c.Name
		sl.Starts[i] = c.Start
		sl.Ends[i] = c.End
	}
	s.Slicer = sl

	return s
}

// Restore applies s to the running engine. Files are not loaded; the loop
// region is applied only when a loop already exists. An inconsistent
// snapshot is rejected before anything changes.
func (e *Engine) Restore(s project.Snapshot) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("restoring snapshot: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.transport.SetGain(s.Transport.Gain)
	e.transport.SetLooping(s.Transport.Looping)

	e.effects.SetParams(s.Effects.Params)
	e.effects.SetEffectEnabled(s.Effects.Enabled)

	if s.Sequencer.Tempo > 0 {
		e.sequencer.SetTempo(s.Sequencer.Tempo)
	}
	if s.Sequencer.NumSteps > 0 {
		steps := make([]sequencer.Step, s.Sequencer.NumSteps)
		for i := range steps {
			steps[i] = sequencer.DefaultStep()
			steps[i].Active = s.Sequencer.Active[i]
			steps[i].Velocity = s.Sequencer.Velocity[i]
		}
		e.sequencer.SetPattern(steps)
	}

	e.looper.SetLoopGain(s.Looper.LoopGain)
	if s.Looper.HasLoop && e.looper.HasLoop() {
		e.looper.SetLoopLength(s.Looper.LoopEnd)
		e.looper.SetLoopStart(s.Looper.LoopStart)
	}

	e.slicer.SetGain(s.Slicer.Gain)
	list := make([]slicer.Slice, len(s.Slicer.Names))
	for i := range list {
		list[i] = slicer.Slice{
			Start:  s.Slicer.Starts[i],
			End:    s.Slicer.Ends[i],
			Name:   s.Slicer.Names[i],
			Active: true,
		}
	}
	e.slicer.SetSlices(list)

	return nil
}

// Project wraps the current snapshot in a named project document.
func (e *Engine) Project(name string) *project.Project {
	return project.New(name, e.Snapshot())
}

// OpenProject loads the files p refers to and then restores its settings.
// A file that fails to load is reported in the returned error, but the
// settings are still restored.
func (e *Engine) OpenProject(p *project.Project) error {
	var errs []error

	s := p.Snapshot
	if s.Transport.File != "" && !e.LoadAudioFile(s.Transport.File) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrFileNotLoaded, s.Transport.File))
	}
	if s.Slicer.SampleFile != "" && !e.slicer.LoadSample(s.Slicer.SampleFile) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrFileNotLoaded, s.Slicer.SampleFile))
	}
	if err := e.Restore(s); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
