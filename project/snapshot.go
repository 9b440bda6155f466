// SPDX-License-Identifier: EPL-2.0

package project

import (
	"fmt"

	"github.com/ik5/groovedeck/effects"
)

type Snapshot struct {
	Transport TransportState `json:"transport"`
	Effects   EffectsState   `json:"effects"`
	Sequencer SequencerState `json:"sequencer"`
	Looper    LooperState    `json:"looper"`
	Slicer    SlicerState    `json:"slicer"`
}

type TransportState struct {
	File    string  `json:"file,omitempty"`
	Gain    float32 `json:"gain"`
	Looping bool    `json:"looping"`
}

type EffectsState struct {
	Enabled bool           `json:"enabled"`
	Params  effects.Params `json:"params"`
}

// SequencerState stores the pattern as parallel arrays of NumSteps entries.
type SequencerState struct {
	NumSteps int       `json:"numSteps"`
	Tempo    float64   `json:"tempo"`
	Active   []bool    `json:"active"`
	Velocity []float32 `json:"velocity"`
}

// LooperState records the loop settings. The recorded audio itself is not
// part of a project.
type LooperState struct {
	HasLoop    bool    `json:"hasLoop"`
	LoopLength float64 `json:"loopLength"`
	LoopStart  float64 `json:"loopStart"`
	LoopEnd    float64 `json:"loopEnd"`
	LoopGain   float32 `json:"loopGain"`
}

// SlicerState stores the slices as parallel name/start/end arrays.
type SlicerState struct {
	SampleFile string    `json:"sampleFile,omitempty"`
	Gain       float32   `json:"gain"`
	Names      []string  `json:"names"`
	Starts     []float64 `json:"starts"`
	Ends       []float64 `json:"ends"`
}

// Validate checks that every parallel array has a consistent length.
func (s *Snapshot) Validate() error {
	seq := s.Sequencer
	if len(seq.Active) != seq.NumSteps || len(seq.Velocity) != seq.NumSteps {
		return fmt.Errorf("%w: sequencer has %d steps, %d active flags, %d velocities",
			ErrMismatchedArrays, seq.NumSteps, len(seq.Active), len(seq.Velocity))
	}

	sl := s.Slicer
	if len(sl.Starts) != len(sl.Names) || len(sl.Ends) != len(sl.Names) {
		return fmt.Errorf("%w: slicer has %d names, %d starts, %d ends",
			ErrMismatchedArrays, len(sl.Names), len(sl.Starts), len(sl.Ends))
	}

	return nil
}
