// SPDX-License-Identifier: EPL-2.0

package project

import (
	"fmt"

	"github.com/ik5/groovedeck/utils"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	ticksPerQuarter = 960
	ticksPerStep    = ticksPerQuarter / 4
)

// ExportPatternFile writes the sequencer pattern as a one-bar Standard MIDI
// File: a tempo track plus one track with a note per active step, each one
// step long, on channel 0. Velocity maps 0..1 to 1..127.
func ExportPatternFile(path string, seq SequencerState, note uint8) error {
	if seq.NumSteps <= 0 || len(seq.Active) < seq.NumSteps {
		return ErrEmptyPattern
	}

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(ticksPerQuarter)

	var tempo smf.Track
	tempo.Add(0, smf.MetaMeter(4, 4))
	tempo.Add(0, smf.MetaTempo(seq.Tempo))
	tempo.Close(0)
	if err := sm.Add(tempo); err != nil {
		return fmt.Errorf("adding tempo track: %w", err)
	}

	var notes smf.Track
	var pending uint32
	for i := range seq.NumSteps {
		if !seq.Active[i] {
			pending += ticksPerStep
			continue
		}

		vel := uint8(127)
		if i < len(seq.Velocity) {
			vel = uint8(1 + utils.Clamp(seq.Velocity[i], 0, 1)*126 + 0.5)
		}
		notes.Add(pending, midi.NoteOn(0, note, vel))
		notes.Add(ticksPerStep, midi.NoteOff(0, note))
		pending = 0
	}
	notes.Close(pending)
	if err := sm.Add(notes); err != nil {
		return fmt.Errorf("adding note track: %w", err)
	}

	if err := sm.WriteFile(path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}
