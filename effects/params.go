// SPDX-License-Identifier: EPL-2.0

package effects

import (
	"math"

	"github.com/ik5/groovedeck/utils"
)

// Stage identifies one link of the chain. The chain always runs in this
// order.
type Stage int

const (
	StageFilter Stage = iota
	StageDelay
	StageReverb
	StageDrive
)

func (s Stage) String() string {
	switch s {
	case StageFilter:
		return "filter"
	case StageDelay:
		return "delay"
	case StageReverb:
		return "reverb"
	case StageDrive:
		return "drive"
	}
	return "unknown"
}

type ReverbParams struct {
	RoomSize float64 `json:"roomSize"`
	Damping  float64 `json:"damping"`
	WetLevel float64 `json:"wetLevel"`
	DryLevel float64 `json:"dryLevel"`
	Enabled  bool    `json:"enabled"`
}

// DelayParams.Time is in seconds.
type DelayParams struct {
	Time     float64 `json:"time"`
	Feedback float64 `json:"feedback"`
	Mix      float64 `json:"mix"`
	Enabled  bool    `json:"enabled"`
}

// FilterParams.Cutoff is in Hz; Resonance is the filter Q.
type FilterParams struct {
	Cutoff    float64 `json:"cutoff"`
	Resonance float64 `json:"resonance"`
	Enabled   bool    `json:"enabled"`
}

// DriveParams.Drive in [0, 1] maps to 0..24 dB of pre-gain.
type DriveParams struct {
	Drive   float64 `json:"drive"`
	Mix     float64 `json:"mix"`
	Enabled bool    `json:"enabled"`
}

// Params is one immutable snapshot of every stage's settings.
type Params struct {
	Filter FilterParams `json:"filter"`
	Delay  DelayParams  `json:"delay"`
	Reverb ReverbParams `json:"reverb"`
	Drive  DriveParams  `json:"drive"`
}

func DefaultParams() Params {
	return Params{
		Filter: FilterParams{Cutoff: 1000, Resonance: 0.7, Enabled: true},
		Delay:  DelayParams{Time: 0.5, Feedback: 0.3, Mix: 0.3, Enabled: true},
		Reverb: ReverbParams{RoomSize: 0.5, Damping: 0.5, WetLevel: 0.33, DryLevel: 0.67, Enabled: true},
		Drive:  DriveParams{Drive: 1, Mix: 0.5, Enabled: true},
	}
}

// Limits accepted by the DSP stages.
const (
	MinCutoff    = 20.0
	MaxCutoff    = 20000.0
	MinResonance = 0.1
	MaxResonance = 20.0
	MinDelayTime = 0.001
	MaxDelayTime = 2.0
	MaxFeedback  = 0.99
	maxDriveGain = 20.0
	minDriveGain = 0.01
	driveRangeDB = 24.0
)

// Clamped returns p with every value forced into its legal range. NaN
// collapses to the low bound.
func (p Params) Clamped() Params {
	p.Filter.Cutoff = utils.Clamp64(p.Filter.Cutoff, MinCutoff, MaxCutoff)
	p.Filter.Resonance = utils.Clamp64(p.Filter.Resonance, MinResonance, MaxResonance)

	p.Delay.Time = utils.Clamp64(p.Delay.Time, MinDelayTime, MaxDelayTime)
	p.Delay.Feedback = utils.Clamp64(p.Delay.Feedback, 0, MaxFeedback)
	p.Delay.Mix = utils.Clamp64(p.Delay.Mix, 0, 1)

	p.Reverb.RoomSize = utils.Clamp64(p.Reverb.RoomSize, 0, 1)
	p.Reverb.Damping = utils.Clamp64(p.Reverb.Damping, 0, 1)
	p.Reverb.WetLevel = utils.Clamp64(p.Reverb.WetLevel, 0, 1)
	p.Reverb.DryLevel = utils.Clamp64(p.Reverb.DryLevel, 0, 1)

	p.Drive.Drive = utils.Clamp64(p.Drive.Drive, 0, 1)
	p.Drive.Mix = utils.Clamp64(p.Drive.Mix, 0, 1)

	return p
}

// driveGain converts the normalized drive to the linear pre-gain the
// distortion stage expects.
func driveGain(drive float64) float64 {
	return utils.Clamp64(utils.DecibelsToGain(drive*driveRangeDB), minDriveGain, maxDriveGain)
}

// Freeverb scaling, the same the reverb's room and damping knobs use in
// most hosts.
func reverbRoom(room float64) float64 { return room*0.28 + 0.7 }
func reverbDamp(damp float64) float64 { return damp * 0.4 }
func reverbWet(wet float64) float64   { return wet * 3 }
func reverbDry(dry float64) float64   { return dry * 2 }

func nyquistCutoff(cutoff, rate float64) float64 {
	return math.Min(cutoff, rate*0.45)
}
