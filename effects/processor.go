// SPDX-License-Identifier: EPL-2.0

package effects

import (
	"sync"

	dspfx "github.com/cwbudde/algo-dsp/dsp/effects"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
	"github.com/ik5/groovedeck/audio"
	"go.uber.org/atomic"
)

const channels = 2

// Processor runs filter, delay, reverb and drive in series over a stereo
// block, in place.
//
// Setters may be called from any goroutine. They publish a new Params
// snapshot which ProcessBlock picks up at its next block boundary.
type Processor struct {
	mu      sync.Mutex // serializes setters
	params  atomic.Pointer[Params]
	version atomic.Uint64
	enabled atomic.Bool

	// Owned by the audio goroutine.
	prepared bool
	rate     float64
	applied  uint64
	current  Params
	filters  [channels]*biquad.Section
	delays   [channels]*dspfx.Delay
	reverbs  [channels]*dspfx.Reverb
	drives   [channels]*dspfx.Distortion
	scratch  []float64
}

func NewProcessor() *Processor {
	p := &Processor{}
	defaults := DefaultParams()
	p.params.Store(&defaults)
	p.version.Store(1)
	p.enabled.Store(true)

	return p
}

func (p *Processor) SetEffectEnabled(enabled bool) { p.enabled.Store(enabled) }
func (p *Processor) IsEffectEnabled() bool         { return p.enabled.Load() }

// Params returns the most recently published settings.
func (p *Processor) Params() Params { return *p.params.Load() }

// SetParams publishes a whole snapshot, clamped.
func (p *Processor) SetParams(next Params) {
	p.Update(func(cur *Params) { *cur = next })
}

func (p *Processor) SetReverbParameters(roomSize, damping, wetLevel, dryLevel float64) {
	p.Update(func(cur *Params) {
		cur.Reverb.RoomSize = roomSize
		cur.Reverb.Damping = damping
		cur.Reverb.WetLevel = wetLevel
		cur.Reverb.DryLevel = dryLevel
	})
}

func (p *Processor) SetDelayParameters(time, feedback, mix float64) {
	p.Update(func(cur *Params) {
		cur.Delay.Time = time
		cur.Delay.Feedback = feedback
		cur.Delay.Mix = mix
	})
}

func (p *Processor) SetFilterParameters(cutoff, resonance float64) {
	p.Update(func(cur *Params) {
		cur.Filter.Cutoff = cutoff
		cur.Filter.Resonance = resonance
	})
}

func (p *Processor) SetDriveParameters(drive, mix float64) {
	p.Update(func(cur *Params) {
		cur.Drive.Drive = drive
		cur.Drive.Mix = mix
	})
}

// SetStageEnabled bypasses or restores a single stage.
func (p *Processor) SetStageEnabled(stage Stage, enabled bool) {
	p.Update(func(cur *Params) {
		switch stage {
		case StageFilter:
			cur.Filter.Enabled = enabled
		case StageDelay:
			cur.Delay.Enabled = enabled
		case StageReverb:
			cur.Reverb.Enabled = enabled
		case StageDrive:
			cur.Drive.Enabled = enabled
		}
	})
}

// Update applies edit to a copy of the current snapshot and publishes the
// clamped result. Concurrent edits are serialized.
func (p *Processor) Update(edit func(*Params)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := *p.params.Load()
	edit(&next)
	next = next.Clamped()
	p.params.Store(&next)
	p.version.Inc()
}

// Prepare builds the per-channel DSP stages for sampleRate. Blocks are
// processed in chunks of blockSize frames. A non-positive rate leaves the
// processor unprepared, which makes ProcessBlock a no-op.
func (p *Processor) Prepare(blockSize, sampleRate int) {
	p.prepared = false
	if sampleRate <= 0 {
		return
	}
	p.rate = float64(sampleRate)

	for ch := range channels {
		delay, err := dspfx.NewDelay(p.rate)
		if err != nil {
			return
		}
		drive, err := dspfx.NewDistortion(p.rate, dspfx.WithDistortionMode(dspfx.DistortionModeTanh))
		if err != nil {
			return
		}

		p.filters[ch] = biquad.NewSection(design.Lowpass(1000, 0.7, p.rate))
		p.delays[ch] = delay
		p.reverbs[ch] = dspfx.NewReverb()
		p.drives[ch] = drive
	}

	p.scratch = make([]float64, max(blockSize, 64))
	p.applied = 0
	p.prepared = true
}

// Release drops the DSP state. Prepare must run again before processing.
func (p *Processor) Release() {
	p.prepared = false
	p.scratch = nil
	for ch := range channels {
		p.filters[ch], p.delays[ch], p.reverbs[ch], p.drives[ch] = nil, nil, nil, nil
	}
}

// Reset clears delay lines, reverb tails and filter state.
func (p *Processor) Reset() {
	if !p.prepared {
		return
	}
	for ch := range channels {
		p.filters[ch].Reset()
		p.delays[ch].Reset()
		p.reverbs[ch].Reset()
		p.drives[ch].Reset()
	}
}

// apply pushes the latest snapshot into the stages. Values are already
// clamped, so the setters below cannot fail.
func (p *Processor) apply() {
	v := p.version.Load()
	if v == p.applied {
		return
	}
	p.applied = v
	p.current = *p.params.Load()
	c := p.current

	coeffs := design.Lowpass(nyquistCutoff(c.Filter.Cutoff, p.rate), c.Filter.Resonance, p.rate)
	for ch := range channels {
		p.filters[ch].Coefficients = coeffs

		_ = p.delays[ch].SetTime(c.Delay.Time)
		_ = p.delays[ch].SetFeedback(c.Delay.Feedback)
		_ = p.delays[ch].SetMix(c.Delay.Mix)

		p.reverbs[ch].SetRoomSize(reverbRoom(c.Reverb.RoomSize))
		p.reverbs[ch].SetDamp(reverbDamp(c.Reverb.Damping))
		p.reverbs[ch].SetWet(reverbWet(c.Reverb.WetLevel))
		p.reverbs[ch].SetDry(reverbDry(c.Reverb.DryLevel))

		_ = p.drives[ch].SetDrive(driveGain(c.Drive.Drive))
		_ = p.drives[ch].SetMix(c.Drive.Mix)
	}
}

// ProcessBlock runs the chain over frames [start, start+count) of buf. It
// leaves buf untouched while disabled or unprepared and never allocates.
func (p *Processor) ProcessBlock(buf *audio.Buffer, start, count int) {
	if !p.enabled.Load() || !p.prepared || buf == nil {
		return
	}
	p.apply()

	from, to := buf.Span(start, count)
	for ch := range min(channels, buf.Channels()) {
		data := buf.Data[ch][from:to]
		for len(data) > 0 {
			n := min(len(data), len(p.scratch))
			p.processChunk(ch, data[:n])
			data = data[n:]
		}
	}
}

func (p *Processor) processChunk(ch int, samples []float32) {
	x := p.scratch[:len(samples)]
	for i, v := range samples {
		x[i] = float64(v)
	}

	c := &p.current
	if c.Filter.Enabled {
		p.filters[ch].ProcessBlock(x)
	}
	if c.Delay.Enabled {
		p.delays[ch].ProcessInPlace(x)
	}
	if c.Reverb.Enabled {
		p.reverbs[ch].ProcessInPlace(x)
	}
	if c.Drive.Enabled {
		p.drives[ch].ProcessInPlace(x)
	}

	for i, v := range x {
		samples[i] = float32(v)
	}
}
