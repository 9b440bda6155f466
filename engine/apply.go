// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"math"
	"slices"

	"github.com/ik5/groovedeck/effects"
)

// trigger adapts an action to a control value: it fires on any positive
// value, so a note-on or a CC moving off zero both count as a press.
func trigger(fn func()) func(float32) {
	return func(v float32) {
		if v > 0 {
			fn()
		}
	}
}

func toggle(on func() bool, start, stop func()) func() {
	return func() {
		if on() {
			stop()
			return
		}
		start()
	}
}

func (e *Engine) editEffects(fn func(p *effects.Params, v float64)) func(float32) {
	return func(v float32) {
		e.effects.Update(func(p *effects.Params) { fn(p, float64(v)) })
	}
}

func (e *Engine) functionTable() map[string]func(float32) {
	t, l, q, s := e.transport, e.looper, e.sequencer, e.slicer

	return map[string]func(float32){
		"transport.gain": t.SetGain,
		"transport.play": trigger(e.StartPlayback),
		"transport.stop": trigger(e.StopPlayback),
		"transport.loop": func(v float32) { e.SetLooping(v >= 0.5) },

		"looper.gain":    l.SetLoopGain,
		"looper.record":  trigger(toggle(l.IsRecording, l.StartRecording, l.StopRecording)),
		"looper.play":    trigger(toggle(l.IsPlaying, l.StartPlayback, l.StopPlayback)),
		"looper.clear":   trigger(l.ClearLoop),
		"looper.reverse": trigger(l.ReverseLoop),

		"sequencer.tempo": func(v float32) { q.SetTempo(float64(v)) },
		"sequencer.start": trigger(q.Start),
		"sequencer.stop":  trigger(q.Stop),

		"slicer.gain": s.SetGain,
		"slicer.play": func(v float32) { s.PlaySlice(int(math.Round(float64(v)))) },

		"effects.enabled": func(v float32) { e.SetEffectsEnabled(v >= 0.5) },

		"effects.filter.cutoff": e.editEffects(func(p *effects.Params, v float64) {
			p.Filter.Cutoff = v
		}),
		"effects.filter.resonance": e.editEffects(func(p *effects.Params, v float64) {
			p.Filter.Resonance = v
		}),
		"effects.delay.time": e.editEffects(func(p *effects.Params, v float64) {
			p.Delay.Time = v
		}),
		"effects.delay.feedback": e.editEffects(func(p *effects.Params, v float64) {
			p.Delay.Feedback = v
		}),
		"effects.delay.mix": e.editEffects(func(p *effects.Params, v float64) {
			p.Delay.Mix = v
		}),
		"effects.reverb.room": e.editEffects(func(p *effects.Params, v float64) {
			p.Reverb.RoomSize = v
		}),
		"effects.reverb.wet": e.editEffects(func(p *effects.Params, v float64) {
			p.Reverb.WetLevel = v
		}),
		"effects.drive": e.editEffects(func(p *effects.Params, v float64) {
			p.Drive.Drive = v
		}),
	}
}

// Apply runs the named control function with value. It reports false for an
// unknown name. Continuous functions take the value as is; triggers fire on
// any positive value.
func (e *Engine) Apply(function string, value float32) bool {
	fn, ok := e.funcs[function]
	if !ok {
		return false
	}

	fn(value)
	return true
}

// Functions lists every name Apply accepts, sorted.
func (e *Engine) Functions() []string {
	names := make([]string, 0, len(e.funcs))
	for name := range e.funcs {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}
