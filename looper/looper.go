// SPDX-License-Identifier: EPL-2.0

package looper

import (
	"sync"

	"github.com/ik5/groovedeck/audio"
	"github.com/ik5/groovedeck/utils"
	"go.uber.org/atomic"
)

// DefaultMaxLoopSeconds bounds the recording buffer.
const DefaultMaxLoopSeconds = 30.0

const noSeek = -1

// State summarizes the two independent flags for display.
type State int

const (
	Idle State = iota
	Recording
	Playing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Playing:
		return "playing"
	}
	return "unknown"
}

// Loop is a committed take plus the frame region that plays,
// 0 <= Start < End <= Buffer.Frames().
type Loop struct {
	Buffer *audio.Buffer
	Start  int
	End    int
}

// Seconds converts the region length to seconds.
func (l *Loop) Seconds() float64 {
	if l == nil || l.Buffer.SampleRate <= 0 {
		return 0
	}
	return float64(l.End-l.Start) / float64(l.Buffer.SampleRate)
}

type Option func(*Looper)

// WithMaxLoopSeconds sets the recording capacity. Non-positive values keep
// the default.
func WithMaxLoopSeconds(seconds float64) Option {
	return func(l *Looper) {
		if seconds > 0 {
			l.maxSeconds = seconds
		}
	}
}

type Looper struct {
	mu         sync.Mutex // serializes control-side transitions
	maxSeconds float64

	loop      atomic.Pointer[Loop]
	record    atomic.Pointer[audio.Buffer]
	written   atomic.Int64
	recording atomic.Bool
	playing   atomic.Bool
	gain      atomic.Float32
	seek      atomic.Int64
	pos       atomic.Int64

	cursor int
}

func New(opts ...Option) *Looper {
	l := &Looper{maxSeconds: DefaultMaxLoopSeconds}
	for _, opt := range opts {
		opt(l)
	}
	l.gain.Store(1)
	l.seek.Store(noSeek)

	return l
}

// Prepare allocates the recording buffer for sampleRate. A buffer of the
// right rate is reused.
func (l *Looper) Prepare(_, sampleRate int) {
	if sampleRate <= 0 {
		return
	}
	if rec := l.record.Load(); rec != nil && rec.SampleRate == sampleRate {
		return
	}

	l.recording.Store(false)
	l.record.Store(audio.NewBuffer(2, utils.SecondsToFrames(l.maxSeconds, sampleRate), sampleRate))
	l.written.Store(0)
}

// Release frees the recording buffer. The committed loop is kept.
func (l *Looper) Release() {
	l.recording.Store(false)
	l.record.Store(nil)
	l.written.Store(0)
}

// StartRecording rewinds the write cursor and arms capture. It is a no-op
// while already recording.
func (l *Looper) StartRecording() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.recording.Load() {
		return
	}
	l.written.Store(0)
	l.recording.Store(true)
}

// StopRecording commits the frames captured so far as the new loop, with the
// region covering all of them. A take with no frames leaves the previous
// loop in place.
func (l *Looper) StopRecording() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.recording.Load() {
		return
	}
	l.recording.Store(false)

	n := int(l.written.Load())
	rec := l.record.Load()
	if n <= 0 || rec == nil {
		return
	}

	take := rec.Head(n)
	l.loop.Store(&Loop{Buffer: take, Start: 0, End: take.Frames()})
}

// Capture copies the live input into the recording buffer. Called on the
// audio goroutine before any producer writes into src. Capture stops
// silently once the buffer is full.
func (l *Looper) Capture(src *audio.Buffer, start, count int) {
	if !l.recording.Load() || src.Channels() == 0 {
		return
	}
	rec := l.record.Load()
	if rec == nil {
		return
	}

	from, to := src.Span(start, count)
	w := l.written.Load()
	n := min(to-from, rec.Frames()-int(w))
	if n <= 0 {
		return
	}

	in := src.Channels()
	for ch, out := range rec.Data {
		copy(out[w:int(w)+n], src.Data[min(ch, in-1)][from:from+n])
	}

	// Loses to a concurrent StartRecording, which rewinds to 0.
	l.written.CompareAndSwap(w, w+int64(n))
}

// StartPlayback plays the loop from its region start. Ignored without a
// loop.
func (l *Looper) StartPlayback() {
	l.mu.Lock()
	defer l.mu.Unlock()

	loop := l.loop.Load()
	if loop == nil {
		return
	}
	l.seek.Store(int64(loop.Start))
	l.playing.Store(true)
}

// StopPlayback pauses; the cursor is kept.
func (l *Looper) StopPlayback() { l.playing.Store(false) }

func (l *Looper) ClearLoop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.recording.Store(false)
	l.playing.Store(false)
	l.loop.Store(nil)
	l.seek.Store(0)
	l.pos.Store(0)
}

// SetLoopStart moves the region start to seconds. Bounds outside the take
// are clamped; a start at or past the region end is ignored.
func (l *Looper) SetLoopStart(seconds float64) {
	l.editRegion(func(loop *Loop, frames int) {
		start := min(utils.SecondsToFrames(seconds, loop.Buffer.SampleRate), frames)
		if start < loop.End {
			loop.Start = start
		}
	})
}

// SetLoopEnd moves the region end to seconds, clamped to the take. An end at
// or before the region start is ignored.
func (l *Looper) SetLoopEnd(seconds float64) {
	l.editRegion(func(loop *Loop, frames int) {
		end := min(utils.SecondsToFrames(seconds, loop.Buffer.SampleRate), frames)
		if end > loop.Start {
			loop.End = end
		}
	})
}

// SetLoopLength resets the region to [0, seconds).
func (l *Looper) SetLoopLength(seconds float64) {
	l.editRegion(func(loop *Loop, frames int) {
		end := min(utils.SecondsToFrames(seconds, loop.Buffer.SampleRate), frames)
		if end > 0 {
			loop.Start, loop.End = 0, end
		}
	})
}

func (l *Looper) editRegion(edit func(loop *Loop, frames int)) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cur := l.loop.Load()
	if cur == nil {
		return
	}
	next := *cur
	frames := next.Buffer.Frames()
	edit(&next, frames)
	if next.Start < 0 || next.Start >= next.End || next.End > frames {
		return
	}
	if next != *cur {
		l.loop.Store(&next)
	}
}

// ReverseLoop publishes a time-reversed copy of the take with the same
// region.
func (l *Looper) ReverseLoop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cur := l.loop.Load()
	if cur == nil {
		return
	}
	l.loop.Store(&Loop{Buffer: cur.Buffer.Reversed(), Start: cur.Start, End: cur.End})
}

func (l *Looper) SetLoopGain(gain float32) { l.gain.Store(gain) }
func (l *Looper) LoopGain() float32        { return l.gain.Load() }

func (l *Looper) HasLoop() bool     { return l.loop.Load() != nil }
func (l *Looper) IsRecording() bool { return l.recording.Load() }
func (l *Looper) IsPlaying() bool   { return l.playing.Load() }

// Loop returns the committed take, nil when there is none.
func (l *Looper) Loop() *Loop { return l.loop.Load() }

// LoopLength is the region length in seconds.
func (l *Looper) LoopLength() float64 { return l.loop.Load().Seconds() }

// Region returns the playing region in seconds.
func (l *Looper) Region() (start, end float64) {
	loop := l.loop.Load()
	if loop == nil || loop.Buffer.SampleRate <= 0 {
		return 0, 0
	}
	rate := float64(loop.Buffer.SampleRate)

	return float64(loop.Start) / rate, float64(loop.End) / rate
}

// RecordedSeconds is how much of the current take has been captured.
func (l *Looper) RecordedSeconds() float64 {
	rec := l.record.Load()
	if rec == nil || rec.SampleRate <= 0 {
		return 0
	}
	return float64(l.written.Load()) / float64(rec.SampleRate)
}

// Position is the playback cursor in seconds as of the last block.
func (l *Looper) Position() float64 {
	loop := l.loop.Load()
	if loop == nil || loop.Buffer.SampleRate <= 0 {
		return 0
	}
	return float64(l.pos.Load()) / float64(loop.Buffer.SampleRate)
}

func (l *Looper) State() State {
	switch {
	case l.recording.Load():
		return Recording
	case l.playing.Load():
		return Playing
	}
	return Idle
}

// ProduceBlock adds the loop into [start, start+count) of dst.
func (l *Looper) ProduceBlock(dst *audio.Buffer, start, count int) {
	if s := l.seek.Swap(noSeek); s >= 0 {
		l.cursor = int(s)
	}

	loop := l.loop.Load()
	if loop == nil || !l.playing.Load() {
		l.pos.Store(int64(l.cursor))
		return
	}

	from, to := dst.Span(start, count)
	take := loop.Buffer
	frames := take.Frames()
	channels := take.Channels()
	gain := l.gain.Load()

	for i := from; i < to; i++ {
		if l.cursor >= loop.End {
			l.cursor = loop.Start
		}
		if l.cursor < frames {
			for ch, out := range dst.Data {
				out[i] += take.Data[min(ch, channels-1)][l.cursor] * gain
			}
		}
		l.cursor++
	}

	l.pos.Store(int64(l.cursor))
}

var _ audio.Producer = (*Looper)(nil)
