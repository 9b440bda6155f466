// SPDX-License-Identifier: EPL-2.0

package sequencer

import (
	"math/rand/v2"
	"sync"

	"github.com/ik5/groovedeck/audio"
	"github.com/ik5/groovedeck/utils"
	"go.uber.org/atomic"
)

const (
	DefaultSteps = 16
	DefaultTempo = 120.0

	// pulseSeconds is how long an active step sounds.
	pulseSeconds = 0.01
	pulseLevel   = 0.5
	stepsPerBeat = 4
)

type Step struct {
	Active    bool    `json:"active"`
	Velocity  float32 `json:"velocity"`
	StartTime float64 `json:"startTime"`
	Duration  float64 `json:"duration"`
}

// DefaultStep is what new and out-of-range steps look like.
func DefaultStep() Step {
	return Step{Velocity: 1, Duration: 0.25}
}

type Option func(*Sequencer)

// WithRand sets the source RandomizePattern draws from.
func WithRand(r *rand.Rand) Option {
	return func(s *Sequencer) {
		if r != nil {
			s.rng = r
		}
	}
}

type Sequencer struct {
	mu  sync.Mutex // guards pattern writes and rng
	rng *rand.Rand

	pattern atomic.Pointer[[]Step]
	tempo   atomic.Float64
	playing atomic.Bool
	reset   atomic.Bool
	current atomic.Int64

	// Owned by the audio goroutine.
	rate    int
	step    int
	elapsed int
}

func New(opts ...Option) *Sequencer {
	s := &Sequencer{}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	s.tempo.Store(DefaultTempo)
	s.publish(defaultPattern(DefaultSteps))

	return s
}

func defaultPattern(n int) []Step {
	p := make([]Step, n)
	for i := range p {
		p[i] = DefaultStep()
	}
	return p
}

func (s *Sequencer) publish(p []Step) { s.pattern.Store(&p) }

// snapshot returns the published pattern. Callers must not modify it.
func (s *Sequencer) snapshot() []Step { return *s.pattern.Load() }

// edit copies the pattern, applies fn and publishes the result.
func (s *Sequencer) edit(fn func(p []Step)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := append([]Step(nil), s.snapshot()...)
	fn(next)
	s.publish(next)
}

func (s *Sequencer) Prepare(_, sampleRate int) {
	s.rate = max(sampleRate, 0)
}

func (s *Sequencer) Release() {}

// Start plays from step 0.
func (s *Sequencer) Start() {
	s.reset.Store(true)
	s.current.Store(0)
	s.playing.Store(true)
}

// Stop pauses; the position is kept.
func (s *Sequencer) Stop() { s.playing.Store(false) }

// Reset rewinds to step 0 without changing the play state.
func (s *Sequencer) Reset() {
	s.reset.Store(true)
	s.current.Store(0)
}

func (s *Sequencer) IsPlaying() bool  { return s.playing.Load() }
func (s *Sequencer) CurrentStep() int { return int(s.current.Load()) }

// SetTempo ignores non-positive values.
func (s *Sequencer) SetTempo(bpm float64) {
	if bpm > 0 {
		s.tempo.Store(bpm)
	}
}

func (s *Sequencer) Tempo() float64 { return s.tempo.Load() }

// StepTime is the length of one step in seconds.
func (s *Sequencer) StepTime() float64 {
	return 60 / s.tempo.Load() / stepsPerBeat
}

// SetSteps resizes the pattern, keeping the steps both sizes share.
func (s *Sequencer) SetSteps(n int) {
	if n <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := defaultPattern(n)
	copy(next, s.snapshot())
	s.publish(next)
}

func (s *Sequencer) NumSteps() int { return len(s.snapshot()) }

// Step returns step i, or DefaultStep when i is out of range.
func (s *Sequencer) Step(i int) Step {
	p := s.snapshot()
	if i < 0 || i >= len(p) {
		return DefaultStep()
	}
	return p[i]
}

// Steps returns a copy of the pattern.
func (s *Sequencer) Steps() []Step {
	return append([]Step(nil), s.snapshot()...)
}

// SetPattern replaces the whole pattern. An empty pattern is ignored.
func (s *Sequencer) SetPattern(steps []Step) {
	if len(steps) == 0 {
		return
	}

	next := append([]Step(nil), steps...)
	for i := range next {
		next[i].Velocity = utils.Clamp(next[i].Velocity, 0, 1)
	}

	s.mu.Lock()
	s.publish(next)
	s.mu.Unlock()
}

func (s *Sequencer) setStep(i int, fn func(*Step)) {
	s.edit(func(p []Step) {
		if i >= 0 && i < len(p) {
			fn(&p[i])
		}
	})
}

func (s *Sequencer) SetStepActive(i int, active bool) {
	s.setStep(i, func(st *Step) { st.Active = active })
}

// SetStepVelocity clamps velocity to [0, 1].
func (s *Sequencer) SetStepVelocity(i int, velocity float32) {
	s.setStep(i, func(st *Step) { st.Velocity = utils.Clamp(velocity, 0, 1) })
}

func (s *Sequencer) SetStepStartTime(i int, seconds float64) {
	s.setStep(i, func(st *Step) { st.StartTime = seconds })
}

func (s *Sequencer) SetStepDuration(i int, seconds float64) {
	s.setStep(i, func(st *Step) { st.Duration = seconds })
}

// ClearPattern deactivates every step and restores full velocity.
func (s *Sequencer) ClearPattern() {
	s.edit(func(p []Step) {
		for i := range p {
			p[i].Active = false
			p[i].Velocity = 1
		}
	})
}

// RandomizePattern draws each step's active flag and velocity uniformly.
func (s *Sequencer) RandomizePattern() {
	s.edit(func(p []Step) {
		for i := range p {
			p[i].Active = s.rng.Float64() > 0.5
			p[i].Velocity = s.rng.Float32()
		}
	})
}

// ShiftPattern rotates the pattern so step i moves to i+n, wrapping in
// both directions.
func (s *Sequencer) ShiftPattern(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.snapshot()
	size := len(src)
	next := make([]Step, size)
	for i, st := range src {
		next[((i+n)%size+size)%size] = st
	}
	s.publish(next)
}

// ProduceBlock adds the click track into [start, start+count) of dst.
func (s *Sequencer) ProduceBlock(dst *audio.Buffer, start, count int) {
	if s.reset.Swap(false) {
		s.step, s.elapsed = 0, 0
	}

	pattern := s.snapshot()
	n := len(pattern)
	if !s.playing.Load() || n == 0 || s.rate <= 0 {
		s.current.Store(int64(s.step))
		return
	}
	if s.step >= n {
		s.step = 0
	}

	rate := float64(s.rate)
	stepFrames := 60 / s.tempo.Load() / stepsPerBeat * rate
	pulse := int(pulseSeconds * rate)

	from, to := dst.Span(start, count)
	for i := from; i < to; i++ {
		if st := pattern[s.step]; st.Active && s.elapsed < pulse {
			v := st.Velocity * pulseLevel
			for _, out := range dst.Data {
				out[i] += v
			}
		}

		s.elapsed++
		if float64(s.elapsed) >= stepFrames {
			s.step = (s.step + 1) % n
			s.elapsed = 0
		}
	}

	s.current.Store(int64(s.step))
}

var _ audio.Producer = (*Sequencer)(nil)
