// SPDX-License-Identifier: EPL-2.0

package control

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"go.uber.org/atomic"
)

// DefaultQueueSize is the event queue capacity when none is given.
const DefaultQueueSize = 64

// ApplyFunc receives a resolved function and value. It reports whether the
// function name was recognized.
type ApplyFunc func(function string, value float32) bool

type Option func(*Surface)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Surface) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithQueueSize sets the event queue capacity. Non-positive sizes keep the
// default.
func WithQueueSize(n int) Option {
	return func(s *Surface) {
		if n > 0 {
			s.queue = n
		}
	}
}

type learnTarget struct {
	function string
	lo, hi   float32
}

type Surface struct {
	mu       sync.Mutex // serializes mapping edits and learn state
	learn    *learnTarget
	mappings atomic.Pointer[[]Mapping]

	queue   int
	events  chan midi.Message
	dropped atomic.Uint64
	logger  *slog.Logger
}

func New(opts ...Option) *Surface {
	s := &Surface{queue: DefaultQueueSize, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	s.events = make(chan midi.Message, s.queue)
	s.publish(nil)

	return s
}

func (s *Surface) publish(m []Mapping) { s.mappings.Store(&m) }

// Mappings returns a copy of the table.
func (s *Surface) Mappings() []Mapping { return slices.Clone(*s.mappings.Load()) }

// AddNoteMapping maps note-on velocity on channel to function. A previous
// mapping of the same note is replaced.
func (s *Surface) AddNoteMapping(channel, note uint8, function string, lo, hi float32) error {
	return s.add(Mapping{Channel: channel, Note: int(note), CC: Unmapped, Function: function, Min: lo, Max: hi})
}

// AddCCMapping maps controller cc on channel to function. A previous mapping
// of the same controller is replaced.
func (s *Surface) AddCCMapping(channel, cc uint8, function string, lo, hi float32) error {
	return s.add(Mapping{Channel: channel, Note: Unmapped, CC: int(cc), Function: function, Min: lo, Max: hi})
}

func (s *Surface) add(m Mapping) error {
	if strings.TrimSpace(m.Function) == "" {
		return ErrNoFunction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.addLocked(m)
	return nil
}

func (s *Surface) addLocked(m Mapping) {
	next := slices.DeleteFunc(slices.Clone(*s.mappings.Load()), func(old Mapping) bool {
		return old.Channel == m.Channel && old.Note == m.Note && old.CC == m.CC
	})
	s.publish(append(next, m))
}

// RemoveMapping drops every mapping that targets function.
func (s *Surface) RemoveMapping(function string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.publish(slices.DeleteFunc(slices.Clone(*s.mappings.Load()), func(m Mapping) bool {
		return m.Function == function
	}))
}

func (s *Surface) ClearMappings() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.publish(nil)
}

// EnableLearn arms learn mode: the next note-on or controller message Drain
// sees is bound to function with the given range instead of being applied.
func (s *Surface) EnableLearn(function string, lo, hi float32) error {
	if strings.TrimSpace(function) == "" {
		return ErrNoFunction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.learn = &learnTarget{function: function, lo: lo, hi: hi}
	return nil
}

func (s *Surface) DisableLearn() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.learn = nil
}

// Learning returns the function waiting to be bound, if any.
func (s *Surface) Learning() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.learn == nil {
		return "", false
	}
	return s.learn.function, true
}

// Push queues msg without blocking. It reports false when the queue is full
// and the message was dropped.
func (s *Surface) Push(msg midi.Message) bool {
	select {
	case s.events <- msg:
		return true
	default:
		s.dropped.Inc()
		return false
	}
}

// Dropped counts messages lost to a full queue.
func (s *Surface) Dropped() uint64 { return s.dropped.Load() }

// Drain resolves every queued message and calls apply for each mapped one.
// It returns how many functions were applied.
func (s *Surface) Drain(apply ApplyFunc) int {
	applied := 0
	for {
		select {
		case msg := <-s.events:
			applied += s.handle(msg, apply)
		default:
			return applied
		}
	}
}

func (s *Surface) handle(msg midi.Message, apply ApplyFunc) int {
	var channel, key, value uint8

	switch {
	case msg.GetNoteOn(&channel, &key, &value) && value > 0:
		if s.bind(channel, int(key), Unmapped) {
			return 0
		}
		return s.dispatch(apply, value, func(m Mapping) bool { return m.matchesNote(channel, key) })

	case msg.GetControlChange(&channel, &key, &value):
		if s.bind(channel, Unmapped, int(key)) {
			return 0
		}
		return s.dispatch(apply, value, func(m Mapping) bool { return m.matchesCC(channel, key) })

	case msg.GetNoteOff(&channel, &key, &value):
		// Note mappings trigger on press only.
		return 0
	}

	return 0
}

// bind consumes msg for learn mode when it is armed.
func (s *Surface) bind(channel uint8, note, cc int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.learn == nil {
		return false
	}

	m := Mapping{Channel: channel, Note: note, CC: cc, Function: s.learn.function, Min: s.learn.lo, Max: s.learn.hi}
	s.addLocked(m)
	s.learn = nil
	s.logger.Info("learned mapping", "function", m.Function, "channel", channel, "note", note, "cc", cc)

	return true
}

func (s *Surface) dispatch(apply ApplyFunc, raw uint8, match func(Mapping) bool) int {
	applied := 0
	for _, m := range *s.mappings.Load() {
		if !match(m) {
			continue
		}
		if apply(m.Function, m.Scale(raw)) {
			applied++
		} else {
			s.logger.Warn("unknown control function", "function", m.Function)
		}
	}
	return applied
}

// Listen forwards every message from in to Push until stop is called.
func (s *Surface) Listen(in drivers.In) (stop func(), err error) {
	stop, err = midi.ListenTo(in, func(msg midi.Message, _ int32) {
		s.Push(msg)
	})
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", in, err)
	}

	s.logger.Info("listening for MIDI", "port", in.String())
	return stop, nil
}

// FindInput returns the first input port whose name contains name, ignoring
// case.
func FindInput(name string) (drivers.In, error) {
	want := strings.ToLower(name)
	for _, in := range midi.GetInPorts() {
		if strings.Contains(strings.ToLower(in.String()), want) {
			return in, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoInput, name)
}

// Run drains the queue every tick until ctx is done.
func (s *Surface) Run(ctx context.Context, tick time.Duration, apply ApplyFunc) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Drain(apply)
			return
		case <-ticker.C:
			s.Drain(apply)
		}
	}
}
