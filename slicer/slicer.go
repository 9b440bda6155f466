// SPDX-License-Identifier: EPL-2.0

package slicer

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/ik5/groovedeck/audio"
	"github.com/ik5/groovedeck/utils"
	"go.uber.org/atomic"
)

const (
	noSlice = -1

	transientWindow    = 1024
	transientThreshold = 0.1
)

// Loader decodes a file into a native-rate buffer. session.Session is the
// usual implementation.
type Loader interface {
	Decode(path string) (*audio.Buffer, error)
}

// Slice is a region of the sample in seconds. End may run past the sample;
// playback stops at the last frame.
type Slice struct {
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Name   string  `json:"name"`
	Active bool    `json:"active"`
}

// Sample is the published sample: the buffer at the device rate plus the
// length measured at the file's own rate.
type Sample struct {
	Buffer *audio.Buffer
	Path   string
	Length float64
}

type Option func(*Slicer)

// WithSampleRate sets the rate samples are converted to before the first
// Prepare.
func WithSampleRate(rate int) Option {
	return func(s *Slicer) { s.rate.Store(int64(max(rate, 0))) }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Slicer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRand sets the source RandomizeSliceOrder draws from.
func WithRand(r *rand.Rand) Option {
	return func(s *Slicer) {
		if r != nil {
			s.rng = r
		}
	}
}

type Slicer struct {
	mu     sync.Mutex // serializes control-side edits and guards rng
	loader Loader
	logger *slog.Logger
	rng    *rand.Rand

	sample  atomic.Pointer[Sample]
	slices  atomic.Pointer[[]Slice]
	active  atomic.Int64
	playing atomic.Bool
	gain    atomic.Float32
	restart atomic.Bool
	rate    atomic.Int64

	cursor int
}

// New returns an empty slicer. loader may be nil when samples only arrive
// through LoadBuffer.
func New(loader Loader, opts ...Option) *Slicer {
	s := &Slicer{loader: loader, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	s.gain.Store(1)
	s.active.Store(noSlice)
	s.publish(nil)

	return s
}

func (s *Slicer) publish(list []Slice) { s.slices.Store(&list) }
func (s *Slicer) snapshot() []Slice    { return *s.slices.Load() }

// Prepare records the device rate for later loads. A sample already loaded
// at another rate is not converted again.
func (s *Slicer) Prepare(_, sampleRate int) {
	if sampleRate > 0 {
		s.rate.Store(int64(sampleRate))
	}
}

// Release drops the sample buffer. Slices are kept.
func (s *Slicer) Release() {
	s.playing.Store(false)
	s.sample.Store(nil)
}

// LoadSample decodes path through the loader. On failure the current sample
// and slices are kept.
func (s *Slicer) LoadSample(path string) bool {
	if err := s.load(path); err != nil {
		s.logger.Warn("loading sample failed", "path", path, "error", err)
		return false
	}

	s.logger.Info("sample loaded", "path", path, "seconds", s.SampleLength())
	return true
}

func (s *Slicer) load(path string) error {
	if s.loader == nil {
		return ErrNoLoader
	}

	buf, err := s.loader.Decode(path)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}

	return s.set(buf, path)
}

// LoadBuffer publishes buf as the sample. buf is copied when it has to be
// converted and must not be modified afterwards otherwise.
func (s *Slicer) LoadBuffer(buf *audio.Buffer) error {
	return s.set(buf, "")
}

func (s *Slicer) set(buf *audio.Buffer, path string) error {
	if buf.Frames() == 0 || buf.SampleRate <= 0 {
		return ErrEmptySample
	}
	length := buf.Seconds()

	stereo, err := audio.ToStereo(buf)
	if err != nil {
		return err
	}
	if rate := int(s.rate.Load()); rate > 0 {
		if stereo, err = audio.Resample(stereo, rate); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.playing.Store(false)
	s.sample.Store(&Sample{Buffer: stereo, Path: path, Length: length})
	s.restart.Store(true)

	return nil
}

// UnloadSample drops the sample and every slice.
func (s *Slicer) UnloadSample() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sample.Store(nil)
	s.clearLocked()
}

// Sample returns the loaded sample, nil when there is none.
func (s *Slicer) Sample() *Sample { return s.sample.Load() }

// SampleLength is the sample's duration in seconds, 0 when unloaded.
func (s *Slicer) SampleLength() float64 {
	if smp := s.sample.Load(); smp != nil {
		return smp.Length
	}
	return 0
}

// AutoSlice cuts the sample into windows of seconds; the last one is cut
// short at the sample end.
func (s *Slicer) AutoSlice(seconds float64) {
	s.grid(seconds, "Slice")
}

// SliceAtBeats cuts one slice per beat at bpm.
func (s *Slicer) SliceAtBeats(bpm float64) {
	if bpm <= 0 || math.IsNaN(bpm) {
		s.ClearSlices()
		return
	}
	s.grid(60/bpm, "Beat")
}

func (s *Slicer) grid(width float64, prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked()

	length := s.SampleLength()
	if length <= 0 || width <= 0 || math.IsNaN(width) || math.IsInf(width, 0) {
		return
	}

	// A slice shorter than one frame cannot be played.
	count := math.Ceil(length / width)
	if math.IsInf(count, 0) || count > float64(s.sample.Load().Buffer.Frames()) {
		return
	}

	n := int(count)
	if n > 1 && float64(n-1)*width >= length {
		n--
	}
	list := make([]Slice, 0, n)
	for i := range n {
		list = append(list, Slice{
			Start:  float64(i) * width,
			End:    min(float64(i+1)*width, length),
			Name:   fmt.Sprintf("%s %d", prefix, i+1),
			Active: true,
		})
	}
	list[n-1].End = length

	s.publish(list)
}

// SliceAtTransients marks a boundary at every 1024-frame window of the left
// channel whose mean energy exceeds sensitivity*0.1 and slices between
// consecutive boundaries. The first and last windows are never marked.
func (s *Slicer) SliceAtTransients(sensitivity float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked()

	smp := s.sample.Load()
	if smp == nil {
		return
	}

	left := smp.Buffer.Data[0]
	rate := float64(smp.Buffer.SampleRate)
	threshold := sensitivity * transientThreshold

	var marks []int
	for w := transientWindow; w < len(left)-transientWindow; w += transientWindow {
		var energy float64
		for _, v := range left[w : w+transientWindow] {
			energy += float64(v) * float64(v)
		}
		if energy/transientWindow > threshold {
			marks = append(marks, w)
		}
	}

	list := make([]Slice, 0, len(marks))
	for i, m := range marks {
		end := smp.Length
		if i+1 < len(marks) {
			end = float64(marks[i+1]) / rate
		}
		list = append(list, Slice{
			Start:  float64(m) / rate,
			End:    end,
			Name:   fmt.Sprintf("Transient %d", i+1),
			Active: true,
		})
	}

	s.publish(list)
}

// AddSlice appends a slice. Bounds with start < 0 or end <= start are
// ignored; an empty name becomes "Slice N".
func (s *Slicer) AddSlice(start, end float64, name string) {
	if start < 0 || !(end > start) || math.IsInf(end, 0) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snapshot()
	if name == "" {
		name = fmt.Sprintf("Slice %d", len(cur)+1)
	}
	s.publish(append(slices.Clone(cur), Slice{Start: start, End: end, Name: name, Active: true}))
}

// SetSlices replaces the list. Entries with invalid bounds are dropped and
// unnamed ones get "Slice N".
func (s *Slicer) SetSlices(list []Slice) {
	next := make([]Slice, 0, len(list))
	for _, sl := range list {
		if sl.Start < 0 || !(sl.End > sl.Start) || math.IsInf(sl.End, 0) {
			continue
		}
		if sl.Name == "" {
			sl.Name = fmt.Sprintf("Slice %d", len(next)+1)
		}
		next = append(next, sl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.playing.Store(false)
	s.active.Store(noSlice)
	s.publish(next)
}

// RemoveSlice deletes slice i. The playing slice keeps playing when an
// earlier one is removed; removing it stops playback.
func (s *Slicer) RemoveSlice(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snapshot()
	if i < 0 || i >= len(cur) {
		return
	}

	switch active := int(s.active.Load()); {
	case active == i:
		s.playing.Store(false)
		s.active.Store(noSlice)
	case active > i:
		s.active.Store(int64(active - 1))
	}
	s.publish(slices.Delete(slices.Clone(cur), i, i+1))
}

// ClearSlices removes every slice and stops playback.
func (s *Slicer) ClearSlices() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked()
}

func (s *Slicer) clearLocked() {
	s.playing.Store(false)
	s.active.Store(noSlice)
	s.publish(nil)
}

// Slice returns slice i, or the zero Slice when i is out of range.
func (s *Slicer) Slice(i int) Slice {
	list := s.snapshot()
	if i < 0 || i >= len(list) {
		return Slice{}
	}
	return list[i]
}

// Slices returns a copy of the slice list.
func (s *Slicer) Slices() []Slice { return slices.Clone(s.snapshot()) }

func (s *Slicer) NumSlices() int { return len(s.snapshot()) }

// SetSliceActive mutes or unmutes slice i.
func (s *Slicer) SetSliceActive(i int, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snapshot()
	if i < 0 || i >= len(cur) {
		return
	}
	next := slices.Clone(cur)
	next[i].Active = active
	s.publish(next)
}

// PlaySlice plays slice i from its start. Out-of-range indices are ignored.
func (s *Slicer) PlaySlice(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.snapshot()) {
		return
	}
	s.active.Store(int64(i))
	s.restart.Store(true)
	s.playing.Store(true)
}

func (s *Slicer) StopSlice() { s.playing.Store(false) }

func (s *Slicer) IsPlaying() bool { return s.playing.Load() }

// ActiveSlice is the index PlaySlice selected, -1 for none.
func (s *Slicer) ActiveSlice() int { return int(s.active.Load()) }

// SetSliceGain sets the output gain. The gain is shared by every slice; i
// only has to name an existing one.
func (s *Slicer) SetSliceGain(i int, gain float32) {
	if i < 0 || i >= s.NumSlices() {
		return
	}
	s.gain.Store(gain)
}

// SetGain sets the output gain directly.
func (s *Slicer) SetGain(gain float32) { s.gain.Store(gain) }
func (s *Slicer) Gain() float32        { return s.gain.Load() }

// SetSlicePitch is accepted for API compatibility and has no effect.
func (s *Slicer) SetSlicePitch(int, float32) {}

// SetSliceSpeed is accepted for API compatibility and has no effect.
func (s *Slicer) SetSliceSpeed(int, float32) {}

// RandomizeSliceOrder shuffles the list. The active index is not remapped.
func (s *Slicer) RandomizeSliceOrder() {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := slices.Clone(s.snapshot())
	s.rng.Shuffle(len(next), func(i, j int) { next[i], next[j] = next[j], next[i] })
	s.publish(next)
}

// ReverseSliceOrder reverses the list. The active index is not remapped.
func (s *Slicer) ReverseSliceOrder() {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := slices.Clone(s.snapshot())
	slices.Reverse(next)
	s.publish(next)
}

// ProduceBlock adds the playing slice into [start, start+count) of dst. The
// slice plays once; frames past its end are silent.
func (s *Slicer) ProduceBlock(dst *audio.Buffer, start, count int) {
	if s.restart.Swap(false) {
		s.cursor = 0
	}

	smp := s.sample.Load()
	list := s.snapshot()
	idx := int(s.active.Load())
	if !s.playing.Load() || smp == nil || idx < 0 || idx >= len(list) || !list[idx].Active {
		return
	}

	buf := smp.Buffer
	first := utils.SecondsToFrames(list[idx].Start, buf.SampleRate)
	last := min(utils.SecondsToFrames(list[idx].End, buf.SampleRate), buf.Frames())
	span := max(last-first, 0)
	gain := s.gain.Load()

	from, to := dst.Span(start, count)
	for i := from; i < to && s.cursor < span; i++ {
		f := first + s.cursor
		for ch, out := range dst.Data {
			out[i] += buf.Data[min(ch, len(buf.Data)-1)][f] * gain
		}
		s.cursor++
	}
}

var _ audio.Producer = (*Slicer)(nil)
