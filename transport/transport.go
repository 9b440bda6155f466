// SPDX-License-Identifier: EPL-2.0

package transport

import (
	"github.com/ik5/groovedeck/audio"
	"github.com/ik5/groovedeck/utils"
	"go.uber.org/atomic"
)

const noSeek = -1

// Transport is the file player. Control methods are safe from any goroutine;
// Prepare, ProduceBlock and Release belong to the audio goroutine.
type Transport struct {
	file    atomic.Pointer[audio.Buffer]
	gain    atomic.Float32
	looping atomic.Bool
	playing atomic.Bool
	seek    atomic.Int64
	pos     atomic.Int64

	cursor int
}

func New() *Transport {
	t := &Transport{}
	t.gain.Store(1)
	t.seek.Store(noSeek)

	return t
}

// Prepare has nothing to build; files arrive already at the device rate.
func (t *Transport) Prepare(_, _ int) {}

// Release drops the cursor. The loaded file survives so playback can resume
// after the device comes back.
func (t *Transport) Release() {
	t.cursor = 0
	t.pos.Store(0)
}

// Load publishes buf at frame 0, stopped. buf must not be modified
// afterwards.
func (t *Transport) Load(buf *audio.Buffer) {
	t.playing.Store(false)
	t.file.Store(buf)
	t.seek.Store(0)
	t.pos.Store(0)
}

func (t *Transport) Unload() {
	t.playing.Store(false)
	t.looping.Store(false)
	t.file.Store(nil)
	t.seek.Store(0)
	t.pos.Store(0)
}

func (t *Transport) Loaded() bool { return t.file.Load() != nil }

// File returns the published buffer, nil when nothing is loaded.
func (t *Transport) File() *audio.Buffer { return t.file.Load() }

// Start plays from the current position, or from the top once the file has
// played out.
func (t *Transport) Start() {
	buf := t.file.Load()
	if buf == nil {
		return
	}
	if t.pos.Load() >= int64(buf.Frames()) {
		t.seek.Store(0)
	}
	t.playing.Store(true)
}

func (t *Transport) Stop() { t.playing.Store(false) }

func (t *Transport) IsPlaying() bool { return t.playing.Load() }

// SetLooping is ignored while no file is loaded.
func (t *Transport) SetLooping(looping bool) {
	if t.file.Load() == nil {
		return
	}
	t.looping.Store(looping)
}

func (t *Transport) IsLooping() bool { return t.looping.Load() }

func (t *Transport) SetGain(gain float32) { t.gain.Store(gain) }
func (t *Transport) Gain() float32        { return t.gain.Load() }

// Seek moves the play position to seconds, applied at the next block.
func (t *Transport) Seek(seconds float64) {
	buf := t.file.Load()
	if buf == nil {
		return
	}
	frame := min(utils.SecondsToFrames(seconds, buf.SampleRate), buf.Frames())
	t.seek.Store(int64(frame))
	t.pos.Store(int64(frame))
}

// Position is the play position in seconds as of the last block.
func (t *Transport) Position() float64 {
	buf := t.file.Load()
	if buf == nil || buf.SampleRate <= 0 {
		return 0
	}
	return float64(t.pos.Load()) / float64(buf.SampleRate)
}

// Length is the loaded file's duration in seconds.
func (t *Transport) Length() float64 { return t.file.Load().Seconds() }

// ProduceBlock overwrites [start, start+count) of dst with the file signal,
// or silence while stopped. Reaching the end wraps when looping and stops
// otherwise.
func (t *Transport) ProduceBlock(dst *audio.Buffer, start, count int) {
	from, to := dst.Span(start, count)
	dst.ClearRange(from, to-from)

	if s := t.seek.Swap(noSeek); s >= 0 {
		t.cursor = int(s)
	}

	buf := t.file.Load()
	if buf == nil || !t.playing.Load() {
		t.pos.Store(int64(t.cursor))
		return
	}

	frames := buf.Frames()
	channels := buf.Channels()
	gain := t.gain.Load()
	looping := t.looping.Load()

	for i := from; i < to; i++ {
		if t.cursor >= frames {
			if !looping || frames == 0 {
				t.playing.Store(false)
				break
			}
			t.cursor = 0
		}
		for ch, out := range dst.Data {
			out[i] = buf.Data[min(ch, channels-1)][t.cursor] * gain
		}
		t.cursor++
	}

	t.pos.Store(int64(t.cursor))
}

var _ audio.Producer = (*Transport)(nil)
