// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"log/slog"
	"sync"

	"github.com/ik5/groovedeck/audio"
	"github.com/ik5/groovedeck/effects"
	"github.com/ik5/groovedeck/looper"
	"github.com/ik5/groovedeck/sequencer"
	"github.com/ik5/groovedeck/session"
	"github.com/ik5/groovedeck/slicer"
	"github.com/ik5/groovedeck/transport"
	"go.uber.org/atomic"
)

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMaxLoopSeconds sets the looper's recording capacity.
func WithMaxLoopSeconds(seconds float64) Option {
	return func(e *Engine) { e.looperOpts = append(e.looperOpts, looper.WithMaxLoopSeconds(seconds)) }
}

// WithSequencerOptions passes options through to the sequencer.
func WithSequencerOptions(opts ...sequencer.Option) Option {
	return func(e *Engine) { e.sequencerOpts = append(e.sequencerOpts, opts...) }
}

type Engine struct {
	sess   *session.Session
	logger *slog.Logger

	looperOpts    []looper.Option
	sequencerOpts []sequencer.Option

	transport *transport.Transport
	looper    *looper.Looper
	sequencer *sequencer.Sequencer
	slicer    *slicer.Slicer
	effects   *effects.Processor

	// Additive producers in mixing order, after the transport.
	layers []audio.Producer

	rate atomic.Int64

	mu       sync.Mutex // serializes file loads and restores
	fileName string
	funcs    map[string]func(float32)
}

// New builds an engine for the device session sess. The engine is not
// usable for audio until PrepareToPlay.
func New(sess *session.Session, opts ...Option) *Engine {
	if sess == nil {
		sess = session.New(0, 0, nil)
	}

	e := &Engine{sess: sess, logger: sess.Logger}
	for _, opt := range opts {
		opt(e)
	}

	e.transport = transport.New()
	e.looper = looper.New(e.looperOpts...)
	e.sequencer = sequencer.New(e.sequencerOpts...)
	e.slicer = slicer.New(sess,
		slicer.WithSampleRate(sess.SampleRate),
		slicer.WithLogger(e.logger),
	)
	e.effects = effects.NewProcessor()
	e.layers = []audio.Producer{e.looper, e.sequencer, e.slicer}
	e.funcs = e.functionTable()

	return e
}

func (e *Engine) Session() *session.Session       { return e.sess }
func (e *Engine) Transport() *transport.Transport { return e.transport }
func (e *Engine) Looper() *looper.Looper          { return e.looper }
func (e *Engine) Sequencer() *sequencer.Sequencer { return e.sequencer }
func (e *Engine) Slicer() *slicer.Slicer          { return e.slicer }
func (e *Engine) Effects() *effects.Processor     { return e.effects }

// SampleRate is the prepared device rate, or the session rate before the
// first PrepareToPlay.
func (e *Engine) SampleRate() int {
	if r := int(e.rate.Load()); r > 0 {
		return r
	}
	return e.sess.SampleRate
}

// PrepareToPlay configures every component for the device. It must run on
// the audio goroutine before the first block and after every device change.
func (e *Engine) PrepareToPlay(blockSize, sampleRate int) {
	if sampleRate > 0 {
		e.rate.Store(int64(sampleRate))
	}

	e.transport.Prepare(blockSize, sampleRate)
	for _, p := range e.layers {
		p.Prepare(blockSize, sampleRate)
	}
	e.effects.Prepare(blockSize, sampleRate)
}

// GetNextAudioBlock renders frames [start, start+count) of dst. On entry
// the range holds the live input, which the looper records from; on return
// it holds the mix. The range is clipped to dst.
func (e *Engine) GetNextAudioBlock(dst *audio.Buffer, start, count int) {
	if dst.Channels() == 0 {
		return
	}
	from, to := dst.Span(start, count)
	n := to - from
	if n == 0 {
		return
	}

	e.looper.Capture(dst, from, n)
	e.transport.ProduceBlock(dst, from, n)
	for _, p := range e.layers {
		p.ProduceBlock(dst, from, n)
	}
	e.effects.ProcessBlock(dst, from, n)
}

// ReleaseResources frees per-device state once the device stops. Loaded
// files and settings survive.
func (e *Engine) ReleaseResources() {
	e.transport.Release()
	for _, p := range e.layers {
		p.Release()
	}
	e.effects.Release()
}

// LoadAudioFile decodes path for the transport, converted to the device
// rate, and publishes it stopped at the start. On failure the previous
// file is unloaded and false is returned.
func (e *Engine) LoadAudioFile(path string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	buf, err := e.sess.Decode(path)
	if err == nil {
		buf, err = audio.Resample(buf, e.SampleRate())
	}
	if err != nil {
		e.transport.Unload()
		e.fileName = ""
		e.logger.Warn("loading audio file failed", "path", path, "error", err)
		return false
	}

	e.transport.Load(buf)
	e.fileName = path
	e.logger.Info("audio file loaded",
		"path", path,
		"seconds", buf.Seconds(),
		"sampleRate", buf.SampleRate,
	)

	return true
}

func (e *Engine) UnloadAudioFile() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.transport.Unload()
	e.fileName = ""
}

// AudioFile is the path of the loaded transport file, empty when none.
func (e *Engine) AudioFile() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.fileName
}

func (e *Engine) StartPlayback() { e.transport.Start() }
func (e *Engine) StopPlayback()  { e.transport.Stop() }

// SetLooping is ignored while no file is loaded.
func (e *Engine) SetLooping(looping bool) { e.transport.SetLooping(looping) }

// SetGain scales the transport output only.
func (e *Engine) SetGain(gain float32) { e.transport.SetGain(gain) }

func (e *Engine) SetEffectsEnabled(enabled bool) { e.effects.SetEffectEnabled(enabled) }
func (e *Engine) EffectsEnabled() bool           { return e.effects.IsEffectEnabled() }
