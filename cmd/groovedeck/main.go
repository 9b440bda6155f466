// SPDX-License-Identifier: EPL-2.0

// Command groovedeck runs the mixing engine on the default audio device, or
// renders it to a WAV file with -render.
//
// Settings come from GROOVEDECK_* environment variables and can be
// overridden with flags:
//
//	groovedeck -file ~/loops/drums.wav -loop -play -pattern x...x...x...x...
//	groovedeck -project set.json -midi launchkey -mappings keys.json
//	groovedeck -sample break.wav -slice-seconds 0.5 -play-slice 2 -render out.wav -seconds 4
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gordonklaus/portaudio"
	"github.com/ik5/groovedeck"
	"github.com/ik5/groovedeck/audio"
	"github.com/ik5/groovedeck/config"
	"github.com/ik5/groovedeck/control"
	"github.com/ik5/groovedeck/engine"
	"github.com/ik5/groovedeck/project"
	"github.com/ik5/groovedeck/session"
	"github.com/ik5/groovedeck/utils"
	"github.com/mattn/go-isatty"
	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

type options struct {
	cfg config.Config

	projectPath string
	savePath    string
	name        string

	file    string
	loop    bool
	play    bool
	gain    float64
	effects bool

	sample       string
	sliceSeconds float64
	playSlice    int

	tempo       float64
	pattern     string
	exportMIDI  string
	patternNote uint

	mappings  string
	listMIDI  bool
	functions bool

	render  string
	seconds float64
}

func parseFlags(args []string) (options, error) {
	o := options{cfg: config.Load()}

	fs := flag.NewFlagSet("groovedeck", flag.ContinueOnError)
	fs.IntVar(&o.cfg.SampleRate, "rate", o.cfg.SampleRate, "device sample rate in Hz")
	fs.IntVar(&o.cfg.BlockSize, "block", o.cfg.BlockSize, "frames per device callback")
	fs.Float64Var(&o.cfg.MaxLoopSeconds, "max-loop", o.cfg.MaxLoopSeconds, "looper recording capacity in seconds")
	fs.TextVar(&o.cfg.LogLevel, "log-level", o.cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&o.cfg.MIDIInput, "midi", o.cfg.MIDIInput, "substring of the MIDI input port to listen on")

	fs.StringVar(&o.projectPath, "project", "", "project file to open")
	fs.StringVar(&o.savePath, "save", "", "save the project here on exit")
	fs.StringVar(&o.name, "name", "groovedeck", "project name used by -save")

	fs.StringVar(&o.file, "file", "", "audio file for the transport")
	fs.BoolVar(&o.loop, "loop", false, "loop the transport file")
	fs.BoolVar(&o.play, "play", false, "start the transport")
	fs.Float64Var(&o.gain, "gain", 1, "transport gain")
	fs.BoolVar(&o.effects, "effects", true, "run the master effects chain")

	fs.StringVar(&o.sample, "sample", "", "audio file for the slicer")
	fs.Float64Var(&o.sliceSeconds, "slice-seconds", 0, "cut the sample into slices of this length")
	fs.IntVar(&o.playSlice, "play-slice", -1, "slice to trigger at start")

	fs.Float64Var(&o.tempo, "tempo", 0, "sequencer tempo in BPM")
	fs.StringVar(&o.pattern, "pattern", "", "sequencer steps, x for active and . for rest")
	fs.StringVar(&o.exportMIDI, "export-pattern", "", "write the sequencer pattern to this MIDI file")
	fs.UintVar(&o.patternNote, "pattern-note", 36, "MIDI note used by -export-pattern")

	fs.StringVar(&o.mappings, "mappings", "", "JSON file of MIDI mappings")
	fs.BoolVar(&o.listMIDI, "list-midi", false, "list MIDI input ports and exit")
	fs.BoolVar(&o.functions, "functions", false, "list control function names and exit")

	fs.StringVar(&o.render, "render", "", "render offline to this WAV file instead of opening a device")
	fs.Float64Var(&o.seconds, "seconds", 10, "length of -render")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.patternNote > 127 {
		return o, fmt.Errorf("-pattern-note %d is not a MIDI note", o.patternNote)
	}

	return o, nil
}

func newLogger(level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if fd := os.Stderr.Fd(); isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := newLogger(o.cfg.LogLevel)
	if err := run(o, logger); err != nil {
		logger.Error("groovedeck failed", "error", err)
		os.Exit(1)
	}
}

func run(o options, logger *slog.Logger) error {
	sess := session.New(o.cfg.SampleRate, o.cfg.BlockSize, logger)
	e := engine.New(sess,
		engine.WithLogger(logger),
		engine.WithMaxLoopSeconds(o.cfg.MaxLoopSeconds),
	)
	e.PrepareToPlay(sess.BlockSize, sess.SampleRate)

	switch {
	case o.functions:
		for _, name := range e.Functions() {
			fmt.Println(name)
		}
		return nil
	case o.listMIDI:
		defer midi.CloseDriver()
		for i, in := range midi.GetInPorts() {
			fmt.Printf("%d: %s\n", i, in.String())
		}
		return nil
	}

	if err := setup(e, o, logger); err != nil {
		return err
	}

	if o.exportMIDI != "" {
		if err := project.ExportPatternFile(o.exportMIDI, e.Snapshot().Sequencer, uint8(o.patternNote)); err != nil {
			return err
		}
		logger.Info("pattern exported", "path", o.exportMIDI)
	}

	if o.render != "" {
		if err := bounce(e, o.render, o.seconds); err != nil {
			return err
		}
		logger.Info("render written", "path", o.render, "seconds", o.seconds)
	} else {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if err := live(ctx, e, o, logger); err != nil {
			return err
		}
	}

	if o.savePath != "" {
		if err := project.SaveFile(o.savePath, e.Project(o.name)); err != nil {
			return err
		}
		logger.Info("project saved", "path", o.savePath)
	}

	return nil
}

// setup applies the project and then the per-run flags on top of it.
func setup(e *engine.Engine, o options, logger *slog.Logger) error {
	if o.projectPath != "" {
		p, err := project.LoadFile(o.projectPath)
		if err != nil {
			return err
		}
		if err := e.OpenProject(p); err != nil {
			logger.Warn("project opened with errors", "path", o.projectPath, "error", err)
		}
		logger.Info("project opened", "name", p.Name, "id", p.ID)
	}

	if o.file != "" && !e.LoadAudioFile(o.file) {
		return fmt.Errorf("%w: %s", engine.ErrFileNotLoaded, o.file)
	}
	if o.sample != "" && !e.Slicer().LoadSample(o.sample) {
		return fmt.Errorf("%w: %s", engine.ErrFileNotLoaded, o.sample)
	}

	e.SetEffectsEnabled(o.effects)
	if o.gain != 1 {
		e.SetGain(float32(o.gain))
	}
	if o.loop {
		e.SetLooping(true)
	}
	if o.play {
		e.StartPlayback()
	}

	if o.sliceSeconds > 0 {
		e.Slicer().AutoSlice(o.sliceSeconds)
	}
	if o.playSlice >= 0 {
		e.Slicer().PlaySlice(o.playSlice)
	}

	seq := e.Sequencer()
	if o.tempo > 0 {
		seq.SetTempo(o.tempo)
	}
	if steps := parsePattern(o.pattern); len(steps) > 0 {
		seq.SetSteps(len(steps))
		for i, on := range steps {
			seq.SetStepActive(i, on)
		}
		seq.Start()
	}

	return nil
}

// parsePattern reads a step string such as "x..x..x.". Any rune other than
// x or X is a rest.
func parsePattern(s string) []bool {
	var steps []bool
	for _, r := range s {
		steps = append(steps, r == 'x' || r == 'X')
	}
	return steps
}

func bounce(e *engine.Engine, path string, seconds float64) (err error) {
	path, err = session.ExpandPath(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	return groovedeck.Bounce(f, e, utils.SecondsToFrames(seconds, e.SampleRate()))
}

// live runs e on the default PortAudio device until ctx is done, with the
// control surface draining MIDI events alongside it.
func live(ctx context.Context, e *engine.Engine, o options, logger *slog.Logger) error {
	cfg := o.cfg
	surface := control.New(
		control.WithLogger(logger),
		control.WithQueueSize(cfg.EventQueue),
	)
	stop, err := connectMIDI(surface, o.mappings, cfg.MIDIInput, logger)
	if err != nil {
		return err
	}
	defer midi.CloseDriver()
	defer stop()

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}
	defer func() {
		if err := portaudio.Terminate(); err != nil {
			logger.Warn("terminating portaudio", "error", err)
		}
	}()

	sess := e.Session()
	e.PrepareToPlay(sess.BlockSize, sess.SampleRate)
	defer e.ReleaseResources()

	process := deviceCallback(e, audio.NewBuffer(2, sess.BlockSize, sess.SampleRate))

	stream, err := portaudio.OpenDefaultStream(2, 2, float64(sess.SampleRate), sess.BlockSize, process)
	if err != nil {
		logger.Warn("no input device, looper recording disabled", "error", err)
		stream, err = portaudio.OpenDefaultStream(0, 2, float64(sess.SampleRate), sess.BlockSize,
			func(out [][]float32) { process(nil, out) })
		if err != nil {
			return fmt.Errorf("opening audio stream: %w", err)
		}
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("starting audio stream: %w", err)
	}
	logger.Info("audio running",
		"sampleRate", sess.SampleRate,
		"blockSize", sess.BlockSize,
		"latency", stream.Info().OutputLatency,
	)

	surface.Run(ctx, cfg.ControlTick, e.Apply)

	if err := stream.Stop(); err != nil {
		return fmt.Errorf("stopping audio stream: %w", err)
	}
	if n := surface.Dropped(); n > 0 {
		logger.Warn("control events dropped", "count", n)
	}
	logger.Info("audio stopped")

	return nil
}

// deviceCallback copies the device input into block, renders it and copies
// the mix out. Output frames beyond the block are silenced.
func deviceCallback(e *engine.Engine, block *audio.Buffer) func(in, out [][]float32) {
	return func(in, out [][]float32) {
		if len(out) == 0 {
			return
		}
		n := min(len(out[0]), block.Frames())
		for ch, dst := range block.Data {
			if len(in) == 0 {
				clear(dst[:n])
				continue
			}
			copy(dst[:n], in[min(ch, len(in)-1)])
		}
		e.GetNextAudioBlock(block, 0, n)
		for ch, dst := range out {
			copy(dst, block.Data[min(ch, 1)][:n])
			clear(dst[n:])
		}
	}
}

// connectMIDI installs the mappings file and starts listening on the first
// input matching name. A missing port is logged, not fatal.
func connectMIDI(surface *control.Surface, mappings, name string, logger *slog.Logger) (stop func(), err error) {
	stop = func() {}
	if mappings != "" {
		if err := surface.LoadMappingsFile(mappings); err != nil {
			return stop, err
		}
	}
	if name == "" {
		return stop, nil
	}

	in, err := control.FindInput(name)
	if err != nil {
		logger.Warn("MIDI input not found", "name", name, "error", err)
		return stop, nil
	}
	return surface.Listen(in)
}
