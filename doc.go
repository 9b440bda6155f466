// SPDX-License-Identifier: EPL-2.0

// Package groovedeck is a real-time mixing core for live performance: a file
// transport, a live looper, a step sequencer and a sample slicer summed into
// one stereo block and run through a master effects chain.
//
// # Architecture
//
// The engine subpackage owns one instance of every component and renders
// them in a fixed order on each device callback:
//
//  1. the looper captures the live input when it is recording
//  2. the transport overwrites the block with the file signal
//  3. looper, sequencer and slicer add into the block
//  4. the effects chain processes the block in place
//
// Every component implements audio.Producer. Control-side calls publish
// immutable snapshots that the audio goroutine picks up at its next block
// boundary, so the block path never locks, allocates or logs.
//
// # Quick Start
//
//	sess := session.New(44100, 512, logger)
//	e := engine.New(sess, engine.WithLogger(logger))
//	e.PrepareToPlay(sess.BlockSize, sess.SampleRate)
//
//	if !e.LoadAudioFile("~/loops/drums.wav") {
//	    // the failure has been logged
//	}
//	e.SetLooping(true)
//	e.StartPlayback()
//
//	// in the device callback
//	e.GetNextAudioBlock(block, 0, block.Frames())
//
// # Offline Rendering
//
// Render drives an engine without a device and Bounce writes the result as
// a 16-bit WAV file:
//
//	f, _ := os.Create("bounce.wav")
//	defer f.Close()
//	err := groovedeck.Bounce(f, e, 10*44100)
//
// # Supported Formats
//
// Files are decoded through session.Session, which picks a decoder by
// extension:
//   - WAV (PCM 8/16/24/32-bit) via formats/wav
//   - MP3 via formats/mp3
//   - Ogg Vorbis via formats/vorbis
//   - AIFF via formats/aiff
//
// # Projects and Control
//
// The project subpackage saves and loads engine snapshots as JSON and exports
// sequencer patterns as standard MIDI files. The control subpackage maps MIDI
// notes and controllers onto engine functions by name.
package groovedeck
