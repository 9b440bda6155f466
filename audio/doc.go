// SPDX-License-Identifier: EPL-2.0

// Package audio holds the sample containers and streaming stages the rest of
// groovedeck is built on.
//
// Two shapes of audio move through the module:
//
//   - Source is a pull stream of interleaved float32 samples. Decoders return
//     one, and stages such as Resampler and StereoMixer wrap one.
//   - Buffer is a whole, deinterleaved clip indexed [channel][frame]. It is
//     what the real-time producers play from.
//
// ReadAll turns a Source into a Buffer and Buffer.Source goes the other way,
// so conversions are written once as streaming stages:
//
//	src, _ := registry.Get("wav")
//	stream, _ := src.Decode(f)
//	buf, err := audio.ReadAll(audio.NewStereoMixer(stream))
//	if err != nil {
//	    return err
//	}
//	buf, err = audio.Resample(buf, 48000)
//
// # Producers
//
// A Producer renders one block into a shared stereo Buffer. Prepare runs
// before playback, ProduceBlock runs once per device callback and Release
// frees what Prepare allocated. ProduceBlock must not allocate, block or log.
//
// # Sample format
//
// Samples are float32 in [-1, 1]. Intermediate sums may leave that range;
// clipping happens only when converting to integer PCM.
//
// # End of stream
//
// ReadSamples returns io.EOF when the stream is drained, possibly together
// with a final partial read.
package audio
