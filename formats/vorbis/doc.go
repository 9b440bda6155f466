// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis streams with
// github.com/jfreymuth/oggvorbis. Samples come out of the codec as float32
// and are passed through without conversion.
package vorbis
