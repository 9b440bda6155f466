// SPDX-License-Identifier: EPL-2.0

package wav

import "errors"

var (
	ErrNotWavFile        = errors.New("not a WAV file")
	ErrUnsupportedFormat = errors.New("only integer PCM WAV is supported")
	ErrUnknownBitDepth   = errors.New("unknown WAV bit depth")
	ErrNoChannels        = errors.New("WAV stream has no channels")
)
