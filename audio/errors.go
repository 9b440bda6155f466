// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidDstSize = errors.New("dst size must be multiple of channels")
	ErrNoChannels     = errors.New("source reports no channels")
	ErrInvalidRate    = errors.New("sample rate must be positive")
	ErrEmptyStream    = errors.New("stream contains no samples")
)
