// SPDX-License-Identifier: EPL-2.0

package control

import "errors"

var (
	ErrNoFunction     = errors.New("control: mapping needs a function name")
	ErrNoInput        = errors.New("control: no matching MIDI input port")
	ErrInvalidMapping = errors.New("control: invalid mapping")
)
