// SPDX-License-Identifier: EPL-2.0

package slicer

import "errors"

var (
	ErrNoLoader    = errors.New("slicer: no loader configured")
	ErrEmptySample = errors.New("slicer: sample has no frames")
)
