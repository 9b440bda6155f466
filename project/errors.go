// SPDX-License-Identifier: EPL-2.0

package project

import "errors"

var (
	ErrUnsupportedVersion = errors.New("project: unsupported file version")
	ErrMismatchedArrays   = errors.New("project: parallel arrays differ in length")
	ErrEmptyPattern       = errors.New("project: pattern has no steps")
	ErrInvalidID          = errors.New("project: malformed project id")
)
