// SPDX-License-Identifier: EPL-2.0

package groovedeck

import "errors"

var ErrNoFrames = errors.New("nothing to render")
