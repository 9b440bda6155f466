// SPDX-License-Identifier: EPL-2.0

package engine

import "errors"

var ErrFileNotLoaded = errors.New("file not loaded")
