// SPDX-License-Identifier: EPL-2.0

package session

import "errors"

var ErrUnsupportedFormat = errors.New("no decoder registered for format")
