// SPDX-License-Identifier: EPL-2.0

// Package transport plays one decoded audio file: start, stop, optional
// looping and an output gain. It is the only producer that overwrites its
// block range, so it always runs first.
package transport
