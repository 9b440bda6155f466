// SPDX-License-Identifier: EPL-2.0

// Package control turns MIDI note and controller messages into named engine
// functions.
//
// Messages are queued with Push from whatever goroutine receives them, then
// resolved against the mapping table by Drain on the control goroutine.
// The queue is bounded; when it is full new messages are dropped.
package control
