// SPDX-License-Identifier: EPL-2.0

// Package project saves and restores a session's settings.
//
// A Snapshot is the plain-data view of every component that the engine
// exports and re-applies; it does no I/O itself. Project wraps a Snapshot
// with the metadata a project file carries and handles the JSON encoding.
// ExportPatternFile writes the sequencer pattern as a Standard MIDI File.
package project
