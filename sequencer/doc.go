// SPDX-License-Identifier: EPL-2.0

// Package sequencer is a step sequencer that clicks a short pulse at the
// start of every active step. Steps are sixteenth notes at the current
// tempo.
package sequencer
