// SPDX-License-Identifier: EPL-2.0

// Package slicer cuts one loaded sample into named regions and plays a
// selected region once.
//
// Slices are kept in seconds and converted to frames at play time, so they
// survive a change of device rate.
package slicer
