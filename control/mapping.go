// SPDX-License-Identifier: EPL-2.0

package control

// Unmapped marks the Note or CC field a mapping does not listen to.
const Unmapped = -1

// Mapping routes one note or controller on a channel to a named function.
// Exactly one of Note and CC is set; the other is Unmapped. The 0..127
// input is scaled into [Min, Max].
type Mapping struct {
	Channel  uint8   `json:"channel"`
	Note     int     `json:"note"`
	CC       int     `json:"cc"`
	Function string  `json:"function"`
	Min      float32 `json:"min"`
	Max      float32 `json:"max"`
}

// Scale maps a raw 7-bit value into the mapping's range.
func (m Mapping) Scale(raw uint8) float32 {
	return m.Min + (m.Max-m.Min)*float32(min(raw, 127))/127
}

func (m Mapping) matchesNote(channel, note uint8) bool {
	return m.Note != Unmapped && m.Channel == channel && m.Note == int(note)
}

func (m Mapping) matchesCC(channel, cc uint8) bool {
	return m.CC != Unmapped && m.Channel == channel && m.CC == int(cc)
}
