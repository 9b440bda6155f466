// SPDX-License-Identifier: EPL-2.0

package audio

// Producer is anything the engine can pull one block from.
//
// Prepare is called on the audio goroutine before the first block and after
// every device change. ProduceBlock writes frames [start, start+count) of
// dst and must not allocate, block or log. The transport overwrites the
// range; every other producer adds to it.
type Producer interface {
	Prepare(blockSize, sampleRate int)
	ProduceBlock(dst *Buffer, start, count int)
	Release()
}
