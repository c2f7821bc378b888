// Package record manages the chunk lifecycle: the rotator swaps the active
// chunk on a fixed timer, closing the finished chunk file and handing it to
// transcription before the next capture session begins.
package record
