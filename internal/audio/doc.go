// Package audio handles PCM format conversion and WAV file I/O.
// It converts arbitrary-format capture buffers into the canonical format
// (mono, 16-bit, fixed sample rate) and streams canonical samples into
// chunk files with a header patched on close.
package audio
