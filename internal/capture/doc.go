// Package capture provides the audio source boundary and the capture
// session that pipes source buffers through format conversion into a chunk
// sink. The OS audio subsystem is reached through the Source interface so
// tests can substitute a synthetic producer.
package capture
