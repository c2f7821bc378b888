// Package session implements the recording session state machine: starting
// a meeting, persisting its state record for other processes, reacting to
// stop requests, and finalizing the transcript and merged recording.
package session
