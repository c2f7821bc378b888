// Package transcript assembles the ordered transcript document. The
// sequencer runs one transcription job per closed chunk and holds completed
// results in a reordering buffer so records reach the document in strictly
// increasing sequence order no matter when the jobs finish.
package transcript
