// Package server provides the optional HTTP monitor: health, session
// status, and Prometheus metrics for an active recording.
package server
