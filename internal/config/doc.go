// Package config handles loading and validation of the service configuration.
// Configuration is loaded from YAML files with sensible defaults for a local
// recording session.
package config
