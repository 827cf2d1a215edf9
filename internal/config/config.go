// Package config provides environment configuration helpers for
// go-headtrack commands.
package config

import (
	"os"
	"strconv"
)

// Defaults for the daemon.
const (
	DefaultHTTPPort    = "8090"
	DefaultCameraID    = 0
	DefaultCascadePath = "models/haarcascade_frontalface_default.xml"
)

// HTTPPort returns the dashboard port from HTTP_PORT or the default.
func HTTPPort() string {
	if port := os.Getenv("HTTP_PORT"); port != "" {
		return port
	}
	return DefaultHTTPPort
}

// CameraID returns the capture device index from CAMERA_ID or the default.
func CameraID() int {
	if v := os.Getenv("CAMERA_ID"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			return id
		}
	}
	return DefaultCameraID
}

// CascadePath returns the Haar cascade file from CASCADE_PATH or the default.
func CascadePath() string {
	if path := os.Getenv("CASCADE_PATH"); path != "" {
		return path
	}
	return DefaultCascadePath
}

// LogLevel returns the log level from LOG_LEVEL, defaulting to "info".
func LogLevel() string {
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		return lvl
	}
	return "info"
}

// JournalPath returns the sqlite journal path from JOURNAL_PATH.
// Empty means the journal is disabled.
func JournalPath() string {
	return os.Getenv("JOURNAL_PATH")
}
