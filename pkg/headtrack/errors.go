package headtrack

import "errors"

var (
	// ErrNotReady is returned by Init when the frame source has no
	// drawable surface (zero dimensions).
	ErrNotReady = errors.New("headtrack: frame source not ready")

	// ErrInitialized is returned by Init when the session has already
	// left the uninitialized phase. Stopped sessions are terminal; build
	// a new one to resume.
	ErrInitialized = errors.New("headtrack: session already initialized")

	// ErrNoTracker is returned by Init when no tracker factory is
	// configured.
	ErrNoTracker = errors.New("headtrack: no tracker factory configured")
)
