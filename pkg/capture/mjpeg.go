package capture

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/visionkit/go-headtrack/internal/log"
)

// MJPEGSource consumes JPEG frames pushed over a websocket, for tracking
// against a remote camera (for example another daemon's /ws/camera
// stream). It satisfies the same source contracts as Device.
type MJPEGSource struct {
	url string
	ws  *websocket.Conn

	mu     sync.RWMutex
	latest []byte
	width  int
	height int
	closed bool
}

// DialMJPEG connects to a websocket MJPEG stream and waits for the
// first frame to learn the stream dimensions.
func DialMJPEG(url string, timeout time.Duration) (*MJPEGSource, error) {
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	ws, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", url, err)
	}

	s := &MJPEGSource{url: url, ws: ws}

	if err := ws.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		ws.Close()
		return nil, err
	}
	_, first, err := ws.ReadMessage()
	if err != nil {
		ws.Close()
		return nil, fmt.Errorf("waiting for first frame: %w", err)
	}
	ws.SetReadDeadline(time.Time{})

	frame, err := gocv.IMDecode(first, gocv.IMReadColor)
	if err != nil || frame.Empty() {
		ws.Close()
		return nil, fmt.Errorf("decoding first frame: %w", err)
	}
	s.width = frame.Cols()
	s.height = frame.Rows()
	s.latest = first
	frame.Close()

	go s.readPump()
	log.Info("mjpeg source connected", "url", url, "width", s.width, "height", s.height)
	return s, nil
}

// readPump keeps the newest frame; slow consumers see only the latest.
func (s *MJPEGSource) readPump() {
	for {
		_, data, err := s.ws.ReadMessage()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if !closed {
				log.Warn("mjpeg stream ended", "url", s.url, "error", err)
			}
			return
		}
		s.mu.Lock()
		s.latest = data
		s.mu.Unlock()
	}
}

// Bounds returns the stream dimensions in pixels.
func (s *MJPEGSource) Bounds() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width, s.height
}

// Read decodes the newest frame into mat.
func (s *MJPEGSource) Read(mat *gocv.Mat) bool {
	s.mu.RLock()
	data := s.latest
	s.mu.RUnlock()
	if data == nil {
		return false
	}

	frame, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil || frame.Empty() {
		return false
	}
	defer frame.Close()
	frame.CopyTo(mat)
	return true
}

// ProbeSignal returns the mean brightness of the newest frame.
func (s *MJPEGSource) ProbeSignal() float64 {
	s.mu.RLock()
	data := s.latest
	s.mu.RUnlock()
	if data == nil {
		return 0
	}

	frame, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil || frame.Empty() {
		return 0
	}
	defer frame.Close()
	mean := frame.Mean()
	return (mean.Val1 + mean.Val2 + mean.Val3) / 3
}

// CaptureJPEG returns the newest frame as received.
func (s *MJPEGSource) CaptureJPEG() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, fmt.Errorf("no frame received yet")
	}
	out := make([]byte, len(s.latest))
	copy(out, s.latest)
	return out, nil
}

// Close shuts the stream down.
func (s *MJPEGSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.ws.Close()
}
