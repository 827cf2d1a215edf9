// Package capture provides frame sources for headtrack sessions: a local
// gocv webcam device and a remote MJPEG-over-websocket client.
package capture

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/visionkit/go-headtrack/internal/log"
)

// Device is a local webcam frame source. It satisfies both
// headtrack.FrameSource and detection.Source.
type Device struct {
	mu     sync.Mutex
	cap    *gocv.VideoCapture
	probe  gocv.Mat
	width  int
	height int
	closed bool
}

// Open opens the capture device with the given index and configuration.
func Open(deviceID int, cfg Config) (*Device, error) {
	cap, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("opening capture device %d: %w", deviceID, err)
	}

	cap.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	if cfg.Framerate > 0 {
		cap.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	}

	d := &Device{
		cap:    cap,
		probe:  gocv.NewMat(),
		width:  int(cap.Get(gocv.VideoCaptureFrameWidth)),
		height: int(cap.Get(gocv.VideoCaptureFrameHeight)),
	}
	log.Info("capture device open", "device", deviceID, "width", d.width, "height", d.height)
	return d, nil
}

// Bounds returns the frame dimensions in pixels.
func (d *Device) Bounds() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.width, d.height
}

// Read fills mat with the next frame.
func (d *Device) Read(mat *gocv.Mat) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	return d.cap.Read(mat)
}

// ProbeSignal reads a frame and returns its mean brightness. Zero means
// the device is not yet delivering usable frames.
func (d *Device) ProbeSignal() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || !d.cap.Read(&d.probe) || d.probe.Empty() {
		return 0
	}
	mean := d.probe.Mean()
	return (mean.Val1 + mean.Val2 + mean.Val3) / 3
}

// CaptureJPEG encodes the next frame as JPEG, for dashboard previews.
func (d *Device) CaptureJPEG() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("device is closed")
	}
	if !d.cap.Read(&d.probe) || d.probe.Empty() {
		return nil, fmt.Errorf("reading frame")
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, d.probe)
	if err != nil {
		return nil, fmt.Errorf("encoding frame: %w", err)
	}
	defer buf.Close()
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// Apply pushes a changed configuration to the device.
func (d *Device) Apply(cfg Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("device is closed")
	}
	d.cap.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	d.cap.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	if cfg.Framerate > 0 {
		d.cap.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	}
	d.width = int(d.cap.Get(gocv.VideoCaptureFrameWidth))
	d.height = int(d.cap.Get(gocv.VideoCaptureFrameHeight))
	return nil
}

// Close releases the device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.probe.Close()
	return d.cap.Close()
}
