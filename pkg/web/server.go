// Package web provides a real-time dashboard for a tracking session
package web

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/visionkit/go-headtrack/internal/log"
	"github.com/visionkit/go-headtrack/pkg/capture"
	"github.com/visionkit/go-headtrack/pkg/headtrack"
	"github.com/visionkit/go-headtrack/pkg/hub"
)

// SessionView is the dashboard's snapshot of the tracking session.
type SessionView struct {
	Phase     string   `json:"phase"`
	Status    string   `json:"status"`
	FOV       *float64 `json:"fov"`
	Midpoint  *Point   `json:"midpoint"`
	Position  *Pose    `json:"position"`
	UpdatedAt string   `json:"updated_at"`
}

// Point is a frame-space coordinate pair.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pose is a camera-relative head position in centimeters.
type Pose struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// StatusEvent is one lifecycle event pushed over /ws/status.
type StatusEvent struct {
	Time   string `json:"time"`
	Status string `json:"status"`
}

// Session is the read surface the dashboard needs from a tracking
// session.
type Session interface {
	Phase() headtrack.Phase
	Status() headtrack.Status
	FOV() (float64, bool)
	Position() (headtrack.Position, bool)
	Midpoint() (x, y float64, ok bool)
}

// Server is the dashboard server.
type Server struct {
	app  *fiber.App
	port string

	session Session
	camera  *capture.Manager

	// Hubs for websocket broadcast
	statusHub *hub.Hub
	cameraHub *hub.Hub

	// Frame capture callback for the preview stream
	OnCaptureFrame func() ([]byte, error)
}

// NewServer creates a dashboard server for the given session.
func NewServer(port string, session Session, camera *capture.Manager) *Server {
	s := &Server{
		port:      port,
		session:   session,
		camera:    camera,
		statusHub: hub.New("status"),
		cameraHub: hub.New("camera"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "headtrack dashboard",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())
	app.Static("/", "./web")

	api := app.Group("/api")
	api.Get("/session", s.handleSession)
	api.Get("/camera", s.handleGetCamera)
	api.Post("/camera", s.handleUpdateCamera)
	api.Get("/frame", s.handleFrame)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s
}

// Start starts the web server and its hubs. It blocks.
func (s *Server) Start() error {
	log.Info("dashboard listening", "port", s.port)
	go s.statusHub.Run()
	go s.cameraHub.Run()
	return s.app.Listen(":" + s.port)
}

// StartAsync starts the web server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("web server", "error", err)
		}
	}()
}

// Emit satisfies headtrack.StatusSink: every session status is pushed
// to all connected dashboard clients.
func (s *Server) Emit(status headtrack.Status) {
	s.statusHub.BroadcastJSON(StatusEvent{
		Time:   time.Now().Format("15:04:05.000"),
		Status: string(status),
	})
}

// SendCameraFrame pushes a preview frame to all connected clients.
func (s *Server) SendCameraFrame(jpegData []byte) {
	s.cameraHub.BroadcastBinary(jpegData)
}

// Shutdown gracefully stops the web server.
func (s *Server) Shutdown() error {
	s.statusHub.Stop()
	s.cameraHub.Stop()
	return s.app.Shutdown()
}
