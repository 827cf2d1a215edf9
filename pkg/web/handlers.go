package web

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/visionkit/go-headtrack/pkg/hub"
)

// handleSession returns the session snapshot.
func (s *Server) handleSession(c *fiber.Ctx) error {
	view := SessionView{
		Phase:     s.session.Phase().String(),
		Status:    string(s.session.Status()),
		UpdatedAt: time.Now().Format(time.RFC3339),
	}
	if fov, ok := s.session.FOV(); ok {
		view.FOV = &fov
	}
	if x, y, ok := s.session.Midpoint(); ok {
		view.Midpoint = &Point{X: x, Y: y}
	}
	if pos, ok := s.session.Position(); ok {
		view.Position = &Pose{X: pos.X, Y: pos.Y, Z: pos.Z}
	}
	return c.JSON(view)
}

// handleGetCamera returns the current capture configuration.
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	if s.camera == nil {
		return c.Status(404).JSON(fiber.Map{"error": "no camera attached"})
	}
	return c.JSON(s.camera.GetConfig())
}

// handleUpdateCamera applies a partial capture-config update.
func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	if s.camera == nil {
		return c.Status(404).JSON(fiber.Map{"error": "no camera attached"})
	}

	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	if err := s.camera.UpdateConfig(params); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(s.camera.GetConfig())
}

// handleFrame returns one preview frame.
func (s *Server) handleFrame(c *fiber.Ctx) error {
	if s.OnCaptureFrame == nil {
		return c.Status(404).JSON(fiber.Map{"error": "no frame source attached"})
	}
	frame, err := s.OnCaptureFrame()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	c.Set("Content-Type", "image/jpeg")
	return c.Send(frame)
}

// handleStatusWS streams lifecycle events.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	client := hub.NewClient(s.statusHub, c)
	client.Run()
}

// handleCameraWS streams preview frames.
func (s *Server) handleCameraWS(c *websocket.Conn) {
	client := hub.NewClient(s.cameraHub, c)
	client.Run()
}
