package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/hub"
	"github.com/teslashibe/go-drowsy/pkg/monitor"
	"github.com/teslashibe/go-drowsy/pkg/perception"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

func errorJSON(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

var errNoController = errors.New("monitor not attached")

// handleStatus returns the current session snapshot
func (s *Server) handleStatus(c *fiber.Ctx) error {
	ctrl := s.controller()
	if ctrl == nil {
		return c.JSON(monitor.Snapshot{Display: monitor.NotMonitoring})
	}
	return c.JSON(ctrl.Snapshot())
}

// handleStart begins a monitoring session
func (s *Server) handleStart(c *fiber.Ctx) error {
	ctrl := s.controller()
	if ctrl == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, errNoController)
	}

	err := ctrl.Start(s.ctx)
	switch {
	case err == nil:
		return c.Status(fiber.StatusAccepted).JSON(ctrl.Snapshot())
	case errors.Is(err, monitor.ErrAlreadyRunning):
		return errorJSON(c, fiber.StatusConflict, err)
	case errors.Is(err, perception.ErrAcquisition):
		return errorJSON(c, fiber.StatusServiceUnavailable, err)
	default:
		log.Error("start monitoring failed", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, err)
	}
}

// handleStop requests the session to end; the loop exits after its current frame
func (s *Server) handleStop(c *fiber.Ctx) error {
	ctrl := s.controller()
	if ctrl == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, errNoController)
	}

	if err := ctrl.Stop(); err != nil {
		if errors.Is(err, monitor.ErrNotRunning) {
			return errorJSON(c, fiber.StatusConflict, err)
		}
		return errorJSON(c, fiber.StatusInternalServerError, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(ctrl.Snapshot())
}

// handleEvents returns recent event rows, newest first
func (s *Server) handleEvents(c *fiber.Ctx) error {
	if s.opts.Events == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, errors.New("event log not configured"))
	}

	limit := c.QueryInt("limit", defaultEventLimit)
	if limit < 1 || limit > maxEventLimit {
		return errorJSON(c, fiber.StatusBadRequest, errors.New("limit must be between 1 and 500"))
	}

	records, err := s.opts.Events.Recent(c.UserContext(), limit)
	if err != nil {
		log.Error("read events failed", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(records)
}

// handleStatusWS streams status snapshots; the latest one is replayed on connect
func (s *Server) handleStatusWS(c *websocket.Conn) {
	hub.NewClient(s.statusHub, c).Run()
}

// handleCameraWS streams annotated JPEG frames
func (s *Server) handleCameraWS(c *websocket.Conn) {
	hub.NewClient(s.cameraHub, c).Run()
}
