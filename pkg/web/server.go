// Package web serves the monitoring dashboard: status and control over HTTP,
// live status and camera frames over websockets.
package web

import (
	"context"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/eventlog"
	"github.com/teslashibe/go-drowsy/pkg/hub"
	"github.com/teslashibe/go-drowsy/pkg/monitor"
)

// Controller is the session control surface.
type Controller interface {
	Start(ctx context.Context) error
	Stop() error
	Snapshot() monitor.Snapshot
}

// EventLister reads back logged events for the dashboard.
type EventLister interface {
	Recent(ctx context.Context, limit int) ([]eventlog.Record, error)
}

// Options configures a Server.
type Options struct {
	Addr      string // listen address, e.g. ":8080"
	StaticDir string // dashboard assets; empty disables static serving
	Events    EventLister
}

// Server is the web dashboard server. It implements monitor.Sink.
type Server struct {
	app  *fiber.App
	opts Options

	// ctx bounds monitoring sessions started from the dashboard
	ctx context.Context

	mu   sync.RWMutex
	ctrl Controller

	statusHub *hub.Hub
	cameraHub *hub.Hub
}

var _ monitor.Sink = (*Server)(nil)

// NewServer creates the dashboard. Sessions started through it live until
// ctx is canceled or they are stopped.
func NewServer(ctx context.Context, opts Options) *Server {
	s := &Server{
		opts:      opts,
		ctx:       ctx,
		statusHub: hub.New("status", hub.WithReplay()),
		cameraHub: hub.New("camera"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Drowsiness Monitor",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/monitor/start", s.handleStart)
	api.Post("/monitor/stop", s.handleStop)
	api.Get("/events", s.handleEvents)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	if opts.StaticDir != "" {
		app.Static("/", opts.StaticDir)
	}

	s.app = app
	return s
}

// SetController attaches the monitor. Control routes answer 503 until set.
func (s *Server) SetController(ctrl Controller) {
	s.mu.Lock()
	s.ctrl = ctrl
	s.mu.Unlock()
}

func (s *Server) controller() Controller {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctrl
}

// Start runs the hubs and blocks serving HTTP.
func (s *Server) Start() error {
	go s.statusHub.Run()
	go s.cameraHub.Run()

	log.Info("dashboard listening", "addr", s.opts.Addr)
	return s.app.Listen(s.opts.Addr)
}

// PublishStatus pushes a snapshot to status subscribers.
func (s *Server) PublishStatus(snap monitor.Snapshot) {
	if err := s.statusHub.BroadcastJSON(snap); err != nil {
		log.Warn("status encode failed", "error", err)
	}
}

// PublishFrame pushes an annotated JPEG to camera subscribers.
func (s *Server) PublishFrame(jpeg []byte) {
	s.cameraHub.BroadcastBinary(jpeg)
}

// Shutdown stops the HTTP server and disconnects websocket clients.
func (s *Server) Shutdown() error {
	s.statusHub.Close()
	s.cameraHub.Close()
	return s.app.Shutdown()
}
