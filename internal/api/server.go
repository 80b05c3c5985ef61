package api

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

//go:embed public
var publicFiles embed.FS

// Server is the fiber app serving the API and the dashboard.
type Server struct {
	app *fiber.App
	log *zap.Logger
}

// NewServer registers middleware and routes for h.
func NewServer(h *Handler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "botstats",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	app.Use(requestIDMiddleware())
	app.Use(loggingMiddleware(log))

	app.Get("/health", h.Health)

	apiGroup := app.Group("/api")
	apiGroup.Get("/stats", h.GetStats)
	apiGroup.Get("/timeseries", h.GetTimeSeries)
	apiGroup.Get("/event/:id", h.GetEvent)
	apiGroup.Post("/events", h.CreateEvent)

	public, err := fs.Sub(publicFiles, "public")
	if err != nil {
		// embedded at build time
		panic(err)
	}
	app.Use("/", filesystem.New(filesystem.Config{
		Root:  http.FS(public),
		Index: "index.html",
	}))

	return &Server{app: app, log: log}
}

// App exposes the underlying fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App { return s.app }

// Listen blocks serving on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve blocks serving on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info("dashboard listening", zap.String("addr", ln.Addr().String()))
	if err := s.app.Listener(ln); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(ErrorResponse{Error: err.Error(), RequestID: requestID(c)})
}
