// internal/api/server.go
package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"

	"hosting-assessment/internal/assessment"
	"hosting-assessment/internal/common/logger"
	"hosting-assessment/internal/render"
	"hosting-assessment/internal/search"
	"hosting-assessment/pkg/catalog"
)

const (
	DefaultBodyLimit    = 1 * 1024 * 1024
	DefaultReadTimeout  = 15 * time.Second
	DefaultWriteTimeout = 15 * time.Second
)

// Searcher answers dashboard queries. *search.Indexer satisfies it.
type Searcher interface {
	Search(ctx context.Context, q search.Query) (*search.Result, error)
}

type Config struct {
	AppName      string
	BodyLimit    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	AllowOrigins string
}

// Server exposes the assessment lifecycle over HTTP.
type Server struct {
	app      *fiber.App
	service  *assessment.Service
	catalog  *catalog.Catalog
	renderer *render.Renderer
	searcher Searcher
	logger   logger.Logger
}

// New wires the routes. searcher may be nil, in which case the search endpoint answers 503.
func New(cfg Config, service *assessment.Service, cat *catalog.Catalog, renderer *render.Renderer, searcher Searcher, log logger.Logger) *Server {
	if cfg.AppName == "" {
		cfg.AppName = "hosting-assessment"
	}
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = DefaultBodyLimit
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.AllowOrigins == "" {
		cfg.AllowOrigins = "*"
	}
	if cat == nil {
		cat = catalog.Default()
	}
	if renderer == nil {
		renderer = render.New(cat)
	}

	s := &Server{
		service:  service,
		catalog:  cat,
		renderer: renderer,
		searcher: searcher,
		logger:   log.WithFields(map[string]interface{}{"component": "api"}),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		BodyLimit:             cfg.BodyLimit,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(fiberrecover.New())
	s.app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	s.app.Use(s.requestLogger)

	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health", s.health)

	api := s.app.Group("/api/v1")
	api.Get("/questions", s.questions)
	api.Post("/score", s.score)
	api.Post("/assessments", s.submit)
	api.Get("/assessments", s.dashboard)
	api.Get("/assessments/search", s.search)
	api.Get("/assessments/:id", s.get)
	api.Post("/assessments/:id/review", s.review)

	s.app.Get("/review/:id", s.reviewPage)
	s.app.Post("/review/:id", s.reviewForm)
}

// App exposes the fiber app, mostly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.logger.Info("API listening", map[string]interface{}{"address": addr})
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		// The error handler runs after the middleware chain unwinds.
		status = statusFor(err)
	}
	fields := map[string]interface{}{
		"method":     c.Method(),
		"path":       c.Path(),
		"status":     status,
		"durationMs": time.Since(start).Milliseconds(),
	}
	if status >= fiber.StatusInternalServerError {
		s.logger.Warn("Request failed", fields)
	} else {
		s.logger.Debug("Request served", fields)
	}
	return err
}
