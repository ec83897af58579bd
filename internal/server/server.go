// Package server exposes the gateway over HTTP using fiber.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Veraticus/spice-gateway/internal/common"
	"github.com/Veraticus/spice-gateway/internal/gateway"
	"github.com/Veraticus/spice-gateway/internal/model"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// Extractor is the gateway surface the HTTP API serves.
type Extractor interface {
	ParseFinanceText(ctx context.Context, rawText, userID string) (model.ParseResult, error)
	ParseTaskText(ctx context.Context, rawText string) (model.ParsedTask, error)
	ScanReceipt(ctx context.Context, imageBase64, mimeType string) (model.ReceiptData, error)
	HealthCheck(ctx context.Context) bool
	UsageStats(ctx context.Context) (gateway.UsageStats, error)
	ClearCache(ctx context.Context) (int, error)
	ResetCircuitBreaker(ctx context.Context) error
	Provider() string
	ModelName() string
}

// Config holds the fiber limits.
type Config struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimit    int
}

// Server wraps the fiber app.
type Server struct {
	app    *fiber.App
	gw     Extractor
	logger *slog.Logger
}

// New builds the app and registers every route.
func New(gw Extractor, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{gw: gw, logger: logger}
	s.app = fiber.New(fiber.Config{
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		BodyLimit:             cfg.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(s.logRequests)

	api := s.app.Group("/api/v1")
	api.Post("/parse/finance", s.parseFinance)
	api.Post("/parse/task", s.parseTask)
	api.Post("/receipts/scan", s.scanReceipt)
	api.Get("/health", s.health)
	api.Get("/stats", s.stats)
	api.Delete("/cache", s.clearCache)
	api.Post("/circuit-breaker/reset", s.resetBreaker)

	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Info("HTTP server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}

	s.logger.Debug("http request",
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		"duration", time.Since(start))
	return err
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal error"

	var fe *fiber.Error
	switch {
	case errors.Is(err, common.ErrValidation):
		code = fiber.StatusUnprocessableEntity
		message = err.Error()
	case errors.As(err, &fe):
		code = fe.Code
		message = fe.Message
	default:
		s.logger.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err)
	}

	return c.Status(code).JSON(fiber.Map{"error": message})
}
