// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/mia-platform/fedlog/internal/info"
	"github.com/mia-platform/fedlog/internal/logger"
)

const (
	loggerName = "fedlog:server"

	healthzPath = "/-/healthz"
	readyPath   = "/-/ready"
)

var (
	ErrServerListen   = errors.New("server listen error")
	ErrServerShutdown = errors.New("server shutdown error")

	// ErrBadRequest can be wrapped by route handlers to answer with 400 instead of 500.
	ErrBadRequest = errors.New("bad request")
)

// Handler processes the body of a request. The context carries the request scoped logger.
type Handler func(ctx context.Context, headers http.Header, body []byte) error

type Server interface {
	AddRoute(method string, path string, handler Handler)
	Start() error
	Stop() error
}

var _ Server = &impServer{}

type impServer struct {
	config

	app *fiber.App
}

// NewServer configures a server from the environment, using the logger found in ctx.
func NewServer(ctx context.Context) (Server, error) {
	return newServer(ctx)
}

func newServer(ctx context.Context) (*impServer, error) {
	cfg, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: cfg.DisableStartupMessage,
		BodyLimit:             cfg.BodyLimit,
		// request bodies are handed to handlers that may retain them
		Immutable: true,
	})
	log := logger.NamedFromContext(ctx, loggerName)
	app.Use(logger.RequestMiddlewareLogger(log, []string{"/-/"}))
	app.Use(fiberrecover.New(fiberrecover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e any) {
			log.Error("handler panicked", "path", c.Path(), "panic", fmt.Sprint(e))
		},
	}))

	statusRoutes(app, info.AppName, info.Version)

	return &impServer{
		app:    app,
		config: *cfg,
	}, nil
}

func statusRoutes(app *fiber.App, serviceName, version string) {
	status := func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"name":    serviceName,
			"version": version,
			"status":  "OK",
		})
	}

	app.Get(healthzPath, status)
	app.Get(readyPath, status)
}

func (s *impServer) AddRoute(method string, path string, handler Handler) {
	s.app.Add(method, path, FiberHandlerWrapper(handler))
}

// FiberHandlerWrapper adapts handler to fiber, answering 204 on success and a JSON error otherwise.
func FiberHandlerWrapper(handler Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := handler(c.UserContext(), c.GetReqHeaders(), c.Body())
		if err == nil {
			return c.SendStatus(http.StatusNoContent)
		}

		statusCode := http.StatusInternalServerError
		message := "error processing request"
		if errors.Is(err, ErrBadRequest) {
			statusCode = http.StatusBadRequest
			message = err.Error()
		}

		logger.FromContext(c.UserContext()).Warn("request failed", "error", err.Error())
		return c.Status(statusCode).JSON(fiber.Map{
			"statusCode": statusCode,
			"error":      http.StatusText(statusCode),
			"message":    message,
		})
	}
}

func (s *impServer) Start() error {
	if err := s.app.Listen(fmt.Sprintf("%s:%d", s.HTTPHost, s.HTTPPort)); err != nil {
		return fmt.Errorf("%w: %w", ErrServerListen, err)
	}
	return nil
}

func (s *impServer) Stop() error {
	if err := s.app.Shutdown(); err != nil {
		return fmt.Errorf("%w: %w", ErrServerShutdown, err)
	}
	return nil
}
