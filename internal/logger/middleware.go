// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package logger

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	requestIDHeaderName = "x-request-id"
	forwardedForHeader  = "x-forwarded-for"

	IncomingRequestMessage  = "incoming request"
	RequestCompletedMessage = "request completed"
)

// requestID returns the caller supplied request id or a freshly generated one.
func requestID(c *fiber.Ctx) string {
	if id := c.Get(requestIDHeaderName); id != "" {
		return id
	}

	return uuid.NewString()
}

// statusCode reports the status that will be sent, taking fiber errors returned by the
// handler chain into account since the error handler has not run yet.
func statusCode(c *fiber.Ctx, handlerErr error) int {
	var fiberErr *fiber.Error
	if errors.As(handlerErr, &fiberErr) {
		return fiberErr.Code
	}
	if handlerErr != nil {
		return fiber.StatusInternalServerError
	}

	return c.Response().StatusCode()
}

// RequestMiddlewareLogger is a fiber middleware that logs every request that does not match one of
// excludedPrefix. The request scoped logger is stored in the user context so handlers can
// retrieve it with FromContext.
func RequestMiddlewareLogger(logger Logger, excludedPrefix []string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		for _, prefix := range excludedPrefix {
			if strings.HasPrefix(path, prefix) {
				return c.Next()
			}
		}

		start := time.Now()
		id := requestID(c)
		c.Set(requestIDHeaderName, id)

		reqLogger := logger.WithName("request").With("requestId", id)
		c.SetUserContext(WithContext(c.UserContext(), reqLogger))

		reqLogger.Trace(IncomingRequestMessage,
			"method", c.Method(),
			"path", path,
			"userAgent", c.Get(fiber.HeaderUserAgent),
			"ip", c.Get(forwardedForHeader, c.IP()),
		)

		err := c.Next()

		reqLogger.Info(RequestCompletedMessage,
			"method", c.Method(),
			"path", path,
			"statusCode", statusCode(c, err),
			"responseTime", float64(time.Since(start).Milliseconds()),
		)

		return err
	}
}
