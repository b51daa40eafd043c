// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestMiddlewareLogger(t *testing.T) {
	t.Parallel()

	buffer := new(bytes.Buffer)
	logger := NewLogger(buffer)
	logger.SetLevel(TRACE)

	app := fiber.New(fiber.Config{})
	app.Use(RequestMiddlewareLogger(logger, []string{"/-/"}))
	app.Get("/foo", func(c *fiber.Ctx) error {
		assert.NotEqual(t, nullLogger, FromContext(c.UserContext()))
		return c.SendStatus(http.StatusNoContent)
	})
	app.Get("/-/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "http://example.com/foo", nil)
	req.Header.Set("User-Agent", "UnitTestAgent/1.0")
	req.Header.Set(requestIDHeaderName, "test-request-id")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "test-request-id", resp.Header.Get(requestIDHeaderName))

	excluded := httptest.NewRequest(http.MethodGet, "http://example.com/-/healthz", nil)
	excludedResp, err := app.Test(excluded)
	require.NoError(t, err)
	defer excludedResp.Body.Close()

	lines := strings.Split(buffer.String(), "\n")
	require.Len(t, lines, 3)
	require.Empty(t, lines[2])

	completed := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &completed))
	assert.Equal(t, RequestCompletedMessage, completed["@message"])
	assert.Equal(t, "test-request-id", completed["requestId"])
	assert.EqualValues(t, http.StatusNoContent, completed["statusCode"])
}

func TestRequestMiddlewareGeneratesRequestID(t *testing.T) {
	t.Parallel()

	buffer := new(bytes.Buffer)
	app := fiber.New(fiber.Config{})
	app.Use(RequestMiddlewareLogger(NewLogger(buffer), nil))
	app.Get("/fail", func(c *fiber.Ctx) error {
		return fiber.NewError(http.StatusBadRequest, "bad")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/fail", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Len(t, resp.Header.Get(requestIDHeaderName), 36)
	assert.Contains(t, buffer.String(), `"statusCode":400`)
}
