package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newErrorHandlerApp() *fiber.App {
	log := logrus.New()
	app := fiber.New(fiber.Config{ErrorHandler: customErrorHandler(log)})

	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("pq: connection refused on 10.0.0.7")
	})
	app.Get("/teapot", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})
	return app
}

func TestErrorHandlerHidesInternalDetail(t *testing.T) {
	app := newErrorHandlerApp()

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Unable to process your request right now.", body["message"])
	assert.NotContains(t, body["message"], "10.0.0.7")
}

func TestErrorHandlerKeepsDeliberateClientErrors(t *testing.T) {
	app := newErrorHandlerApp()

	req := httptest.NewRequest(http.MethodGet, "/teapot", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "short and stout", body["message"])
}

func TestErrorHandlerNotFound(t *testing.T) {
	app := newErrorHandlerApp()

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "error", body["status"])
}
