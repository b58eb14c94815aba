package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/locas/locas-backend/internal/dispatcher"
)

// QueryHandler serves the query processing endpoint.
type QueryHandler struct {
	dispatcher *dispatcher.Dispatcher
}

func NewQueryHandler(d *dispatcher.Dispatcher) *QueryHandler {
	return &QueryHandler{dispatcher: d}
}

type processQueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

type processQueryResponse struct {
	Status    string `json:"status"`
	Result    string `json:"result,omitempty"`
	Message   string `json:"message,omitempty"`
	SessionID string `json:"session_id"`
}

// ProcessQuery handles POST /api/process-query
func (h *QueryHandler) ProcessQuery(c *fiber.Ctx) error {
	var req processQueryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  string(dispatcher.StatusError),
			"message": "Invalid request body",
		})
	}

	if strings.TrimSpace(req.Query) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  string(dispatcher.StatusError),
			"message": "Query is required",
		})
	}

	outcome := h.dispatcher.Process(c.Context(), req.SessionID, req.Query)

	return c.JSON(processQueryResponse{
		Status:    string(outcome.Status),
		Result:    outcome.Result,
		Message:   outcome.Message,
		SessionID: outcome.SessionID,
	})
}
