package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/locas/locas-backend/internal/dispatcher"
	"github.com/locas/locas-backend/internal/session"
)

// HistoryHandler serves conversation history lookups.
type HistoryHandler struct {
	dispatcher *dispatcher.Dispatcher
}

func NewHistoryHandler(d *dispatcher.Dispatcher) *HistoryHandler {
	return &HistoryHandler{dispatcher: d}
}

type historyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GetHistory handles GET /api/get-history
func (h *HistoryHandler) GetHistory(c *fiber.Ctx) error {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "session_id is required",
		})
	}

	messages, err := h.dispatcher.History(c.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"status":  "error",
				"message": "Session not found or expired",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Failed to load session history",
		})
	}

	history := make([]historyMessage, 0, len(messages))
	for _, m := range messages {
		history = append(history, historyMessage{Role: m.Role, Content: m.Content})
	}

	return c.JSON(fiber.Map{
		"status":       "success",
		"session_id":   sessionID,
		"chat_history": history,
	})
}
