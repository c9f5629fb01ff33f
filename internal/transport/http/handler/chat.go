package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"peakmind/internal/app"
	"peakmind/internal/transport/http/middleware"
	"peakmind/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

// ChatRequest carries the raw messages value so the guardrail layer, not
// gin's binder, decides what is valid inside it.
type ChatRequest struct {
	Messages json.RawMessage `json:"messages"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.MsgAuthRequired)
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.MsgInvalidRequest)
		return
	}

	reply, err := h.chatService.Chat(c.Request.Context(), userID, req.Messages)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidPayload), errors.Is(err, app.ErrInvalidInput):
			response.Fail(c, http.StatusBadRequest, response.MsgNoValidMessages)
		case errors.Is(err, app.ErrPayloadTooLarge):
			response.Fail(c, http.StatusRequestEntityTooLarge, response.MsgPayloadTooLarge)
		case errors.Is(err, app.ErrEmptyCompletion):
			response.Fail(c, http.StatusInternalServerError, response.MsgEmptyCompletion)
		default:
			response.Fail(c, http.StatusInternalServerError, response.MsgUnavailable)
		}
		return
	}

	response.OK(c, gin.H{"reply": reply})
}

func (h *ChatHandler) History(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.MsgAuthRequired)
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, parseErr := strconv.Atoi(raw); parseErr == nil {
			limit = parsed
		}
	}

	history, err := h.chatService.History(c.Request.Context(), userID, limit)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.MsgUnavailable)
		return
	}

	response.OK(c, gin.H{"history": history})
}

func getUserIDFromContext(c *gin.Context) (uint, bool) {
	userIDAny, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := userIDAny.(uint)
	return userID, ok
}
