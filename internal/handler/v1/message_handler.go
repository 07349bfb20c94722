package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gormstore "github.com/trialflow/trialflow/internal/storage/gorm"
)

// MessageHandler serves the persisted notification inbox.
type MessageHandler struct {
	messages *gormstore.PushMessageRepository
}

func NewMessageHandler(messages *gormstore.PushMessageRepository) *MessageHandler {
	return &MessageHandler{messages: messages}
}

func (h *MessageHandler) List(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		return
	}

	msgs, err := h.messages.ListForUser(c.Request.Context(), claims.UserID, parseQueryInt(c, "limit", 50))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, msgs)
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.messages.MarkRead(c.Request.Context(), claims.UserID, id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse[any]{Message: "marked read"})
}
