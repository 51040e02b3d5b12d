package handler

import (
	"clinic_chat_server/internal/dto/request"
	"clinic_chat_server/internal/infrastructure/middleware"
	"clinic_chat_server/internal/service/message"

	"github.com/gin-gonic/gin"
)

// MessageHandler serves room messages and reactions.
type MessageHandler struct {
	messages *message.Service
}

func NewMessageHandler(messages *message.Service) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// List GET /chat/rooms/:id/messages?before_id=
func (h *MessageHandler) List(c *gin.Context) {
	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var q request.ListMessagesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.messages.List(c.Request.Context(), middleware.CurrentUser(c), roomID, q.BeforeID)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Send POST /chat/rooms/:id/messages
// Honours X-Impersonate-User through the impersonation middleware.
func (h *MessageHandler) Send(c *gin.Context) {
	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req request.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	effective, _ := middleware.EffectiveUser(c)
	data, err := h.messages.Send(c.Request.Context(), middleware.CurrentUser(c), effective, roomID, req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// React POST /chat/messages/:id/react
func (h *MessageHandler) React(c *gin.Context) {
	messageID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req request.ReactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.messages.React(c.Request.Context(), middleware.CurrentUser(c), messageID, req.Reaction)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
