package handler

import (
	"clinic_chat_server/internal/dto/request"
	"clinic_chat_server/internal/infrastructure/middleware"
	"clinic_chat_server/internal/service/message"
	"clinic_chat_server/internal/service/room"
	"clinic_chat_server/internal/service/user"

	"github.com/gin-gonic/gin"
)

// UserHandler serves the user picker and the per-user history views.
type UserHandler struct {
	users    *user.Service
	rooms    *room.Service
	messages *message.Service
}

func NewUserHandler(users *user.Service, rooms *room.Service, messages *message.Service) *UserHandler {
	return &UserHandler{users: users, rooms: rooms, messages: messages}
}

// Search GET /chat/users?search=
func (h *UserHandler) Search(c *gin.Context) {
	var q request.UserSearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.users.Search(c.Request.Context(), middleware.CurrentUser(c), q.Search)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Rooms GET /chat/users/:id/rooms
func (h *UserHandler) Rooms(c *gin.Context) {
	targetID, ok := pathID(c, "id")
	if !ok {
		return
	}
	data, err := h.rooms.ListUserRooms(c.Request.Context(), middleware.CurrentUser(c), targetID)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// RoomMessages GET /chat/users/:id/rooms/:room_id/messages
func (h *UserHandler) RoomMessages(c *gin.Context) {
	targetID, ok := pathID(c, "id")
	if !ok {
		return
	}
	roomID, ok := pathID(c, "room_id")
	if !ok {
		return
	}
	data, err := h.messages.ListUserRoomMessages(c.Request.Context(), middleware.CurrentUser(c), targetID, roomID)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
