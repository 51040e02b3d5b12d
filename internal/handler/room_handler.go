package handler

import (
	"clinic_chat_server/internal/dto/request"
	"clinic_chat_server/internal/infrastructure/middleware"
	"clinic_chat_server/internal/service/block"
	"clinic_chat_server/internal/service/read"
	"clinic_chat_server/internal/service/room"

	"github.com/gin-gonic/gin"
)

// RoomHandler serves room resolution, listing and per-user room state.
type RoomHandler struct {
	rooms  *room.Service
	reads  *read.Tracker
	blocks *block.Service
}

func NewRoomHandler(rooms *room.Service, reads *read.Tracker, blocks *block.Service) *RoomHandler {
	return &RoomHandler{rooms: rooms, reads: reads, blocks: blocks}
}

// ListRooms GET /chat/rooms
func (h *RoomHandler) ListRooms(c *gin.Context) {
	data, err := h.rooms.ListRooms(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// OpenPrivate POST /chat/rooms/private
func (h *RoomHandler) OpenPrivate(c *gin.Context) {
	var req request.OpenPrivateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.rooms.OpenPrivate(c.Request.Context(), middleware.CurrentUser(c), req.UserID)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// OpenAI GET /chat/rooms/ai
func (h *RoomHandler) OpenAI(c *gin.Context) {
	data, err := h.rooms.OpenAI(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// EnsureClinicGroup POST /chat/rooms/clinic/:clinic_id/ensure
func (h *RoomHandler) EnsureClinicGroup(c *gin.Context) {
	clinicID, ok := pathID(c, "clinic_id")
	if !ok {
		return
	}
	data, err := h.rooms.EnsureClinicGroup(c.Request.Context(), middleware.CurrentUser(c), clinicID)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// CreateGroup POST /chat/rooms/group
func (h *RoomHandler) CreateGroup(c *gin.Context) {
	var req request.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.rooms.CreateClinicGroup(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// MarkRead POST /chat/rooms/:id/read
func (h *RoomHandler) MarkRead(c *gin.Context) {
	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req request.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.reads.MarkRead(c.Request.Context(), roomID, middleware.CurrentUser(c).ID, req.LastMessageID)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Delete POST /chat/rooms/:id/delete hides the room for the caller only.
func (h *RoomHandler) Delete(c *gin.Context) {
	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.rooms.SoftDelete(c.Request.Context(), middleware.CurrentUser(c), roomID); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// Clear POST /chat/rooms/:id/clear
func (h *RoomHandler) Clear(c *gin.Context) {
	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.rooms.ClearHistory(c.Request.Context(), middleware.CurrentUser(c), roomID); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// Mute POST /chat/rooms/:id/mute
func (h *RoomHandler) Mute(c *gin.Context) {
	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req request.MuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	err := h.blocks.SetMute(c.Request.Context(), middleware.CurrentUser(c), roomID, req.UserID, req.Action == "block")
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// MentionCount GET /chat/mentions/count
func (h *RoomHandler) MentionCount(c *gin.Context) {
	data, err := h.reads.MentionCount(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
