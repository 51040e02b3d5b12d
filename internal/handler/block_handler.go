package handler

import (
	"clinic_chat_server/internal/dto/request"
	"clinic_chat_server/internal/infrastructure/middleware"
	"clinic_chat_server/internal/service/block"

	"github.com/gin-gonic/gin"
)

// BlockHandler serves /chat/blocks.
type BlockHandler struct {
	blocks *block.Service
}

func NewBlockHandler(blocks *block.Service) *BlockHandler {
	return &BlockHandler{blocks: blocks}
}

// Toggle POST /chat/blocks {user_id, action}
func (h *BlockHandler) Toggle(c *gin.Context) {
	var req request.BlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	actor := middleware.CurrentUser(c)
	var err error
	if req.Action == "block" {
		err = h.blocks.Block(c.Request.Context(), actor, req.UserID)
	} else {
		err = h.blocks.Unblock(c.Request.Context(), actor, req.UserID)
	}
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// List GET /chat/blocks
func (h *BlockHandler) List(c *gin.Context) {
	data, err := h.blocks.List(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
