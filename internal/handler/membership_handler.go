package handler

import (
	"clinic_chat_server/internal/dto/request"
	"clinic_chat_server/internal/infrastructure/middleware"
	"clinic_chat_server/internal/service/membership"

	"github.com/gin-gonic/gin"
)

// MembershipHandler accepts membership events from administrators.
type MembershipHandler struct {
	membership *membership.Service
}

func NewMembershipHandler(svc *membership.Service) *MembershipHandler {
	return &MembershipHandler{membership: svc}
}

// Apply POST /chat/membership/events
func (h *MembershipHandler) Apply(c *gin.Context) {
	var req request.MembershipEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.membership.Handle(c.Request.Context(), middleware.CurrentUser(c), req); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}
