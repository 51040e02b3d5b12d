package handler

import (
	"net/http"

	"clinic_chat_server/internal/service/chat"
	"clinic_chat_server/pkg/errorx"

	"github.com/gin-gonic/gin"
)

// WsHandler upgrades /ws/chat/:room_id. A nil gateway answers 503.
type WsHandler struct {
	gateway *chat.Gateway
}

func NewWsHandler(gateway *chat.Gateway) *WsHandler {
	return &WsHandler{gateway: gateway}
}

// Connect GET /ws/chat/:room_id?token=
// Authentication failures are reported as websocket close codes after the
// upgrade, so this route sits outside JWTAuth.
func (h *WsHandler) Connect(c *gin.Context) {
	if h.gateway == nil {
		c.JSON(http.StatusServiceUnavailable, ResponseData{Code: errorx.CodeServerBusy, Msg: "realtime disabled"})
		return
	}
	roomID, ok := pathID(c, "room_id")
	if !ok {
		return
	}
	h.gateway.Serve(c.Writer, c.Request, roomID, c.Query("token"))
}
