package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterWebSocketRoutes registers the realtime entry point. The token
// travels in the query string: ws://host:port/ws/chat/12?token=<jwt>
func (rt *Router) RegisterWebSocketRoutes(rg *gin.RouterGroup) {
	rg.GET("/chat/:room_id", rt.handlers.Ws.Connect)
}
