// Package router registers the chat routes on a gin engine.
package router

import (
	"clinic_chat_server/internal/handler"
	"clinic_chat_server/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

// Router holds the handlers and the middleware shared by route groups.
type Router struct {
	handlers    *handler.Handlers
	auth        gin.HandlerFunc
	impersonate gin.HandlerFunc
}

// NewRouter builds a router. auth guards every /chat route; impersonate
// is applied to message sends only.
func NewRouter(handlers *handler.Handlers, auth, impersonate gin.HandlerFunc) *Router {
	return &Router{handlers: handlers, auth: auth, impersonate: impersonate}
}

// RegisterRoutes registers /chat, /ws and /metrics.
func (rt *Router) RegisterRoutes(r *gin.Engine) {
	r.GET("/metrics", middleware.MetricsHandler())

	chat := r.Group("/chat", rt.auth)
	rt.RegisterRoomRoutes(chat)
	rt.RegisterMessageRoutes(chat)
	rt.RegisterUserRoutes(chat)

	rt.RegisterWebSocketRoutes(r.Group("/ws"))
}
