package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterMessageRoutes registers message reads, sends and reactions.
func (rt *Router) RegisterMessageRoutes(rg *gin.RouterGroup) {
	h := rt.handlers.Message
	rg.GET("/rooms/:id/messages", h.List)
	rg.POST("/rooms/:id/messages", rt.impersonate, h.Send)
	rg.POST("/messages/:id/react", h.React)
}
