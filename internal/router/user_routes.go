package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterUserRoutes registers the user picker and user history views.
func (rt *Router) RegisterUserRoutes(rg *gin.RouterGroup) {
	h := rt.handlers.User
	users := rg.Group("/users")
	{
		users.GET("", h.Search)
		users.GET("/:id/rooms", h.Rooms)
		users.GET("/:id/rooms/:room_id/messages", h.RoomMessages)
	}
}
