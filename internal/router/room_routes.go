package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoomRoutes registers room resolution, listing and room state.
func (rt *Router) RegisterRoomRoutes(rg *gin.RouterGroup) {
	h := rt.handlers.Room
	rooms := rg.Group("/rooms")
	{
		rooms.GET("", h.ListRooms)
		rooms.POST("/private", h.OpenPrivate)
		rooms.GET("/ai", h.OpenAI)
		rooms.POST("/clinic/:clinic_id/ensure", h.EnsureClinicGroup)
		rooms.POST("/group", h.CreateGroup)
		rooms.POST("/:id/read", h.MarkRead)
		rooms.POST("/:id/delete", h.Delete)
		rooms.POST("/:id/clear", h.Clear)
		rooms.POST("/:id/mute", h.Mute)
	}
	rg.GET("/mentions/count", h.MentionCount)

	blocks := rg.Group("/blocks")
	{
		blocks.GET("", rt.handlers.Block.List)
		blocks.POST("", rt.handlers.Block.Toggle)
	}

	rg.POST("/membership/events", rt.handlers.Membership.Apply)
}
