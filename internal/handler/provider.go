// Package handler adapts HTTP requests to the chat services.
package handler

import (
	"clinic_chat_server/internal/service"
	"clinic_chat_server/internal/service/chat"
)

// Handlers aggregates every handler for the router.
type Handlers struct {
	Room       *RoomHandler
	Message    *MessageHandler
	Block      *BlockHandler
	User       *UserHandler
	Membership *MembershipHandler
	Ws         *WsHandler
}

// NewHandlers injects the services into each handler. gateway may be nil
// when realtime is not served by this process.
func NewHandlers(svc *service.Services, gateway *chat.Gateway) *Handlers {
	return &Handlers{
		Room:       NewRoomHandler(svc.Room, svc.Reads, svc.Block),
		Message:    NewMessageHandler(svc.Message),
		Block:      NewBlockHandler(svc.Block),
		User:       NewUserHandler(svc.User, svc.Room, svc.Message),
		Membership: NewMembershipHandler(svc.Membership),
		Ws:         NewWsHandler(gateway),
	}
}
