// Package service wires the chat services together. Handlers reach every
// service through the Services aggregate.
package service

import (
	"clinic_chat_server/internal/config"
	"clinic_chat_server/internal/dao/mysql/repository"
	myredis "clinic_chat_server/internal/dao/redis"
	"clinic_chat_server/internal/service/block"
	"clinic_chat_server/internal/service/membership"
	"clinic_chat_server/internal/service/message"
	"clinic_chat_server/internal/service/permission"
	"clinic_chat_server/internal/service/read"
	"clinic_chat_server/internal/service/room"
	"clinic_chat_server/internal/service/user"
)

// Services aggregates every chat service.
type Services struct {
	Repos      *repository.Repositories
	Perms      *permission.Oracle
	Reads      *read.Tracker
	Room       *room.Service
	Message    *message.Service
	Block      *block.Service
	User       *user.Service
	Membership *membership.Service
}

// NewServices builds the services on repos.
// cache may be nil when redis is disabled; permission and mention count
// caching are then skipped.
//
// Realtime, AI scheduling and moderation are attached afterwards with
// Message.SetPublisher / SetScheduler / SetObserver and
// Reads.SetPublisher, because they need the services first.
func NewServices(repos *repository.Repositories, cache myredis.AsyncCacheService, cfg config.ChatConfig) *Services {
	var permCache myredis.CacheService
	if cache != nil {
		permCache = cache
	}
	perms := permission.NewOracle(repos, permCache)
	reads := read.NewTracker(repos, cache)
	return &Services{
		Repos:      repos,
		Perms:      perms,
		Reads:      reads,
		Room:       room.NewService(repos, perms, cfg),
		Message:    message.NewService(repos, perms, reads, cfg),
		Block:      block.NewService(repos, perms),
		User:       user.NewService(repos, perms),
		Membership: membership.NewService(repos, perms, perms),
	}
}
