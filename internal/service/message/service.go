// Package message is the message pipeline: send, list, react and the AI
// post path. Realtime delivery, AI scheduling and moderation are plugged in
// through the interfaces below and run only after a successful commit.
package message

import (
	"context"

	"clinic_chat_server/internal/config"
	"clinic_chat_server/internal/dao/mysql/repository"
	"clinic_chat_server/internal/dto/respond"
	"clinic_chat_server/internal/model"
	"clinic_chat_server/internal/service/permission"
	"clinic_chat_server/pkg/errorx"

	"go.uber.org/zap"
)

// Publisher pushes committed events to the room's live sessions.
type Publisher interface {
	PublishMessage(ctx context.Context, roomID uint, payload respond.MessagePayload)
	PublishReaction(ctx context.Context, roomID uint, delta respond.ReactRespond)
}

// ReplyScheduler arranges AI replies to a human message.
type ReplyScheduler interface {
	// Schedule queues a delayed, cancelable group reply.
	Schedule(ctx context.Context, roomID, messageID uint)
	// ReplyNow answers in an AI room without delay.
	ReplyNow(ctx context.Context, roomID, messageID uint)
}

// Observer inspects committed human group messages.
type Observer interface {
	Observe(room *model.ChatRoom, msg *model.Message, attachments []model.MessageAttachment)
}

// ReadAdvancer is the slice of the read tracker the pipeline uses.
type ReadAdvancer interface {
	Advance(ctx context.Context, roomID, userID, lastMessageID uint) (*respond.MarkReadRespond, error)
	InvalidateMentionCount(userIDs ...uint)
}

// Service is the message pipeline: send, list, react and AI posting.
// Rows are written in one transaction; broadcast, AI scheduling and
// moderation only run after it committed.
type Service struct {
	repos     *repository.Repositories
	perms     permission.Checker
	reads     ReadAdvancer
	cfg       config.ChatConfig
	publisher Publisher
	scheduler ReplyScheduler
	observer  Observer
}

// NewService builds the pipeline. Publisher, scheduler and observer are
// optional and attached afterwards.
func NewService(repos *repository.Repositories, perms permission.Checker, reads ReadAdvancer, cfg config.ChatConfig) *Service {
	return &Service{repos: repos, perms: perms, reads: reads, cfg: cfg}
}

// SetPublisher, SetScheduler and SetObserver close the construction cycle
// with the realtime hub and the AI scheduler, both of which call back into
// the pipeline.
func (s *Service) SetPublisher(p Publisher)      { s.publisher = p }
func (s *Service) SetScheduler(r ReplyScheduler) { s.scheduler = r }
func (s *Service) SetObserver(o Observer)        { s.observer = o }

// fail passes coded domain errors through and hides infrastructure ones.
func fail(op string, err error, fields ...zap.Field) error {
	switch errorx.GetCode(err) {
	case errorx.CodeDBError, errorx.CodeCacheError, errorx.CodeServerBusy:
		zap.L().Error(op+" failed", append(fields, zap.Error(err))...)
		return errorx.ErrServerBusy
	}
	return err
}
