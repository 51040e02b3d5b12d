package message

import (
	"context"
	"strings"

	"clinic_chat_server/internal/dao/mysql/repository"
	"clinic_chat_server/internal/dto/request"
	"clinic_chat_server/internal/dto/respond"
	"clinic_chat_server/internal/infrastructure/metrics"
	"clinic_chat_server/internal/model"
	"clinic_chat_server/internal/service/access"
	"clinic_chat_server/internal/service/notification"
	"clinic_chat_server/internal/service/permission"
	"clinic_chat_server/internal/service/room"
	"clinic_chat_server/pkg/errorx"

	"go.uber.org/zap"
)

// Send posts a message into roomID as effective. actor is the real caller
// and differs from effective only under impersonation: permissions are
// checked on actor, access and blocks on effective.
// Steps:
//  1. access guard (a group mute reads as GroupBlocked)
//  2. private pair block, both directions
//  3. content or attachments required
//  4. one transaction: message, mentions, notifications, attachments
//  5. after commit: sender cursor, broadcast, AI scheduling, moderation
func (s *Service) Send(ctx context.Context, actor, effective *model.User, roomID uint, req request.SendMessageRequest) (*respond.SendMessageRespond, error) {
	impersonated := actor.ID != effective.ID
	if !impersonated && permission.IsAuditor(ctx, s.perms, actor) {
		return nil, errorx.ErrReadOnly
	}
	if err := permission.Require(ctx, s.perms, actor, model.PermSend); err != nil {
		return nil, err
	}

	decision, err := access.Evaluate(s.repos, roomID, effective.ID)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.ErrAccessDenied
		}
		return nil, fail("evaluate access", err, zap.Uint("room_id", roomID))
	}
	if !decision.Participant {
		return nil, errorx.ErrAccessDenied
	}
	chatRoom := decision.Room

	if chatRoom.RoomType == model.RoomTypePrivate {
		if err := s.checkPrivatePair(chatRoom.ID, effective.ID); err != nil {
			return nil, err
		}
	}
	if decision.Muted {
		return nil, errorx.ErrGroupBlocked
	}

	content := strings.TrimSpace(req.Content)
	if content == "" && len(req.Attachments) == 0 {
		return nil, errorx.ErrEmptyMessage
	}
	if req.ParentMessageID != nil {
		parent, err := s.repos.Message.FindByID(*req.ParentMessageID)
		if err != nil && !errorx.IsNotFound(err) {
			return nil, fail("find parent message", err, zap.Uint("message_id", *req.ParentMessageID))
		}
		if err != nil || parent.RoomID != roomID {
			return nil, errorx.New(errorx.CodeInvalidParam, "parent message is not in this room")
		}
	}

	senderID := effective.ID
	msg := &model.Message{
		RoomID:          roomID,
		SenderID:        &senderID,
		Content:         content,
		ParentMessageID: req.ParentMessageID,
	}
	var (
		attachments []model.MessageAttachment
		mentioned   []uint
	)
	err = s.repos.Transaction(func(txRepos *repository.Repositories) error {
		if err := txRepos.Message.Create(msg); err != nil {
			return err
		}
		var err error
		if mentioned, err = createMentions(txRepos, msg, req.MentionUserIDs); err != nil {
			return err
		}
		attachments = make([]model.MessageAttachment, 0, len(req.Attachments))
		for _, a := range req.Attachments {
			attachments = append(attachments, model.MessageAttachment{
				MessageID:      msg.ID,
				AttachmentType: a.Type,
				URL:            a.URL,
				Name:           a.Name,
			})
		}
		return txRepos.Message.CreateAttachments(attachments)
	})
	if err != nil {
		return nil, fail("send message", err, zap.Uint("room_id", roomID), zap.Uint("sender_id", senderID))
	}

	s.afterSend(ctx, chatRoom, msg, attachments, effective, mentioned)
	return &respond.SendMessageRespond{MessageID: msg.ID, Impersonated: impersonated}, nil
}

// checkPrivatePair finds the other participant and applies the pair block.
func (s *Service) checkPrivatePair(roomID, senderID uint) error {
	members, err := s.repos.Participant.MemberIDs(roomID)
	if err != nil {
		return fail("list participants", err, zap.Uint("room_id", roomID))
	}
	for _, id := range members {
		if id != senderID {
			return room.CheckPairBlock(s.repos, senderID, id)
		}
	}
	return nil
}

// createMentions keeps only current participants other than the sender and
// notifies those who have the room visible and opted in.
func createMentions(tx *repository.Repositories, msg *model.Message, requested []uint) ([]uint, error) {
	candidates := make([]uint, 0, len(requested))
	for _, id := range requested {
		if id != *msg.SenderID {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	members, err := tx.Participant.FilterMembers(msg.RoomID, candidates)
	if err != nil || len(members) == 0 {
		return nil, err
	}

	mentions := make([]model.MessageMention, 0, len(members))
	for _, id := range members {
		mentions = append(mentions, model.MessageMention{MessageID: msg.ID, MentionedUserID: id, RoomID: msg.RoomID})
	}
	if err := tx.Message.CreateMentions(mentions); err != nil {
		return nil, err
	}

	visible, err := tx.Participant.VisibleTo(msg.RoomID, members)
	if err != nil || len(visible) == 0 {
		return members, err
	}
	users, err := tx.User.FindByIDs(visible)
	if err != nil {
		return nil, err
	}
	notes := make([]model.Notification, 0, len(users))
	for i := range users {
		if users[i].NotifyTaggedMessages {
			notes = append(notes, notification.Mention(users[i].ID, msg.RoomID, msg.ID))
		}
	}
	if len(notes) == 0 {
		return members, nil
	}
	return members, tx.Notification.CreateBatch(notes)
}

// afterSend runs the post-commit side effects. None of them can fail the send.
func (s *Service) afterSend(ctx context.Context, chatRoom *model.ChatRoom, msg *model.Message, attachments []model.MessageAttachment, sender *model.User, mentioned []uint) {
	metrics.RecordMessageSent(chatRoom.RoomType, false)
	if s.reads != nil {
		if _, err := s.reads.Advance(ctx, chatRoom.ID, sender.ID, msg.ID); err != nil {
			zap.L().Warn("advance sender cursor failed", zap.Uint("room_id", chatRoom.ID), zap.Error(err))
		}
		if len(mentioned) > 0 {
			s.reads.InvalidateMentionCount(mentioned...)
		}
	}

	s.broadcast(ctx, msg)

	if s.scheduler != nil {
		switch {
		case chatRoom.RoomType == model.RoomTypeAI:
			s.scheduler.ReplyNow(ctx, chatRoom.ID, msg.ID)
		case chatRoom.IsGroup():
			ok, err := s.perms.Allowed(ctx, sender, model.PermAiGroupAutoreply)
			if err != nil {
				zap.L().Warn("autoreply permission lookup failed", zap.Uint("user_id", sender.ID), zap.Error(err))
			}
			if ok {
				s.scheduler.Schedule(ctx, chatRoom.ID, msg.ID)
			}
		}
	}

	if s.observer != nil && chatRoom.IsGroup() {
		s.observer.Observe(chatRoom, msg, attachments)
	}
}

// broadcast serializes msg and hands it to the publisher. Failures are
// logged; the message is already durable.
func (s *Service) broadcast(ctx context.Context, msg *model.Message) {
	if s.publisher == nil {
		return
	}
	payloads, err := BuildPayloads(s.repos, []model.Message{*msg}, 0)
	if err != nil {
		zap.L().Error("serialize message failed", zap.Uint("message_id", msg.ID), zap.Error(err))
		return
	}
	s.publisher.PublishMessage(ctx, msg.RoomID, payloads[0])
}

// PostAI stores an AI reply from senderID and broadcasts it. No mentions,
// no scheduling and no moderation run for AI output.
func (s *Service) PostAI(ctx context.Context, chatRoom *model.ChatRoom, senderID uint, parentID *uint, content string) (*model.Message, error) {
	sid := senderID
	msg := &model.Message{
		RoomID:          chatRoom.ID,
		SenderID:        &sid,
		Content:         content,
		IsAI:            true,
		ParentMessageID: parentID,
	}
	if err := s.repos.Message.Create(msg); err != nil {
		return nil, fail("post ai message", err, zap.Uint("room_id", chatRoom.ID))
	}
	metrics.RecordMessageSent(chatRoom.RoomType, true)
	s.broadcast(ctx, msg)
	return msg, nil
}
