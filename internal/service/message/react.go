package message

import (
	"context"

	"clinic_chat_server/internal/dao/mysql/repository"
	"clinic_chat_server/internal/dto/respond"
	"clinic_chat_server/internal/model"
	"clinic_chat_server/internal/service/access"
	"clinic_chat_server/internal/service/permission"
	"clinic_chat_server/pkg/errorx"

	"go.uber.org/zap"
)

// React toggles actor's reaction on messageID: the same reaction again
// removes it, the opposite one replaces it. Reactions on AI messages are
// mirrored into AiFeedback.
func (s *Service) React(ctx context.Context, actor *model.User, messageID uint, reaction string) (*respond.ReactRespond, error) {
	code := model.PermReactLike
	if reaction == model.ReactionDislike {
		code = model.PermReactDislike
	}
	if permission.IsAuditor(ctx, s.perms, actor) {
		return nil, errorx.ErrReadOnly
	}
	if err := permission.Require(ctx, s.perms, actor, code); err != nil {
		return nil, err
	}

	msg, err := s.repos.Message.FindByID(messageID)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeNotFound, "message not found")
		}
		return nil, fail("find message", err, zap.Uint("message_id", messageID))
	}
	chatRoom, err := access.Require(s.repos, msg.RoomID, actor.ID)
	if err != nil {
		return nil, fail("check room access", err, zap.Uint("room_id", msg.RoomID))
	}

	out := &respond.ReactRespond{MessageID: messageID, UserID: actor.ID}
	err = s.repos.Transaction(func(txRepos *repository.Repositories) error {
		current, err := txRepos.Reaction.Find(messageID, actor.ID)
		switch {
		case errorx.IsNotFound(err):
			if err := txRepos.Reaction.Create(&model.MessageReaction{MessageID: messageID, UserID: actor.ID, Reaction: reaction}); err != nil {
				return err
			}
			out.Reaction = &reaction
		case err != nil:
			return err
		case current.Reaction == reaction:
			if err := txRepos.Reaction.Delete(current.ID); err != nil {
				return err
			}
		default:
			if err := txRepos.Reaction.UpdateReaction(current.ID, reaction); err != nil {
				return err
			}
			out.Reaction = &reaction
		}

		if msg.IsAI {
			if err := recordFeedback(txRepos, chatRoom, msg, actor, out.Reaction); err != nil {
				return err
			}
		}

		all, err := txRepos.Reaction.ListByMessages([]uint{messageID})
		if err != nil {
			return err
		}
		out.Counts = counts(all)
		return nil
	})
	if err != nil {
		return nil, fail("react", err, zap.Uint("message_id", messageID), zap.Uint("user_id", actor.ID))
	}

	if s.publisher != nil {
		s.publisher.PublishReaction(ctx, msg.RoomID, *out)
	}
	return out, nil
}

func recordFeedback(tx *repository.Repositories, chatRoom *model.ChatRoom, msg *model.Message, actor *model.User, reaction *string) error {
	if reaction == nil {
		return tx.AiFeedback.DeleteReaction(msg.ID, actor.ID)
	}
	uid := actor.ID
	return tx.AiFeedback.UpsertReaction(&model.AiFeedback{
		MessageID: msg.ID,
		UserID:    &uid,
		Source:    model.FeedbackSourceReaction,
		Reaction:  *reaction,
		Role:      actor.Role,
		RoomType:  chatRoom.RoomType,
		ClinicID:  chatRoom.ClinicID,
	})
}
