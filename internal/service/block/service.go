// Package block owns the two block mechanisms: pairwise user blocks and
// room-scoped group mutes. They never affect each other.
package block

import (
	"context"
	"time"

	"clinic_chat_server/internal/dao/mysql/repository"
	"clinic_chat_server/internal/dto/respond"
	"clinic_chat_server/internal/model"
	"clinic_chat_server/internal/service/permission"
	"clinic_chat_server/pkg/errorx"

	"go.uber.org/zap"
)

// Service owns both block mechanisms:
//   - the pairwise UserBlock edge, which stops private messaging
//   - the group mute on RoomUserState, which stops one member in one room
//
// They never share state.
type Service struct {
	repos *repository.Repositories
	perms permission.Checker
}

// NewService builds the block service.
func NewService(repos *repository.Repositories, perms permission.Checker) *Service {
	return &Service{repos: repos, perms: perms}
}

type blockedAtData struct {
	BlockedBy string    `json:"blocked_by"`
	BlockedAt time.Time `json:"blocked_at"`
}

func (s *Service) writable(ctx context.Context, actor *model.User, code string) error {
	if permission.IsAuditor(ctx, s.perms, actor) {
		return errorx.ErrReadOnly
	}
	return permission.Require(ctx, s.perms, actor, code)
}

// Block adds the actor -> target edge.
func (s *Service) Block(ctx context.Context, actor *model.User, targetID uint) error {
	if targetID == actor.ID {
		return errorx.ErrSelfActionDenied
	}
	if err := s.writable(ctx, actor, model.PermBlockUser); err != nil {
		return err
	}
	if _, err := s.repos.User.FindByID(targetID); err != nil {
		if errorx.IsNotFound(err) {
			return errorx.New(errorx.CodeNotFound, "user not found")
		}
		return s.busy("find user", err, targetID)
	}

	// blocked by the other side already: tell the actor since when
	reverse, err := s.repos.Block.Find(targetID, actor.ID)
	if err == nil {
		return errorx.New(errorx.CodeAlreadyBlocked, "this user has already blocked you").
			WithData(blockedAtData{BlockedBy: "other", BlockedAt: reverse.BlockedAt})
	}
	if !errorx.IsNotFound(err) {
		return s.busy("find reverse block", err, targetID)
	}

	edge := &model.UserBlock{BlockerID: actor.ID, BlockedID: targetID, BlockedAt: time.Now()}
	created, err := s.repos.Block.Create(edge)
	if err != nil {
		return s.busy("create block", err, targetID)
	}
	if !created {
		existing, err := s.repos.Block.Find(actor.ID, targetID)
		if err != nil {
			return s.busy("find block", err, targetID)
		}
		return errorx.ErrAlreadyBlocked.WithData(blockedAtData{BlockedBy: "me", BlockedAt: existing.BlockedAt})
	}
	zap.L().Info("user blocked", zap.Uint("user_id", actor.ID), zap.Uint("blocked_id", targetID))
	return nil
}

// Unblock removes only the actor's own edge.
func (s *Service) Unblock(ctx context.Context, actor *model.User, targetID uint) error {
	if targetID == actor.ID {
		return errorx.ErrSelfActionDenied
	}
	if err := s.writable(ctx, actor, model.PermBlockUser); err != nil {
		return err
	}
	n, err := s.repos.Block.Delete(actor.ID, targetID)
	if err != nil {
		return s.busy("delete block", err, targetID)
	}
	if n == 0 {
		return errorx.ErrNotBlocked
	}
	return nil
}

// List returns the users actor has blocked.
func (s *Service) List(ctx context.Context, actor *model.User) ([]respond.BlockRespond, error) {
	blocks, err := s.repos.Block.ListByBlocker(actor.ID)
	if err != nil {
		return nil, s.busy("list blocks", err, actor.ID)
	}
	ids := make([]uint, 0, len(blocks))
	for _, b := range blocks {
		ids = append(ids, b.BlockedID)
	}
	users, err := s.repos.User.FindByIDs(ids)
	if err != nil {
		return nil, s.busy("find blocked users", err, actor.ID)
	}
	names := make(map[uint]string, len(users))
	for i := range users {
		names[users[i].ID] = users[i].DisplayName()
	}

	out := make([]respond.BlockRespond, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, respond.BlockRespond{UserID: b.BlockedID, Name: names[b.BlockedID], BlockedAt: b.BlockedAt})
	}
	return out, nil
}

// SetMute toggles the group mute of target in a group room. The state row
// is locked so concurrent toggles cannot both succeed.
func (s *Service) SetMute(ctx context.Context, actor *model.User, roomID, targetID uint, mute bool) error {
	if targetID == actor.ID {
		return errorx.ErrSelfActionDenied
	}
	if err := s.writable(ctx, actor, model.PermManageGroup); err != nil {
		return err
	}
	room, err := s.repos.Room.FindByID(roomID)
	if err != nil {
		if errorx.IsNotFound(err) {
			return errorx.ErrAccessDenied
		}
		return s.busy("find room", err, roomID)
	}
	if !room.IsGroup() {
		return errorx.New(errorx.CodeInvalidParam, "only group members can be muted")
	}
	member, err := s.repos.Participant.Exists(roomID, actor.ID)
	if err != nil {
		return s.busy("check participant", err, roomID)
	}
	if !member {
		return errorx.ErrAccessDenied
	}

	err = s.repos.Transaction(func(txRepos *repository.Repositories) error {
		state, err := txRepos.Participant.LockState(roomID, targetID)
		if err != nil {
			if errorx.IsNotFound(err) {
				return errorx.New(errorx.CodeNotFound, "member not found")
			}
			return err
		}
		if state.IsBlocked == mute {
			if mute {
				return errorx.ErrAlreadyBlocked
			}
			return errorx.ErrNotBlocked
		}
		var at *time.Time
		if mute {
			now := time.Now()
			at = &now
		}
		return txRepos.Participant.SetBlocked(roomID, targetID, mute, at)
	})
	if err != nil {
		if errorx.GetCode(err) == errorx.CodeDBError {
			return s.busy("toggle group mute", err, roomID)
		}
		return err
	}
	zap.L().Info("group mute changed", zap.Uint("room_id", roomID), zap.Uint("user_id", targetID), zap.Bool("muted", mute))
	return nil
}

func (s *Service) busy(op string, err error, id uint) error {
	zap.L().Error(op+" failed", zap.Uint("id", id), zap.Error(err))
	return errorx.ErrServerBusy
}
