// Package room resolves rooms for an interaction intent, materializes their
// membership and lists them.
package room

import (
	"context"
	"fmt"
	"time"

	"clinic_chat_server/internal/config"
	"clinic_chat_server/internal/dao/mysql/repository"
	"clinic_chat_server/internal/dto/request"
	"clinic_chat_server/internal/dto/respond"
	"clinic_chat_server/internal/model"
	"clinic_chat_server/internal/service/permission"
	"clinic_chat_server/pkg/errorx"

	"go.uber.org/zap"
)

// Service resolves rooms for an interaction intent and lists them.
// Every mutation runs in one Repositories.Transaction; audit viewers are
// rejected with ReadOnly before anything is written.
type Service struct {
	repos *repository.Repositories
	perms permission.Checker
	cfg   config.ChatConfig
}

// NewService builds the room service; perms is usually the permission.Oracle.
func NewService(repos *repository.Repositories, perms permission.Checker, cfg config.ChatConfig) *Service {
	return &Service{repos: repos, perms: perms, cfg: cfg}
}

// writable rejects audit viewers and actors lacking code.
func (s *Service) writable(ctx context.Context, actor *model.User, code string) error {
	if permission.IsAuditor(ctx, s.perms, actor) {
		return errorx.ErrReadOnly
	}
	if code == "" {
		return nil
	}
	return permission.Require(ctx, s.perms, actor, code)
}

// EnsureClinicGroup get-or-creates the clinic_all room and resyncs it.
func (s *Service) EnsureClinicGroup(ctx context.Context, actor *model.User, clinicID uint) (*respond.RoomRespond, error) {
	if err := permission.Require(ctx, s.perms, actor, model.PermEnsureClinicGroup); err != nil {
		return nil, err
	}
	if err := s.requireClinicMember(ctx, actor, clinicID); err != nil {
		return nil, err
	}

	var room *model.ChatRoom
	err := s.repos.Transaction(func(txRepos *repository.Repositories) error {
		var err error
		room, err = EnsureClinicAll(txRepos, clinicID)
		return err
	})
	if err != nil {
		return nil, s.fail("ensure clinic group", err, zap.Uint("clinic_id", clinicID))
	}
	return toRoomRespond(room), nil
}

// requireClinicMember lets auditors through; everyone else must be linked.
func (s *Service) requireClinicMember(ctx context.Context, actor *model.User, clinicID uint) error {
	if _, err := s.repos.Clinic.FindByID(clinicID); err != nil {
		if errorx.IsNotFound(err) {
			return errorx.New(errorx.CodeNotFound, "clinic not found")
		}
		return s.fail("find clinic", err, zap.Uint("clinic_id", clinicID))
	}
	if permission.IsAuditor(ctx, s.perms, actor) {
		return nil
	}
	linked, err := s.repos.Clinic.FilterMembers(clinicID, []uint{actor.ID})
	if err != nil {
		return s.fail("check clinic membership", err, zap.Uint("clinic_id", clinicID))
	}
	if len(linked) == 0 {
		return errorx.ErrAccessDenied
	}
	return nil
}

// OpenPrivate resolves the pair's room, creating both memberships on first
// use, and makes it visible to actor again.
func (s *Service) OpenPrivate(ctx context.Context, actor *model.User, otherID uint) (*respond.RoomRespond, error) {
	if otherID == actor.ID {
		return nil, errorx.ErrSelfActionDenied
	}
	if err := s.writable(ctx, actor, model.PermCreatePrivate); err != nil {
		return nil, err
	}
	other, err := s.repos.User.FindByID(otherID)
	if err != nil || !other.Usable() {
		if err == nil || errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeNotFound, "user not found")
		}
		return nil, s.fail("find user", err, zap.Uint("user_id", otherID))
	}
	if err := CheckPairBlock(s.repos, actor.ID, otherID); err != nil {
		return nil, err
	}

	room := model.NewPrivateRoom(actor.ID, otherID)
	err = s.repos.Transaction(func(txRepos *repository.Repositories) error {
		if _, err := txRepos.Room.GetOrCreate(room); err != nil {
			return err
		}
		if err := txRepos.Participant.AddMembers(room.ID, []uint{actor.ID, otherID}); err != nil {
			return err
		}
		return txRepos.Participant.Unhide(room.ID, actor.ID)
	})
	if err != nil {
		return nil, s.fail("open private room", err, zap.Uint("user_id", actor.ID), zap.Uint("other_id", otherID))
	}
	return toRoomRespond(room), nil
}

// CheckPairBlock returns ChatBlocked when a block exists in either
// direction. The data tells actor which side blocked.
func CheckPairBlock(repos *repository.Repositories, actorID, otherID uint) error {
	block, err := repos.Block.FindBetween(actorID, otherID)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil
		}
		zap.L().Error("block lookup failed", zap.Uint("user_id", actorID), zap.Error(err))
		return errorx.ErrServerBusy
	}
	by := "other"
	if block.BlockerID == actorID {
		by = "me"
	}
	return errorx.ErrChatBlocked.WithData(respond.ChatBlockedData{BlockedBy: by, BlockedAt: block.BlockedAt})
}

// OpenAI resolves the actor's assistant room.
func (s *Service) OpenAI(ctx context.Context, actor *model.User) (*respond.RoomRespond, error) {
	if err := s.writable(ctx, actor, model.PermUseAI); err != nil {
		return nil, err
	}
	room := model.NewAiRoom(actor.ID)
	err := s.repos.Transaction(func(txRepos *repository.Repositories) error {
		if _, err := txRepos.Room.GetOrCreate(room); err != nil {
			return err
		}
		if err := txRepos.Participant.AddMembers(room.ID, []uint{actor.ID}); err != nil {
			return err
		}
		return txRepos.Participant.Unhide(room.ID, actor.ID)
	})
	if err != nil {
		return nil, s.fail("open ai room", err, zap.Uint("user_id", actor.ID))
	}
	return toRoomRespond(room), nil
}

// CreateClinicGroup creates a group room of the requested kind.
func (s *Service) CreateClinicGroup(ctx context.Context, actor *model.User, req request.CreateGroupRequest) (*respond.RoomRespond, error) {
	if err := s.writable(ctx, actor, model.PermCreateGroup); err != nil {
		return nil, err
	}
	if err := s.requireClinicMember(ctx, actor, req.ClinicID); err != nil {
		return nil, err
	}
	clinic, err := s.repos.Clinic.FindByID(req.ClinicID)
	if err != nil {
		return nil, s.fail("find clinic", err, zap.Uint("clinic_id", req.ClinicID))
	}

	var room *model.ChatRoom
	switch req.Kind {
	case model.GroupKindClinicAll:
		room = model.NewClinicGroupRoom(req.Kind, clinic.ID, "", firstNonEmpty(req.Name, clinic.Name))
	case model.GroupKindClinicRole:
		room = model.NewClinicGroupRoom(req.Kind, clinic.ID, req.Role, firstNonEmpty(req.Name, fmt.Sprintf("%s %s", clinic.Name, req.Role)))
	case model.GroupKindClinicCustom:
		room = model.NewClinicGroupRoom(req.Kind, clinic.ID, "", firstNonEmpty(req.Name, "Group"))
	default:
		return nil, errorx.ErrInvalidParam
	}
	if err := room.Validate(); err != nil {
		return nil, errorx.Wrap(err, errorx.CodeInvalidParam, err.Error())
	}

	var members []uint
	if req.Kind == model.GroupKindClinicCustom {
		members, err = s.customMembers(clinic.ID, actor.ID, req.UserIDs)
		if err != nil {
			return nil, err
		}
	}

	err = s.repos.Transaction(func(txRepos *repository.Repositories) error {
		created, err := txRepos.Room.GetOrCreate(room)
		if err != nil {
			return err
		}
		if req.Kind == model.GroupKindClinicAll && !created {
			return errorx.ErrDuplicateGroup
		}
		if req.Kind == model.GroupKindClinicCustom {
			return txRepos.Participant.AddMembers(room.ID, members)
		}
		if err := SyncRoster(txRepos, room); err != nil {
			return err
		}
		return addVisible(txRepos, []uint{room.ID}, actor.ID)
	})
	if err != nil {
		return nil, s.fail("create clinic group", err, zap.Uint("clinic_id", req.ClinicID), zap.String("kind", req.Kind))
	}
	return toRoomRespond(room), nil
}

// customMembers validates that every requested user is linked to clinicID.
// The creator is always included.
func (s *Service) customMembers(clinicID, creatorID uint, requested []uint) ([]uint, error) {
	wanted := toSet(append([]uint{creatorID}, requested...))
	ids := make([]uint, 0, len(wanted))
	for id := range wanted {
		ids = append(ids, id)
	}
	linked, err := s.repos.Clinic.FilterMembers(clinicID, ids)
	if err != nil {
		return nil, s.fail("filter clinic members", err, zap.Uint("clinic_id", clinicID))
	}
	if len(toSet(linked)) != len(wanted) {
		return nil, errorx.ErrInvalidMembers
	}
	return ids, nil
}

// SoftDelete hides the room for actor only.
func (s *Service) SoftDelete(ctx context.Context, actor *model.User, roomID uint) error {
	if err := s.writable(ctx, actor, model.PermDeleteChat); err != nil {
		return err
	}
	if err := s.requireParticipant(roomID, actor.ID); err != nil {
		return err
	}
	if err := s.repos.Participant.HideRooms([]uint{roomID}, actor.ID, time.Now()); err != nil {
		return s.fail("hide room", err, zap.Uint("room_id", roomID))
	}
	return nil
}

// ClearHistory hides every message up to now for actor only.
func (s *Service) ClearHistory(ctx context.Context, actor *model.User, roomID uint) error {
	if err := s.writable(ctx, actor, ""); err != nil {
		return err
	}
	if err := s.requireParticipant(roomID, actor.ID); err != nil {
		return err
	}
	if err := s.repos.Preference.Upsert(actor.ID, roomID, time.Now()); err != nil {
		return s.fail("clear history", err, zap.Uint("room_id", roomID))
	}
	return nil
}

func (s *Service) requireParticipant(roomID, userID uint) error {
	ok, err := s.repos.Participant.Exists(roomID, userID)
	if err != nil {
		return s.fail("check participant", err, zap.Uint("room_id", roomID))
	}
	if !ok {
		return errorx.ErrAccessDenied
	}
	return nil
}

// fail passes coded domain errors through and hides infrastructure ones.
func (s *Service) fail(op string, err error, fields ...zap.Field) error {
	switch errorx.GetCode(err) {
	case errorx.CodeDBError, errorx.CodeCacheError, errorx.CodeServerBusy:
		zap.L().Error(op+" failed", append(fields, zap.Error(err))...)
		return errorx.ErrServerBusy
	}
	return err
}

func toRoomRespond(r *model.ChatRoom) *respond.RoomRespond {
	return &respond.RoomRespond{
		RoomID:    r.ID,
		Type:      r.RoomType,
		GroupKind: r.GroupKind,
		Role:      r.Role,
		ClinicID:  r.ClinicID,
		Name:      r.Name,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
