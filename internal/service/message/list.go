package message

import (
	"context"
	"time"

	"clinic_chat_server/internal/dto/respond"
	"clinic_chat_server/internal/model"
	"clinic_chat_server/internal/service/access"
	"clinic_chat_server/internal/service/permission"
	"clinic_chat_server/pkg/errorx"

	"go.uber.org/zap"
)

const (
	defaultPageSize    = 50
	defaultHistorySize = 100
)

// List returns one page of roomID for viewer, oldest first.
// Audit viewers read any room without touching cursors. Everyone else must
// pass the access guard, sees nothing below their clear-history mark, and
// has their cursor moved to the newest message when fetching the first page.
func (s *Service) List(ctx context.Context, viewer *model.User, roomID, beforeID uint) (*respond.MessageListRespond, error) {
	if permission.IsAuditor(ctx, s.perms, viewer) {
		return s.auditList(viewer, roomID, beforeID)
	}

	chatRoom, err := access.Require(s.repos, roomID, viewer.ID)
	if err != nil {
		return nil, fail("check room access", err, zap.Uint("room_id", roomID))
	}

	var since *time.Time
	pref, err := s.repos.Preference.Find(viewer.ID, roomID)
	switch {
	case err == nil:
		since = &pref.HideHistoryBefore
	case !errorx.IsNotFound(err):
		return nil, fail("find history preference", err, zap.Uint("room_id", roomID))
	}

	msgs, err := s.repos.Message.ListPage(roomID, since, beforeID, s.pageSize())
	if err != nil {
		return nil, fail("list messages", err, zap.Uint("room_id", roomID))
	}
	payloads, err := BuildPayloads(s.repos, msgs, viewer.ID)
	if err != nil {
		return nil, fail("serialize messages", err, zap.Uint("room_id", roomID))
	}
	out := &respond.MessageListRespond{RoomID: roomID, Messages: payloads}

	if chatRoom.RoomType == model.RoomTypePrivate {
		if err := s.fillBlockInfo(out, viewer.ID); err != nil {
			return nil, err
		}
	}

	// seen on fetch
	if beforeID == 0 && len(msgs) > 0 && s.reads != nil {
		if _, err := s.reads.Advance(ctx, roomID, viewer.ID, msgs[len(msgs)-1].ID); err != nil {
			zap.L().Warn("advance cursor on fetch failed", zap.Uint("room_id", roomID), zap.Uint("user_id", viewer.ID), zap.Error(err))
		}
	}
	return out, nil
}

func (s *Service) auditList(viewer *model.User, roomID, beforeID uint) (*respond.MessageListRespond, error) {
	if _, err := s.repos.Room.FindByID(roomID); err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeNotFound, "room not found")
		}
		return nil, fail("find room", err, zap.Uint("room_id", roomID))
	}
	msgs, err := s.repos.Message.ListPage(roomID, nil, beforeID, s.pageSize())
	if err != nil {
		return nil, fail("list messages", err, zap.Uint("room_id", roomID))
	}
	payloads, err := BuildPayloads(s.repos, msgs, viewer.ID)
	if err != nil {
		return nil, fail("serialize messages", err, zap.Uint("room_id", roomID))
	}
	return &respond.MessageListRespond{RoomID: roomID, Messages: payloads, ReadOnly: true}, nil
}

// fillBlockInfo reports the pair block of a private room from viewerID's side.
func (s *Service) fillBlockInfo(out *respond.MessageListRespond, viewerID uint) error {
	members, err := s.repos.Participant.MemberIDs(out.RoomID)
	if err != nil {
		return fail("list participants", err, zap.Uint("room_id", out.RoomID))
	}
	for _, other := range members {
		if other == viewerID {
			continue
		}
		block, err := s.repos.Block.FindBetween(viewerID, other)
		if err != nil {
			if errorx.IsNotFound(err) {
				return nil
			}
			return fail("find block", err, zap.Uint("user_id", viewerID))
		}
		out.ChatBlocked = true
		out.BlockedAt = &block.BlockedAt
		if block.BlockerID == viewerID {
			out.BlockedBy = "me"
			out.CanUnblock = true
		} else {
			out.BlockedBy = "other"
		}
		return nil
	}
	return nil
}

// ListUserRoomMessages shows targetID's view of a room to a history viewer.
func (s *Service) ListUserRoomMessages(ctx context.Context, viewer *model.User, targetID, roomID uint) (*respond.MessageListRespond, error) {
	if err := permission.Require(ctx, s.perms, viewer, model.PermViewUserHistory); err != nil {
		return nil, err
	}
	ok, err := s.repos.Participant.Exists(roomID, targetID)
	if err != nil {
		return nil, fail("check participant", err, zap.Uint("room_id", roomID))
	}
	if !ok {
		return nil, errorx.ErrAccessDenied
	}

	size := s.cfg.HistoryPageSize
	if size <= 0 {
		size = defaultHistorySize
	}
	msgs, err := s.repos.Message.ListPage(roomID, nil, 0, size)
	if err != nil {
		return nil, fail("list messages", err, zap.Uint("room_id", roomID))
	}
	payloads, err := BuildPayloads(s.repos, msgs, targetID)
	if err != nil {
		return nil, fail("serialize messages", err, zap.Uint("room_id", roomID))
	}
	return &respond.MessageListRespond{RoomID: roomID, Messages: payloads, ReadOnly: true}, nil
}

func (s *Service) pageSize() int {
	if s.cfg.MessagePageSize > 0 {
		return s.cfg.MessagePageSize
	}
	return defaultPageSize
}
