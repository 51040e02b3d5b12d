package room

import (
	"context"

	"clinic_chat_server/internal/dto/respond"
	"clinic_chat_server/internal/model"
	"clinic_chat_server/internal/service/permission"
	"clinic_chat_server/pkg/errorx"

	"go.uber.org/zap"
)

// ListRooms lists the rooms visible to user, newest first. Audit viewers
// see every room in read-only mode.
func (s *Service) ListRooms(ctx context.Context, user *model.User) (*respond.RoomListRespond, error) {
	if permission.IsAuditor(ctx, s.perms, user) {
		rooms, err := s.repos.Room.ListAll(s.cfg.RoomListLimit)
		if err != nil {
			return nil, s.fail("list all rooms", err)
		}
		items, err := s.buildItems(rooms, 0)
		if err != nil {
			return nil, err
		}
		return &respond.RoomListRespond{Rooms: items, ReadOnly: true}, nil
	}

	rooms, err := s.repos.Room.ListVisible(user.ID, s.cfg.RoomListLimit)
	if err != nil {
		return nil, s.fail("list rooms", err, zap.Uint("user_id", user.ID))
	}
	items, err := s.buildItems(rooms, user.ID)
	if err != nil {
		return nil, err
	}
	return &respond.RoomListRespond{Rooms: items}, nil
}

// ListUserRooms lists every room target participates in, from target's
// point of view.
func (s *Service) ListUserRooms(ctx context.Context, viewer *model.User, targetID uint) (*respond.RoomListRespond, error) {
	if err := permission.Require(ctx, s.perms, viewer, model.PermViewUserHistory); err != nil {
		return nil, err
	}
	if _, err := s.repos.User.FindByID(targetID); err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeNotFound, "user not found")
		}
		return nil, s.fail("find user", err, zap.Uint("user_id", targetID))
	}
	rooms, err := s.repos.Room.ListOfUser(targetID, s.cfg.RoomListLimit)
	if err != nil {
		return nil, s.fail("list user rooms", err, zap.Uint("user_id", targetID))
	}
	items, err := s.buildItems(rooms, targetID)
	if err != nil {
		return nil, err
	}
	return &respond.RoomListRespond{Rooms: items, ReadOnly: true}, nil
}

// buildItems decorates rooms with members and the per-user flags of
// userID. A zero userID leaves unread and group_blocked false.
func (s *Service) buildItems(rooms []model.ChatRoom, userID uint) ([]respond.RoomListItem, error) {
	items := make([]respond.RoomListItem, 0, len(rooms))
	if len(rooms) == 0 {
		return items, nil
	}
	ids := roomIDs(rooms)

	lastIDs, err := s.repos.Message.LatestIDs(ids)
	if err != nil {
		return nil, s.fail("latest message ids", err)
	}
	members, err := s.repos.Participant.MembersOfRooms(ids)
	if err != nil {
		return nil, s.fail("room members", err)
	}
	byRoom := make(map[uint][]respond.MemberRespond, len(rooms))
	for _, m := range members {
		u := model.User{FirstName: m.FirstName, LastName: m.LastName}
		byRoom[m.RoomID] = append(byRoom[m.RoomID], respond.MemberRespond{ID: m.UserID, Name: u.DisplayName(), Role: m.Role})
	}

	states := make(map[uint]model.RoomUserState)
	if userID != 0 {
		rows, err := s.repos.Participant.StatesOfUser(userID, ids)
		if err != nil {
			return nil, s.fail("room states", err, zap.Uint("user_id", userID))
		}
		for _, st := range rows {
			states[st.RoomID] = st
		}
	}

	for i := range rooms {
		r := &rooms[i]
		item := respond.RoomListItem{RoomRespond: *toRoomRespond(r)}
		item.Members = byRoom[r.ID]
		if item.Members == nil {
			item.Members = []respond.MemberRespond{}
		}
		item.MemberCount = len(item.Members)
		if st, ok := states[r.ID]; ok {
			item.Unread = lastIDs[r.ID] > st.LastReadMessageID
			item.GroupBlocked = r.IsGroup() && st.IsBlocked
		}
		items = append(items, item)
	}
	return items, nil
}
