package room

import (
	"fmt"
	"time"

	"clinic_chat_server/internal/dao/mysql/repository"
	"clinic_chat_server/internal/model"
	"clinic_chat_server/pkg/errorx"
)

// The functions in this file reconcile group membership with the clinic
// directory. They take a repository set so callers run them inside the
// transaction of the triggering change.

// EnsureClinicAll get-or-creates the clinic-wide room and syncs its roster.
func EnsureClinicAll(tx *repository.Repositories, clinicID uint) (*model.ChatRoom, error) {
	clinic, err := tx.Clinic.FindByID(clinicID)
	if err != nil {
		return nil, err
	}
	room := model.NewClinicGroupRoom(model.GroupKindClinicAll, clinicID, "", clinic.Name)
	if _, err := tx.Room.GetOrCreate(room); err != nil {
		return nil, err
	}
	if err := SyncRoster(tx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// SyncRoster makes a clinic_all or clinic_role room match the active
// roster: missing members are added, users no longer active in the clinic
// are evicted. Custom rooms keep their explicit membership and only lose
// users who left the clinic.
func SyncRoster(tx *repository.Repositories, room *model.ChatRoom) error {
	if !room.IsGroup() || room.ClinicID == nil {
		return errorx.Newf(errorx.CodeInvalidParam, "room %d is not a clinic group", room.ID)
	}
	clinicID := *room.ClinicID

	active, err := tx.Clinic.ActiveMemberIDs(clinicID, "")
	if err != nil {
		return err
	}
	activeSet := toSet(active)

	var wanted []uint
	switch room.GroupKind {
	case model.GroupKindClinicAll:
		wanted = active
	case model.GroupKindClinicRole:
		if wanted, err = tx.Clinic.ActiveMemberIDs(clinicID, room.Role); err != nil {
			return err
		}
	}
	if err := tx.Participant.AddMembers(room.ID, wanted); err != nil {
		return err
	}

	current, err := tx.Participant.MemberIDs(room.ID)
	if err != nil {
		return err
	}
	for _, uid := range current {
		if _, ok := activeSet[uid]; ok {
			continue
		}
		if err := tx.Participant.RemoveMembers([]uint{room.ID}, uid); err != nil {
			return err
		}
	}
	return nil
}

// JoinClinic adds user to the clinic_all room and every existing role
// room of their role in that clinic, making them visible again.
func JoinClinic(tx *repository.Repositories, user *model.User, clinicID uint) error {
	allRoom, err := EnsureClinicAll(tx, clinicID)
	if err != nil {
		return err
	}
	roomIDs := []uint{allRoom.ID}

	if user.Role != "" {
		roleRooms, err := tx.Room.FindGroupRooms([]uint{clinicID}, model.GroupKindClinicRole, user.Role)
		if err != nil {
			return err
		}
		for _, r := range roleRooms {
			roomIDs = append(roomIDs, r.ID)
		}
	}
	return addVisible(tx, roomIDs, user.ID)
}

// LeaveClinic deletes participant and state rows of the clinic's group rooms.
func LeaveClinic(tx *repository.Repositories, userID, clinicID uint) error {
	roomIDs, err := tx.Room.GroupRoomIDsOfUser(userID, []uint{clinicID})
	if err != nil {
		return err
	}
	return tx.Participant.RemoveMembers(roomIDs, userID)
}

// ChangeRole moves user from old-role rooms to new-role rooms in every
// clinic they belong to.
func ChangeRole(tx *repository.Repositories, user *model.User, oldRole, newRole string) error {
	if oldRole == newRole {
		return nil
	}
	clinicIDs, err := tx.Clinic.ClinicIDsOfUser(user.ID)
	if err != nil || len(clinicIDs) == 0 {
		return err
	}

	if oldRole != "" {
		oldRooms, err := tx.Room.FindGroupRooms(clinicIDs, model.GroupKindClinicRole, oldRole)
		if err != nil {
			return err
		}
		if err := tx.Participant.RemoveMembers(roomIDs(oldRooms), user.ID); err != nil {
			return err
		}
	}
	if newRole != "" {
		newRooms, err := tx.Room.FindGroupRooms(clinicIDs, model.GroupKindClinicRole, newRole)
		if err != nil {
			return err
		}
		if err := addVisible(tx, roomIDs(newRooms), user.ID); err != nil {
			return err
		}
	}
	return nil
}

// Deactivate removes user from every group roster and hides those rooms.
// State rows survive so a reactivation restores cursors and mutes.
// Private and AI rooms are untouched.
func Deactivate(tx *repository.Repositories, userID uint) error {
	ids, err := tx.Room.GroupRoomIDsOfUser(userID, nil)
	if err != nil {
		return err
	}
	if err := tx.Participant.HideRooms(ids, userID, time.Now()); err != nil {
		return err
	}
	return tx.Participant.DeleteParticipants(ids, userID)
}

// Reactivate reruns the join logic for every clinic of user.
func Reactivate(tx *repository.Repositories, user *model.User) error {
	clinicIDs, err := tx.Clinic.ClinicIDsOfUser(user.ID)
	if err != nil {
		return err
	}
	for _, cid := range clinicIDs {
		if err := JoinClinic(tx, user, cid); err != nil {
			return fmt.Errorf("rejoin clinic %d: %w", cid, err)
		}
	}
	return nil
}

func addVisible(tx *repository.Repositories, ids []uint, userID uint) error {
	for _, id := range ids {
		if err := tx.Participant.AddMembers(id, []uint{userID}); err != nil {
			return err
		}
		if err := tx.Participant.Unhide(id, userID); err != nil {
			return err
		}
	}
	return nil
}

func roomIDs(rooms []model.ChatRoom) []uint {
	ids := make([]uint, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}
	return ids
}

func toSet(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
