// Package access decides whether a user may interact with a room.
package access

import (
	"clinic_chat_server/internal/dao/mysql/repository"
	"clinic_chat_server/internal/model"
	"clinic_chat_server/pkg/errorx"
)

// Decision is the guard's view of one (room, user) pair.
type Decision struct {
	Room        *model.ChatRoom
	Participant bool
	// Muted is the group-scope block. A muted member stays on the roster
	// but is denied every interaction.
	Muted bool
}

// CanAccess is participant existence without a group mute.
func (d Decision) CanAccess() bool {
	return d.Participant && !d.Muted
}

// Evaluate loads the room and the user's membership facts. Pass txRepos to
// evaluate inside a transaction.
func Evaluate(repos *repository.Repositories, roomID, userID uint) (Decision, error) {
	room, err := repos.Room.FindByID(roomID)
	if err != nil {
		return Decision{}, err
	}
	d := Decision{Room: room}

	d.Participant, err = repos.Participant.Exists(roomID, userID)
	if err != nil || !d.Participant {
		return d, err
	}
	state, err := repos.Participant.FindState(roomID, userID)
	if err != nil {
		if errorx.IsNotFound(err) {
			return d, nil
		}
		return d, err
	}
	d.Muted = state.IsBlocked
	return d, nil
}

// Require returns the room when userID may interact with it.
// Missing rooms and non-participants both read as AccessDenied; a muted
// group member gets GroupBlocked.
func Require(repos *repository.Repositories, roomID, userID uint) (*model.ChatRoom, error) {
	d, err := Evaluate(repos, roomID, userID)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.ErrAccessDenied
		}
		return nil, err
	}
	if !d.Participant {
		return nil, errorx.ErrAccessDenied
	}
	if d.Muted {
		return nil, errorx.ErrGroupBlocked
	}
	return d.Room, nil
}

// Guard binds Evaluate to a repository set for callers outside transactions.
type Guard struct {
	repos *repository.Repositories
}

// NewGuard binds the guard to repos. The gateway re-checks every live frame through it.
func NewGuard(repos *repository.Repositories) *Guard {
	return &Guard{repos: repos}
}

// CanAccess answers the access predicate.
func (g *Guard) CanAccess(roomID, userID uint) (bool, error) {
	d, err := Evaluate(g.repos, roomID, userID)
	if err != nil {
		if errorx.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return d.CanAccess(), nil
}

// Require is the package Require on the bound repositories.
func (g *Guard) Require(roomID, userID uint) (*model.ChatRoom, error) {
	return Require(g.repos, roomID, userID)
}
