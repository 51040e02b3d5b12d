// Package user serves the chat user picker.
package user

import (
	"context"
	"strings"

	"clinic_chat_server/internal/dao/mysql/repository"
	"clinic_chat_server/internal/dto/respond"
	"clinic_chat_server/internal/model"
	"clinic_chat_server/internal/service/permission"
	"clinic_chat_server/pkg/constants"
	"clinic_chat_server/pkg/errorx"

	"go.uber.org/zap"
)

// Service backs the user picker.
type Service struct {
	repos *repository.Repositories
	perms permission.Checker
}

func NewService(repos *repository.Repositories, perms permission.Checker) *Service {
	return &Service{repos: repos, perms: perms}
}

// Search lists usable users the viewer may start a chat with.
// Owners and holders of view_all_users see everyone, other users only
// colleagues from their own clinics. The viewer is never listed.
func (s *Service) Search(ctx context.Context, viewer *model.User, search string) ([]respond.UserRespond, error) {
	all, err := s.perms.Allowed(ctx, viewer, model.PermViewAllUsers)
	if err != nil {
		zap.L().Error("permission lookup failed", zap.Uint("user_id", viewer.ID), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	var clinicIDs []uint
	if !all && viewer.Role != constants.ROLE_OWNER {
		clinicIDs, err = s.repos.Clinic.ClinicIDsOfUser(viewer.ID)
		if err != nil {
			return nil, s.busy("clinics of user", err, viewer.ID)
		}
		if clinicIDs == nil {
			clinicIDs = []uint{}
		}
	}

	// one extra row leaves room for dropping the viewer
	users, err := s.repos.User.Search(strings.TrimSpace(search), clinicIDs, constants.USER_PICKER_LIMIT+1)
	if err != nil {
		return nil, s.busy("search users", err, viewer.ID)
	}
	out := make([]respond.UserRespond, 0, len(users))
	for i := range users {
		u := &users[i]
		if u.ID == viewer.ID || u.Role == constants.ROLE_AI {
			continue
		}
		if len(out) == constants.USER_PICKER_LIMIT {
			break
		}
		out = append(out, respond.UserRespond{ID: u.ID, Email: u.Email, Name: u.DisplayName(), Role: u.Role})
	}
	return out, nil
}

func (s *Service) busy(op string, err error, userID uint) error {
	zap.L().Error(op+" failed", zap.Uint("user_id", userID), zap.Error(err))
	return errorx.ErrServerBusy
}
