package ai

import (
	"clinic_chat_server/internal/dao/mysql/repository"
	"clinic_chat_server/internal/model"
	"clinic_chat_server/pkg/constants"
	"clinic_chat_server/pkg/errorx"
)

// EnsureAIUser loads the assistant account, creating it on first use.
// A concurrent creator wins the unique email; the loser reloads.
func EnsureAIUser(repos *repository.Repositories, email string) (*model.User, error) {
	user, err := repos.User.FindByEmail(email)
	if err == nil {
		return user, nil
	}
	if !errorx.IsNotFound(err) {
		return nil, err
	}
	user = &model.User{
		Email:     email,
		FirstName: "AI",
		LastName:  "Assistant",
		Role:      constants.ROLE_AI,
		IsActive:  true,
	}
	if err := repos.User.Create(user); err != nil {
		if again, findErr := repos.User.FindByEmail(email); findErr == nil {
			return again, nil
		}
		return nil, err
	}
	return user, nil
}
