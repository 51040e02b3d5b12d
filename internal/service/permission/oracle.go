// Package permission answers "may this user perform this action".
package permission

import (
	"context"
	"fmt"
	"time"

	"clinic_chat_server/internal/dao/mysql/repository"
	myredis "clinic_chat_server/internal/dao/redis"
	"clinic_chat_server/internal/model"
	"clinic_chat_server/pkg/constants"
	"clinic_chat_server/pkg/errorx"

	"go.uber.org/zap"
)

// Checker is what the chat services need from the oracle.
type Checker interface {
	Allowed(ctx context.Context, user *model.User, code string) (bool, error)
}

// Oracle resolves grants from user overrides then role grants.
// Owners and superusers are always allowed.
type Oracle struct {
	repos *repository.Repositories
	cache myredis.CacheService // nil disables caching
	ttl   time.Duration
}

// NewOracle builds an oracle; cache may be nil.
func NewOracle(repos *repository.Repositories, cache myredis.CacheService) *Oracle {
	return &Oracle{
		repos: repos,
		cache: cache,
		ttl:   constants.PERMISSION_CACHE_TTL * time.Second,
	}
}

func cacheKey(userID uint, code string) string {
	return fmt.Sprintf("%s%d_%s", constants.PERMISSION_KEY_PREFIX, userID, code)
}

// Allowed reports whether user may perform code.
func (o *Oracle) Allowed(ctx context.Context, user *model.User, code string) (bool, error) {
	if user == nil {
		return false, nil
	}
	if user.Role == constants.ROLE_OWNER || user.IsSuperuser {
		return true, nil
	}

	key := cacheKey(user.ID, code)
	if o.cache != nil {
		if v, err := o.cache.Get(ctx, key); err != nil {
			zap.L().Warn("permission cache read failed", zap.String("key", key), zap.Error(err))
		} else if v != "" {
			return v == "1", nil
		}
	}

	allowed, err := o.resolve(user, code)
	if err != nil {
		return false, err
	}

	if o.cache != nil {
		v := "0"
		if allowed {
			v = "1"
		}
		if err := o.cache.Set(ctx, key, v, o.ttl); err != nil {
			zap.L().Warn("permission cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return allowed, nil
}

func (o *Oracle) resolve(user *model.User, code string) (bool, error) {
	ok, err := o.repos.Permission.HasUserPermission(user.ID, code)
	if err != nil || ok {
		return ok, err
	}
	return o.repos.Permission.HasRolePermission(user.Role, code)
}

// Invalidate drops every cached decision of a user, e.g. after a role change.
func (o *Oracle) Invalidate(ctx context.Context, userID uint) {
	if o.cache == nil {
		return
	}
	pattern := fmt.Sprintf("%s%d_*", constants.PERMISSION_KEY_PREFIX, userID)
	if err := o.cache.DeleteByPattern(ctx, pattern); err != nil {
		zap.L().Warn("permission cache invalidate failed", zap.Uint("user_id", userID), zap.Error(err))
	}
}

// Require returns ErrForbidden unless user may perform code.
func Require(ctx context.Context, checker Checker, user *model.User, code string) error {
	ok, err := checker.Allowed(ctx, user, code)
	if err != nil {
		zap.L().Error("permission lookup failed", zap.Uint("user_id", user.ID), zap.String("code", code), zap.Error(err))
		return errorx.ErrServerBusy
	}
	if !ok {
		return errorx.ErrForbidden
	}
	return nil
}

// IsAuditor reports whether user browses chat in read-only audit mode.
func IsAuditor(ctx context.Context, checker Checker, user *model.User) bool {
	ok, err := checker.Allowed(ctx, user, model.PermViewAllHistory)
	if err != nil {
		zap.L().Warn("audit permission lookup failed", zap.Uint("user_id", user.ID), zap.Error(err))
		return false
	}
	return ok
}
