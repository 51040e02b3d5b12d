package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"clinic_chat_server/internal/dao/mysql/repository"
	"clinic_chat_server/internal/model"
	"clinic_chat_server/internal/service/permission"
	"clinic_chat_server/pkg/errorx"
	"clinic_chat_server/pkg/util/jwt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// context keys
const (
	ContextUserID      = "user_id"
	ContextUser        = "user"
	ContextEffective   = "effective_user"
	ImpersonateHeader  = "X-Impersonate-User"
	accessTokenSubject = "access_token"
)

// JWTAuth verifies the bearer access token and loads the caller.
// Tokens of missing, inactive, deleted or blocked users are rejected.
func JWTAuth(users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "login required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			unauthorized(c, "use a Bearer token")
			return
		}

		claims, err := jwt.ParseToken(parts[1])
		if err != nil {
			unauthorized(c, "token expired or invalid")
			return
		}
		if claims.Subject != accessTokenSubject {
			unauthorized(c, "an access token is required")
			return
		}

		user, err := users.FindByID(claims.UserID)
		if err != nil {
			if !errorx.IsNotFound(err) {
				zap.L().Error("load token user failed", zap.Uint("user_id", claims.UserID), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusOK, gin.H{"code": errorx.CodeServerBusy, "msg": errorx.ErrServerBusy.Msg})
				return
			}
			unauthorized(c, "user not found")
			return
		}
		if !user.Usable() {
			unauthorized(c, "account disabled")
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUser, user)
		c.Next()
	}
}

// Impersonation resolves the X-Impersonate-User header into the effective
// user. The real caller needs chat:impersonate; the target must be usable.
// Without the header the effective user is the caller.
func Impersonation(perms permission.Checker, users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := CurrentUser(c)
		raw := c.GetHeader(ImpersonateHeader)
		if raw == "" || actor == nil {
			c.Next()
			return
		}

		if err := permission.Require(c.Request.Context(), perms, actor, model.PermImpersonate); err != nil {
			abortCode(c, err)
			return
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			abortCode(c, errorx.New(errorx.CodeInvalidParam, "invalid impersonated user"))
			return
		}
		target, err := users.FindByID(uint(id))
		if err != nil || !target.Usable() {
			if err != nil && !errorx.IsNotFound(err) {
				zap.L().Error("load impersonated user failed", zap.Uint64("target_id", id), zap.Error(err))
				abortCode(c, errorx.ErrServerBusy)
				return
			}
			abortCode(c, errorx.New(errorx.CodeAccessDenied, "invalid impersonated user"))
			return
		}
		zap.L().Info("impersonating",
			zap.Uint("user_id", actor.ID),
			zap.Uint("target_id", target.ID),
			zap.String("path", c.Request.URL.Path))
		c.Set(ContextEffective, target)
		c.Next()
	}
}

// CurrentUser returns the authenticated caller.
func CurrentUser(c *gin.Context) *model.User {
	if v, ok := c.Get(ContextUser); ok {
		if u, ok := v.(*model.User); ok {
			return u
		}
	}
	return nil
}

// EffectiveUser returns the impersonated user, or the caller, and whether
// impersonation is active.
func EffectiveUser(c *gin.Context) (*model.User, bool) {
	if v, ok := c.Get(ContextEffective); ok {
		if u, ok := v.(*model.User); ok {
			return u, true
		}
	}
	return CurrentUser(c), false
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code": errorx.CodeUnauthorized,
		"msg":  msg,
	})
}

func abortCode(c *gin.Context, err error) {
	code, msg := errorx.CodeServerBusy, errorx.ErrServerBusy.Msg
	var codeErr *errorx.CodeError
	if errors.As(err, &codeErr) {
		code, msg = codeErr.Code, codeErr.Msg
	}
	c.AbortWithStatusJSON(http.StatusOK, gin.H{"code": code, "msg": msg, "data": nil})
}
