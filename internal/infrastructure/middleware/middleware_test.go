package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"clinic_chat_server/internal/dao/mysql/repository"
	"clinic_chat_server/internal/model"
	"clinic_chat_server/internal/service/permission"
	"clinic_chat_server/internal/testutil"
	"clinic_chat_server/pkg/errorx"
	"clinic_chat_server/pkg/util/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type whoami struct {
	Code      int  `json:"code"`
	UserID    uint `json:"user_id"`
	Effective uint `json:"effective"`
	Imp       bool `json:"impersonated"`
}

func newEngine(t *testing.T) (*gorm.DB, *gin.Engine) {
	jwt.Init("middleware-test-secret-middleware", 5)
	db := testutil.DB(t)
	repos := repository.NewRepositories(db)
	r := gin.New()
	r.Use(JWTAuth(repos.User), Impersonation(permission.NewOracle(repos, nil), repos.User))
	r.GET("/me", func(c *gin.Context) {
		eff, imp := EffectiveUser(c)
		c.JSON(http.StatusOK, whoami{Code: errorx.CodeSuccess, UserID: CurrentUser(c).ID, Effective: eff.ID, Imp: imp})
	})
	return db, r
}

func call(t *testing.T, r *gin.Engine, token, impersonate string) (int, whoami) {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if impersonate != "" {
		req.Header.Set(ImpersonateHeader, impersonate)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body whoami
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func token(t *testing.T, userID uint) string {
	tok, err := jwt.GenerateAccessToken(userID)
	require.NoError(t, err)
	return tok
}

func TestJWTAuth(t *testing.T) {
	db, r := newEngine(t)
	active := testutil.SeedUser(t, db, "a@x.test", "doctor")
	inactive := testutil.SeedUser(t, db, "i@x.test", "doctor", testutil.Inactive())

	status, body := call(t, r, token(t, active.ID), "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, active.ID, body.UserID)
	assert.Equal(t, active.ID, body.Effective)
	assert.False(t, body.Imp)

	for name, tok := range map[string]string{
		"missing":  "",
		"garbage":  "not-a-jwt",
		"inactive": token(t, inactive.ID),
		"unknown":  token(t, 9999),
	} {
		t.Run(name, func(t *testing.T) {
			status, body := call(t, r, tok, "")
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, errorx.CodeUnauthorized, body.Code)
		})
	}
}

func TestImpersonation(t *testing.T) {
	db, r := newEngine(t)
	admin := testutil.SeedUser(t, db, "admin@x.test", "manager")
	testutil.GrantUser(t, db, admin.ID, model.PermImpersonate)
	plain := testutil.SeedUser(t, db, "p@x.test", "doctor")
	target := testutil.SeedUser(t, db, "t@x.test", "nurse")
	gone := testutil.SeedUser(t, db, "g@x.test", "nurse", testutil.Inactive())

	_, body := call(t, r, token(t, admin.ID), strconv.Itoa(int(target.ID)))
	assert.Equal(t, admin.ID, body.UserID)
	assert.Equal(t, target.ID, body.Effective)
	assert.True(t, body.Imp)

	_, body = call(t, r, token(t, plain.ID), strconv.Itoa(int(target.ID)))
	assert.Equal(t, errorx.CodeAccessDenied, body.Code)

	_, body = call(t, r, token(t, admin.ID), strconv.Itoa(int(gone.ID)))
	assert.Equal(t, errorx.CodeAccessDenied, body.Code)

	_, body = call(t, r, token(t, admin.ID), "abc")
	assert.Equal(t, errorx.CodeInvalidParam, body.Code)
}
