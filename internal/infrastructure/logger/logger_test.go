package logger

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"clinic_chat_server/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRejectsBadLevel(t *testing.T) {
	cfg := &config.LogConfig{LogPath: t.TempDir(), Level: "loud"}
	assert.Error(t, Init(cfg, "release"))
}

func TestInitWritesFile(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.LogConfig{LogPath: dir, Level: "debug"}
	require.NoError(t, Init(cfg, "release"))
	assert.Equal(t, filepath.Join(dir, "app.log"), filepath.Clean(cfg.FileName))
	assert.Equal(t, 100, cfg.MaxSize)
}

func TestGinRecoveryAnswers500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinLogger(), GinRecovery(true))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestIsBrokenPipeError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("something else"), false},
		{"message", errors.New("write: broken pipe"), true},
		{
			"op error",
			&net.OpError{Op: "write", Err: os.NewSyscallError("write", syscall.ECONNRESET)},
			true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isBrokenPipeError(tc.err))
		})
	}
}
