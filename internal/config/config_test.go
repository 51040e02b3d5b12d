package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
[mainConfig]
appName = "clinic_chat_test"
port = 9001

[databaseConfig]
driver = "sqlite"
dsn = "file::memory:"

[kafkaConfig]
messageMode = "redis"

[chatConfig]
aiReplyDelaySeconds = 30
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFileAppliesDefaults(t *testing.T) {
	conf, err := LoadFile(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "clinic_chat_test", conf.AppName)
	assert.Equal(t, 9001, conf.MainConfig.Port)
	assert.Equal(t, "sqlite", conf.Driver)
	assert.Equal(t, "redis", conf.MessageMode)
	assert.Equal(t, 30*time.Second, conf.ChatConfig.AiReplyDelay())
	assert.Equal(t, 200, conf.RoomListLimit)
	assert.Equal(t, 50, conf.MessagePageSize)
	assert.Equal(t, "chat_room_events", conf.ChatTopic)
}

func TestLoadFileEnvOverrides(t *testing.T) {
	t.Setenv("CHAT_JWT_SECRET", "from-env")
	t.Setenv("CHAT_MESSAGE_MODE", "kafka")
	t.Setenv("CHAT_PORT", "9100")

	conf, err := LoadFile(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "from-env", conf.JWTConfig.Secret)
	assert.Equal(t, "kafka", conf.MessageMode)
	assert.Equal(t, 9100, conf.MainConfig.Port)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}
