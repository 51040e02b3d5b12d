// Package config loads application settings from TOML with environment overrides.
// Search order covers running from the repo root and from cmd/<app>.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// MainConfig holds process level settings.
type MainConfig struct {
	AppName string `toml:"appName"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Mode    string `toml:"mode"` // dev or release
	TLS     bool   `toml:"tls"`  // redirect plain HTTP to HTTPS
}

// DatabaseConfig selects the gorm dialector and connection.
type DatabaseConfig struct {
	Driver       string `toml:"driver"` // mysql, postgres or sqlite
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	DatabaseName string `toml:"databaseName"`
	DSN          string `toml:"dsn"` // overrides the fields above when set
	MaxOpenConns int    `toml:"maxOpenConns"`
	MaxIdleConns int    `toml:"maxIdleConns"`
}

// RedisConfig holds the redis connection. An empty host disables redis.
type RedisConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Password string `toml:"password"`
	Db       int    `toml:"db"`
}

// LogConfig configures zap with lumberjack rotation.
type LogConfig struct {
	LogPath    string `toml:"logPath"`
	FileName   string `toml:"fileName"`
	MaxSize    int    `toml:"maxSize"`    // MB
	MaxBackups int    `toml:"maxBackups"` // files kept
	MaxAge     int    `toml:"maxAge"`     // days kept
	Level      string `toml:"level"`
}

// KafkaConfig selects the realtime transport.
type KafkaConfig struct {
	MessageMode     string        `toml:"messageMode"` // channel, kafka or redis
	HostPort        string        `toml:"hostPort"`
	ChatTopic       string        `toml:"chatTopic"`
	MembershipTopic string        `toml:"membershipTopic"` // empty disables the consumer
	Partition       int           `toml:"partition"`       // partitions for topics created at startup
	Timeout         time.Duration `toml:"timeout"`         // seconds
}

// JWTConfig holds the access token secret shared with the identity service.
type JWTConfig struct {
	Secret            string `toml:"secret"`
	AccessTokenExpiry int    `toml:"accessTokenExpiry"` // minutes
}

// ChatConfig tunes chat behaviour.
type ChatConfig struct {
	AiReplyDelaySeconds int    `toml:"aiReplyDelaySeconds"`
	AiUserEmail         string `toml:"aiUserEmail"`
	AiPollInterval      string `toml:"aiPollInterval"` // cron @every duration, e.g. "2s"
	ReconcileSpec       string `toml:"reconcileSpec"`  // cron spec for roster reconciliation
	RoomListLimit       int    `toml:"roomListLimit"`
	MessagePageSize     int    `toml:"messagePageSize"`
	HistoryPageSize     int    `toml:"historyPageSize"`
}

// AiReplyDelay returns the silence window before an AI auto-reply fires.
func (c ChatConfig) AiReplyDelay() time.Duration {
	return time.Duration(c.AiReplyDelaySeconds) * time.Second
}

// Config aggregates every sub-config.
type Config struct {
	MainConfig     `toml:"mainConfig"`
	DatabaseConfig `toml:"databaseConfig"`
	RedisConfig    `toml:"redisConfig"`
	LogConfig      `toml:"logConfig"`
	KafkaConfig    `toml:"kafkaConfig"`
	JWTConfig      `toml:"jwtConfig"`
	ChatConfig     `toml:"chatConfig"`
}

var config *Config

// searchPaths lists candidate config files, local overrides first.
var searchPaths = []string{
	"configs/config_local.toml",
	"configs/config.toml",
	"../../configs/config_local.toml",
	"../../configs/config.toml",
}

// LoadConfig loads the first config file found into the singleton.
func LoadConfig() error {
	for _, path := range searchPaths {
		if _, err := toml.DecodeFile(path, config); err == nil {
			return nil
		}
	}
	return fmt.Errorf("could not find configuration file in any of the search paths")
}

// LoadFile decodes a single file and applies defaults and env overrides.
func LoadFile(path string) (*Config, error) {
	conf := new(Config)
	if _, err := toml.DecodeFile(path, conf); err != nil {
		return nil, err
	}
	applyEnv(conf)
	applyDefaults(conf)
	return conf, nil
}

// GetConfig returns the singleton, loading it on first use.
// A missing file leaves defaults in place.
func GetConfig() *Config {
	if config == nil {
		_ = godotenv.Load()
		config = new(Config)
		_ = LoadConfig()
		applyEnv(config)
		applyDefaults(config)
	}
	return config
}

// applyEnv lets secrets and the transport mode come from the environment.
func applyEnv(c *Config) {
	if v := os.Getenv("CHAT_DB_PASSWORD"); v != "" {
		c.DatabaseConfig.Password = v
	}
	if v := os.Getenv("CHAT_DB_DSN"); v != "" {
		c.DatabaseConfig.DSN = v
	}
	if v := os.Getenv("CHAT_REDIS_PASSWORD"); v != "" {
		c.RedisConfig.Password = v
	}
	if v := os.Getenv("CHAT_JWT_SECRET"); v != "" {
		c.JWTConfig.Secret = v
	}
	if v := os.Getenv("CHAT_MESSAGE_MODE"); v != "" {
		c.KafkaConfig.MessageMode = v
	}
	if v := os.Getenv("CHAT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.MainConfig.Port = port
		}
	}
}

func applyDefaults(c *Config) {
	if c.MainConfig.AppName == "" {
		c.MainConfig.AppName = "clinic_chat_server"
	}
	if c.MainConfig.Host == "" {
		c.MainConfig.Host = "0.0.0.0"
	}
	if c.MainConfig.Port == 0 {
		c.MainConfig.Port = 8000
	}
	if c.MainConfig.Mode == "" {
		c.MainConfig.Mode = "dev"
	}
	if c.DatabaseConfig.Driver == "" {
		c.DatabaseConfig.Driver = "mysql"
	}
	if c.KafkaConfig.MessageMode == "" {
		c.KafkaConfig.MessageMode = "channel"
	}
	if c.KafkaConfig.ChatTopic == "" {
		c.KafkaConfig.ChatTopic = "chat_room_events"
	}
	if c.KafkaConfig.Partition == 0 {
		c.KafkaConfig.Partition = 1
	}
	if c.KafkaConfig.Timeout == 0 {
		c.KafkaConfig.Timeout = 1
	}
	if c.JWTConfig.AccessTokenExpiry == 0 {
		c.JWTConfig.AccessTokenExpiry = 60
	}
	if c.ChatConfig.AiReplyDelaySeconds == 0 {
		c.ChatConfig.AiReplyDelaySeconds = 180
	}
	if c.ChatConfig.AiUserEmail == "" {
		c.ChatConfig.AiUserEmail = "ai-assistant@system.local"
	}
	if c.ChatConfig.AiPollInterval == "" {
		c.ChatConfig.AiPollInterval = "2s"
	}
	if c.ChatConfig.ReconcileSpec == "" {
		c.ChatConfig.ReconcileSpec = "0 3 * * *"
	}
	if c.ChatConfig.RoomListLimit == 0 {
		c.ChatConfig.RoomListLimit = 200
	}
	if c.ChatConfig.MessagePageSize == 0 {
		c.ChatConfig.MessagePageSize = 50
	}
	if c.ChatConfig.HistoryPageSize == 0 {
		c.ChatConfig.HistoryPageSize = 100
	}
}
