package chat

import (
	"context"
	"errors"

	"clinic_chat_server/internal/config"
	"clinic_chat_server/internal/dao/mysql/repository"
	"clinic_chat_server/pkg/constants"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ChatServer aggregates the realtime components with one lifecycle.
type ChatServer struct {
	Hub       *Hub
	Broker    MessageBroker
	Publisher *Publisher
	Gateway   *Gateway
	mode      string
}

// NewChatServer picks the broker for cfg.MessageMode. redisClient may be
// nil unless the mode is redis.
func NewChatServer(cfg config.KafkaConfig, redisClient *redis.Client, repos *repository.Repositories, reads ReadMarker) (*ChatServer, error) {
	hub := NewHub()
	cs := &ChatServer{Hub: hub, mode: cfg.MessageMode}

	switch cfg.MessageMode {
	case "kafka":
		cs.Broker = NewKafkaBroker(cfg, hub)
	case "redis":
		if redisClient == nil {
			return nil, errors.New("redis message mode requires redis")
		}
		cs.Broker = NewRedisBroker(redisClient, constants.ROOM_EVENT_CHANNEL, hub)
	case "", "channel":
		cs.mode = "channel"
		cs.Broker = NewChannelBroker(hub)
	default:
		return nil, errors.New("unknown message mode " + cfg.MessageMode)
	}

	cs.Publisher = NewPublisher(cs.Broker)
	cs.Gateway = NewGateway(repos, hub, cs.Broker, reads)
	return cs, nil
}

// Start consumes broker events until ctx is done.
func (cs *ChatServer) Start(ctx context.Context) {
	zap.L().Info("chat fan-out started", zap.String("mode", cs.mode))
	cs.Broker.Start(ctx)
}

func (cs *ChatServer) Close() {
	if err := cs.Broker.Close(); err != nil {
		zap.L().Error("close broker failed", zap.Error(err))
	}
}
