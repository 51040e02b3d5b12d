package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"clinic_chat_server/internal/config"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaBroker publishes events to a topic keyed by room id. Every instance
// reads with its own consumer group so each one sees every event.
type KafkaBroker struct {
	hub      *Hub
	Producer *kafka.Writer
	Consumer *kafka.Reader
}

// NewKafkaBroker writes events keyed by room id, so one room keeps its
// order within a partition. The reader uses a group unique to this
// instance: every instance must see every event.
func NewKafkaBroker(cfg config.KafkaConfig, hub *Hub) *KafkaBroker {
	timeout := cfg.Timeout * time.Second
	if timeout <= 0 {
		timeout = time.Second
	}
	return &KafkaBroker{
		hub: hub,
		Producer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.HostPort),
			Topic:                  cfg.ChatTopic,
			Balancer:               &kafka.Hash{},
			WriteTimeout:           timeout,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		Consumer: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        []string{cfg.HostPort},
			Topic:          cfg.ChatTopic,
			GroupID:        "chat-fanout-" + uuid.NewString(),
			CommitInterval: timeout,
			StartOffset:    kafka.LastOffset,
		}),
	}
}

// Publish writes ev to the chat topic.
func (k *KafkaBroker) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return k.Producer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(ev.RoomID), 10)),
		Value: data,
	})
}

// Start reads until ctx is done. Read errors are logged and retried after
// a short pause.
func (k *KafkaBroker) Start(ctx context.Context) {
	for {
		msg, err := k.Consumer.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			zap.L().Error("kafka read failed", zap.Error(err))
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}
		var ev Event
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			zap.L().Warn("kafka event decode failed", zap.Int64("offset", msg.Offset), zap.Error(err))
			continue
		}
		k.hub.Deliver(ev)
	}
}

func (k *KafkaBroker) Close() error {
	return errors.Join(k.Producer.Close(), k.Consumer.Close())
}
