package chat

import (
	"context"

	"clinic_chat_server/internal/dto/respond"
	"clinic_chat_server/internal/infrastructure/metrics"

	"go.uber.org/zap"
)

// Publisher turns committed domain changes into broker events. Failures
// are logged and swallowed: the data is durable and clients catch up on
// their next fetch.
type Publisher struct {
	broker MessageBroker
}

// NewPublisher wraps broker; every instance subscribed to it gets the events.
func NewPublisher(broker MessageBroker) *Publisher {
	return &Publisher{broker: broker}
}

// PublishMessage announces a committed message. Receiving sessions move
// their cursor to it on delivery.
func (p *Publisher) PublishMessage(ctx context.Context, roomID uint, payload respond.MessagePayload) {
	ev, err := MessageEvent(roomID, payload)
	p.publish(ctx, ev, err)
}

// PublishReaction announces a reaction toggle with the fresh counts.
func (p *Publisher) PublishReaction(ctx context.Context, roomID uint, delta respond.ReactRespond) {
	ev, err := ReactionEvent(roomID, delta)
	p.publish(ctx, ev, err)
}

// PublishRead announces that userID moved their cursor to lastRead.
func (p *Publisher) PublishRead(ctx context.Context, roomID, userID, lastRead uint) {
	ev, err := ReadEvent(roomID, userID, lastRead)
	p.publish(ctx, ev, err)
}

func (p *Publisher) publish(ctx context.Context, ev Event, err error) {
	if err == nil {
		err = p.broker.Publish(ctx, ev)
	}
	metrics.RecordEventPublished(ev.Type, err)
	if err != nil {
		zap.L().Warn("publish room event failed", zap.String("type", ev.Type), zap.Uint("room_id", ev.RoomID), zap.Error(err))
	}
}
