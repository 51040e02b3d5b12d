package chat

import (
	"context"
	"errors"

	"clinic_chat_server/pkg/constants"
)

var errTransmitFull = errors.New("transmit channel full")

// ChannelBroker forwards events in process. It serves single instance
// deployments and tests.
type ChannelBroker struct {
	hub      *Hub
	Transmit chan Event
}

// NewChannelBroker buffers constants.CHANNEL_SIZE events.
func NewChannelBroker(hub *Hub) *ChannelBroker {
	return &ChannelBroker{
		hub:      hub,
		Transmit: make(chan Event, constants.CHANNEL_SIZE),
	}
}

// Publish never blocks: a full transmit channel fails the publish.
func (b *ChannelBroker) Publish(ctx context.Context, ev Event) error {
	select {
	case b.Transmit <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errTransmitFull
	}
}

// Start forwards buffered events to the hub until ctx is done.
func (b *ChannelBroker) Start(ctx context.Context) {
	for {
		select {
		case ev := <-b.Transmit:
			b.hub.Deliver(ev)
		case <-ctx.Done():
			return
		}
	}
}

func (b *ChannelBroker) Close() error { return nil }
