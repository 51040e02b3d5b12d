package chat

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"clinic_chat_server/internal/dto/respond"
	"clinic_chat_server/pkg/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeSession(userID, roomID uint) *Session {
	return newSession(nil, userID, roomID, nil)
}

func recv(t *testing.T, s *Session) Event {
	t.Helper()
	select {
	case ev := <-s.send:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestHubDeliversToRoomOnly(t *testing.T) {
	hub := NewHub()
	a, b, other := fakeSession(1, 10), fakeSession(2, 10), fakeSession(3, 11)
	hub.Register(a)
	hub.Register(b)
	hub.Register(other)
	assert.Equal(t, 2, hub.Count(10))

	ev, err := MessageEvent(10, respond.MessagePayload{ID: 5, RoomID: 10, Sender: &respond.SenderRespond{ID: 1}})
	require.NoError(t, err)
	hub.Deliver(ev)

	assert.Equal(t, uint(5), recv(t, a).MessageID)
	assert.Equal(t, uint(5), recv(t, b).MessageID)
	assert.Empty(t, other.send)
}

func TestHubSkipsOwnTyping(t *testing.T) {
	hub := NewHub()
	a, b := fakeSession(1, 10), fakeSession(2, 10)
	hub.Register(a)
	hub.Register(b)

	ev, err := TypingEvent(10, 1)
	require.NoError(t, err)
	hub.Deliver(ev)

	assert.Equal(t, EventTyping, recv(t, b).Type)
	assert.Empty(t, a.send)
}

func TestHubDropsWhenQueueFull(t *testing.T) {
	hub := NewHub()
	slow := fakeSession(1, 10)
	hub.Register(slow)

	ev, err := ReadEvent(10, 2, 7)
	require.NoError(t, err)
	for i := 0; i < constants.CHANNEL_SIZE+5; i++ {
		hub.Deliver(ev)
	}
	assert.Len(t, slow.send, constants.CHANNEL_SIZE)
}

func TestHubUnregisterClosesQueueOnce(t *testing.T) {
	hub := NewHub()
	s := fakeSession(1, 10)
	hub.Register(s)
	hub.Unregister(s)
	hub.Unregister(s)

	_, ok := <-s.send
	assert.False(t, ok)
	assert.Zero(t, hub.Count(10))

	// delivering to an empty room is a no-op
	ev, _ := TypingEvent(10, 2)
	hub.Deliver(ev)
}

func TestChannelBrokerForwardsToHub(t *testing.T) {
	hub := NewHub()
	s := fakeSession(2, 10)
	hub.Register(s)
	broker := NewChannelBroker(hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go broker.Start(ctx)

	pub := NewPublisher(broker)
	like := "like"
	pub.PublishReaction(ctx, 10, respond.ReactRespond{MessageID: 4, UserID: 1, Reaction: &like, Counts: respond.ReactionCounts{Like: 1}})

	ev := recv(t, s)
	assert.Equal(t, EventReaction, ev.Type)
	assert.JSONEq(t, `{"type":"reaction","room_id":10,"message_id":4,"user_id":1,"reaction":"like","counts":{"like":1,"dislike":0}}`, string(ev.Frame))
}

func TestChannelBrokerPublishFailsWhenFull(t *testing.T) {
	broker := NewChannelBroker(NewHub())
	ev, _ := TypingEvent(1, 1)
	for i := 0; i < constants.CHANNEL_SIZE; i++ {
		require.NoError(t, broker.Publish(context.Background(), ev))
	}
	assert.Error(t, broker.Publish(context.Background(), ev))
}

func TestFrames(t *testing.T) {
	ev, err := ReactionEvent(3, respond.ReactRespond{MessageID: 9, UserID: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"reaction","room_id":3,"message_id":9,"user_id":2,"reaction":null,"counts":{"like":0,"dislike":0}}`, string(ev.Frame))

	ev, err = ReadEvent(3, 2, 40)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"read","room_id":3,"user_id":2,"last_read_message_id":40}`, string(ev.Frame))

	// the envelope survives a broker round trip
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	var back Event
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, ev.Type, back.Type)
	assert.JSONEq(t, string(ev.Frame), string(back.Frame))
}
