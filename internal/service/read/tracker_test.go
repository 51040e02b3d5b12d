package read

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"clinic_chat_server/internal/dao/mysql/repository"
	"clinic_chat_server/internal/model"
	"clinic_chat_server/internal/testutil"
	"clinic_chat_server/pkg/errorx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu    sync.Mutex
	moves []uint
}

func (p *recordingPublisher) PublishRead(_ context.Context, _, _, lastRead uint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.moves = append(p.moves, lastRead)
}

func seedRoom(t *testing.T) (*repository.Repositories, *model.ChatRoom, []uint) {
	db := testutil.DB(t)
	repos := repository.NewRepositories(db)
	room := testutil.SeedRoom(t, db, model.NewPrivateRoom(1, 2), 1, 2)
	var ids []uint
	for i := 0; i < 5; i++ {
		ids = append(ids, testutil.SeedMessage(t, db, room.ID, 1, "hello").ID)
	}
	return repos, room, ids
}

func TestMarkReadIsMonotonic(t *testing.T) {
	repos, room, ids := seedRoom(t)
	pub := &recordingPublisher{}
	tracker := NewTracker(repos, nil)
	tracker.SetPublisher(pub)
	ctx := context.Background()

	res, err := tracker.MarkRead(ctx, room.ID, 2, ids[3])
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, ids[3], res.LastReadMessageID)

	// out of order delivery of an older cursor is a no-op
	res, err = tracker.MarkRead(ctx, room.ID, 2, ids[1])
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, ids[3], res.LastReadMessageID)

	// ids past the newest message clamp to it
	res, err = tracker.MarkRead(ctx, room.ID, 2, ids[4]+100)
	require.NoError(t, err)
	assert.Equal(t, ids[4], res.LastReadMessageID)

	assert.Equal(t, []uint{ids[3], ids[4]}, pub.moves)
}

func TestMarkReadConcurrentConverges(t *testing.T) {
	repos, room, ids := seedRoom(t)
	tracker := NewTracker(repos, nil)

	var wg sync.WaitGroup
	for _, id := range []uint{ids[4], ids[0], ids[2], ids[3], ids[1]} {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_, err := tracker.MarkRead(context.Background(), room.ID, 2, id)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	state, err := repos.Participant.FindState(room.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, ids[4], state.LastReadMessageID)
}

func TestMarkReadReconcilesMentions(t *testing.T) {
	repos, room, ids := seedRoom(t)
	cache := testutil.NewMemoryCache()
	tracker := NewTracker(repos, cache)
	ctx := context.Background()

	require.NoError(t, repos.Message.CreateMentions([]model.MessageMention{
		{MessageID: ids[1], MentionedUserID: 2, RoomID: room.ID},
		{MessageID: ids[4], MentionedUserID: 2, RoomID: room.ID},
	}))
	mid1, mid4 := ids[1], ids[4]
	require.NoError(t, repos.Notification.CreateBatch([]model.Notification{
		{UserID: 2, NotifType: model.NotifMention, MessageID: &mid1},
		{UserID: 2, NotifType: model.NotifMention, MessageID: &mid4},
	}))

	count, err := tracker.MentionCount(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count.TaggedUnread)
	assert.Equal(t, 1, cache.Len())

	_, err = tracker.MarkRead(ctx, room.ID, 2, ids[2])
	require.NoError(t, err)

	// the read moved the generation, so this recounts
	count, err = tracker.MentionCount(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count.TaggedUnread)

	unseen, err := repos.Message.UnseenMentionMessageIDs(2, room.ID, ids[4])
	require.NoError(t, err)
	assert.Equal(t, []uint{ids[4]}, unseen)
}

func TestMarkReadRequiresAccess(t *testing.T) {
	repos, room, ids := seedRoom(t)
	tracker := NewTracker(repos, nil)
	_, err := tracker.MarkRead(context.Background(), room.ID, 3, ids[0])
	assert.True(t, errorx.Is(err, errorx.CodeAccessDenied))
}

// racingCache commits a new mention and invalidates right before the count
// computed from the older database snapshot is written.
type racingCache struct {
	*testutil.MemoryCache
	race func()
}

func (c *racingCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if c.race != nil && !strings.Contains(key, "gen_") {
		race := c.race
		c.race = nil
		race()
	}
	return c.MemoryCache.Set(ctx, key, value, ttl)
}

func TestMentionCountIgnoresCountRacedByInvalidation(t *testing.T) {
	repos, room, ids := seedRoom(t)
	cache := &racingCache{MemoryCache: testutil.NewMemoryCache()}
	tracker := NewTracker(repos, cache)
	ctx := context.Background()

	cache.race = func() {
		require.NoError(t, repos.Message.CreateMentions([]model.MessageMention{
			{MessageID: ids[3], MentionedUserID: 2, RoomID: room.ID},
		}))
		tracker.InvalidateMentionCount(2)
	}
	count, err := tracker.MentionCount(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count.TaggedUnread)

	count, err = tracker.MentionCount(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count.TaggedUnread)

	// now cached under the current generation
	require.NoError(t, repos.Message.CreateMentions([]model.MessageMention{
		{MessageID: ids[4], MentionedUserID: 2, RoomID: room.ID},
	}))
	count, err = tracker.MentionCount(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count.TaggedUnread)
}
