// Package read advances per-user read cursors and reconciles mentions.
package read

import (
	"context"
	"strconv"
	"time"

	"clinic_chat_server/internal/dao/mysql/repository"
	myredis "clinic_chat_server/internal/dao/redis"
	"clinic_chat_server/internal/dto/respond"
	"clinic_chat_server/internal/service/access"
	"clinic_chat_server/pkg/constants"
	"clinic_chat_server/pkg/errorx"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher announces cursor moves to the room.
type Publisher interface {
	PublishRead(ctx context.Context, roomID, userID, lastRead uint)
}

// Tracker owns RoomUserState.last_read_message_id.
type Tracker struct {
	repos     *repository.Repositories
	cache     myredis.AsyncCacheService // nil disables the mention count cache
	publisher Publisher                 // optional
}

// NewTracker builds the tracker; cache may be nil.
func NewTracker(repos *repository.Repositories, cache myredis.AsyncCacheService) *Tracker {
	return &Tracker{repos: repos, cache: cache}
}

// SetPublisher wires realtime after construction; the hub needs the
// tracker first.
func (t *Tracker) SetPublisher(p Publisher) {
	t.publisher = p
}

// MarkRead is the guarded entry point for clients.
func (t *Tracker) MarkRead(ctx context.Context, roomID, userID, lastMessageID uint) (*respond.MarkReadRespond, error) {
	if _, err := access.Require(t.repos, roomID, userID); err != nil {
		if errorx.GetCode(err) == errorx.CodeDBError {
			zap.L().Error("access check failed", zap.Uint("room_id", roomID), zap.Error(err))
			return nil, errorx.ErrServerBusy
		}
		return nil, err
	}
	return t.Advance(ctx, roomID, userID, lastMessageID)
}

// Advance moves the cursor to max(current, lastMessageID), never beyond the
// room's newest message, and marks mentions up to it as seen. Callers must
// have checked access.
//
// The state row is locked for the whole transaction and the write is
// conditional, so racing sessions of one user converge on the maximum.
func (t *Tracker) Advance(ctx context.Context, roomID, userID, lastMessageID uint) (*respond.MarkReadRespond, error) {
	latest, err := t.repos.Message.LatestID(roomID)
	if err != nil {
		return nil, t.busy("latest message", err, roomID, userID)
	}
	target := lastMessageID
	if target > latest {
		target = latest
	}

	result := &respond.MarkReadRespond{}
	var seen int64
	err = t.repos.Transaction(func(txRepos *repository.Repositories) error {
		state, err := txRepos.Participant.LockState(roomID, userID)
		if err != nil {
			return err
		}
		result.LastReadMessageID = state.LastReadMessageID
		if target <= state.LastReadMessageID {
			return nil
		}

		n, err := txRepos.Participant.AdvanceCursor(roomID, userID, target)
		if err != nil {
			return err
		}
		if n == 0 {
			// another writer got there first; re-read the merged value
			fresh, err := txRepos.Participant.FindState(roomID, userID)
			if err != nil {
				return err
			}
			result.LastReadMessageID = fresh.LastReadMessageID
			return nil
		}
		result.Changed = true
		result.LastReadMessageID = target

		ids, err := txRepos.Message.UnseenMentionMessageIDs(userID, roomID, target)
		if err != nil || len(ids) == 0 {
			return err
		}
		if seen, err = txRepos.Message.MarkMentionsSeen(userID, ids, time.Now()); err != nil {
			return err
		}
		_, err = txRepos.Notification.MarkMentionsSeen(userID, ids)
		return err
	})
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.ErrAccessDenied
		}
		return nil, t.busy("advance cursor", err, roomID, userID)
	}

	if result.Changed {
		if seen > 0 {
			t.InvalidateMentionCount(userID)
		}
		if t.publisher != nil {
			t.publisher.PublishRead(ctx, roomID, userID, result.LastReadMessageID)
		}
	}
	return result, nil
}

func mentionGenKey(userID uint) string {
	return constants.MENTION_COUNT_KEY_PREFIX + "gen_" + strconv.FormatUint(uint64(userID), 10)
}

func mentionKey(userID uint, gen string) string {
	return constants.MENTION_COUNT_KEY_PREFIX + strconv.FormatUint(uint64(userID), 10) + "_" + gen
}

// MentionCount counts unseen mentions in rooms the user has not hidden.
// Steps:
//  1. snapshot the user's cache generation
//  2. serve the count cached under that generation, if any
//  3. otherwise count in the database and cache it under the snapshot
//
// An invalidation landing between 1 and 3 moves the generation, so the
// count written in 3 is never read again.
func (t *Tracker) MentionCount(ctx context.Context, userID uint) (*respond.MentionCountRespond, error) {
	var key string
	if t.cache != nil {
		gen, err := t.cache.Get(ctx, mentionGenKey(userID))
		if err != nil {
			zap.L().Warn("mention generation read failed", zap.Uint("user_id", userID), zap.Error(err))
		} else {
			key = mentionKey(userID, gen)
			if v, err := t.cache.Get(ctx, key); err != nil {
				zap.L().Warn("mention count cache read failed", zap.Uint("user_id", userID), zap.Error(err))
			} else if v != "" {
				if n, err := strconv.ParseInt(v, 10, 64); err == nil {
					return &respond.MentionCountRespond{TaggedUnread: n}, nil
				}
			}
		}
	}

	n, err := t.repos.Message.CountUnseenMentions(userID)
	if err != nil {
		return nil, t.busy("count mentions", err, 0, userID)
	}
	if key != "" {
		if err := t.cache.Set(ctx, key, strconv.FormatInt(n, 10), constants.REDIS_TIMEOUT*time.Minute); err != nil {
			zap.L().Warn("mention count cache write failed", zap.Uint("user_id", userID), zap.Error(err))
		}
	}
	return &respond.MentionCountRespond{TaggedUnread: n}, nil
}

// InvalidateMentionCount moves each user to a fresh cache generation.
// Call it after the mention change has committed. It runs inline so the
// next MentionCount of the caller already sees the new generation.
func (t *Tracker) InvalidateMentionCount(userIDs ...uint) {
	if t.cache == nil {
		return
	}
	ctx := context.Background()
	for _, id := range userIDs {
		if err := t.cache.Set(ctx, mentionGenKey(id), uuid.NewString(), constants.MENTION_GEN_TTL*time.Minute); err != nil {
			zap.L().Warn("mention generation bump failed", zap.Uint("user_id", id), zap.Error(err))
		}
	}
}

func (t *Tracker) busy(op string, err error, roomID, userID uint) error {
	zap.L().Error(op+" failed", zap.Uint("room_id", roomID), zap.Uint("user_id", userID), zap.Error(err))
	return errorx.ErrServerBusy
}
