// Package ai schedules assistant replies and runs the moderation observer.
package ai

import (
	"context"
	"fmt"
	"sync"
	"time"

	myredis "clinic_chat_server/internal/dao/redis"
	"clinic_chat_server/pkg/constants"
)

// Task is one pending reply, keyed by its triggering message.
type Task struct {
	RoomID    uint
	MessageID uint
}

func (t Task) member() string {
	return fmt.Sprintf("%d:%d", t.RoomID, t.MessageID)
}

func parseMember(member string) (Task, bool) {
	var t Task
	if _, err := fmt.Sscanf(member, "%d:%d", &t.RoomID, &t.MessageID); err != nil {
		return Task{}, false
	}
	return t, true
}

// Queue holds tasks until they are due.
type Queue interface {
	Push(ctx context.Context, task Task, due time.Time) error
	// PopDue claims up to limit due tasks. A task is returned to exactly
	// one caller across instances.
	PopDue(ctx context.Context, now time.Time, limit int) ([]Task, error)
}

// RedisQueue keeps tasks in a sorted set scored by due unix time.
type RedisQueue struct {
	cache myredis.CacheService
	key   string
}

// NewRedisQueue stores tasks under constants.AI_REPLY_QUEUE_KEY.
func NewRedisQueue(cache myredis.CacheService) *RedisQueue {
	return &RedisQueue{cache: cache, key: constants.AI_REPLY_QUEUE_KEY}
}

// Push schedules task at due. Pushing the same task again only moves its
// due time, so a retried send never queues two replies.
func (q *RedisQueue) Push(ctx context.Context, task Task, due time.Time) error {
	return q.cache.ZAdd(ctx, q.key, task.member(), float64(due.Unix()))
}

// PopDue claims each member with ZREM; only the instance whose ZREM
// removed the member gets the task.
func (q *RedisQueue) PopDue(ctx context.Context, now time.Time, limit int) ([]Task, error) {
	members, err := q.cache.ZRangeByMaxScore(ctx, q.key, float64(now.Unix()), int64(limit))
	if err != nil {
		return nil, err
	}
	var out []Task
	for _, m := range members {
		n, err := q.cache.ZRem(ctx, q.key, m)
		if err != nil {
			return out, err
		}
		if n == 0 {
			continue
		}
		if task, ok := parseMember(m); ok {
			out = append(out, task)
		}
	}
	return out, nil
}

// MemoryQueue serves single instance deployments without redis.
type MemoryQueue struct {
	mu    sync.Mutex
	tasks map[Task]time.Time
}

// NewMemoryQueue returns an empty process-local queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{tasks: make(map[Task]time.Time)}
}

// Push schedules task at due, replacing an earlier due time.
func (q *MemoryQueue) Push(_ context.Context, task Task, due time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks[task] = due
	return nil
}

// PopDue removes and returns up to limit due tasks. Order among due tasks
// is unspecified; limit <= 0 means no limit.
func (q *MemoryQueue) PopDue(_ context.Context, now time.Time, limit int) ([]Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []Task
	for task, due := range q.tasks {
		if limit > 0 && len(out) >= limit {
			break
		}
		if !due.After(now) {
			out = append(out, task)
			delete(q.tasks, task)
		}
	}
	return out, nil
}
