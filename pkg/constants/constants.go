package constants

import "time"

const (
	CHANNEL_SIZE         = 100  // buffered channel size for brokers and sessions
	REDIS_TIMEOUT        = 1    // cache ttl (minutes)
	MENTION_GEN_TTL      = 60   // mention cache generation ttl (minutes), outlives cached counts
	PERMISSION_CACHE_TTL = 60   // permission cache ttl (seconds)
	MAX_MESSAGE_SIZE     = 8192 // max inbound websocket frame (bytes)
	AI_REPLY_MAX_RUNES   = 180  // default reply oracle truncation
	USER_PICKER_LIMIT    = 50
)

// websocket timings
const (
	WS_WRITE_WAIT  = 10 * time.Second
	WS_PONG_WAIT   = 60 * time.Second
	WS_PING_PERIOD = (WS_PONG_WAIT * 9) / 10
)

// roles with special meaning in chat
const (
	ROLE_OWNER     = "owner"
	ROLE_PRESIDENT = "president"
	ROLE_AI        = "ai"
)

// cache keys
const (
	MENTION_COUNT_KEY_PREFIX = "chat_mention_count_"
	PERMISSION_KEY_PREFIX    = "chat_perm_"
	AI_REPLY_QUEUE_KEY       = "chat:ai_reply_queue"
	ROOM_EVENT_CHANNEL       = "chat:room_events"
)
