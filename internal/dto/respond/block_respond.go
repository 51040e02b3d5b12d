package respond

import "time"

// BlockRespond is one edge of my block list.
type BlockRespond struct {
	UserID    uint      `json:"user_id"`
	Name      string    `json:"name"`
	BlockedAt time.Time `json:"blocked_at"`
}

// ChatBlockedData travels in the data field of a ChatBlocked error.
type ChatBlockedData struct {
	BlockedBy string    `json:"blocked_by"` // me or other
	BlockedAt time.Time `json:"blocked_at"`
}
