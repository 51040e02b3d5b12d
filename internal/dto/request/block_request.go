package request

// BlockRequest blocks or unblocks another user.
type BlockRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Action string `json:"action" binding:"required,oneof=block unblock"`
}
