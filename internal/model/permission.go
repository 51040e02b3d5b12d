package model

// RolePermission grants an action code to every user of a role.
type RolePermission struct {
	ID   uint   `gorm:"primaryKey"`
	Role string `gorm:"column:role;type:varchar(32);uniqueIndex:idx_role_perm;not null"`
	Code string `gorm:"column:code;type:varchar(64);uniqueIndex:idx_role_perm;not null"`
}

func (RolePermission) TableName() string {
	return "role_permission"
}

// UserPermission grants an action code to one user.
type UserPermission struct {
	ID     uint   `gorm:"primaryKey"`
	UserID uint   `gorm:"column:user_id;uniqueIndex:idx_user_perm;not null"`
	Code   string `gorm:"column:code;type:varchar(64);uniqueIndex:idx_user_perm;not null"`
}

func (UserPermission) TableName() string {
	return "user_permission"
}

// chat action codes
const (
	PermViewAllUsers      = "chat:view_all_users"
	PermViewAllHistory    = "chat:view_all_history"
	PermViewUserHistory   = "chat:view_user_history"
	PermCreatePrivate     = "chat:create_private"
	PermCreateGroup       = "chat:create_group"
	PermManageGroup       = "chat:manage_group"
	PermSend              = "chat:send"
	PermBlockUser         = "chat:block_user"
	PermDeleteChat        = "chat:delete_chat"
	PermUseAI             = "chat:use_ai"
	PermAiGroupAutoreply  = "chat:ai_group_autoreply"
	PermReactLike         = "chat:react_like"
	PermReactDislike      = "chat:react_dislike"
	PermImpersonate       = "chat:impersonate"
	PermManageMembership  = "chat:manage_membership"
	PermEnsureClinicGroup = "clinic:view"
)
