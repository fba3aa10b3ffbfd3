package auth

import "github.com/unbekanntes-pferd/dcadmin/internal/dracoon"

// Role names checked for Account flags.
const (
	RoleRoomManager   = "ROOM_MANAGER"
	RoleConfigManager = "CONFIG_MANAGER"
	RoleLogAuditor    = "LOG_AUDITOR"
	RoleUserManager   = "USER_MANAGER"
	RoleGroupManager  = "GROUP_MANAGER"
)

// Account is the connected operator with role flags and deployment type.
type Account struct {
	UserID          int64  `json:"userId"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	IsRoomManager   bool   `json:"isRoomManager"`
	IsConfigManager bool   `json:"isConfigManager"`
	IsAuditor       bool   `json:"isAuditor"`
	IsUserManager   bool   `json:"isUserManager"`
	IsGroupManager  bool   `json:"isGroupManager"`
	IsCloud         bool   `json:"isCloud"`
	Server          string `json:"server"`
}

// NewAccount combines the user account with the server version metadata.
func NewAccount(server string, user *dracoon.UserAccount, version *dracoon.SoftwareVersion) *Account {
	a := &Account{
		UserID:          user.ID,
		FirstName:       user.FirstName,
		LastName:        user.LastName,
		IsRoomManager:   user.HasRole(RoleRoomManager),
		IsConfigManager: user.HasRole(RoleConfigManager),
		IsAuditor:       user.HasRole(RoleLogAuditor),
		IsUserManager:   user.HasRole(RoleUserManager),
		IsGroupManager:  user.HasRole(RoleGroupManager),
		Server:          server,
	}
	if user.Email != nil {
		a.Email = *user.Email
	}
	if version != nil && version.IsDracoonCloud != nil {
		a.IsCloud = *version.IsDracoonCloud
	}
	return a
}
