package dracoon

import (
	"net/url"
	"strconv"
	"time"
)

// SoftwareVersion is the public server metadata.
type SoftwareVersion struct {
	RestAPIVersion   string `json:"restApiVersion"`
	SdsServerVersion string `json:"sdsServerVersion"`
	BuildDate        string `json:"buildDate"`
	IsDracoonCloud   *bool  `json:"isDracoonCloud,omitempty"`
}

// Role is a user or group role.
type Role struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RoleList wraps a role collection.
type RoleList struct {
	Items []Role `json:"items"`
}

// UserAccount is the authenticated user's account.
type UserAccount struct {
	ID        int64    `json:"id"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	UserName  string   `json:"userName"`
	Email     *string  `json:"email,omitempty"`
	UserRoles RoleList `json:"userRoles"`
}

// HasRole reports whether the account holds the named role.
func (a *UserAccount) HasRole(name string) bool {
	for _, r := range a.UserRoles.Items {
		if r.Name == name {
			return true
		}
	}
	return false
}

// CustomerData describes the tenant of the authenticated user.
type CustomerData struct {
	ID                        int64   `json:"id"`
	Name                      string  `json:"name"`
	SpaceLimit                uint64  `json:"spaceLimit"`
	SpaceUsed                 uint64  `json:"spaceUsed"`
	AccountsLimit             uint64  `json:"accountsLimit"`
	AccountsUsed              uint64  `json:"accountsUsed"`
	CntInternalUser           *uint64 `json:"cntInternalUser,omitempty"`
	CntGuestUser              *uint64 `json:"cntGuestUser,omitempty"`
	CustomerEncryptionEnabled bool    `json:"customerEncryptionEnabled"`
}

// Range is the pagination envelope of list responses.
type Range struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
	Total  uint64 `json:"total"`
}

// EventStatus is the outcome filter of the event log.
type EventStatus int

const (
	EventStatusSuccess EventStatus = 0
	EventStatusFailure EventStatus = 2
)

// LogEvent is one audit log entry.
type LogEvent struct {
	ID               int64     `json:"id"`
	Time             time.Time `json:"time"`
	UserID           int64     `json:"userId"`
	Message          string    `json:"message"`
	UserName         *string   `json:"userName,omitempty"`
	Status           *int      `json:"status,omitempty"`
	OperationID      *int64    `json:"operationId,omitempty"`
	OperationName    *string   `json:"operationName,omitempty"`
	AuthParentSource *string   `json:"authParentSource,omitempty"`
	AuthParentTarget *string   `json:"authParentTarget,omitempty"`
	ObjectID1        *int64    `json:"objectId1,omitempty"`
	ObjectID2        *int64    `json:"objectId2,omitempty"`
	ObjectName1      *string   `json:"objectName1,omitempty"`
	ObjectName2      *string   `json:"objectName2,omitempty"`
	ObjectType1      *int64    `json:"objectType1,omitempty"`
	ObjectType2      *int64    `json:"objectType2,omitempty"`
	Attribute1       *string   `json:"attribute1,omitempty"`
	Attribute2       *string   `json:"attribute2,omitempty"`
	Attribute3       *string   `json:"attribute3,omitempty"`
}

// LogEventList is a page of audit log entries.
type LogEventList struct {
	Range Range      `json:"range"`
	Items []LogEvent `json:"items"`
}

// LogOperation is one event operation type.
type LogOperation struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	IsDeprecated bool   `json:"isDeprecated"`
}

// LogOperationList is the catalog of event operation types.
type LogOperationList struct {
	OperationList []LogOperation `json:"operationList"`
}

// UserInfo is the short user reference embedded in other resources.
type UserInfo struct {
	ID        int64   `json:"id"`
	UserName  *string `json:"userName,omitempty"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
}

// NodePermissions is the permission set of a user on a node.
type NodePermissions struct {
	Manage              bool `json:"manage"`
	Read                bool `json:"read"`
	Create              bool `json:"create"`
	Change              bool `json:"change"`
	Delete              bool `json:"delete"`
	ManageDownloadShare bool `json:"manageDownloadShare"`
	ManageUploadShare   bool `json:"manageUploadShare"`
	ReadRecycleBin      bool `json:"readRecycleBin"`
	RestoreRecycleBin   bool `json:"restoreRecycleBin"`
	DeleteRecycleBin    bool `json:"deleteRecycleBin"`
}

// AuditUserPermission is one user's permission entry on an audited node.
type AuditUserPermission struct {
	UserID        int64           `json:"userId"`
	UserLogin     string          `json:"userLogin"`
	UserFirstName string          `json:"userFirstName"`
	UserLastName  string          `json:"userLastName"`
	Permissions   NodePermissions `json:"permissions"`
}

// AuditNodeResponse is one audited room with its user permissions.
type AuditNodeResponse struct {
	NodeID                        int64                 `json:"nodeId"`
	NodeName                      string                `json:"nodeName"`
	NodeParentPath                string                `json:"nodeParentPath"`
	NodeCntChildren               uint64                `json:"nodeCntChildren"`
	AuditUserPermissionList       []AuditUserPermission `json:"auditUserPermissionList"`
	NodeParentID                  *int64                `json:"nodeParentId,omitempty"`
	NodeSize                      *uint64               `json:"nodeSize,omitempty"`
	NodeRecycleBinRetentionPeriod *uint64               `json:"nodeRecycleBinRetentionPeriod,omitempty"`
	NodeQuota                     *uint64               `json:"nodeQuota,omitempty"`
	NodeIsEncrypted               *bool                 `json:"nodeIsEncrypted,omitempty"`
	NodeHasActivitiesLog          *bool                 `json:"nodeHasActivitiesLog,omitempty"`
	NodeCreatedAt                 *time.Time            `json:"nodeCreatedAt,omitempty"`
	NodeUpdatedAt                 *time.Time            `json:"nodeUpdatedAt,omitempty"`
	NodeCreatedBy                 *UserInfo             `json:"nodeCreatedBy,omitempty"`
	NodeUpdatedBy                 *UserInfo             `json:"nodeUpdatedBy,omitempty"`
}

// UserItem is one entry of the user list.
type UserItem struct {
	ID                 int64     `json:"id"`
	FirstName          string    `json:"firstName"`
	LastName           string    `json:"lastName"`
	UserName           string    `json:"userName"`
	Email              *string   `json:"email,omitempty"`
	LastLoginSuccessAt *string   `json:"lastLoginSuccessAt,omitempty"`
	IsLocked           bool      `json:"isLocked"`
	UserRoles          *RoleList `json:"userRoles,omitempty"`
}

// UserList is a page of users.
type UserList struct {
	Range Range      `json:"range"`
	Items []UserItem `json:"items"`
}

// Group is one entry of the group list.
type Group struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	CreatedAt  string    `json:"createdAt"`
	CreatedBy  UserInfo  `json:"createdBy"`
	UpdatedAt  *string   `json:"updatedAt,omitempty"`
	UpdatedBy  *UserInfo `json:"updatedBy,omitempty"`
	CntUsers   *uint64   `json:"cntUsers,omitempty"`
	ExpireAt   *string   `json:"expireAt,omitempty"`
	GroupRoles *RoleList `json:"groupRoles,omitempty"`
}

// GroupList is a page of groups.
type GroupList struct {
	Range Range   `json:"range"`
	Items []Group `json:"items"`
}

// ListOptions are the common pagination, filter and sort parameters.
// Zero values are omitted from the request.
type ListOptions struct {
	Offset uint64
	Limit  uint64
	Filter string
	Sort   string
}

func (o ListOptions) values() url.Values {
	v := url.Values{}
	if o.Offset > 0 {
		v.Set("offset", strconv.FormatUint(o.Offset, 10))
	}
	if o.Limit > 0 {
		v.Set("limit", strconv.FormatUint(o.Limit, 10))
	}
	if o.Filter != "" {
		v.Set("filter", o.Filter)
	}
	if o.Sort != "" {
		v.Set("sort", o.Sort)
	}
	return v
}

// EventParams are the event log query parameters.
type EventParams struct {
	Offset        uint64
	Limit         uint64
	UserID        *int64
	OperationType *int64
	DateStart     *time.Time
	DateEnd       *time.Time
	Status        *EventStatus
}

func (p EventParams) values() url.Values {
	v := ListOptions{Offset: p.Offset, Limit: p.Limit}.values()
	if p.UserID != nil {
		v.Set("user_id", strconv.FormatInt(*p.UserID, 10))
	}
	if p.OperationType != nil {
		v.Set("operation_id", strconv.FormatInt(*p.OperationType, 10))
	}
	if p.DateStart != nil {
		v.Set("date_start", p.DateStart.UTC().Format(time.RFC3339))
	}
	if p.DateEnd != nil {
		v.Set("date_end", p.DateEnd.UTC().Format(time.RFC3339))
	}
	if p.Status != nil {
		v.Set("status", strconv.Itoa(int(*p.Status)))
	}
	return v
}
