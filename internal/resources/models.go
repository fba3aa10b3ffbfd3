package resources

import (
	"time"

	"github.com/unbekanntes-pferd/dcadmin/internal/dracoon"
)

// Role names used for flags.
const (
	roleRoomManager   = "ROOM_MANAGER"
	roleConfigManager = "CONFIG_MANAGER"
	roleLogAuditor    = "LOG_AUDITOR"
	roleUserManager   = "USER_MANAGER"
	roleGroupManager  = "GROUP_MANAGER"
)

// Range is the pagination envelope of list results.
type Range struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
	Total  uint64 `json:"total"`
}

func newRange(r dracoon.Range) Range {
	return Range{Offset: r.Offset, Limit: r.Limit, Total: r.Total}
}

// CustomerInfo is the tenant quota and usage.
type CustomerInfo struct {
	Name              string  `json:"name"`
	SpaceLimit        uint64  `json:"spaceLimit"`
	SpaceUsed         uint64  `json:"spaceUsed"`
	UserCount         uint64  `json:"userCount"`
	UserLimit         uint64  `json:"userLimit"`
	CntInternalUser   *uint64 `json:"cntInternalUser"`
	CntGuestUser      *uint64 `json:"cntGuestUser"`
	EncryptionEnabled bool    `json:"encryptionEnabled"`
}

// NewCustomerInfo converts the API response.
func NewCustomerInfo(c *dracoon.CustomerData) *CustomerInfo {
	return &CustomerInfo{
		Name:              c.Name,
		SpaceLimit:        c.SpaceLimit,
		SpaceUsed:         c.SpaceUsed,
		UserCount:         c.AccountsUsed,
		UserLimit:         c.AccountsLimit,
		CntInternalUser:   c.CntInternalUser,
		CntGuestUser:      c.CntGuestUser,
		EncryptionEnabled: c.CustomerEncryptionEnabled,
	}
}

// Event is one audit log entry.
type Event struct {
	ID               int64     `json:"id"`
	Time             time.Time `json:"time"`
	UserID           int64     `json:"userId"`
	Message          string    `json:"message"`
	UserName         *string   `json:"userName"`
	Status           *string   `json:"status"`
	OperationID      *int64    `json:"operationId"`
	OperationName    *string   `json:"operationName"`
	AuthParentSource *string   `json:"authParentSource"`
	AuthParentTarget *string   `json:"authParentTarget"`
	ObjectID1        *int64    `json:"objectId1"`
	ObjectID2        *int64    `json:"objectId2"`
	ObjectName1      *string   `json:"objectName1"`
	ObjectName2      *string   `json:"objectName2"`
	ObjectType1      *int64    `json:"objectType1"`
	ObjectType2      *int64    `json:"objectType2"`
	Attribute1       *string   `json:"attribute1"`
	Attribute2       *string   `json:"attribute2"`
	Attribute3       *string   `json:"attribute3"`
}

// EventList is a page of events.
type EventList struct {
	Range  Range   `json:"range"`
	Events []Event `json:"events"`
}

// NewEvent converts one API event.
func NewEvent(e dracoon.LogEvent) Event {
	out := Event{
		ID:               e.ID,
		Time:             e.Time,
		UserID:           e.UserID,
		Message:          e.Message,
		UserName:         e.UserName,
		OperationID:      e.OperationID,
		OperationName:    e.OperationName,
		AuthParentSource: e.AuthParentSource,
		AuthParentTarget: e.AuthParentTarget,
		ObjectID1:        e.ObjectID1,
		ObjectID2:        e.ObjectID2,
		ObjectName1:      e.ObjectName1,
		ObjectName2:      e.ObjectName2,
		ObjectType1:      e.ObjectType1,
		ObjectType2:      e.ObjectType2,
		Attribute1:       e.Attribute1,
		Attribute2:       e.Attribute2,
		Attribute3:       e.Attribute3,
	}
	if e.Status != nil {
		var s string
		switch dracoon.EventStatus(*e.Status) {
		case dracoon.EventStatusSuccess:
			s = "success"
		case dracoon.EventStatusFailure:
			s = "failure"
		}
		if s != "" {
			out.Status = &s
		}
	}
	return out
}

// NewEventList converts an API page.
func NewEventList(l *dracoon.LogEventList) *EventList {
	events := make([]Event, 0, len(l.Items))
	for _, e := range l.Items {
		events = append(events, NewEvent(e))
	}
	return &EventList{Range: newRange(l.Range), Events: events}
}

// Operation is one event operation type.
type Operation struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// OperationTypes is the operation catalog.
type OperationTypes struct {
	Operations []Operation `json:"operations"`
}

// NewOperationTypes converts the API catalog, skipping deprecated operations.
func NewOperationTypes(l *dracoon.LogOperationList) *OperationTypes {
	ops := make([]Operation, 0, len(l.OperationList))
	for _, op := range l.OperationList {
		if op.IsDeprecated {
			continue
		}
		ops = append(ops, Operation{ID: op.ID, Name: op.Name})
	}
	return &OperationTypes{Operations: ops}
}

// UserPermissions is one user's permissions on a node.
type UserPermissions struct {
	UserID        int64                   `json:"userId"`
	UserLogin     string                  `json:"userLogin"`
	UserFirstName string                  `json:"userFirstName"`
	UserLastName  string                  `json:"userLastName"`
	Permissions   dracoon.NodePermissions `json:"permissions"`
}

// NodePermissions is one audited room.
type NodePermissions struct {
	NodeID                        int64             `json:"nodeId"`
	NodeName                      string            `json:"nodeName"`
	NodeParentPath                string            `json:"nodeParentPath"`
	NodeCntChildren               uint64            `json:"nodeCntChildren"`
	UserPermissions               []UserPermissions `json:"userPermissions"`
	NodeParentID                  *int64            `json:"nodeParentId"`
	NodeSize                      *uint64           `json:"nodeSize"`
	NodeRecycleBinRetentionPeriod *uint64           `json:"nodeRecycleBinRetentionPeriod"`
	NodeQuota                     *uint64           `json:"nodeQuota"`
	NodeIsEncrypted               *bool             `json:"nodeIsEncrypted"`
	NodeHasActivitiesLog          *bool             `json:"nodeHasActivitiesLog"`
	NodeCreatedAt                 *string           `json:"nodeCreatedAt"`
	NodeUpdatedAt                 *string           `json:"nodeUpdatedAt"`
	NodeCreatedBy                 *string           `json:"nodeCreatedBy"`
	NodeCreatedByID               *int64            `json:"nodeCreatedById"`
	NodeUpdatedBy                 *string           `json:"nodeUpdatedBy"`
	NodeUpdatedByID               *int64            `json:"nodeUpdatedById"`
}

// NodePermissionsList is the permission audit result.
type NodePermissionsList []NodePermissions

// NewNodePermissionsList converts the API audit.
func NewNodePermissionsList(nodes []dracoon.AuditNodeResponse) NodePermissionsList {
	out := make(NodePermissionsList, 0, len(nodes))
	for _, n := range nodes {
		p := NodePermissions{
			NodeID:                        n.NodeID,
			NodeName:                      n.NodeName,
			NodeParentPath:                n.NodeParentPath,
			NodeCntChildren:               n.NodeCntChildren,
			UserPermissions:               make([]UserPermissions, 0, len(n.AuditUserPermissionList)),
			NodeParentID:                  n.NodeParentID,
			NodeSize:                      n.NodeSize,
			NodeRecycleBinRetentionPeriod: n.NodeRecycleBinRetentionPeriod,
			NodeQuota:                     n.NodeQuota,
			NodeIsEncrypted:               n.NodeIsEncrypted,
			NodeHasActivitiesLog:          n.NodeHasActivitiesLog,
			NodeCreatedAt:                 formatTime(n.NodeCreatedAt),
			NodeUpdatedAt:                 formatTime(n.NodeUpdatedAt),
		}
		if n.NodeCreatedBy != nil {
			p.NodeCreatedBy = userName(n.NodeCreatedBy)
			p.NodeCreatedByID = &n.NodeCreatedBy.ID
		}
		if n.NodeUpdatedBy != nil {
			p.NodeUpdatedBy = userName(n.NodeUpdatedBy)
			p.NodeUpdatedByID = &n.NodeUpdatedBy.ID
		}
		for _, u := range n.AuditUserPermissionList {
			p.UserPermissions = append(p.UserPermissions, UserPermissions(u))
		}
		out = append(out, p)
	}
	return out
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func userName(u *dracoon.UserInfo) *string {
	s := ""
	if u.UserName != nil {
		s = *u.UserName
	}
	return &s
}

// FlattenedNodePermissions is one (node, user) row of the permission audit.
type FlattenedNodePermissions struct {
	NodeID                        int64   `json:"nodeId"`
	NodeName                      string  `json:"nodeName"`
	NodeParentPath                string  `json:"nodeParentPath"`
	NodeCntChildren               uint64  `json:"nodeCntChildren"`
	NodeParentID                  *int64  `json:"nodeParentId"`
	NodeSize                      *uint64 `json:"nodeSize"`
	NodeRecycleBinRetentionPeriod *uint64 `json:"nodeRecycleBinRetentionPeriod"`
	NodeQuota                     *uint64 `json:"nodeQuota"`
	NodeIsEncrypted               *bool   `json:"nodeIsEncrypted"`
	NodeHasActivitiesLog          *bool   `json:"nodeHasActivitiesLog"`
	NodeCreatedAt                 *string `json:"nodeCreatedAt"`
	NodeUpdatedAt                 *string `json:"nodeUpdatedAt"`
	NodeCreatedBy                 *string `json:"nodeCreatedBy"`
	NodeCreatedByID               *int64  `json:"nodeCreatedById"`
	NodeUpdatedBy                 *string `json:"nodeUpdatedBy"`
	NodeUpdatedByID               *int64  `json:"nodeUpdatedById"`
	UserID                        int64   `json:"userId"`
	UserLogin                     string  `json:"userLogin"`
	UserFirstName                 string  `json:"userFirstName"`
	UserLastName                  string  `json:"userLastName"`
	dracoon.NodePermissions
}

// Flatten expands every node into one row per user.
func (l NodePermissionsList) Flatten() []FlattenedNodePermissions {
	var out []FlattenedNodePermissions
	for _, n := range l {
		for _, u := range n.UserPermissions {
			out = append(out, FlattenedNodePermissions{
				NodeID:                        n.NodeID,
				NodeName:                      n.NodeName,
				NodeParentPath:                n.NodeParentPath,
				NodeCntChildren:               n.NodeCntChildren,
				NodeParentID:                  n.NodeParentID,
				NodeSize:                      n.NodeSize,
				NodeRecycleBinRetentionPeriod: n.NodeRecycleBinRetentionPeriod,
				NodeQuota:                     n.NodeQuota,
				NodeIsEncrypted:               n.NodeIsEncrypted,
				NodeHasActivitiesLog:          n.NodeHasActivitiesLog,
				NodeCreatedAt:                 n.NodeCreatedAt,
				NodeUpdatedAt:                 n.NodeUpdatedAt,
				NodeCreatedBy:                 n.NodeCreatedBy,
				NodeCreatedByID:               n.NodeCreatedByID,
				NodeUpdatedBy:                 n.NodeUpdatedBy,
				NodeUpdatedByID:               n.NodeUpdatedByID,
				UserID:                        u.UserID,
				UserLogin:                     u.UserLogin,
				UserFirstName:                 u.UserFirstName,
				UserLastName:                  u.UserLastName,
				NodePermissions:               u.Permissions,
			})
		}
	}
	return out
}

// User is one entry of the user list.
type User struct {
	ID        int64   `json:"id"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	UserName  string  `json:"userName"`
	Email     *string `json:"email"`
	LastLogin *string `json:"lastLogin"`
	IsLocked  bool    `json:"isLocked"`
}

// UserList is a page of users.
type UserList struct {
	Range Range  `json:"range"`
	Items []User `json:"items"`
}

// NewUserList converts an API page.
func NewUserList(l *dracoon.UserList) *UserList {
	items := make([]User, 0, len(l.Items))
	for _, u := range l.Items {
		items = append(items, User{
			ID:        u.ID,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			UserName:  u.UserName,
			Email:     u.Email,
			LastLogin: u.LastLoginSuccessAt,
			IsLocked:  u.IsLocked,
		})
	}
	return &UserList{Range: newRange(l.Range), Items: items}
}

// Group is one entry of the group list.
type Group struct {
	ID                int64    `json:"id"`
	Name              string   `json:"name"`
	CreatedAt         string   `json:"createdAt"`
	CreatedByID       int64    `json:"createdById"`
	CreatedByName     *string  `json:"createdByName"`
	CreatedByUserName *string  `json:"createdByUserName"`
	UpdatedAt         *string  `json:"updatedAt"`
	UpdatedByID       *int64   `json:"updatedById"`
	UpdatedByName     *string  `json:"updatedByName"`
	UpdatedByUserName *string  `json:"updatedByUserName"`
	CntUsers          *uint64  `json:"cntUsers"`
	ExpireAt          *string  `json:"expireAt"`
	GroupRoles        []string `json:"groupRoles"`
}

// GroupList is a page of groups.
type GroupList struct {
	Range Range   `json:"range"`
	Items []Group `json:"items"`
}

// NewGroupList converts an API page.
func NewGroupList(l *dracoon.GroupList) *GroupList {
	items := make([]Group, 0, len(l.Items))
	for _, g := range l.Items {
		item := Group{
			ID:                g.ID,
			Name:              g.Name,
			CreatedAt:         g.CreatedAt,
			CreatedByID:       g.CreatedBy.ID,
			CreatedByName:     displayName(&g.CreatedBy),
			CreatedByUserName: g.CreatedBy.UserName,
			UpdatedAt:         g.UpdatedAt,
			CntUsers:          g.CntUsers,
			ExpireAt:          g.ExpireAt,
			GroupRoles:        []string{},
		}
		if g.UpdatedBy != nil {
			item.UpdatedByID = &g.UpdatedBy.ID
			item.UpdatedByName = displayName(g.UpdatedBy)
			item.UpdatedByUserName = g.UpdatedBy.UserName
		}
		if g.GroupRoles != nil {
			for _, r := range g.GroupRoles.Items {
				item.GroupRoles = append(item.GroupRoles, r.Name)
			}
		}
		items = append(items, item)
	}
	return &GroupList{Range: newRange(l.Range), Items: items}
}

func displayName(u *dracoon.UserInfo) *string {
	if u.FirstName == nil && u.LastName == nil {
		return nil
	}
	var first, last string
	if u.FirstName != nil {
		first = *u.FirstName
	}
	if u.LastName != nil {
		last = *u.LastName
	}
	s := first + " " + last
	if first == "" || last == "" {
		s = first + last
	}
	return &s
}

// HasRole reports whether the group holds the named role.
func (g Group) HasRole(name string) bool {
	for _, r := range g.GroupRoles {
		if r == name {
			return true
		}
	}
	return false
}

// RoleFlags are the admin role flags of a group, as exported to CSV.
type RoleFlags struct {
	IsConfigManager bool
	IsRoomManager   bool
	IsUserManager   bool
	IsGroupManager  bool
	IsAuditor       bool
}

// Roles returns the group's admin role flags.
func (g Group) Roles() RoleFlags {
	return RoleFlags{
		IsConfigManager: g.HasRole(roleConfigManager),
		IsRoomManager:   g.HasRole(roleRoomManager),
		IsUserManager:   g.HasRole(roleUserManager),
		IsGroupManager:  g.HasRole(roleGroupManager),
		IsAuditor:       g.HasRole(roleLogAuditor),
	}
}
