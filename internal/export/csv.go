package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/unbekanntes-pferd/dcadmin/internal/resources"
)

// column is one CSV column of T.
type column[T any] struct {
	name  string
	value func(T) string
}

func writeCSV[T any](w io.Writer, cols []column[T], rows []T) error {
	cw := csv.NewWriter(w)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.name
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, len(cols))
	for _, row := range rows {
		for i, c := range cols {
			record[i] = c.value(row)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func i64(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func u64(v *uint64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatUint(*v, 10)
}

func boolPtr(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}

var eventColumns = []column[resources.Event]{
	{"id", func(e resources.Event) string { return strconv.FormatInt(e.ID, 10) }},
	{"time", func(e resources.Event) string { return e.Time.UTC().Format(time.RFC3339) }},
	{"userId", func(e resources.Event) string { return strconv.FormatInt(e.UserID, 10) }},
	{"message", func(e resources.Event) string { return e.Message }},
	{"userName", func(e resources.Event) string { return str(e.UserName) }},
	{"status", func(e resources.Event) string { return str(e.Status) }},
	{"operationId", func(e resources.Event) string { return i64(e.OperationID) }},
	{"operationName", func(e resources.Event) string { return str(e.OperationName) }},
	{"authParentSource", func(e resources.Event) string { return str(e.AuthParentSource) }},
	{"authParentTarget", func(e resources.Event) string { return str(e.AuthParentTarget) }},
	{"objectId1", func(e resources.Event) string { return i64(e.ObjectID1) }},
	{"objectId2", func(e resources.Event) string { return i64(e.ObjectID2) }},
	{"objectName1", func(e resources.Event) string { return str(e.ObjectName1) }},
	{"objectName2", func(e resources.Event) string { return str(e.ObjectName2) }},
	{"objectType1", func(e resources.Event) string { return i64(e.ObjectType1) }},
	{"objectType2", func(e resources.Event) string { return i64(e.ObjectType2) }},
	{"attribute1", func(e resources.Event) string { return str(e.Attribute1) }},
	{"attribute2", func(e resources.Event) string { return str(e.Attribute2) }},
	{"attribute3", func(e resources.Event) string { return str(e.Attribute3) }},
}

var userColumns = []column[resources.User]{
	{"id", func(u resources.User) string { return strconv.FormatInt(u.ID, 10) }},
	{"firstName", func(u resources.User) string { return u.FirstName }},
	{"lastName", func(u resources.User) string { return u.LastName }},
	{"userName", func(u resources.User) string { return u.UserName }},
	{"email", func(u resources.User) string { return str(u.Email) }},
	{"lastLogin", func(u resources.User) string { return str(u.LastLogin) }},
	{"isLocked", func(u resources.User) string { return strconv.FormatBool(u.IsLocked) }},
}

var groupColumns = []column[resources.Group]{
	{"id", func(g resources.Group) string { return strconv.FormatInt(g.ID, 10) }},
	{"name", func(g resources.Group) string { return g.Name }},
	{"createdAt", func(g resources.Group) string { return g.CreatedAt }},
	{"createdById", func(g resources.Group) string { return strconv.FormatInt(g.CreatedByID, 10) }},
	{"createdByName", func(g resources.Group) string { return str(g.CreatedByName) }},
	{"createdByUserName", func(g resources.Group) string { return str(g.CreatedByUserName) }},
	{"updatedAt", func(g resources.Group) string { return str(g.UpdatedAt) }},
	{"updatedById", func(g resources.Group) string { return i64(g.UpdatedByID) }},
	{"updatedByName", func(g resources.Group) string { return str(g.UpdatedByName) }},
	{"updatedByUserName", func(g resources.Group) string { return str(g.UpdatedByUserName) }},
	{"cntUsers", func(g resources.Group) string { return u64(g.CntUsers) }},
	{"expireAt", func(g resources.Group) string { return str(g.ExpireAt) }},
	{"isConfigManager", func(g resources.Group) string { return strconv.FormatBool(g.Roles().IsConfigManager) }},
	{"isRoomManager", func(g resources.Group) string { return strconv.FormatBool(g.Roles().IsRoomManager) }},
	{"isUserManager", func(g resources.Group) string { return strconv.FormatBool(g.Roles().IsUserManager) }},
	{"isGroupManager", func(g resources.Group) string { return strconv.FormatBool(g.Roles().IsGroupManager) }},
	{"isAuditor", func(g resources.Group) string { return strconv.FormatBool(g.Roles().IsAuditor) }},
}

type permRow = resources.FlattenedNodePermissions

var permissionColumns = []column[permRow]{
	{"nodeId", func(p permRow) string { return strconv.FormatInt(p.NodeID, 10) }},
	{"nodeName", func(p permRow) string { return p.NodeName }},
	{"nodeParentPath", func(p permRow) string { return p.NodeParentPath }},
	{"nodeCntChildren", func(p permRow) string { return strconv.FormatUint(p.NodeCntChildren, 10) }},
	{"nodeParentId", func(p permRow) string { return i64(p.NodeParentID) }},
	{"nodeSize", func(p permRow) string { return u64(p.NodeSize) }},
	{"nodeRecycleBinRetentionPeriod", func(p permRow) string { return u64(p.NodeRecycleBinRetentionPeriod) }},
	{"nodeQuota", func(p permRow) string { return u64(p.NodeQuota) }},
	{"nodeIsEncrypted", func(p permRow) string { return boolPtr(p.NodeIsEncrypted) }},
	{"nodeHasActivitiesLog", func(p permRow) string { return boolPtr(p.NodeHasActivitiesLog) }},
	{"nodeCreatedAt", func(p permRow) string { return str(p.NodeCreatedAt) }},
	{"nodeUpdatedAt", func(p permRow) string { return str(p.NodeUpdatedAt) }},
	{"nodeCreatedBy", func(p permRow) string { return str(p.NodeCreatedBy) }},
	{"nodeCreatedById", func(p permRow) string { return i64(p.NodeCreatedByID) }},
	{"nodeUpdatedBy", func(p permRow) string { return str(p.NodeUpdatedBy) }},
	{"nodeUpdatedById", func(p permRow) string { return i64(p.NodeUpdatedByID) }},
	{"userId", func(p permRow) string { return strconv.FormatInt(p.UserID, 10) }},
	{"userLogin", func(p permRow) string { return p.UserLogin }},
	{"userFirstName", func(p permRow) string { return p.UserFirstName }},
	{"userLastName", func(p permRow) string { return p.UserLastName }},
	{"manage", func(p permRow) string { return strconv.FormatBool(p.Manage) }},
	{"read", func(p permRow) string { return strconv.FormatBool(p.Read) }},
	{"create", func(p permRow) string { return strconv.FormatBool(p.Create) }},
	{"change", func(p permRow) string { return strconv.FormatBool(p.Change) }},
	{"delete", func(p permRow) string { return strconv.FormatBool(p.Delete) }},
	{"manageDownloadShare", func(p permRow) string { return strconv.FormatBool(p.ManageDownloadShare) }},
	{"manageUploadShare", func(p permRow) string { return strconv.FormatBool(p.ManageUploadShare) }},
	{"readRecycleBin", func(p permRow) string { return strconv.FormatBool(p.ReadRecycleBin) }},
	{"restoreRecycleBin", func(p permRow) string { return strconv.FormatBool(p.RestoreRecycleBin) }},
	{"deleteRecycleBin", func(p permRow) string { return strconv.FormatBool(p.DeleteRecycleBin) }},
}
