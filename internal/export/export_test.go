package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unbekanntes-pferd/dcadmin/internal/dracoon"
	"github.com/unbekanntes-pferd/dcadmin/internal/resources"
)

type pagedAPI struct {
	dracoon.API
	users  int
	events int

	mu          sync.Mutex
	userOffsets []uint64
	permFilters []string
	failUser    int64
}

func (p *pagedAPI) Users(_ context.Context, opts dracoon.ListOptions) (*dracoon.UserList, error) {
	p.mu.Lock()
	p.userOffsets = append(p.userOffsets, opts.Offset)
	p.mu.Unlock()

	var items []dracoon.UserItem
	for i := opts.Offset; i < opts.Offset+opts.Limit && i < uint64(p.users); i++ {
		items = append(items, dracoon.UserItem{ID: int64(i + 1), UserName: "user"})
	}
	return &dracoon.UserList{Range: dracoon.Range{Offset: opts.Offset, Limit: opts.Limit, Total: uint64(p.users)}, Items: items}, nil
}

func (p *pagedAPI) Events(_ context.Context, params dracoon.EventParams) (*dracoon.LogEventList, error) {
	var items []dracoon.LogEvent
	for i := params.Offset; i < params.Offset+params.Limit && i < uint64(p.events); i++ {
		items = append(items, dracoon.LogEvent{ID: int64(i), Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Message: "msg, with comma"})
	}
	return &dracoon.LogEventList{Range: dracoon.Range{Total: uint64(p.events)}, Items: items}, nil
}

func (p *pagedAPI) Groups(_ context.Context, opts dracoon.ListOptions) (*dracoon.GroupList, error) {
	return &dracoon.GroupList{Range: dracoon.Range{Total: 1}, Items: []dracoon.Group{{
		ID: 1, Name: "admins", GroupRoles: &dracoon.RoleList{Items: []dracoon.Role{{Name: "ROOM_MANAGER"}}},
	}}}, nil
}

func (p *pagedAPI) NodePermissions(_ context.Context, opts dracoon.ListOptions) ([]dracoon.AuditNodeResponse, error) {
	p.mu.Lock()
	p.permFilters = append(p.permFilters, opts.Filter)
	p.mu.Unlock()

	var id int64
	if _, err := fmt.Sscanf(opts.Filter, "userId:eq:%d", &id); err != nil {
		id = 0
	}
	if p.failUser != 0 && id == p.failUser {
		return nil, errors.New("audit failed")
	}
	return []dracoon.AuditNodeResponse{{
		NodeID:   100 + id,
		NodeName: "room",
		AuditUserPermissionList: []dracoon.AuditUserPermission{
			{UserID: id, UserLogin: "user", Permissions: dracoon.NodePermissions{Read: true}},
		},
	}}, nil
}

func source(api dracoon.API) resources.ClientSource {
	return func(context.Context) (dracoon.API, error) { return api, nil }
}

func readCSV(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	records, err := csv.NewReader(buf).ReadAll()
	require.NoError(t, err)
	return records
}

func TestUsersPaginates(t *testing.T) {
	api := &pagedAPI{users: 1203}
	var buf bytes.Buffer

	n, err := New(source(api), Options{}).Users(context.Background(), &buf, resources.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 1203, n)
	assert.Equal(t, []uint64{0, 500, 1000}, api.userOffsets)

	records := readCSV(t, &buf)
	require.Len(t, records, 1204, "header plus one row per user")
	assert.Equal(t, []string{"id", "firstName", "lastName", "userName", "email", "lastLogin", "isLocked"}, records[0])
	assert.Equal(t, "1203", records[1203][0])
}

func TestEventsQuotesFields(t *testing.T) {
	api := &pagedAPI{events: 3}
	var buf bytes.Buffer

	n, err := New(source(api), Options{PageSize: 2}).Events(context.Background(), &buf, resources.EventListParams{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Contains(t, buf.String(), `"msg, with comma"`)

	records := readCSV(t, &buf)
	require.Len(t, records, 4)
	assert.Equal(t, "msg, with comma", records[1][3])
	assert.Equal(t, "2024-01-01T00:00:00Z", records[1][1])
}

func TestEventsRejectsBadParams(t *testing.T) {
	_, err := New(source(&pagedAPI{}), Options{}).Events(context.Background(), &bytes.Buffer{}, resources.EventListParams{FromDate: "x"})
	require.Error(t, err)
}

func TestGroupsIncludeRoleFlags(t *testing.T) {
	var buf bytes.Buffer
	_, err := New(source(&pagedAPI{}), Options{}).Groups(context.Background(), &buf, resources.ListParams{})
	require.NoError(t, err)

	records := readCSV(t, &buf)
	require.Len(t, records, 2)
	header := strings.Join(records[0], ",")
	assert.Contains(t, header, "isRoomManager")
	idx := indexOf(records[0], "isRoomManager")
	assert.Equal(t, "true", records[1][idx])
}

func TestAllUserPermissionsKeepsUserOrder(t *testing.T) {
	api := &pagedAPI{users: 25}
	var buf bytes.Buffer

	n, err := New(source(api), Options{Concurrency: 5}).AllUserPermissions(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 25, n)
	assert.Len(t, api.permFilters, 25)

	records := readCSV(t, &buf)
	userCol := indexOf(records[0], "userId")
	for i, rec := range records[1:] {
		assert.Equal(t, strconv.Itoa(i+1), rec[userCol])
	}
}

func TestAllUserPermissionsStopsOnError(t *testing.T) {
	api := &pagedAPI{users: 10, failUser: 4}
	var buf bytes.Buffer

	_, err := New(source(api), Options{Concurrency: 2}).AllUserPermissions(context.Background(), &buf)
	require.Error(t, err)
	assert.Empty(t, buf.String(), "nothing written on failure")
}

func TestPermissionsFlattensPerUser(t *testing.T) {
	api := &pagedAPI{}
	var buf bytes.Buffer

	n, err := New(source(api), Options{}).Permissions(context.Background(), &buf, resources.ListParams{Filter: "userId:eq:7"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"userId:eq:7"}, api.permFilters)

	records := readCSV(t, &buf)
	require.Len(t, records, 2)
	assert.Equal(t, "107", records[1][0])
	assert.Equal(t, "true", records[1][indexOf(records[0], "read")])
	assert.Equal(t, "", records[1][indexOf(records[0], "nodeQuota")])
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}
