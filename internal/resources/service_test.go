package resources

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unbekanntes-pferd/dcadmin/internal/dracoon"
)

type fakeAPI struct {
	dracoon.API
	base string

	customerCalls atomic.Int32
	eventCalls    atomic.Int32
	opCalls       atomic.Int32
	permCalls     atomic.Int32
	lastEvents    dracoon.EventParams
	lastList      dracoon.ListOptions
	failCustomer  bool
}

func (f *fakeAPI) BaseURL() string { return f.base }

func (f *fakeAPI) CustomerInfo(context.Context) (*dracoon.CustomerData, error) {
	f.customerCalls.Add(1)
	if f.failCustomer {
		return nil, &dracoon.Error{Kind: dracoon.KindAPI, StatusCode: 500, Message: "boom"}
	}
	internal := uint64(8)
	return &dracoon.CustomerData{Name: "acme", SpaceLimit: 100, SpaceUsed: 10, AccountsLimit: 50, AccountsUsed: 9,
		CntInternalUser: &internal, CustomerEncryptionEnabled: true}, nil
}

func (f *fakeAPI) Events(_ context.Context, p dracoon.EventParams) (*dracoon.LogEventList, error) {
	f.eventCalls.Add(1)
	f.lastEvents = p
	ok := 0
	return &dracoon.LogEventList{
		Range: dracoon.Range{Offset: p.Offset, Limit: p.Limit, Total: 1},
		Items: []dracoon.LogEvent{{ID: 1, Message: "login", Status: &ok}},
	}, nil
}

func (f *fakeAPI) OperationTypes(context.Context) (*dracoon.LogOperationList, error) {
	f.opCalls.Add(1)
	return &dracoon.LogOperationList{OperationList: []dracoon.LogOperation{
		{ID: 1, Name: "login"},
		{ID: 2, Name: "legacy", IsDeprecated: true},
	}}, nil
}

func (f *fakeAPI) NodePermissions(_ context.Context, opts dracoon.ListOptions) ([]dracoon.AuditNodeResponse, error) {
	f.permCalls.Add(1)
	f.lastList = opts
	name := "admin"
	return []dracoon.AuditNodeResponse{{
		NodeID:        10,
		NodeName:      "Room",
		NodeCreatedBy: &dracoon.UserInfo{ID: 99, UserName: &name},
		AuditUserPermissionList: []dracoon.AuditUserPermission{
			{UserID: 1, UserLogin: "a", Permissions: dracoon.NodePermissions{Read: true}},
			{UserID: 2, UserLogin: "b", Permissions: dracoon.NodePermissions{Manage: true, Read: true}},
		},
	}}, nil
}

func (f *fakeAPI) Users(_ context.Context, opts dracoon.ListOptions) (*dracoon.UserList, error) {
	f.lastList = opts
	return &dracoon.UserList{Range: dracoon.Range{Total: 1}, Items: []dracoon.UserItem{{ID: 1, UserName: "jane", IsLocked: true}}}, nil
}

func (f *fakeAPI) Groups(_ context.Context, opts dracoon.ListOptions) (*dracoon.GroupList, error) {
	f.lastList = opts
	first, last := "Jane", "Doe"
	return &dracoon.GroupList{Range: dracoon.Range{Total: 1}, Items: []dracoon.Group{{
		ID: 4, Name: "admins", CreatedBy: dracoon.UserInfo{ID: 1, FirstName: &first, LastName: &last},
		GroupRoles: &dracoon.RoleList{Items: []dracoon.Role{{Name: "USER_MANAGER"}}},
	}}}, nil
}

type switchableSource struct {
	current dracoon.API
}

func (s *switchableSource) get(context.Context) (dracoon.API, error) {
	if s.current == nil {
		return nil, errors.New("not connected")
	}
	return s.current, nil
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestService(api dracoon.API, clock *fakeClock) (*Service, *switchableSource) {
	src := &switchableSource{current: api}
	caches := NewCaches(DefaultTTLs(), CacheOptions{Clock: clock.Now})
	return NewService(src.get, caches), src
}

func TestCustomerInfoIsCachedPerServer(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	a := &fakeAPI{base: "https://a.example.com"}
	svc, src := newTestService(a, clock)

	info, err := svc.CustomerInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(9), info.UserCount)
	assert.Equal(t, uint64(50), info.UserLimit)
	assert.True(t, info.EncryptionEnabled)

	_, err = svc.CustomerInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), a.customerCalls.Load())

	b := &fakeAPI{base: "https://b.example.com"}
	src.current = b
	_, err = svc.CustomerInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), b.customerCalls.Load(), "another server is a different key")

	clock.now = clock.now.Add(31 * time.Minute)
	src.current = a
	_, err = svc.CustomerInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), a.customerCalls.Load(), "refetched after TTL")
}

func TestCustomerInfoErrorsAreNotCached(t *testing.T) {
	a := &fakeAPI{base: "https://a.example.com", failCustomer: true}
	svc, _ := newTestService(a, &fakeClock{now: time.Now()})

	_, err := svc.CustomerInfo(context.Background())
	require.Error(t, err)
	a.failCustomer = false
	_, err = svc.CustomerInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), a.customerCalls.Load())
}

func TestEventsCachedByParams(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	a := &fakeAPI{base: "https://a.example.com"}
	svc, _ := newTestService(a, clock)
	ctx := context.Background()

	list, err := svc.Events(ctx, EventListParams{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Events, 1)
	require.NotNil(t, list.Events[0].Status)
	assert.Equal(t, "success", *list.Events[0].Status)

	_, err = svc.Events(ctx, EventListParams{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int32(1), a.eventCalls.Load())

	_, err = svc.Events(ctx, EventListParams{Limit: 10, Offset: 10})
	require.NoError(t, err)
	assert.Equal(t, int32(2), a.eventCalls.Load(), "different params miss")
	assert.Equal(t, uint64(10), a.lastEvents.Offset)

	clock.now = clock.now.Add(61 * time.Second)
	_, err = svc.Events(ctx, EventListParams{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int32(3), a.eventCalls.Load(), "events expire after a minute")
}

func TestEventsRejectsInvalidParamsBeforeFetching(t *testing.T) {
	a := &fakeAPI{base: "https://a.example.com"}
	svc, _ := newTestService(a, &fakeClock{now: time.Now()})

	_, err := svc.Events(context.Background(), EventListParams{FromDate: "nope"})
	require.Error(t, err)
	assert.Zero(t, a.eventCalls.Load())
}

func TestOperationTypesSkipsDeprecated(t *testing.T) {
	a := &fakeAPI{base: "https://a.example.com"}
	svc, _ := newTestService(a, &fakeClock{now: time.Now()})

	ops, err := svc.OperationTypes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Operation{{ID: 1, Name: "login"}}, ops.Operations)

	_, err = svc.OperationTypes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), a.opCalls.Load())
}

func TestPermissionsCachedAndFlattened(t *testing.T) {
	a := &fakeAPI{base: "https://a.example.com"}
	svc, _ := newTestService(a, &fakeClock{now: time.Now()})
	ctx := context.Background()

	perms, err := svc.Permissions(ctx, ListParams{Filter: "userId:eq:1"})
	require.NoError(t, err)
	assert.Equal(t, "userId:eq:1", a.lastList.Filter)
	require.Len(t, perms, 1)
	require.NotNil(t, perms[0].NodeCreatedBy)
	assert.Equal(t, "admin", *perms[0].NodeCreatedBy)
	assert.Equal(t, int64(99), *perms[0].NodeCreatedByID)

	_, err = svc.Permissions(ctx, ListParams{Filter: "userId:eq:1"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), a.permCalls.Load())

	rows := perms.Flatten()
	require.Len(t, rows, 2)
	assert.Equal(t, int64(10), rows[0].NodeID)
	assert.Equal(t, "b", rows[1].UserLogin)
	assert.True(t, rows[1].Manage)
	assert.False(t, rows[0].Manage)
}

func TestUsersAndGroups(t *testing.T) {
	a := &fakeAPI{base: "https://a.example.com"}
	svc, _ := newTestService(a, &fakeClock{now: time.Now()})
	ctx := context.Background()

	users, err := svc.Users(ctx, ListParams{Limit: 500, Offset: 500})
	require.NoError(t, err)
	assert.Equal(t, uint64(500), a.lastList.Offset)
	require.Len(t, users.Items, 1)
	assert.True(t, users.Items[0].IsLocked)

	groups, err := svc.Groups(ctx, ListParams{})
	require.NoError(t, err)
	require.Len(t, groups.Items, 1)
	g := groups.Items[0]
	require.NotNil(t, g.CreatedByName)
	assert.Equal(t, "Jane Doe", *g.CreatedByName)
	assert.Equal(t, []string{"USER_MANAGER"}, g.GroupRoles)
	assert.Equal(t, RoleFlags{IsUserManager: true}, g.Roles())
}

func TestServiceWithoutConnection(t *testing.T) {
	svc, _ := newTestService(nil, &fakeClock{now: time.Now()})
	_, err := svc.CustomerInfo(context.Background())
	assert.EqualError(t, err, "not connected")
}

func TestEquivalentQueriesShareCacheEntry(t *testing.T) {
	a := &fakeAPI{base: "https://a.example.com"}
	svc, _ := newTestService(a, &fakeClock{now: time.Now()})
	ctx := context.Background()

	_, err := svc.Permissions(ctx, ListParams{Filter: "userId:eq:1", Sort: "name:asc"})
	require.NoError(t, err)
	_, err = svc.Permissions(ctx, ListParams{Filter: " userId:eq:1 ", Sort: "name:asc "})
	require.NoError(t, err)
	assert.Equal(t, int32(1), a.permCalls.Load())

	_, err = svc.Events(ctx, EventListParams{FromDate: "2024-01-01", ToDate: "Last Week"})
	require.NoError(t, err)
	_, err = svc.Events(ctx, EventListParams{FromDate: "2024-01-01T00:00:00Z", ToDate: "last week"})
	require.NoError(t, err)
	_, err = svc.Events(ctx, EventListParams{FromDate: "2024-01-01T00:00:00.000Z", ToDate: " last week"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), a.eventCalls.Load())
}
