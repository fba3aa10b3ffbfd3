// Package export writes complete resource listings as CSV.
package export

import (
	"context"
	"io"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/unbekanntes-pferd/dcadmin/internal/dracoon"
	"github.com/unbekanntes-pferd/dcadmin/internal/resources"
)

// Defaults for paging and fan-out.
const (
	DefaultPageSize    = 500
	DefaultConcurrency = 4
)

// Options configures an Exporter.
type Options struct {
	PageSize    int
	Concurrency int
	Logger      *slog.Logger
}

// Exporter pages through the API directly, bypassing the resource caches.
type Exporter struct {
	client      resources.ClientSource
	pageSize    uint64
	concurrency int
	logger      *slog.Logger
}

// New creates an Exporter.
func New(client resources.ClientSource, opts Options) *Exporter {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Exporter{
		client:      client,
		pageSize:    uint64(opts.PageSize),
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
	}
}

// paginate fetches the first page at offset, then every following page until
// total is reached.
func paginate[T any](ctx context.Context, offset, pageSize uint64, fetch func(ctx context.Context, offset, limit uint64) ([]T, uint64, error)) ([]T, error) {
	items, total, err := fetch(ctx, offset, pageSize)
	if err != nil {
		return nil, err
	}
	for next := offset + pageSize; next < total; next += pageSize {
		page, _, err := fetch(ctx, next, pageSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		items = append(items, page...)
	}
	return items, nil
}

// Events writes all events matching params and returns the row count.
func (e *Exporter) Events(ctx context.Context, w io.Writer, params resources.EventListParams) (int, error) {
	opts, err := params.Options()
	if err != nil {
		return 0, err
	}
	c, err := e.client(ctx)
	if err != nil {
		return 0, err
	}
	events, err := paginate(ctx, opts.Offset, e.pageSize, func(ctx context.Context, offset, limit uint64) ([]resources.Event, uint64, error) {
		p := opts
		p.Offset, p.Limit = offset, limit
		list, err := c.Events(ctx, p)
		if err != nil {
			return nil, 0, err
		}
		return resources.NewEventList(list).Events, list.Range.Total, nil
	})
	if err != nil {
		return 0, err
	}
	e.logger.Debug("exporting events", "count", len(events))
	return len(events), writeCSV(w, eventColumns, events)
}

// Users writes all users and returns the row count.
func (e *Exporter) Users(ctx context.Context, w io.Writer, params resources.ListParams) (int, error) {
	users, err := e.allUsers(ctx, params)
	if err != nil {
		return 0, err
	}
	return len(users), writeCSV(w, userColumns, users)
}

func (e *Exporter) allUsers(ctx context.Context, params resources.ListParams) ([]resources.User, error) {
	opts, err := params.Options()
	if err != nil {
		return nil, err
	}
	c, err := e.client(ctx)
	if err != nil {
		return nil, err
	}
	return paginate(ctx, opts.Offset, e.pageSize, func(ctx context.Context, offset, limit uint64) ([]resources.User, uint64, error) {
		p := opts
		p.Offset, p.Limit = offset, limit
		list, err := c.Users(ctx, p)
		if err != nil {
			return nil, 0, err
		}
		return resources.NewUserList(list).Items, list.Range.Total, nil
	})
}

// Groups writes all groups with their role flags and returns the row count.
func (e *Exporter) Groups(ctx context.Context, w io.Writer, params resources.ListParams) (int, error) {
	opts, err := params.Options()
	if err != nil {
		return 0, err
	}
	c, err := e.client(ctx)
	if err != nil {
		return 0, err
	}
	groups, err := paginate(ctx, opts.Offset, e.pageSize, func(ctx context.Context, offset, limit uint64) ([]resources.Group, uint64, error) {
		p := opts
		p.Offset, p.Limit = offset, limit
		list, err := c.Groups(ctx, p)
		if err != nil {
			return nil, 0, err
		}
		return resources.NewGroupList(list).Items, list.Range.Total, nil
	})
	if err != nil {
		return 0, err
	}
	return len(groups), writeCSV(w, groupColumns, groups)
}

// Permissions writes the permission audit matching params, one row per
// node and user.
func (e *Exporter) Permissions(ctx context.Context, w io.Writer, params resources.ListParams) (int, error) {
	opts, err := params.Options()
	if err != nil {
		return 0, err
	}
	c, err := e.client(ctx)
	if err != nil {
		return 0, err
	}
	nodes, err := c.NodePermissions(ctx, opts)
	if err != nil {
		return 0, err
	}
	rows := resources.NewNodePermissionsList(nodes).Flatten()
	return len(rows), writeCSV(w, permissionColumns, rows)
}

// AllUserPermissions writes the permission audit of every user. Per-user
// audits run concurrently; rows keep user order.
func (e *Exporter) AllUserPermissions(ctx context.Context, w io.Writer) (int, error) {
	users, err := e.allUsers(ctx, resources.ListParams{})
	if err != nil {
		return 0, err
	}
	c, err := e.client(ctx)
	if err != nil {
		return 0, err
	}

	perUser := make([][]dracoon.AuditNodeResponse, len(users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, u := range users {
		g.Go(func() error {
			filter := resources.Filter{Field: "userId", Operator: "eq", Value: strconv.FormatInt(u.ID, 10)}
			nodes, err := c.NodePermissions(gctx, dracoon.ListOptions{Filter: filter.String()})
			if err != nil {
				return err
			}
			perUser[i] = nodes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var nodes []dracoon.AuditNodeResponse
	for _, n := range perUser {
		nodes = append(nodes, n...)
	}
	rows := resources.NewNodePermissionsList(nodes).Flatten()
	e.logger.Debug("exporting all user permissions", "users", len(users), "rows", len(rows))
	return len(rows), writeCSV(w, permissionColumns, rows)
}
