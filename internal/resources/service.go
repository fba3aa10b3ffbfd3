// Package resources exposes the administrative listings of a connected
// server, with read-through caching for the read-mostly kinds.
package resources

import (
	"context"

	"github.com/unbekanntes-pferd/dcadmin/internal/cache"
	"github.com/unbekanntes-pferd/dcadmin/internal/dracoon"
)

// ClientSource returns the connected client.
type ClientSource func(ctx context.Context) (dracoon.API, error)

// Service fetches resources for the current connection.
type Service struct {
	client ClientSource
	caches *Caches
}

// NewService creates a Service. Caches are created once and shared.
func NewService(client ClientSource, caches *Caches) *Service {
	if caches == nil {
		caches = NewCaches(DefaultTTLs(), CacheOptions{})
	}
	return &Service{client: client, caches: caches}
}

// Client returns the connected client.
func (s *Service) Client(ctx context.Context) (dracoon.API, error) {
	return s.client(ctx)
}

// CustomerInfo returns the tenant info, cached per server.
func (s *Service) CustomerInfo(ctx context.Context) (*CustomerInfo, error) {
	c, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	return s.caches.Customer.GetOrFetch(ctx, cache.NewServerKey(c.BaseURL()), func(ctx context.Context) (*CustomerInfo, error) {
		data, err := c.CustomerInfo(ctx)
		if err != nil {
			return nil, err
		}
		return NewCustomerInfo(data), nil
	})
}

// OperationTypes returns the event operation catalog, cached per server.
func (s *Service) OperationTypes(ctx context.Context) (*OperationTypes, error) {
	c, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	return s.caches.Operations.GetOrFetch(ctx, cache.NewServerKey(c.BaseURL()), func(ctx context.Context) (*OperationTypes, error) {
		list, err := c.OperationTypes(ctx)
		if err != nil {
			return nil, err
		}
		return NewOperationTypes(list), nil
	})
}

// Events returns one page of events, cached per server and parameters.
func (s *Service) Events(ctx context.Context, params EventListParams) (*EventList, error) {
	opts, err := params.Options()
	if err != nil {
		return nil, err
	}
	c, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	key, err := cache.NewQueryKey(c.BaseURL(), params.canonical())
	if err != nil {
		return nil, err
	}
	return s.caches.Events.GetOrFetch(ctx, key, func(ctx context.Context) (*EventList, error) {
		list, err := c.Events(ctx, opts)
		if err != nil {
			return nil, err
		}
		return NewEventList(list), nil
	})
}

// Permissions returns the room permission audit, cached per server and parameters.
func (s *Service) Permissions(ctx context.Context, params ListParams) (NodePermissionsList, error) {
	opts, err := params.Options()
	if err != nil {
		return nil, err
	}
	c, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	key, err := cache.NewQueryKey(c.BaseURL(), params.canonical(opts))
	if err != nil {
		return nil, err
	}
	return s.caches.Permissions.GetOrFetch(ctx, key, func(ctx context.Context) (NodePermissionsList, error) {
		nodes, err := c.NodePermissions(ctx, opts)
		if err != nil {
			return nil, err
		}
		return NewNodePermissionsList(nodes), nil
	})
}

// Users returns one page of users. Not cached.
func (s *Service) Users(ctx context.Context, params ListParams) (*UserList, error) {
	opts, err := params.Options()
	if err != nil {
		return nil, err
	}
	c, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	list, err := c.Users(ctx, opts)
	if err != nil {
		return nil, err
	}
	return NewUserList(list), nil
}

// Groups returns one page of groups. Not cached.
func (s *Service) Groups(ctx context.Context, params ListParams) (*GroupList, error) {
	opts, err := params.Options()
	if err != nil {
		return nil, err
	}
	c, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	list, err := c.Groups(ctx, opts)
	if err != nil {
		return nil, err
	}
	return NewGroupList(list), nil
}
