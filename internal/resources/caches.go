package resources

import (
	"log/slog"
	"time"

	"github.com/unbekanntes-pferd/dcadmin/internal/cache"
)

// Per-kind capacities. Server-scoped singletons hold one entry; parameterized
// lists hold one entry per distinct query.
const (
	staticCapacity = 1
	entityCapacity = 100
)

// TTLs are the per-kind freshness bounds.
type TTLs struct {
	Customer    time.Duration
	Operations  time.Duration
	Events      time.Duration
	Permissions time.Duration
}

// DefaultTTLs returns the built-in freshness bounds.
func DefaultTTLs() TTLs {
	return TTLs{
		Customer:    30 * time.Minute,
		Operations:  30 * time.Minute,
		Events:      60 * time.Second,
		Permissions: 5 * time.Minute,
	}
}

// CacheOptions are shared by all resource caches.
type CacheOptions struct {
	Clock  cache.Clock
	Logger *slog.Logger
	Stats  cache.Stats
}

// Caches holds one independent cache per resource kind.
type Caches struct {
	Customer    *cache.Cache[cache.ServerKey, *CustomerInfo]
	Operations  *cache.Cache[cache.ServerKey, *OperationTypes]
	Events      *cache.Cache[cache.QueryKey[EventListParams], *EventList]
	Permissions *cache.Cache[cache.QueryKey[ListParams], NodePermissionsList]
}

// NewCaches creates the resource caches.
func NewCaches(ttls TTLs, opts CacheOptions) *Caches {
	o := func(capacity int, ttl time.Duration) cache.Options {
		return cache.Options{Capacity: capacity, TTL: ttl, Clock: opts.Clock, Logger: opts.Logger, Stats: opts.Stats}
	}
	return &Caches{
		Customer:    cache.New[cache.ServerKey, *CustomerInfo]("customer", o(staticCapacity, ttls.Customer)),
		Operations:  cache.New[cache.ServerKey, *OperationTypes]("operations", o(staticCapacity, ttls.Operations)),
		Events:      cache.New[cache.QueryKey[EventListParams], *EventList]("events", o(entityCapacity, ttls.Events)),
		Permissions: cache.New[cache.QueryKey[ListParams], NodePermissionsList]("permissions", o(entityCapacity, ttls.Permissions)),
	}
}
