package cache

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Key is a cache key with a canonical string form. Two keys are equal when
// their canonical strings are equal.
type Key interface {
	comparable
	CacheKey() string
}

// ServerKey scopes entries of parameterless endpoints to one server.
type ServerKey string

// NewServerKey normalizes the server URL so equivalent spellings collide.
func NewServerKey(serverURL string) ServerKey {
	return ServerKey(normalizeServer(serverURL))
}

func (k ServerKey) CacheKey() string {
	return string(k)
}

// QueryKey scopes entries to one server and one parameter value. The type
// parameter keeps keys of different resource kinds apart at compile time.
type QueryKey[P any] struct {
	canonical string
}

// NewQueryKey builds a key from the server URL and the JSON encoding of
// params. Struct fields encode in declaration order and map keys sorted, so
// independently built equal parameters produce equal keys.
func NewQueryKey[P any](serverURL string, params P) (QueryKey[P], error) {
	b, err := json.Marshal(params)
	if err != nil {
		return QueryKey[P]{}, fmt.Errorf("encode cache key: %w", err)
	}
	return QueryKey[P]{canonical: normalizeServer(serverURL) + string(b)}, nil
}

func (k QueryKey[P]) CacheKey() string {
	return k.canonical
}

func normalizeServer(serverURL string) string {
	return strings.TrimRight(strings.TrimSpace(serverURL), "/")
}
