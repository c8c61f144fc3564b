// Package metadata stores small client-side bookkeeping values: the bearer
// token, the acting curator id and the last successful sync time.
package metadata

import (
	"context"
)

// Well-known metadata keys.
const (
	KeyAccessToken = "access_token"
	KeyCuratorID   = "curator_id"
	KeyLastSyncAt  = "last_sync_at"
)

// Repository is a simple key/value store. Get returns (nil, nil) when the
// key is absent.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
