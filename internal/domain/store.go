package domain

import "context"

// Storage keys shared with previously persisted client data.
const (
	CartKey   = "@cart_items"
	TokenKey  = "token"
	UserIDKey = "userId"
)

// KeyValueStore is an opaque string blob store. Get reports absence with ok=false
// rather than an error.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Pinger is implemented by stores that can report backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
