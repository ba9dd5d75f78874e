package cart

import "context"

// StorageKey is the fixed key the serialized cart lives under
const StorageKey = "ag_cart_v2"

// Storage is a string key/value store the cart is mirrored into.
// Get reports found=false for a missing key; that is not an error.
type Storage interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// SessionKey scopes StorageKey to one visitor session
func SessionKey(sessionID string) string {
	if sessionID == "" {
		return StorageKey
	}
	return StorageKey + ":" + sessionID
}
