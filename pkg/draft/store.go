package draft

import "context"

// Store persists draft values by key. Implementations must tolerate
// clearing a key that does not exist.
type Store interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Clear removes key. Clearing an absent key is not an error.
	Clear(ctx context.Context, key string) error
}
