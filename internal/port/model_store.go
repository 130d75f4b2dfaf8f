package port

import "context"

// ModelStore fetches versioned, immutable model artifacts by key.
type ModelStore interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}
