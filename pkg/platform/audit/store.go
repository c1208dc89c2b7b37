package audit

import "context"

// Store persists audit entries. Append-only: implementations must never
// mutate or drop previously written entries. Concurrent appends are expected;
// interleaving is acceptable, dropped writes are not.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByResource(ctx context.Context, resourceType, resourceID string) ([]Entry, error)
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
}
