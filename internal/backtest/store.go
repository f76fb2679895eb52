package backtest

import "context"

// Store persists the trade history and the derived performance snapshot.
// Implementations: JSON document file (filestore.go) and PostgreSQL
// (internal/database). The engine serializes all calls; implementations
// need no internal ordering guarantees beyond durability of each call.
type Store interface {
	// LoadAll returns the full trade history in insertion order.
	LoadAll(ctx context.Context) ([]Trade, error)

	// Append durably adds a new active trade to the history.
	Append(ctx context.Context, t Trade) error

	// MarkCompleted durably freezes a completed trade's exit fields.
	MarkCompleted(ctx context.Context, t Trade) error

	// SavePerformance durably replaces the cached performance snapshot.
	SavePerformance(ctx context.Context, p Performance) error
}
