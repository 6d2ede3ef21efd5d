package contract

import "context"

// Store persists contracts, their schedules and forward-book snapshots.
//
// Implementations:
//   - contract/store: in-memory, for tests and local runs
//   - store/sqlite: SQLite
type Store interface {
	// SaveContract inserts or replaces a contract and its milestones.
	SaveContract(ctx context.Context, c Contract) error

	// GetContract returns ErrContractNotFound for unknown IDs.
	GetContract(ctx context.Context, id string) (*Contract, error)

	// ListContracts returns contracts newest first.
	ListContracts(ctx context.Context) ([]Contract, error)

	// DeleteContract removes a contract with its milestones, schedule and snapshots.
	DeleteContract(ctx context.Context, id string) error

	// ReplaceSchedule discards any stored schedule and stores items atomically.
	ReplaceSchedule(ctx context.Context, contractID string, items []RevenueItem) error

	// LoadSchedule returns the stored schedule ordered by sequence.
	LoadSchedule(ctx context.Context, contractID string) ([]RevenueItem, error)

	SaveSnapshot(ctx context.Context, s ForwardBookSnapshot) error

	// ListSnapshots returns snapshots oldest first.
	ListSnapshots(ctx context.Context, contractID string) ([]ForwardBookSnapshot, error)
}
