package attendance

import (
	"context"
)

// SyncService defines the operations exposed to callers of the sync engine
type SyncService interface {
	// RunSyncCycle runs exactly one fetch, reconcile and adjust cycle.
	RunSyncCycle(ctx context.Context) (SyncReport, error)

	// ListUnfetchedAdjusted returns adjusted rows not yet handed out and marks them fetched.
	ListUnfetchedAdjusted(ctx context.Context) ([]AdjustedWorkResponse, error)

	// LastReport returns the report of the most recent cycle, if any ran.
	LastReport() (SyncReport, bool)
}
