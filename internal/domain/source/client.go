package source

import (
	"context"
	"time"
)

// Client pulls raw records from the remote time-and-attendance API.
// Every method paginates internally. On a mid-stream page failure the records collected so
// far are returned together with the error.
type Client interface {
	FetchTransactions(ctx context.Context, start, end time.Time) ([]Transaction, error)
	FetchEmployees(ctx context.Context) ([]Employee, error)
	FetchAreas(ctx context.Context) ([]Area, error)
}
