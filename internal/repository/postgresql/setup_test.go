package postgresql_test

import (
	"context"
	"os"
	"testing"

	"github.com/cmlabs-hris/attendance-sync-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-sync-go/internal/repository/postgresql"
)

// newTestDatabase connects to TEST_DATABASE_URL, creates the schema and empties both
// tables. Tests are skipped when the variable is unset.
func newTestDatabase(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.NewPostgreSQLDB(dsn, database.Options{MaxConns: 4})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(db.Close)

	ctx := context.Background()
	if err := postgresql.EnsureSchema(ctx, db); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	if _, err := db.Exec(ctx, `TRUNCATE TABLE employee_transactions, employee_work_adjusted RESTART IDENTITY`); err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
	return db
}
