package postgresql

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/attendance-sync-go/internal/pkg/database"
)

const schema = `
CREATE TABLE IF NOT EXISTS employee_transactions (
	id            BIGSERIAL PRIMARY KEY,
	emp_code      VARCHAR(50)  NOT NULL,
	emp_name      VARCHAR(100),
	location      VARCHAR(100),
	punch_date    DATE         NOT NULL,
	punch_in      TIMESTAMP,
	punch_out     TIMESTAMP,
	work_duration DOUBLE PRECISION,
	created_at    TIMESTAMP    NOT NULL DEFAULT NOW(),
	CONSTRAINT employee_transactions_emp_code_punch_date_key UNIQUE (emp_code, punch_date),
	CONSTRAINT employee_transactions_bounds_check CHECK (punch_in IS NULL OR punch_out IS NULL OR punch_in <= punch_out)
);

CREATE TABLE IF NOT EXISTS employee_work_adjusted (
	id                BIGSERIAL PRIMARY KEY,
	emp_code          VARCHAR(50)  NOT NULL,
	emp_name          VARCHAR(100),
	location          VARCHAR(100),
	punch_date        DATE         NOT NULL,
	adj_in_time       TIMESTAMP,
	adj_out_time      TIMESTAMP,
	total_work_hrs    DOUBLE PRECISION,
	attendance_status VARCHAR(10),
	fetch_status      INT          NOT NULL DEFAULT 0,
	created_at        TIMESTAMP    NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_employee_work_adjusted_fetch_status
	ON employee_work_adjusted (fetch_status);
`

// EnsureSchema creates the attendance tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *database.DB) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize tables: %w", err)
	}
	slog.Info("Tables initialized successfully")
	return nil
}
