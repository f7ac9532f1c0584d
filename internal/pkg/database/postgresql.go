package database

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	*pgxpool.Pool
}

type Options struct {
	MaxConns       int32
	ConnectRetries int
	RetryDelay     time.Duration
	ConnectTimeout time.Duration
	// StatementTimeout bounds every statement server-side; zero keeps the server default.
	StatementTimeout time.Duration
}

func NewPostgreSQLDB(dsn string, opts Options) (*DB, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	// Connection pool settings
	config.MaxConns = opts.MaxConns
	if config.MaxConns <= 0 {
		config.MaxConns = 10
	}
	config.MinConns = 1
	if opts.ConnectTimeout > 0 {
		config.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	}
	if opts.StatementTimeout > 0 {
		config.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(opts.StatementTimeout.Milliseconds(), 10)
	}

	retries := opts.ConnectRetries
	if retries <= 0 {
		retries = 1
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		pool, err := connect(config)
		if err == nil {
			return &DB{Pool: pool}, nil
		}
		lastErr = err
		slog.Warn("Database connection attempt failed", "attempt", attempt, "error", err)
		if attempt < retries {
			time.Sleep(delay)
		}
	}

	slog.Error("Database connection failed after retries", "attempts", retries)
	return nil, fmt.Errorf("connect to database: %w", lastErr)
}

func connect(config *pgxpool.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func (db *DB) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return db.Pool.Begin(ctx)
}

type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, arguments ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}
