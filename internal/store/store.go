// Package store persists users, applications, settings and reviews in
// PostgreSQL.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrConflict          = errors.New("resource already exists")
	QueryTimeoutDuration = 5 * time.Second
)

//go:embed schema.sql
var schema string

type Storage struct {
	Users        *UsersStore
	Applications *ApplicationsStore
	Settings     *SettingsStore
	Reviews      *ReviewsStore
	Scans        *ScansStore
}

func NewStorage(db *sql.DB) Storage {
	return Storage{
		Users:        &UsersStore{db: db},
		Applications: &ApplicationsStore{db: db},
		Settings:     &SettingsStore{db: db},
		Reviews:      &ReviewsStore{db: db},
		Scans:        &ScansStore{db: db},
	}
}

// NewPool connects and pings before returning.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConnLifetime = 5 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// OpenDB exposes the pool through database/sql. Closing the returned DB does
// not close the pool.
func OpenDB(pool *pgxpool.Pool) *sql.DB {
	return stdlib.OpenDBFromPool(pool)
}

// Migrate applies the idempotent schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 4*QueryTimeoutDuration)
	defer cancel()
	_, err := db.ExecContext(ctx, schema)
	return err
}

func isUniqueViolation(err error) bool {
	return hasCode(err, "23505")
}

func isForeignKeyViolation(err error) bool {
	return hasCode(err, "23503")
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

type rowScanner interface {
	Scan(dest ...any) error
}
