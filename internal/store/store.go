package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"ms-booking/internal/logger"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict means the transaction lost a lock or serialization race.
	ErrConflict = errors.New("conflict")
)

// Store owns the database handle and the transaction scope.
type Store struct {
	Bun    *bun.DB
	Logger *logger.Logger
}

func New(db *bun.DB, log *logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{Bun: db, Logger: log}
}

// Repo returns a repository bound to the plain connection pool (no transaction).
func (s *Store) Repo() *Repo {
	return &Repo{db: s.Bun}
}

// RunInTx runs fn in a single transaction. Any error rolls everything back.
// A transaction that fails with ErrConflict is retried once.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, r *Repo) error) error {
	err := s.runOnce(ctx, fn)
	if err != nil && errors.Is(err, ErrConflict) {
		s.Logger.Warn("DATABASE", fmt.Sprintf("Transaction conflict, retrying once: %v", err))
		err = s.runOnce(ctx, fn)
	}
	return err
}

func (s *Store) runOnce(ctx context.Context, fn func(ctx context.Context, r *Repo) error) error {
	err := s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &Repo{db: tx})
	})
	if err != nil && !errors.Is(err, ErrConflict) && isConflict(err) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

// Repo exposes typed reads and writes over either the pool or a transaction.
type Repo struct {
	db bun.IDB
}

func (r *Repo) DB() bun.IDB {
	return r.db
}

// forUpdate adds an exclusive row lock held until commit. SQLite has no row
// locks; it serializes writers on the database lock instead.
func (r *Repo) forUpdate(q *bun.SelectQuery) *bun.SelectQuery {
	if r.db.Dialect().Name() == dialect.PG {
		return q.For("UPDATE")
	}
	return q
}

func wrap(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	if isConflict(err) {
		return fmt.Errorf("%s: %w: %v", what, ErrConflict, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func isConflict(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "55P03":
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED")
}

// IsUniqueViolation reports whether err came from a unique index.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
