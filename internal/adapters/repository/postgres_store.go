package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/comitanigiacomo/kanso-reminders/internal/core/domain"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// PostgresStore binds the Postgres repositories to either the pool or a
// running transaction.
type PostgresStore struct {
	db   *sqlx.DB
	ext  sqlx.ExtContext
	inTx bool
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db, ext: db}
}

func (s *PostgresStore) Habits() domain.HabitRepository {
	return NewPostgresHabitRepository(s.ext)
}

func (s *PostgresStore) Users() domain.UserRepository {
	return NewPostgresUserRepository(s.ext)
}

func (s *PostgresStore) Schedules() domain.ScheduleRepository {
	return NewPostgresScheduleRepository(s.ext)
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(ctx, &PostgresStore{db: s.db, ext: tx, inTx: true}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// sqlState extracts the SQLSTATE code from either driver's error type.
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return sqlState(err) == codeUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return sqlState(err) == codeForeignKeyViolation
}
