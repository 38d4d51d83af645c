// Package store implements persistence against PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"meeting-tracker/internal/config"
	"meeting-tracker/internal/model"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Store wraps a pgx pool. It is unusable until OnStart succeeds.
type Store struct {
	log  *zap.SugaredLogger
	cfg  config.PostgresConfig
	pool *pgxpool.Pool
}

func New(log *zap.SugaredLogger, cfg config.PostgresConfig) *Store {
	return &Store{log: log.Named("store.postgres"), cfg: cfg}
}

// OnStart opens the pool and applies pending migrations.
func (s *Store) OnStart(ctx context.Context) error {
	poolCfg, err := pgxpool.ParseConfig(s.cfg.DSN())
	if err != nil {
		return fmt.Errorf("parse pool config: %w", err)
	}
	if s.cfg.MaxConns > 0 {
		poolCfg.MaxConns = s.cfg.MaxConns
	}
	if s.cfg.MinConns > 0 {
		poolCfg.MinConns = s.cfg.MinConns
	}

	connectCtx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return fmt.Errorf("ping pool: %w", err)
	}

	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return err
	}

	s.pool = pool
	s.log.Infow("postgres ready", "host", s.cfg.Host, "port", s.cfg.Port, "db", s.cfg.DBName)
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	db, err := sql.Open("postgres", s.cfg.DSN())
	if err != nil {
		return fmt.Errorf("open sql: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	migrateCtx, cancel := context.WithTimeout(ctx, s.cfg.MigrateTimeout)
	defer cancel()

	if err := goose.UpContext(migrateCtx, db, s.cfg.MigrationsDir); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) OnStop(context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return errors.New("postgres not started")
	}
	return s.pool.Ping(ctx)
}

// translate maps driver errors onto the model sentinels. notFound is
// returned for pgx.ErrNoRows.
func translate(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", model.ErrConflict, pgErr.ConstraintName)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", model.ErrInvalid, pgErr.ConstraintName)
		}
	}
	return err
}

// inTx runs fn in a transaction, committing only when fn succeeds.
func (s *Store) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// validID reports whether id can be compared against a uuid column. Any
// other string cannot name a row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike quotes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
