package sqldb

import (
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/YusovID/onetalk-router/internal/config"
	"github.com/YusovID/onetalk-router/migrations"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const pgUniqueViolation = "23505"

// Store owns the connection pool and the dialect specific bits shared by
// every repository.
type Store struct {
	db      *sqlx.DB
	log     *slog.Logger
	dialect string
}

func NewDB(cfg *config.Config, log *slog.Logger) (*Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		return NewPostgres(cfg.Postgres, log)
	case config.DriverSQLite:
		return NewSQLite(cfg.SQLite.Path, log)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func NewPostgres(cfg config.Postgres, log *slog.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return &Store{db: db, log: log, dialect: config.DriverPostgres}, nil
}

// NewSQLite opens the database file in WAL mode with foreign keys enforced.
// SQLite allows a single writer, so the pool is capped at one connection.
func NewSQLite(path string, log *slog.Logger) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)", path)

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("can't open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)

	return &Store{db: db, log: log, dialect: config.DriverSQLite}, nil
}

func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) Dialect() string {
	return s.dialect
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) builder() sq.StatementBuilderType {
	if s.dialect == config.DriverPostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}

	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// lockSuffix is appended to reads that must hold a row lock for the rest of
// the transaction. SQLite serializes writers, so it needs none.
func (s *Store) lockSuffix() string {
	if s.dialect == config.DriverPostgres {
		return "FOR UPDATE"
	}

	return ""
}

// MigrationURL returns the golang-migrate database URL for the configured driver.
func MigrationURL(cfg *config.Config) (string, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		return cfg.Postgres.ConnString(), nil
	case config.DriverSQLite:
		return "sqlite://" + cfg.SQLite.Path, nil
	default:
		return "", fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// NewMigrator returns a golang-migrate instance over the embedded migrations.
func NewMigrator(databaseURL string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return m, nil
}

// Migrate applies the embedded migrations on its own connection.
// A database that is already up to date is not an error.
func Migrate(databaseURL string, log *slog.Logger) error {
	const op = "internal.repository.sqldb.Migrate"

	m, err := NewMigrator(databaseURL)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("no migrations to apply")
			return nil
		}

		return fmt.Errorf("%s: failed to apply migrations: %w", op, err)
	}

	log.Info("migrations applied successfully")

	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	return false
}
