// Package database implements the storage port on top of bun for PostgreSQL and SQLite.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"
	"github.com/robalyx/retract/internal/database/migrations"
	"github.com/robalyx/retract/internal/setup/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bunjson"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// sonicProvider is a JSON provider that uses Sonic for encoding and decoding.
type sonicProvider struct{}

func (sonicProvider) Marshal(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

func (sonicProvider) Unmarshal(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}

func (sonicProvider) NewEncoder(w io.Writer) bunjson.Encoder {
	return sonic.ConfigDefault.NewEncoder(w)
}

func (sonicProvider) NewDecoder(r io.Reader) bunjson.Decoder {
	return sonic.ConfigDefault.NewDecoder(r)
}

// Client is a bun connection that implements storage.Backend.
type Client struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewConnection opens the database selected by the storage backend setting.
func NewConnection(ctx context.Context, cfg *config.CommonConfig, logger *zap.Logger, autoMigrate bool) (*Client, error) {
	switch cfg.Storage.Backend {
	case "postgres":
		return NewPostgres(ctx, &cfg.PostgreSQL, logger, autoMigrate)
	case "sqlite":
		return NewSQLite(ctx, cfg.SQLite.Path, logger, autoMigrate)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, cfg.Storage.Backend)
	}
}

// NewPostgres establishes a PostgreSQL connection.
func NewPostgres(ctx context.Context, cfg *config.PostgreSQL, logger *zap.Logger, autoMigrate bool) (*Client, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithAddr(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		pgdriver.WithUser(cfg.User),
		pgdriver.WithPassword(cfg.Password),
		pgdriver.WithDatabase(cfg.DBName),
		pgdriver.WithInsecure(true),
		pgdriver.WithApplicationName("retract"),
	))

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Minute)
	sqldb.SetConnMaxIdleTime(time.Duration(cfg.MaxIdleTime) * time.Minute)

	return newClient(ctx, bun.NewDB(sqldb, pgdialect.New()), logger, autoMigrate)
}

// NewSQLite opens an SQLite database at dsn. Use ":memory:" for a throwaway database.
func NewSQLite(ctx context.Context, dsn string, logger *zap.Logger, autoMigrate bool) (*Client, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite allows a single writer and every memory connection is its own database
	sqldb.SetMaxOpenConns(1)

	return newClient(ctx, bun.NewDB(sqldb, sqlitedialect.New()), logger, autoMigrate)
}

func newClient(ctx context.Context, db *bun.DB, logger *zap.Logger, autoMigrate bool) (*Client, error) {
	bunjson.SetProvider(sonicProvider{})
	db.AddQueryHook(NewHook(logger))

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	client := &Client{
		db:     db,
		logger: logger.Named("database"),
	}

	if autoMigrate {
		if _, err := client.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}

	client.logger.Info("Database connection established", zap.String("dialect", db.Dialect().Name().String()))

	return client, nil
}

// Migrate applies pending migrations and returns the names of the applied ones.
func (c *Client) Migrate(ctx context.Context) ([]string, error) {
	migrator := migrate.NewMigrator(c.db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if group.IsZero() {
		return nil, nil
	}

	names := make([]string, 0, len(group.Migrations))
	for _, m := range group.Migrations {
		names = append(names, m.Name)
	}

	c.logger.Info("Ran migrations", zap.String("group", group.String()), zap.Strings("migrations", names))

	return names, nil
}

// PendingMigrations returns the names of migrations that have not been applied.
func (c *Client) PendingMigrations(ctx context.Context) ([]string, error) {
	migrator := migrate.NewMigrator(c.db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}

	ms, err := migrator.MigrationsWithStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check migration status: %w", err)
	}

	unapplied := ms.Unapplied()
	names := make([]string, 0, len(unapplied))

	for _, m := range unapplied {
		names = append(names, m.Name)
	}

	return names, nil
}

// DB returns the underlying bun.DB instance.
func (c *Client) DB() *bun.DB {
	return c.db
}

// Close gracefully shuts down the database connection.
func (c *Client) Close() error {
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close database connection", zap.Error(err))
		return err
	}

	c.logger.Info("Database connection closed")

	return nil
}
