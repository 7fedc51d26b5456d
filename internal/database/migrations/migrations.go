package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds every schema migration in registration order.
var Migrations = migrate.NewMigrations() //nolint:gochecknoglobals // -
