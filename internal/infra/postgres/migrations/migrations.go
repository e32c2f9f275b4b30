package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds every schema change in registration order.
var Migrations = migrate.NewMigrations()
