package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds every registered schema migration in application order.
var Migrations = migrate.NewMigrations()
