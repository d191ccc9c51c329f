// Package db embeds the SQL migrations and seed fixtures.
package db

import "embed"

// Migrations holds the goose migrations under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory within Migrations.
const MigrationsDir = "migrations"

//go:embed seed/fixtures.yaml
var Fixtures []byte
