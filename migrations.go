// Package dlbench holds assets shared by the binaries of the module.
package dlbench

import "embed"

// Migrations contains the goose SQL migrations of the service database.
//
//go:embed migrations/*.sql
var Migrations embed.FS
