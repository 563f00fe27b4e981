// Package db provides the embedded database migrations.
package db

import "embed"

// Migrations holds the DDL files, applied in lexical order.
//
//go:embed migrations/*.sql
var Migrations embed.FS
