// Package db provides embedded database schema and seed files.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// SeedProducts contains the default product catalog with initial stock
// levels, used by cmd/seed-db.
//
//go:embed seed/products.json
var SeedProducts []byte
