package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Statements returns the DDL for the raw tables. Every statement is
// idempotent. raw_hash carries a partial unique index so rows without a
// hash never conflict.
func Statements(amexTable, wellsTable string) []string {
	amex := pgx.Identifier{amexTable}.Sanitize()
	wells := pgx.Identifier{wellsTable}.Sanitize()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + amex + ` (
			id UUID PRIMARY KEY,
			date TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			card_member TEXT NOT NULL DEFAULT '',
			account_number TEXT NOT NULL DEFAULT '',
			amount NUMERIC NOT NULL,
			extended_details TEXT,
			appears_on_statement_as TEXT,
			address TEXT,
			city_state TEXT,
			zip_code TEXT,
			country TEXT,
			reference TEXT,
			category TEXT,
			raw_hash TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + wells + ` (
			id UUID PRIMARY KEY,
			date TEXT NOT NULL,
			amount NUMERIC NOT NULL,
			status TEXT NOT NULL DEFAULT '',
			unknown_field TEXT,
			description TEXT NOT NULL DEFAULT '',
			raw_hash TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	stmts = append(stmts, indexes(amexTable, "raw_hash", "created_at", "date", "reference")...)
	stmts = append(stmts, indexes(wellsTable, "raw_hash", "created_at", "date")...)

	return stmts
}

// indexes builds one index per column; raw_hash is unique where present.
func indexes(table string, columns ...string) []string {
	tbl := pgx.Identifier{table}.Sanitize()
	out := make([]string, 0, len(columns))

	for _, col := range columns {
		name := pgx.Identifier{indexName(table, col)}.Sanitize()

		if col == "raw_hash" {
			out = append(out, `CREATE UNIQUE INDEX IF NOT EXISTS `+name+` ON `+tbl+` (raw_hash) WHERE raw_hash IS NOT NULL`)
			continue
		}

		out = append(out, `CREATE INDEX IF NOT EXISTS `+name+` ON `+tbl+` (`+col+`)`)
	}

	return out
}

func indexName(table, column string) string {
	return strings.ReplaceAll(table, ".", "_") + "_" + column + "_idx"
}

// EnsureSchema creates the raw tables and their indexes.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, amexTable, wellsTable string) error {
	for _, stmt := range Statements(amexTable, wellsTable) {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring schema: %w", err)
		}
	}

	slog.Info("database schema ready", "amex_table", amexTable, "wells_table", wellsTable)

	return nil
}
