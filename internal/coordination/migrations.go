// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package coordination

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies every pending migration against dsn, the way
// mpostgres.PostgresConnection.Connect drives golang-migrate against the
// teacher's on-disk migrations directory -- except the schema here travels
// with the binary via embed.FS rather than a file path on disk.
func Migrate(dsn string) error {
	m, err := NewMigrator(dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("workhub: apply migrations: %w", err)
	}

	return nil
}

// NewMigrator builds a *migrate.Migrate over the embedded schema and dsn.
// Exposed (rather than kept private to Migrate) so cmd/workhub-migrate can
// drive it one Steps(1) at a time instead of always jumping to the latest
// version, per spec §6's `migrate step`.
func NewMigrator(dsn string) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("workhub: open embedded migrations: %w", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("workhub: open migration connection: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{
		// 0004_process_work_batch.up.sql is a single PL/pgSQL function body
		// delimited by $$...$$ full of internal semicolons; multistmt's
		// dollar-quote-unaware ";" splitter would fragment it into invalid
		// statements. Each migration file runs as one Exec instead.
		MultiStatementEnabled: false,
		SchemaName:            "public",
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("workhub: init migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "workhub", driver)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("workhub: init migrator: %w", err)
	}

	return m, nil
}
