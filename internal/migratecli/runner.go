// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package migratecli

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"

	"github.com/LerianStudio/workhub/internal/coordination"
)

// Init brings the schema up to date in one shot and marks the journal
// Completed, the "just apply everything" entrypoint spec §6 names first.
func Init(dsn, journalPath, worktree string) (*Journal, error) {
	j, err := Load(journalPath)
	if err != nil {
		return nil, err
	}

	j.Worktree = worktree
	j.Status = StatusInProgress

	if err := Save(journalPath, j); err != nil {
		return nil, err
	}

	m, err := coordination.NewMigrator(dsn)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		j.Status = StatusInProgress
		_ = Save(journalPath, j)

		return nil, fmt.Errorf("workhub: migrate init: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return nil, fmt.Errorf("workhub: read schema version: %w", err)
	}

	j.RecordCheckpoint(version, dirty, "init")
	j.Status = StatusCompleted

	if err := Save(journalPath, j); err != nil {
		return nil, err
	}

	return j, nil
}

// Step applies exactly one pending migration and records a checkpoint,
// leaving the journal InProgress until the last migration is applied.
func Step(dsn, journalPath, worktree string) (*Journal, error) {
	j, err := Load(journalPath)
	if err != nil {
		return nil, err
	}

	j.Worktree = worktree
	j.Status = StatusInProgress

	m, err := coordination.NewMigrator(dsn)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	stepErr := m.Steps(1)

	version, dirty, verErr := m.Version()
	if verErr != nil && !errors.Is(verErr, migrate.ErrNilVersion) {
		return nil, fmt.Errorf("workhub: read schema version: %w", verErr)
	}

	if stepErr != nil && !errors.Is(stepErr, migrate.ErrNoChange) {
		j.RecordCheckpoint(version, dirty, "step (failed)")

		if err := Save(journalPath, j); err != nil {
			return nil, err
		}

		return j, fmt.Errorf("workhub: migrate step: %w", stepErr)
	}

	completed := errors.Is(stepErr, migrate.ErrNoChange)

	j.RecordCheckpoint(version, dirty, "step")

	if completed {
		j.Status = StatusCompleted
	}

	if err := Save(journalPath, j); err != nil {
		return nil, err
	}

	return j, nil
}

// Resume continues from whatever the journal last recorded: a dirty
// version fails fast (the operator must resolve it manually, per
// golang-migrate's own dirty-state contract), otherwise Resume keeps
// calling Steps(1) until ErrNoChange.
func Resume(dsn, journalPath, worktree string) (*Journal, error) {
	j, err := Load(journalPath)
	if err != nil {
		return nil, err
	}

	if len(j.Checkpoints) > 0 && j.Checkpoints[len(j.Checkpoints)-1].Dirty {
		return j, fmt.Errorf("workhub: schema version %d is dirty, resolve manually before resuming", j.Version)
	}

	j.Worktree = worktree
	j.Status = StatusInProgress

	m, err := coordination.NewMigrator(dsn)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	for {
		stepErr := m.Steps(1)

		version, dirty, verErr := m.Version()
		if verErr != nil && !errors.Is(verErr, migrate.ErrNilVersion) {
			return nil, fmt.Errorf("workhub: read schema version: %w", verErr)
		}

		if stepErr != nil && !errors.Is(stepErr, migrate.ErrNoChange) {
			j.RecordCheckpoint(version, dirty, "resume (failed)")
			_ = Save(journalPath, j)

			return j, fmt.Errorf("workhub: migrate resume: %w", stepErr)
		}

		j.RecordCheckpoint(version, dirty, "resume")

		if errors.Is(stepErr, migrate.ErrNoChange) {
			j.Status = StatusCompleted
			break
		}
	}

	if err := Save(journalPath, j); err != nil {
		return nil, err
	}

	return j, nil
}
