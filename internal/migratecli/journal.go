// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

// Package migratecli implements spec §6's minimal migrate tool: init/step/
// resume subcommands driving golang-migrate one step at a time and
// recording progress in a JSON journal, the same encoding/json-for-one-
// writer-one-reader style the envelope marshaling in pkg/wmodel uses --
// no exotic serialization library for a file nobody but this CLI reads.
package migratecli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Status is the journal's lifecycle enum.
type Status string

const (
	StatusNotStarted Status = "NotStarted"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
)

// Checkpoint records one migration version reached.
type Checkpoint struct {
	Version   uint      `json:"version"`
	Dirty     bool      `json:"dirty"`
	AppliedAt time.Time `json:"appliedAt"`
}

// Journal is the on-disk state `migrate init`/`step`/`resume` read and
// write. Worktree is the source directory or embedded-FS label the
// migrations were read from, kept for operator diagnostics only.
type Journal struct {
	Version         uint         `json:"version"`
	Status          Status       `json:"status"`
	Worktree        string       `json:"worktree,omitempty"`
	Checkpoints     []Checkpoint `json:"checkpoints"`
	Transformations []string     `json:"transformations"`
}

// Load reads the journal at path. A missing file is not an error: it
// returns a fresh NotStarted journal, the state `migrate init` expects to
// find before it has ever run.
func Load(path string) (*Journal, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Journal{Status: StatusNotStarted}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("workhub: read journal %s: %w", path, err)
	}

	var j Journal
	if err := json.Unmarshal(b, &j); err != nil {
		return nil, fmt.Errorf("workhub: decode journal %s: %w", path, err)
	}

	return &j, nil
}

// Save writes j to path as indented JSON.
func Save(path string, j *Journal) error {
	b, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return fmt.Errorf("workhub: encode journal: %w", err)
	}

	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("workhub: write journal %s: %w", path, err)
	}

	return nil
}

// RecordCheckpoint appends a checkpoint for version and, when
// transformation is non-empty, appends it to the journal's Transformations
// log (the runner passes an operation label such as "init" or "step").
func (j *Journal) RecordCheckpoint(version uint, dirty bool, transformation string) {
	j.Version = version
	j.Checkpoints = append(j.Checkpoints, Checkpoint{Version: version, Dirty: dirty, AppliedAt: time.Now().UTC()})

	if transformation != "" {
		j.Transformations = append(j.Transformations, transformation)
	}
}
