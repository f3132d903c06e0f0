// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

// Command workhub-migrate is spec §6's minimal migration tool: init/step/
// resume subcommands over the coordination schema, journaled to a JSON
// file. Grounded in components/mdz/cmd/root.go's cobra root-command
// shape (same repo family, same CLI library choice).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LerianStudio/workhub/internal/migratecli"
)

// Exit codes per spec §6: 0 success, 1 user error, 2 internal error.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitInternal  = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		dsn      string
		journal  string
		worktree string
	)

	root := &cobra.Command{
		Use:   "workhub-migrate",
		Short: "workhub-migrate drives the coordination schema's migrations",
	}

	root.PersistentFlags().StringVar(&dsn, "dsn", os.Getenv("WORKHUB_POSTGRES_DSN"), "postgres connection string")
	root.PersistentFlags().StringVar(&journal, "journal", "workhub-migrate.journal.json", "path to the JSON progress journal")
	root.PersistentFlags().StringVar(&worktree, "worktree", "", "label recorded in the journal for this run's migration source")

	exitCode := exitSuccess

	report := func(j *migratecli.Journal, err error) error {
		if j != nil {
			fmt.Printf("version=%d status=%s checkpoints=%d\n", j.Version, j.Status, len(j.Checkpoints))
		}

		return err
	}

	root.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "apply every pending migration and mark the journal Completed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				exitCode = exitUserError
				return fmt.Errorf("workhub: --dsn is required")
			}

			j, err := migratecli.Init(dsn, journal, worktree)
			if err != nil {
				exitCode = exitInternal
			}

			return report(j, err)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "step",
		Short: "apply exactly one pending migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				exitCode = exitUserError
				return fmt.Errorf("workhub: --dsn is required")
			}

			j, err := migratecli.Step(dsn, journal, worktree)
			if err != nil {
				exitCode = exitInternal
			}

			return report(j, err)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "resume",
		Short: "resume applying migrations from the journal's last checkpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				exitCode = exitUserError
				return fmt.Errorf("workhub: --dsn is required")
			}

			j, err := migratecli.Resume(dsn, journal, worktree)
			if err != nil {
				exitCode = exitInternal
			}

			return report(j, err)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		if exitCode == exitSuccess {
			exitCode = exitUserError
		}

		return exitCode
	}

	return exitSuccess
}
