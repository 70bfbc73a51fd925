package main

import (
	"github.com/aretw0/introspection"
	"github.com/spf13/cobra"

	"github.com/kittclouds/notegraph/internal/store"
)

type statusReport struct {
	DSN       string         `json:"dsn"`
	Owner     int64          `json:"owner"`
	Notes     int            `json:"notes"`
	Versions  store.Versions `json:"versions"`
	Component string         `json:"component"`
	State     any            `json:"state"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database versions and service state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		versions, err := db.Versions(ctx)
		if err != nil {
			return err
		}

		var count int
		err = db.View(ctx, func(tx *store.Tx) error {
			count, err = tx.CountNotes(ctx, cfg.Owner)
			return err
		})
		if err != nil {
			return err
		}

		report := statusReport{
			DSN:      cfg.DSN,
			Owner:    cfg.Owner,
			Notes:    count,
			Versions: versions,
		}

		var intro introspection.Introspectable = service
		report.State = intro.State()
		if comp, ok := intro.(introspection.Component); ok {
			report.Component = comp.ComponentType()
		}

		return printJSON(report)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
