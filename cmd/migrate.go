package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/marketpulse/internal/app"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables and the unique indexes backing every natural key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pg, err := app.OpenDB(log, true)
			if err != nil {
				return err
			}
			defer pg.Close()
			log.Info("Migration complete")
			return nil
		},
	}
}
