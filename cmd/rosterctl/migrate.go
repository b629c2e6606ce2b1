package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-roster-api/pkg/database"
)

func newMigrateCmd(deps *runtimeDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply, roll back or inspect schema migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.NewPostgres(cmd.Context(), deps.cfg.Database)
			if err != nil {
				return withCode(exitFailure, fmt.Errorf("connect database: %w", err))
			}
			defer db.Close()

			switch args[0] {
			case "up":
				err = database.MigrateUp(db.DB)
			case "down":
				err = database.MigrateDown(db.DB)
			default:
				err = database.MigrationStatus(db.DB)
			}
			if err != nil {
				return withCode(exitFailure, fmt.Errorf("migrate %s: %w", args[0], err))
			}
			deps.logger.Sugar().Infow("migrations finished", "direction", args[0])
			return nil
		},
	}
	return cmd
}
