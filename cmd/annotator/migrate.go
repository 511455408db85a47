package main

import (
	"github.com/spf13/cobra"
	"github.com/xpanvictor/annotator/internal/database"
)

func migrateCommand(rt *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.InitDB(rt.cfg.DB, rt.cfg.Debug)
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := database.MigrateDB(db); err != nil {
				return err
			}
			rt.logger.Infof("schema migrated (%s)", rt.cfg.DB.Driver)
			return nil
		},
	}
}
