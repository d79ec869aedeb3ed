package cli

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/lexi-backend/internal/app"
	"github.com/yungbote/lexi-backend/internal/data/db"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer log.Sync()
			cfg.Database.AutoMigrate = false
			theDB, err := app.OpenDatabase(log, cfg)
			if err != nil {
				return err
			}
			if err := db.AutoMigrate(theDB); err != nil {
				return err
			}
			log.Info("Schema migrated", "driver", cfg.Database.Driver)
			return nil
		},
	})
}
