package cmd

import (
	"github.com/groupe-jds/doku-seal/internal/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := database.Connect(cfg.DB, nil)
		if err != nil {
			return err
		}
		defer database.Close(db)

		return database.Migrate(db)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
