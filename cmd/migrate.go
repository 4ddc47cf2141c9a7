package cmd

import (
	"log"

	"zabbix-sync/core/config"
	"zabbix-sync/core/database"
	"zabbix-sync/core/logger"
	"zabbix-sync/feature/inventory"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// migrateCmd creates or updates the inventory schema.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the inventory database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			return err
		}

		logg, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: "console"})
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()

		db, err := database.Connect(cfg.Database)
		if err != nil {
			return err
		}

		err = db.AutoMigrate(
			&inventory.Target{},
			&inventory.Device{},
			&inventory.IPAddress{},
			&inventory.HostGroup{},
			&inventory.HostGroupAssignment{},
			&inventory.ProxyGroup{},
			&inventory.Proxy{},
			&inventory.HostAssignment{},
			&inventory.HostInterface{},
			&inventory.Template{},
			&inventory.TemplateAssignment{},
			&inventory.TagAssignment{},
			&inventory.MacroAssignment{},
			&inventory.Inventory{},
		)
		if err != nil {
			return err
		}

		logg.Info("Schema migration completed", zap.String("database", cfg.Database.Name))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(migrateCmd)
}
