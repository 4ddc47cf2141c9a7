package cmd

import (
	"errors"
	"log"

	"zabbix-sync/core/config"
	"zabbix-sync/core/database"
	"zabbix-sync/core/logger"
	"zabbix-sync/feature/inventory"
	featuresync "zabbix-sync/feature/sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the sync command
	syncTargetName string
	syncTargetID   uint
)

// syncCmd runs one reconciliation pass for a single target and exits.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one reconciliation pass for a target",
	Long: `Runs the full reconciliation pipeline for one target and exits.

The target is selected by name or id. Per-item failures are logged and do
not abort the pass; the command fails only when a whole stage cannot run.

Examples:
  # Sync the target named "production"
  zabbix-sync sync --target production

  # Sync target id 3
  zabbix-sync sync --target-id 3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncTargetName == "" && syncTargetID == 0 {
			return errors.New("either --target or --target-id is required")
		}

		cfg, err := config.LoadConfig(".")
		if err != nil {
			return err
		}

		// CLI runs log to the console regardless of the server format.
		logg, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: "console"})
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()

		db, err := database.Connect(cfg.Database)
		if err != nil {
			return err
		}
		store := inventory.NewStore(db)
		svc := featuresync.NewService(store, &cfg.Sync, logg, cfg.Server.Workers)

		progress := &featuresync.Counter{}
		ctx := cmd.Context()
		if syncTargetName != "" {
			err = svc.SyncTargetByName(ctx, syncTargetName, progress)
		} else {
			err = svc.SyncTarget(ctx, syncTargetID, progress)
		}
		if err != nil {
			return err
		}

		done, total := progress.Snapshot()
		logg.Info("Reconciliation pass completed", zap.Int("items", done), zap.Int("total", total))
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncTargetName, "target", "", "target name to sync")
	syncCmd.Flags().UintVar(&syncTargetID, "target-id", 0, "target id to sync")
	RootCmd.AddCommand(syncCmd)
}
