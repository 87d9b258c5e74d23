// cmd/client/cmd/init.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"fieldsync/cmd/client/cmd/record"
	"fieldsync/cmd/client/cmd/sync"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the FieldSync client",
	Long: `The init command performs first-time client setup:
	1. Creates the local data directory and SQLite database
	2. Mints a stable device id for this installation
	3. Probes the server connection

The user id comes from the FIELDSYNC_USER_ID environment variable until the
deployment's auth layer provides it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// setupApp already created the database and identity as a side
		// effect; this command only reports and probes.
		fmt.Println("=== FieldSync initialization ===")
		fmt.Println()
		fmt.Printf("Data directory: %s\n", cfg.ConfigDir)
		fmt.Printf("Database:       %s\n", cfg.DatabasePath)

		fmt.Println("Probing server connection...")
		if online := app.Connectivity().ProbeNow(cmd.Context()); !online {
			fmt.Println("Warning: server unreachable. You can keep working offline;")
			fmt.Println("queued changes will sync once the server is reachable.")
		} else {
			fmt.Println("Server connection established")
		}

		fmt.Println()
		fmt.Println("Initialization complete.")
		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Println("1. Create a record:   fieldsync record create --table work_orders --data '{...}'")
		fmt.Println("2. Run a sync cycle:  fieldsync sync")
		fmt.Println("3. Check the status:  fieldsync sync --status")

		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Wipe all local data",
	Long: `Deletes every local record, queued mutation and pull watermark.
Remote data is untouched; the next sync rebuilds the local copy from scratch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.ResetLocalData(); err != nil {
			return fmt.Errorf("failed to reset local data: %w", err)
		}
		fmt.Println("Local data wiped.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(resetCmd)

	rootCmd.AddCommand(record.RecordCmd)
	record.RecordCmd.AddCommand(record.CreateCmd)
	record.RecordCmd.AddCommand(record.UpdateCmd)
	record.RecordCmd.AddCommand(record.GetCmd)
	record.RecordCmd.AddCommand(record.ListCmd)
	record.RecordCmd.AddCommand(record.AttachCmd)
	record.RecordCmd.AddCommand(record.OrphansCmd)

	rootCmd.AddCommand(sync.SyncCmd)
}
