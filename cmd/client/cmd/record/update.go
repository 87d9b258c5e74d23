// cmd/client/cmd/record/update.go
package record

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"fieldsync/internal/app/client"
)

var (
	updateTable string
	updateData  string
)

var UpdateCmd = &cobra.Command{
	Use:   "update <client-id>",
	Short: "Update an existing record",
	Long: `Overwrites a record's payload in the local store and queues the
change for sync. The record becomes pending again until the server confirms
the new version.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := cmd.Context().Value("app").(*client.App)
		if !ok || app == nil {
			return fmt.Errorf("application not initialized")
		}

		if updateData == "" {
			return fmt.Errorf("--data is required")
		}

		err := app.Writer().Update(cmd.Context(), updateTable, args[0], json.RawMessage(updateData))
		if err != nil {
			return fmt.Errorf("failed to update record: %w", err)
		}

		fmt.Println("Record updated.")
		return nil
	},
}

func init() {
	UpdateCmd.Flags().StringVar(&updateTable, "table", "", "record table")
	UpdateCmd.Flags().StringVar(&updateData, "data", "", "new payload as JSON")
	_ = UpdateCmd.MarkFlagRequired("table")
}
