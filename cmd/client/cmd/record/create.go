// cmd/client/cmd/record/create.go
package record

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fieldsync/internal/app/client"
	"fieldsync/internal/domain/record"
)

var (
	createTable string
	createData  string
)

var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new record",
	Long: `Creates a record in the local store and queues it for sync.

Supported tables:
- work_orders
- task_instances
- field_responses
- attachments (use 'record attach' for file content)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := cmd.Context().Value("app").(*client.App)
		if !ok || app == nil {
			return fmt.Errorf("application not initialized")
		}

		table := strings.ToLower(createTable)
		if !record.ValidTable(table) {
			return fmt.Errorf("unsupported table %q, expected one of: %s",
				createTable, strings.Join(record.Tables, ", "))
		}

		if createData == "" {
			return fmt.Errorf("--data is required")
		}
		if !json.Valid([]byte(createData)) {
			return fmt.Errorf("--data must be valid JSON")
		}

		clientID, err := app.Writer().Create(cmd.Context(), table, json.RawMessage(createData))
		if err != nil {
			return fmt.Errorf("failed to create record: %w", err)
		}

		fmt.Printf("Record created: %s\n", clientID)
		return nil
	},
}

func init() {
	CreateCmd.Flags().StringVar(&createTable, "table", "", "target table")
	CreateCmd.Flags().StringVar(&createData, "data", "", "record payload as JSON")
	_ = CreateCmd.MarkFlagRequired("table")
}
