// cmd/client/cmd/record/get.go
package record

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fieldsync/internal/app/client"
)

var getTable string

var GetCmd = &cobra.Command{
	Use:   "get <client-id>",
	Short: "Show one record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := cmd.Context().Value("app").(*client.App)
		if !ok || app == nil {
			return fmt.Errorf("application not initialized")
		}

		rec, err := app.Storage().GetRecord(getTable, args[0])
		if err != nil {
			return fmt.Errorf("failed to get record: %w", err)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

func init() {
	GetCmd.Flags().StringVar(&getTable, "table", "", "record table")
	_ = GetCmd.MarkFlagRequired("table")
}
