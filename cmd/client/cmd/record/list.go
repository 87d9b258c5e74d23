// cmd/client/cmd/record/list.go
package record

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"fieldsync/internal/app/client"
	"fieldsync/internal/domain/record"
)

var (
	listTable  string
	listFormat string
)

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List local records",
	Long: `Lists records from the local store, one table at a time.

The status column shows 'pending' for records with unconfirmed local changes
and 'synced' for records matching the server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := cmd.Context().Value("app").(*client.App)
		if !ok || app == nil {
			return fmt.Errorf("application not initialized")
		}

		table := strings.ToLower(listTable)
		if !record.ValidTable(table) {
			return fmt.Errorf("unsupported table %q, expected one of: %s",
				listTable, strings.Join(record.Tables, ", "))
		}

		records, err := app.Storage().ListRecords(table)
		if err != nil {
			return fmt.Errorf("failed to list records: %w", err)
		}

		switch listFormat {
		case "json":
			return printRecordsJSON(records)
		default:
			return printRecordsTable(records)
		}
	},
}

func printRecordsJSON(records []*record.Record) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func printRecordsTable(records []*record.Record) error {
	if len(records) == 0 {
		fmt.Println("No records found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CLIENT ID\tSTATUS\tUPDATED")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			rec.ClientID, rec.Status, rec.UpdatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func init() {
	ListCmd.Flags().StringVar(&listTable, "table", "", "record table")
	ListCmd.Flags().StringVar(&listFormat, "format", "table", "output format: table or json")
	_ = ListCmd.MarkFlagRequired("table")
}
