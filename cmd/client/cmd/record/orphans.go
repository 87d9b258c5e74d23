// cmd/client/cmd/record/orphans.go
package record

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fieldsync/internal/app/client"
	"fieldsync/internal/domain/workitem"
)

var orphansOnly bool

var OrphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "Classify cached work items against the local cache",
	Long: `Re-derives, for every cached task instance, whether its backing user,
assignment or task template still exists, and prints the result.

Classification is computed fresh on every run from the currently cached work
orders; run 'fieldsync sync' first for an up-to-date verdict. A template
restored on the server un-orphans its items on the next run after a pull.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := cmd.Context().Value("app").(*client.App)
		if !ok || app == nil {
			return fmt.Errorf("application not initialized")
		}

		items, err := app.WorkItems()
		if err != nil {
			return fmt.Errorf("failed to load work items: %w", err)
		}
		dir, err := app.Directory()
		if err != nil {
			return fmt.Errorf("failed to index cached work orders: %w", err)
		}

		if orphansOnly {
			items = workitem.SelectOrphaned(items, dir)
		}
		if len(items) == 0 {
			fmt.Println("No work items found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CLIENT ID\tTITLE\tORPHANED\tREASON")
		for _, item := range items {
			c := workitem.Classify(item, dir)
			reason := string(c.Reason)
			if reason == "" {
				reason = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", item.ClientID, item.Title, c.Orphaned, reason)
		}
		return w.Flush()
	},
}

func init() {
	OrphansCmd.Flags().BoolVar(&orphansOnly, "only", false, "show only orphaned items")
}
