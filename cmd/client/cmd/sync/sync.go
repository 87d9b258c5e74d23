package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fieldsync/internal/app/client"
	domain "fieldsync/internal/domain/sync"
)

var (
	syncStatus  bool
	showPending bool
)

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize with the server",
	Long: `Runs one push-then-pull cycle against the server.

Queued local mutations are pushed first, then remote changes are pulled and
applied. Use --status to inspect the engine without triggering a cycle, and
--pending to list queued mutations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := cmd.Context().Value("app").(*client.App)
		if !ok || app == nil {
			return fmt.Errorf("application not initialized")
		}

		if syncStatus {
			return showSyncStatus(cmd.Context(), app)
		}
		if showPending {
			return showPendingQueue(app)
		}

		return runSync(cmd.Context(), app)
	},
}

func runSync(ctx context.Context, app *client.App) error {
	fmt.Println("=== Synchronizing ===")

	start := time.Now()
	status, err := app.Sync(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if status.State == domain.StateIdle && status.LastSyncTime.IsZero() {
		color.Yellow("Server unreachable, sync skipped. Queued changes wait for connectivity.")
		return nil
	}

	color.Green("Sync complete in %v", time.Since(start).Round(time.Millisecond))
	fmt.Printf("Pending mutations left: %d\n", status.PendingCount)

	return nil
}

func showSyncStatus(ctx context.Context, app *client.App) error {
	status := app.SyncStatus()

	fmt.Println("=== Sync status ===")
	switch status.State {
	case domain.StateSyncing:
		color.Cyan("State: syncing")
	case domain.StateError:
		color.Red("State: error")
	default:
		color.Green("State: idle")
	}

	fmt.Printf("Pending mutations: %d\n", status.PendingCount)
	if !status.LastSyncTime.IsZero() {
		fmt.Printf("Last sync: %s\n", status.LastSyncTime.Format(time.RFC3339))
	}
	if status.LastError != "" {
		color.Red("Last error: %s", status.LastError)
	}

	if app.Connectivity().ProbeNow(ctx) {
		serverStatus, err := app.ServerStatus(ctx)
		if err == nil && serverStatus != nil {
			fmt.Printf("Server records: %d (server time %s)\n",
				serverStatus.TotalRecords, serverStatus.ServerTime.Format(time.RFC3339))
		}
	} else {
		color.Yellow("Server unreachable")
	}

	return nil
}

func showPendingQueue(app *client.App) error {
	entries, err := app.Queue().ListPending()
	if err != nil {
		return fmt.Errorf("failed to read queue: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("Mutation queue is empty.")
		return nil
	}

	fmt.Printf("Queued mutations: %d\n\n", len(entries))
	for _, entry := range entries {
		line := fmt.Sprintf("#%-4d %-16s %-7s %s  retries=%d",
			entry.ID, entry.Table, entry.Operation, entry.ClientID, entry.RetryCount)
		if entry.RetryCount >= client.MaxPushRetries {
			color.Red("%s  (over retry ceiling, needs attention)", line)
		} else {
			fmt.Println(line)
		}
	}

	return nil
}

func init() {
	SyncCmd.Flags().BoolVar(&syncStatus, "status", false, "show sync status without syncing")
	SyncCmd.Flags().BoolVar(&showPending, "pending", false, "list queued mutations")
}
