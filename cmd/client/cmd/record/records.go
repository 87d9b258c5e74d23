package record

import (
	"github.com/spf13/cobra"
)

// RecordCmd is the parent command for local record operations.
var RecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Manage local records",
	Long: `Create, update and inspect locally stored records.

Every mutation lands in the local database first and is queued for the next
sync cycle; the commands work identically online and offline.`,
}
