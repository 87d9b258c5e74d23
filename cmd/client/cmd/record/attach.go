// cmd/client/cmd/record/attach.go
package record

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"fieldsync/internal/app/client"
)

var AttachCmd = &cobra.Command{
	Use:   "attach <file>",
	Short: "Capture a file attachment",
	Long: `Reads a file and stores it as an attachment in the local store.

The file content is snapshotted at capture time: a later sync uploads exactly
these bytes even if the source file changes or is deleted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := cmd.Context().Value("app").(*client.App)
		if !ok || app == nil {
			return fmt.Errorf("application not initialized")
		}

		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		fileName := filepath.Base(args[0])
		contentType := mime.TypeByExtension(filepath.Ext(fileName))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		clientID, err := app.Writer().Attach(cmd.Context(), fileName, contentType, content)
		if err != nil {
			return fmt.Errorf("failed to capture attachment: %w", err)
		}

		fmt.Printf("Attachment captured: %s (%d bytes)\n", clientID, len(content))
		return nil
	},
}
