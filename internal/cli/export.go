package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/guidelinehq/guidectl/internal/client"
	"github.com/guidelinehq/guidectl/internal/export"
	"github.com/guidelinehq/guidectl/internal/preview"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export <ingest|compare> <session-id>",
	Short: "Save a job's results to a spreadsheet",
	Long: `Save the results of a finished job to a local file.

Formats:
  server  Download the spreadsheet rendered by the backend (default)
  xlsx    Build an Excel workbook locally from the result rows
  csv     Write the result rows as CSV

Examples:
  guidectl export ingest abc123
  guidectl export compare cmp-9 --format csv -o /tmp/diff.csv`,
	Args: cobra.ExactArgs(2),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "F", "server", "output format: server, xlsx or csv")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "output path (default: download directory)")
}

func runExport(cmd *cobra.Command, args []string) error {
	kind := client.Kind(args[0])
	if kind != client.KindIngest && kind != client.KindCompare {
		return fmt.Errorf("unknown job kind %q, want ingest or compare", args[0])
	}
	sessionID := args[1]
	ctx := context.Background()

	if exportFormat == "server" {
		destDir := exportOut
		if destDir == "" {
			destDir = cfg.DownloadDir
		}
		path, err := api.Download(ctx, kind, sessionID, destDir)
		if err != nil {
			return fmt.Errorf("download spreadsheet: %w", err)
		}
		fmt.Printf("Saved %s\n", path)
		return nil
	}

	dataset, err := api.Preview(ctx, kind, sessionID)
	if err != nil {
		return fmt.Errorf("fetch result rows: %w", err)
	}
	cols := preview.InferColumns(dataset, nil)

	path := exportOut
	if path == "" {
		path = filepath.Join(cfg.DownloadDir, fmt.Sprintf("%s-%s.%s", kind, sessionID, exportFormat))
	}

	exp := export.New(logger, collector)
	switch exportFormat {
	case "xlsx":
		err = exp.XLSX(path, dataset, cols)
	case "csv":
		err = exp.CSV(path, dataset, cols)
	default:
		return fmt.Errorf("unknown format %q, want server, xlsx or csv", exportFormat)
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", exportFormat, err)
	}

	fmt.Printf("Saved %s\n", path)
	return nil
}
