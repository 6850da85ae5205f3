package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/hearth/internal/cli"
	"github.com/Veraticus/hearth/internal/config"
	"github.com/Veraticus/hearth/internal/sheets"
)

// newExporter builds the spreadsheet exporter. Tests replace it with a mock.
var newExporter = func(ctx context.Context, logger *slog.Logger) (sheets.Exporter, error) {
	cfg, err := config.LoadSheetsConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return sheets.NewWriter(ctx, *cfg, logger)
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export previews and recurring patterns",
	}

	cmd.AddCommand(exportSheetsCmd())

	return cmd
}

func exportSheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Write an import preview and recurring patterns to Google Sheets",
		Long: `Write an import preview, the stored recurring patterns, or both to a
Google Sheets spreadsheet. Previewing never touches the ledger.`,
		Example: `  hearth export sheets --file statement.csv --account checking
  hearth export sheets --patterns`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			file, _ := cmd.Flags().GetString("file")
			accountID, _ := cmd.Flags().GetString("account")
			withPatterns, _ := cmd.Flags().GetBool("patterns")

			if file == "" && !withPatterns {
				return fmt.Errorf("nothing to export: pass --file, --patterns or both")
			}
			if file != "" && accountID == "" {
				return fmt.Errorf("--account is required with --file")
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var report sheets.Report
			if file != "" {
				req, err := loadImportRequest(ctx, a, file, accountID)
				if err != nil {
					return err
				}
				exec, err := a.executor()
				if err != nil {
					return err
				}
				preview, err := exec.Preview(ctx, req)
				if err != nil {
					return fmt.Errorf("failed to build preview: %w", err)
				}
				report.Preview = &preview
			}
			if withPatterns {
				patterns, err := a.store.GetPatterns(ctx, accountID)
				if err != nil {
					return fmt.Errorf("failed to load recurring patterns: %w", err)
				}
				report.Patterns = patterns
			}

			exporter, err := newExporter(ctx, a.logger)
			if err != nil {
				return err
			}
			id, err := exporter.Export(ctx, report)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Exported to spreadsheet "+id))
			return nil
		},
	}

	cmd.Flags().String("file", "", "statement file to preview and export")
	cmd.Flags().StringP("account", "a", "", "local account ID for the preview")
	cmd.Flags().Bool("patterns", false, "include recurring patterns")
	return cmd
}
