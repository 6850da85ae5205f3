package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/hearth/internal/cli"
	"github.com/Veraticus/hearth/internal/importer"
	"github.com/Veraticus/hearth/internal/model"
	"github.com/Veraticus/hearth/internal/tui"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import statement files into an account",
		Long: `Import CSV, XLSX, OFX or QFX statements into a local account.

Every import is previewed first. Rows are matched against the account's
existing transactions and classified as create, update, unchanged or skip.
Nothing is written until you apply.`,
	}

	cmd.AddCommand(importPreviewCmd())
	cmd.AddCommand(importApplyCmd())

	return cmd
}

func addImportFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("account", "a", "", "local account ID to import into")
	cmd.Flags().String("skip", "", "comma separated row numbers to skip")
	cmd.Flags().Bool("json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("account")
}

func importPreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Show what importing a file would do",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			accountID, _ := cmd.Flags().GetString("account")
			skipRaw, _ := cmd.Flags().GetString("skip")
			asJSON, _ := cmd.Flags().GetBool("json")

			skips, err := parseSkips(skipRaw)
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			req, err := loadImportRequest(ctx, a, args[0], accountID)
			if err != nil {
				return err
			}
			req.SkipRowNumbers = skips

			exec, err := a.executor()
			if err != nil {
				return err
			}
			preview, err := exec.Preview(ctx, req)
			if err != nil {
				return fmt.Errorf("failed to build preview: %w", err)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), preview)
			}
			return cli.RenderPreview(cmd.OutOrStdout(), preview)
		},
	}

	addImportFlags(cmd)
	return cmd
}

func importApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <file>",
		Short: "Import a file after review",
		Long: `Build the preview, let you review it, then commit the create and update
rows in a single transaction. Either every row is written or none is.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, _ := cmd.Flags().GetString("account")
			opts, err := readApplyOptions(cmd)
			if err != nil {
				return err
			}

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Nothing was imported.")
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			ctx = handler.HandleInterrupts(ctx)

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			req, err := loadImportRequest(ctx, a, args[0], accountID)
			if err != nil {
				return err
			}

			_, err = applyImport(ctx, cmd, a, handler, req, opts)
			return err
		},
	}

	addImportFlags(cmd)
	addApplyFlags(cmd)
	return cmd
}

// applyOptions are the flags shared by the commands that commit an import.
type applyOptions struct {
	skips  []int
	asJSON bool
	review bool
	yes    bool
}

func addApplyFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("review", false, "review and toggle rows in an interactive table")
	cmd.Flags().BoolP("yes", "y", false, "apply without asking for confirmation")
}

func readApplyOptions(cmd *cobra.Command) (applyOptions, error) {
	skipRaw, _ := cmd.Flags().GetString("skip")
	skips, err := parseSkips(skipRaw)
	if err != nil {
		return applyOptions{}, err
	}
	opts := applyOptions{skips: skips}
	opts.asJSON, _ = cmd.Flags().GetBool("json")
	opts.review, _ = cmd.Flags().GetBool("review")
	opts.yes, _ = cmd.Flags().GetBool("yes")
	return opts, nil
}

// applyImport lets the user review req, then commits it and prints the result. A nil
// result with a nil error means the user declined.
func applyImport(ctx context.Context, cmd *cobra.Command, a *app, handler *cli.InterruptHandler, req importer.ExecuteRequest, opts applyOptions) (*model.ImportResult, error) {
	previewer, err := a.executor()
	if err != nil {
		return nil, err
	}

	skips := opts.skips
	switch {
	case opts.review:
		preview, err := previewer.Preview(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to build preview: %w", err)
		}
		result, err := tui.RunReview(ctx, preview, skips, cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return nil, err
		}
		if !result.Confirmed {
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Import canceled. Nothing was imported."))
			return nil, nil
		}
		skips = result.SkipRowNumbers
	case !opts.yes:
		req.SkipRowNumbers = skips
		preview, err := previewer.Preview(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to build preview: %w", err)
		}
		if err := cli.RenderPreview(cmd.OutOrStdout(), preview); err != nil {
			return nil, err
		}
		ok, err := cli.Confirm(ctx, cli.NewNonBlockingReader(cmd.InOrStdin()), cmd.OutOrStdout(), "Apply this import?")
		if err != nil {
			return nil, err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Import canceled. Nothing was imported."))
			return nil, nil
		}
	}
	req.SkipRowNumbers = skips

	var progress importer.ProgressFunc
	if !opts.asJSON {
		progress = cli.NewProgress(cmd.ErrOrStderr(), "Importing")
	}
	exec, err := a.executor(importer.WithProgress(progress))
	if err != nil {
		return nil, err
	}

	result, err := exec.Execute(ctx, req)
	if err != nil {
		if handler.WasInterrupted() {
			return nil, fmt.Errorf("import interrupted: %w", err)
		}
		return nil, fmt.Errorf("import failed: %w", err)
	}

	if opts.asJSON {
		return result, writeJSON(cmd.OutOrStdout(), result)
	}
	return result, cli.RenderResult(cmd.OutOrStdout(), result)
}
