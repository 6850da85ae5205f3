package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/hearth/internal/cli"
	"github.com/Veraticus/hearth/internal/model"
	"github.com/Veraticus/hearth/internal/recurring"
)

func recurringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "recurring",
		Aliases: []string{"patterns"},
		Short:   "Detect and manage recurring payments",
		Long: `Scan transaction history for payments that repeat on a regular schedule.

Detected patterns can be confirmed, dismissed, paused, resumed or ended.
Dismissed, paused and ended patterns are left alone by later detection runs.`,
	}

	cmd.AddCommand(detectRecurringCmd())
	cmd.AddCommand(listRecurringCmd())
	cmd.AddCommand(watchRecurringCmd())

	transitions := []struct {
		apply func(*recurring.Service, context.Context, int64) (*model.RecurringPattern, error)
		use   string
		short string
	}{
		{(*recurring.Service).Confirm, "confirm", "Confirm a detected pattern"},
		{(*recurring.Service).Dismiss, "dismiss", "Dismiss a pattern as not recurring"},
		{(*recurring.Service).Pause, "pause", "Pause a pattern"},
		{(*recurring.Service).Resume, "resume", "Resume a paused pattern"},
		{(*recurring.Service).End, "end", "Mark a pattern as ended"},
	}
	for _, t := range transitions {
		cmd.AddCommand(transitionRecurringCmd(t.use, t.short, t.apply))
	}

	return cmd
}

func detectRecurringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Scan transaction history for recurring payments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			accountID, _ := cmd.Flags().GetString("account")
			asJSON, _ := cmd.Flags().GetBool("json")

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			svc, err := a.recurringService()
			if err != nil {
				return err
			}
			report, err := svc.Detect(ctx, accountID)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
				"%d new, %d refreshed, %d redetected, %d left alone",
				report.Created, report.Refreshed, report.Redetected, report.Untouched)))
			return cli.RenderPatterns(cmd.OutOrStdout(), report.Patterns)
		},
	}

	cmd.Flags().StringP("account", "a", "", "only scan this account")
	cmd.Flags().Bool("json", false, "print the report as JSON")
	return cmd
}

func listRecurringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored recurring patterns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			accountID, _ := cmd.Flags().GetString("account")
			asJSON, _ := cmd.Flags().GetBool("json")

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			svc, err := a.recurringService()
			if err != nil {
				return err
			}
			patterns, err := svc.List(ctx, accountID)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), patterns)
			}
			return cli.RenderPatterns(cmd.OutOrStdout(), patterns)
		},
	}

	cmd.Flags().StringP("account", "a", "", "only list this account")
	cmd.Flags().Bool("json", false, "print the patterns as JSON")
	return cmd
}

func transitionRecurringCmd(use, short string, apply func(*recurring.Service, context.Context, int64) (*model.RecurringPattern, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <pattern-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			svc, err := a.recurringService()
			if err != nil {
				return err
			}
			pattern, err := apply(svc, ctx, id)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s is now %s", pattern.DisplayName, pattern.Status)))
			return nil
		},
	}
}

func watchRecurringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run detection on a schedule until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			accountID, _ := cmd.Flags().GetString("account")
			schedule, _ := cmd.Flags().GetString("schedule")

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if schedule == "" {
				schedule = a.engine.Recurring.Schedule
			}

			svc, err := a.recurringService()
			if err != nil {
				return err
			}
			scheduler, err := recurring.NewScheduler(svc, schedule, accountID, a.logger)
			if err != nil {
				return err
			}

			if _, err := scheduler.RunOnce(ctx); err != nil {
				return err
			}
			if err := scheduler.Start(ctx); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf("Watching for recurring payments (%s). Press Ctrl+C to stop.", schedule)))
			<-ctx.Done()
			scheduler.Stop()
			return nil
		},
	}

	cmd.Flags().StringP("account", "a", "", "only scan this account")
	cmd.Flags().String("schedule", "", "cron schedule (default from recurring.schedule)")
	return cmd
}
