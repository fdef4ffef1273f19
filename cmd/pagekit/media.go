package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-pagekit"
	mediausagecmd "github.com/goliatone/go-pagekit/internal/commands/mediausage"
)

func newMediaCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media",
		Short: "Inspect and maintain the media usage index",
	}
	cmd.AddCommand(
		newMediaRefreshCommand(opts),
		newMediaUsageCommand(opts),
		newMediaUpdatePageCommand(opts),
		newMediaWatchCommand(opts),
	)
	return cmd
}

func newMediaRefreshCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <project>",
		Short: "Rebuild the media usage index of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			module, err := opts.module()
			if err != nil {
				return err
			}
			defer module.Close()

			msg := mediausagecmd.RefreshMediaUsageCommand{ProjectID: args[0]}
			if err := module.Commands().Refresh.Execute(cmd.Context(), msg); err != nil {
				return fmt.Errorf("execute refresh command: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "media usage refreshed for %s\n", args[0])
			return nil
		},
	}
}

func newMediaUpdatePageCommand(opts *globalOptions) *cobra.Command {
	var removed bool
	cmd := &cobra.Command{
		Use:   "update-page <project> <page>",
		Short: "Re-index the media referenced by one page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			module, err := opts.module()
			if err != nil {
				return err
			}
			defer module.Close()

			if removed {
				msg := mediausagecmd.RemovePageMediaUsageCommand{ProjectID: args[0], PageID: args[1]}
				if err := module.Commands().RemovePage.Execute(cmd.Context(), msg); err != nil {
					return fmt.Errorf("execute remove page command: %w", err)
				}
			} else {
				msg := mediausagecmd.UpdatePageMediaUsageCommand{ProjectID: args[0], PageID: args[1]}
				if err := module.Commands().UpdatePage.Execute(cmd.Context(), msg); err != nil {
					return fmt.Errorf("execute update page command: %w", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "media usage updated for %s/%s\n", args[0], args[1])
			return nil
		},
	}
	cmd.Flags().BoolVar(&removed, "removed", false, "Drop the page from the index instead of re-reading it")
	return cmd
}

func newMediaUsageCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "usage <project> <file-id>",
		Short: "Print which entities reference a media file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			module, err := opts.module()
			if err != nil {
				return err
			}
			defer module.Close()

			usage, err := module.MediaUsage(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(usage)
		},
	}
}

func newMediaWatchCommand(opts *globalOptions) *cobra.Command {
	var (
		debounce time.Duration
		schedule string
	)
	cmd := &cobra.Command{
		Use:   "watch <project>",
		Short: "Keep the media usage index current while pages change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			module, err := opts.module(func(cfg *pagekit.Config) {
				cfg.Media.Watch.Debounce = debounce
				cfg.Media.RebuildSchedule = schedule
			})
			if err != nil {
				return err
			}
			defer module.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if _, err := module.RefreshMediaUsage(ctx, args[0]); err != nil {
				return err
			}
			if err := module.Start(ctx); err != nil {
				return err
			}
			if err := module.Watch(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "watching %s, press Ctrl+C to stop\n", args[0])
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Quiet period before a changed page is re-indexed")
	cmd.Flags().StringVar(&schedule, "schedule", "", "Cron expression for periodic full rebuilds")
	return cmd
}
