package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/shohan-001/ffmpeg-video-bot/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the job queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func withQueueStore(ctx *commandContext, fn func(*queue.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg.Paths.DatabasePath, cfg.Queue.MaxDepth)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(store)
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued and finished jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQueueStore(ctx, func(store *queue.Store) error {
				var filter []queue.Status
				if trimmed := strings.TrimSpace(statusFlag); trimmed != "" {
					status, err := queue.ParseStatus(trimmed)
					if err != nil {
						return err
					}
					filter = append(filter, status)
				}

				entries, err := store.List(cmd.Context(), filter...)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "Queue is empty.")
					return nil
				}

				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, []string{
						entry.JobID[:8],
						strconv.FormatInt(entry.UserID, 10),
						entry.Operation,
						string(entry.Status),
						truncateCell(entry.ErrorMessage, 40),
						entry.CreatedAt.Local().Format(time.DateTime),
					})
				}

				plain := !isatty.IsTerminal(os.Stdout.Fd())
				fmt.Fprintln(out, renderTable(
					[]string{"JOB", "USER", "OPERATION", "STATUS", "ERROR", "CREATED"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
					plain,
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&statusFlag, "status", "s", "", "Only show jobs with this status")
	return cmd
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var userFlag int64

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove a user's non-running jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == 0 {
				return fmt.Errorf("--user is required")
			}
			return withQueueStore(ctx, func(store *queue.Store) error {
				removed, err := store.ClearUser(cmd.Context(), userFlag)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s) for user %d\n", removed, userFlag)
				return nil
			})
		},
	}

	cmd.Flags().Int64VarP(&userFlag, "user", "u", 0, "User whose jobs should be cleared")
	return cmd
}

func truncateCell(value string, limit int) string {
	value = strings.ReplaceAll(value, "\n", " ")
	if len(value) <= limit {
		return value
	}
	return value[:limit-1] + "…"
}
