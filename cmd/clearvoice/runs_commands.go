package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"clearvoice/internal/runs"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded pipeline runs",
	}

	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))

	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			listed, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(listed) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}

			rows := make([][]string, 0, len(listed))
			for _, run := range listed {
				rows = append(rows, []string{
					strconv.FormatInt(run.ID, 10),
					string(run.Kind),
					string(run.Status),
					run.CreatedAt.Local().Format(time.DateTime),
					run.Root,
				})
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"ID", "Kind", "Status", "Started", "Root"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft}))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list (0 lists all)")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one run with its per-sample outcomes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run id %q", args[0])
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(cmd.Context(), id)
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("run %d not found", id)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %d (%s)\n", run.ID, run.CorrelationID)
			fmt.Fprintf(out, "Kind:    %s\n", run.Kind)
			fmt.Fprintf(out, "Status:  %s\n", run.Status)
			fmt.Fprintf(out, "Root:    %s\n", run.Root)
			fmt.Fprintf(out, "Started: %s\n", run.CreatedAt.Local().Format(time.DateTime))
			if run.ErrorMessage != "" {
				fmt.Fprintf(out, "Note:    %s\n", run.ErrorMessage)
			}

			samples, err := store.SamplesForRun(cmd.Context(), id)
			if err != nil {
				return err
			}
			if len(samples) == 0 {
				return nil
			}

			rows := make([][]string, 0, len(samples))
			for _, sample := range samples {
				rows = append(rows, []string{
					sample.Speaker,
					sample.VideoPath,
					sample.NoisePath,
					string(sample.Status),
					formatLoss(sample),
				})
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"Speaker", "Video", "Noise", "Status", "Loss"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight}))
			return nil
		},
	}
}

func formatLoss(sample *runs.SampleRecord) string {
	if sample.Loss == nil {
		return ""
	}
	return strconv.FormatFloat(*sample.Loss, 'f', 4, 64)
}
