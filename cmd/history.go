package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cryptaliagy/iti1121-grading/internal/adapters/repository"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded grading runs, or the outcomes of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig(ctx, cmd)
		if err != nil {
			return err
		}
		applyLogLevel(ctx, cfg.LogLevel)

		dsn := cfg.HistoryDB
		if f, _ := cmd.Flags().GetString("db"); f != "" {
			dsn = f
		}
		if dsn == "" {
			return errors.New("no history database: set --db or history_db")
		}
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := repository.Open(ctx, dsn)
		if err != nil {
			return err
		}
		defer store.Close()

		if len(args) == 1 {
			return printOutcomes(ctx, cmd.OutOrStdout(), store, args[0])
		}
		return printRuns(ctx, cmd.OutOrStdout(), store, limit)
	},
}

func init() {
	historyCmd.Flags().String("db", "", "SQLite history file (overrides history_db)")
	historyCmd.Flags().IntP("limit", "n", 20, "Number of runs to list; 0 lists all")
}

func printRuns(ctx context.Context, w io.Writer, store repository.Store, limit int) error {
	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tASSIGNMENT\tGRADED\tFAILED\tAVERAGE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%.1f%%\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), r.Assignment, r.Total, r.Failed, r.Average)
	}
	return tw.Flush()
}

func printOutcomes(ctx context.Context, w io.Writer, store repository.Store, runID string) error {
	if _, err := store.GetRun(ctx, runID); err != nil {
		return err
	}
	outcomes, err := store.ListOutcomes(ctx, runID)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tORG ID\tSCORE\tKIND\tREASON")
	for _, o := range outcomes {
		score := "-"
		if o.Score != nil {
			score = fmt.Sprintf("%.2f", *o.Score)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", o.Username, o.OrgID, score, o.ErrorKind, o.Reason)
	}
	return tw.Flush()
}
