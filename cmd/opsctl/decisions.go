package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"outlook/api/internal/config"
	"outlook/api/internal/kv"
	"outlook/api/internal/ops"
)

func decisionsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "decisions", Short: "Inspect operator decisions"}
	cmd.AddCommand(decisionsListCmd())
	cmd.AddCommand(decisionsClearCmd())
	return cmd
}

func requireRunDate(runDate string) error {
	if runDate == "" {
		return errors.New("--run is required")
	}
	if !ops.ValidRunDate(runDate) {
		return ops.ErrInvalidRunDate
	}
	return nil
}

func decisionsListCmd() *cobra.Command {
	var runDate string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the decisions stored for a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRunDate(runDate); err != nil {
				return err
			}
			return withStore(cmd.Context(), func(ctx context.Context, _ config.Config, store kv.Store, logger *zap.Logger) error {
				records := ops.NewDecisionStore(store, logger).Load(ctx, runDate)
				out := cmd.OutOrStdout()
				if viper.GetBool("json") {
					return printJSON(out, records)
				}
				tw := newTable(out, table.Row{"ID", "Ticker", "Type", "Decision", "Decided", "Note"})
				for _, r := range records {
					tw.AppendRow(table.Row{r.ID, r.Ticker, r.Kind.Label(), r.Decision, r.DecidedAt.Format(time.RFC3339), truncate(r.Note, 40)})
				}
				tw.AppendFooter(table.Row{"", "", "", "", "total", len(records)})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&runDate, "run", "", "run date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}

func decisionsClearCmd() *cobra.Command {
	var runDate string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every decision stored for a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRunDate(runDate); err != nil {
				return err
			}
			return withStore(cmd.Context(), func(ctx context.Context, _ config.Config, store kv.Store, logger *zap.Logger) error {
				if err := ops.NewDecisionStore(store, logger).Clear(ctx, runDate); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cleared decisions for run %s\n", runDate)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&runDate, "run", "", "run date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}
