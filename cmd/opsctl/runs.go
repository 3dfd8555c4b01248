package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"outlook/api/internal/config"
	"outlook/api/internal/kv"
	"outlook/api/internal/ops"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "runs", Short: "Inspect and convert review runs"}
	cmd.AddCommand(runsListCmd())
	cmd.AddCommand(runsConvertCmd())
	return cmd
}

type runRow struct {
	Date     string `json:"date"`
	ScanTime string `json:"scanTime,omitempty"`
	Items    int    `json:"items"`
	Pending  int    `json:"pending"`
	Decided  int    `json:"decided"`
}

func runsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs with their review progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, cfg config.Config, store kv.Store, logger *zap.Logger) error {
				runs, err := ops.LoadRuns(filepath.Join(cfg.DataDir, "runs"))
				if err != nil {
					return err
				}
				decisions := ops.NewDecisionStore(store, logger)
				rows := make([]runRow, 0, len(runs))
				for _, run := range ops.NewRunIndex(runs).List() {
					records := decisions.Load(ctx, run.Date)
					q := ops.BuildQueue(run, records, ops.QueueFilter{})
					rows = append(rows, runRow{
						Date:     run.Date,
						ScanTime: run.ScanTime,
						Items:    q.Counts.Total,
						Pending:  q.Counts.NeedsReview,
						Decided:  len(records),
					})
				}
				out := cmd.OutOrStdout()
				if viper.GetBool("json") {
					return printJSON(out, rows)
				}
				tw := newTable(out, table.Row{"Run", "Scanned", "Items", "Pending", "Decided"})
				for _, r := range rows {
					tw.AppendRow(table.Row{r.Date, r.ScanTime, r.Items, r.Pending, r.Decided})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func runsConvertCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "convert <legacy-file>",
		Short: "Convert a legacy run file to the canonical layout",
		Long: `convert reads a run file in one of the older layouts and writes it in the
canonical shape. Items without an explicit action_type are listed and the
conversion fails; fix the source file and run it again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			legacy, err := ops.LoadLegacyRunFile(args[0])
			if err != nil {
				return err
			}
			run, err := ops.ConvertLegacyRun(legacy)
			if err != nil {
				return err
			}
			raw, err := ops.MarshalRun(run)
			if err != nil {
				return err
			}
			if outPath == "" {
				_, err = cmd.OutOrStdout().Write(raw)
				return err
			}
			if err := os.WriteFile(outPath, raw, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote run %s (%d items) to %s\n", run.Date, len(run.Items), outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	return cmd
}
