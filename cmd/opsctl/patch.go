package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"outlook/api/internal/config"
	"outlook/api/internal/kv"
	"outlook/api/internal/ops"
	"outlook/api/internal/patch"
)

func patchCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "patch", Short: "Parse and publish patch files"}
	cmd.AddCommand(patchParseCmd())
	cmd.AddCommand(patchPublishCmd())
	return cmd
}

// readPatch reads a patch file, or stdin when path is "-".
func readPatch(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read patch from stdin: %w", err)
		}
		return string(raw), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read patch %s: %w", path, err)
	}
	return string(raw), nil
}

func patchParseCmd() *cobra.Command {
	var runDate string
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a patch file and show its instructions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readPatch(cmd, args[0])
			if err != nil {
				return err
			}
			result := patch.Parse(raw)
			resolved := patch.ResolveRunDate(runDate, result.DetectedRunDate)
			out := cmd.OutOrStdout()
			if viper.GetBool("json") {
				return printJSON(out, map[string]any{
					"runDate":  resolved,
					"items":    result.Items,
					"warnings": result.Warnings,
				})
			}
			fmt.Fprintf(out, "run: %s\n", displayRunDate(resolved))
			renderInstructions(out, result.Items)
			for _, w := range result.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&runDate, "run", "", "run date (overrides the date found in the patch)")
	return cmd
}

func patchPublishCmd() *cobra.Command {
	var runDate string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "publish <file>",
		Short: "Publish a patch file into the override layer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readPatch(cmd, args[0])
			if err != nil {
				return err
			}
			result := patch.Parse(raw)
			req := ops.PublishRequest{
				RunDate: patch.ResolveRunDate(runDate, result.DetectedRunDate),
				Items:   result.Items,
				DryRun:  dryRun,
			}
			asJSON := viper.GetBool("json")
			if !asJSON {
				for _, w := range result.Warnings {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
				}
			}
			return withStore(cmd.Context(), func(ctx context.Context, _ config.Config, store kv.Store, logger *zap.Logger) error {
				res, err := ops.NewPublisher(store, logger).Publish(ctx, req)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return printJSON(out, publishOutput{PublishResult: res, Warnings: result.Warnings})
				}
				verb := "published"
				if res.DryRun {
					verb = "would publish"
				}
				fmt.Fprintf(out, "%s %d instruction(s) for run %s", verb, res.Count, req.RunDate)
				if res.Skipped > 0 {
					fmt.Fprintf(out, ", skipped %d", res.Skipped)
				}
				fmt.Fprintln(out)
				if len(res.Tickers) > 0 {
					fmt.Fprintf(out, "tickers: %s\n", strings.Join(res.Tickers, ", "))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&runDate, "run", "", "run date (overrides the date found in the patch)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate and count without writing")
	return cmd
}

type publishOutput struct {
	ops.PublishResult
	Warnings []string `json:"warnings"`
}

func renderInstructions(w io.Writer, items []patch.Instruction) {
	tw := newTable(w, table.Row{"Ticker", "Target", "Text"})
	for _, item := range items {
		tw.AppendRow(table.Row{item.Ticker, item.Label(), truncate(item.Text, 60)})
	}
	tw.Render()
}

func displayRunDate(runDate string) string {
	if runDate == "" {
		return "(none detected)"
	}
	return runDate
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
