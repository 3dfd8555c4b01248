package main

import (
	"context"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"outlook/api/internal/config"
	"outlook/api/internal/kv"
	"outlook/api/internal/views"
)

func trendingCmd() *cobra.Command {
	var window string
	var limit int
	cmd := &cobra.Command{
		Use:   "trending",
		Short: "Show the most viewed company pages",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := views.ParseWindow(window)
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), func(ctx context.Context, cfg config.Config, store kv.Store, logger *zap.Logger) error {
				n := limit
				if n <= 0 {
					n = cfg.TrendingLimit
				}
				rows := views.NewTracker(store, logger).Trending(ctx, w, n)
				out := cmd.OutOrStdout()
				if viper.GetBool("json") {
					return printJSON(out, map[string]any{"window": w, "items": rows})
				}
				tw := newTable(out, table.Row{"#", "Slug", "Views"})
				for i, r := range rows {
					tw.AppendRow(table.Row{i + 1, r.Slug, r.Views})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&window, "window", "1w", "window: 1d, 1w or 1m")
	cmd.Flags().IntVar(&limit, "limit", 0, "rows to show (default TRENDING_LIMIT)")
	return cmd
}
