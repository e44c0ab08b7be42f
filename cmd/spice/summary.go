package main

import (
	"fmt"
	"io"
	"os"

	"github.com/Veraticus/spice-ledger/internal/analytics"
	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/spf13/cobra"
)

func summaryCmd() *cobra.Command {
	var (
		flags     filterFlags
		chartPath string
		trendPath string
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show spending per category",
		Example: `  spice summary
  spice summary --since 2025-06-01 --chart spending.png --trend daily.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			filter, err := flags.filter()
			if err != nil {
				return err
			}

			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := result(a.engine.Analytics(ctx, a.session, filter))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatTitle(cli.ChartIcon+" Spending summary"))
			if summary.TransactionCount == 0 {
				fmt.Fprintln(out, cli.FormatInfo("Nothing recorded for this selection"))
				return nil
			}
			analytics.RenderTable(out, summary, a.session.Currency)

			if chartPath != "" {
				if err := writeChart(chartPath, summary, analytics.RenderCategoryChart); err != nil {
					return err
				}
				fmt.Fprintln(out, cli.FormatSuccess("Category chart written to "+chartPath))
			}
			if trendPath != "" {
				if err := writeChart(trendPath, summary, analytics.RenderTrendChart); err != nil {
					return err
				}
				fmt.Fprintln(out, cli.FormatSuccess("Trend chart written to "+trendPath))
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&chartPath, "chart", "", "also write a PNG bar chart per category to this path")
	cmd.Flags().StringVar(&trendPath, "trend", "", "also write a PNG bar chart per day to this path")

	return cmd
}

func writeChart(path string, summary analytics.Summary, render func(io.Writer, analytics.Summary) error) error {
	f, err := os.Create(path) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := render(f, summary); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
