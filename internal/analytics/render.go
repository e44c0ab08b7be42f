package analytics

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/wcharczuk/go-chart/v2"
)

// RenderTable writes the category breakdown as a text table.
func RenderTable(w io.Writer, summary Summary, currency string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Category", "Transactions", "Amount", "Share"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, c := range summary.TopCategories {
		table.Append([]string{
			string(c.Category),
			fmt.Sprintf("%d", c.Count),
			fmt.Sprintf("%.2f %s", c.Amount, currency),
			fmt.Sprintf("%.1f%%", c.Percentage),
		})
	}

	table.SetFooter([]string{
		"Total",
		fmt.Sprintf("%d", summary.TransactionCount),
		fmt.Sprintf("%.2f %s", summary.TotalSpent, currency),
		"",
	})
	table.Render()
}

// RenderCategoryChart writes a PNG bar chart of spend per category.
func RenderCategoryChart(w io.Writer, summary Summary) error {
	if len(summary.TopCategories) == 0 {
		return fmt.Errorf("no transactions to chart")
	}

	bars := make([]chart.Value, 0, len(summary.TopCategories))
	for _, c := range summary.TopCategories {
		bars = append(bars, chart.Value{Label: string(c.Category), Value: c.Amount})
	}

	return renderBars(w, "Spending by Category", bars)
}

// RenderTrendChart writes a PNG bar chart of spend per day.
func RenderTrendChart(w io.Writer, summary Summary) error {
	if len(summary.Trend) == 0 {
		return fmt.Errorf("no transactions to chart")
	}

	bars := make([]chart.Value, 0, len(summary.Trend))
	for _, d := range summary.Trend {
		bars = append(bars, chart.Value{Label: d.Date, Value: d.Amount})
	}

	return renderBars(w, "Daily Spending", bars)
}

func renderBars(w io.Writer, title string, bars []chart.Value) error {
	top := 0.0
	for _, b := range bars {
		if b.Value > top {
			top = b.Value
		}
	}
	if top == 0 {
		top = 1
	}

	width := len(bars)*60 + 120
	if width < 800 {
		width = 800
	}

	barChart := chart.BarChart{
		Title: title,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    40,
				Left:   20,
				Right:  20,
				Bottom: 20,
			},
		},
		Width:      width,
		Height:     400,
		BarWidth:   50,
		BarSpacing: 10,
		Bars:       bars,
	}
	barChart.YAxis.Range = &chart.ContinuousRange{Min: 0, Max: top * 1.1}
	barChart.YAxis.ValueFormatter = func(v interface{}) string {
		if vf, isFloat := v.(float64); isFloat {
			return fmt.Sprintf("%.0f", vf)
		}
		return ""
	}

	if err := barChart.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
