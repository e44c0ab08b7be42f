package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func budgetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budgets",
		Short: "Show and set spending limits",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show budgets with what has been spent against them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			budgets, err := result(a.engine.Budgets(ctx, a.session))
			if err != nil {
				return err
			}
			renderBudgets(cmd.OutOrStdout(), budgets, a.session.Currency)
			return nil
		},
	})
	cmd.AddCommand(setBudgetCmd())

	return cmd
}

func setBudgetCmd() *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "set <category> <limit>",
		Short: "Set the limit for a category",
		Example: `  spice budgets set food 400
  spice budgets set transport 60 --period weekly`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, ok := model.ParseCategory(args[0])
			if !ok {
				return common.NewUserError(fmt.Sprintf("unknown category %q", args[0]), nil)
			}
			limit, err := strconv.ParseFloat(args[1], 64)
			if err != nil || limit < 0 {
				return common.NewUserError(fmt.Sprintf("limit must be a non-negative number, got %q", args[1]), err)
			}
			p := model.BudgetPeriod(period)
			if !p.Valid() {
				return common.NewUserError(fmt.Sprintf("period must be %s or %s", model.BudgetPeriodMonthly, model.BudgetPeriodWeekly), nil)
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			budget, err := result(a.engine.SetBudget(ctx, a.session, model.Budget{
				Category: category,
				Period:   p,
				Limit:    limit,
			}))
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s %s budget set to %.2f %s",
				budget.Category, budget.Period, budget.Limit, a.session.Currency)))
			return nil
		},
	}

	cmd.Flags().StringVar(&period, "period", string(model.BudgetPeriodMonthly), "monthly or weekly")

	return cmd
}

func renderBudgets(w io.Writer, budgets []model.Budget, currency string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Category", "Period", "Limit", "Spent", "Remaining"})
	table.SetBorder(false)

	for _, b := range budgets {
		remaining := fmt.Sprintf("%.2f", b.Remaining())
		if b.Remaining() < 0 {
			remaining += " over"
		}
		table.Append([]string{
			string(b.Category),
			string(b.Period),
			fmt.Sprintf("%.2f %s", b.Limit, currency),
			fmt.Sprintf("%.2f", b.Spent),
			remaining,
		})
	}
	table.Render()
}
