package main

import (
	"fmt"
	"io"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"txns"},
		Short:   "List and delete recorded transactions",
	}

	cmd.AddCommand(listTransactionsCmd())
	cmd.AddCommand(deleteTransactionCmd())

	return cmd
}

// filterFlags are the --category and --since flags shared by listing commands.
type filterFlags struct {
	category string
	since    string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.category, "category", "", "only this category")
	cmd.Flags().StringVar(&f.since, "since", "", "only on or after this date (YYYY-MM-DD)")
}

func (f *filterFlags) filter() (service.TransactionFilter, error) {
	var filter service.TransactionFilter
	if f.category != "" {
		c, ok := model.ParseCategory(f.category)
		if !ok {
			return filter, common.NewUserError(fmt.Sprintf("unknown category %q", f.category), nil)
		}
		filter.Category = &c
	}
	if f.since != "" {
		since, err := model.ParseDate(f.since)
		if err != nil {
			return filter, common.NewUserError(fmt.Sprintf("invalid --since date %q", f.since), err)
		}
		filter.Since = &since
	}
	return filter, nil
}

func listTransactionsCmd() *cobra.Command {
	var (
		flags filterFlags
		limit int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, most recent first",
		Args:  cobra.NoArgs,
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

			txns, err := result(a.engine.Transactions(ctx, a.session, filter))
			if err != nil {
				return err
			}
			if len(txns) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No transactions yet. Use 'spice add' to record one."))
				return nil
			}
			if limit > 0 && len(txns) > limit {
				txns = txns[:limit]
			}

			renderTransactions(cmd.OutOrStdout(), txns)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "show at most this many (0 for all)")

	return cmd
}

func renderTransactions(w io.Writer, txns []model.Transaction) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Date", "Amount", "Category", "Merchant", "Description"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)

	for _, txn := range txns {
		table.Append([]string{
			shortID(txn.ID),
			txn.DayKey(),
			fmt.Sprintf("%.2f %s", txn.Amount, txn.Currency),
			string(txn.Category),
			txn.Merchant,
			txn.Description,
		})
	}
	table.Render()
}

// shortID is enough of an ID to pass to delete.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func deleteTransactionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction by ID or ID prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			txns, err := result(a.engine.Transactions(ctx, a.session, service.TransactionFilter{}))
			if err != nil {
				return err
			}
			id, err := resolveID(txns, args[0])
			if err != nil {
				return err
			}

			if _, err := result(a.engine.DeleteTransaction(ctx, a.session, id)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted "+shortID(id)))
			return nil
		},
	}
}

// resolveID expands a unique ID prefix to the full transaction ID.
func resolveID(txns []model.Transaction, prefix string) (string, error) {
	var matches []string
	for _, txn := range txns {
		if txn.ID == prefix {
			return txn.ID, nil
		}
		if len(prefix) >= 4 && len(txn.ID) > len(prefix) && txn.ID[:len(prefix)] == prefix {
			matches = append(matches, txn.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", common.NewUserError(fmt.Sprintf("no transaction %q", prefix), common.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", common.NewUserError(fmt.Sprintf("%q matches %d transactions; use more of the ID", prefix, len(matches)), nil)
	}
}
