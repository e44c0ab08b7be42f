package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/config"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/Veraticus/spice-ledger/internal/sheets"
	"github.com/spf13/cobra"
)

func tokenFile() string {
	return filepath.Join(config.DefaultDir(), "sheets-token.json")
}

func exportCmd() *cobra.Command {
	var flags filterFlags

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export transactions and a summary to Google Sheets",
		Long: `Write your transactions, category totals and daily trend to a Google
Sheets spreadsheet. The Summary, Categories and Transactions tabs are cleared
and rewritten on every export.

Authenticate once with 'spice export auth', or point sheets.service_account_path
at a service account key.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			filter, err := flags.filter()
			if err != nil {
				return err
			}

			cfg := appConfig.Sheets
			if cfg.RefreshToken == "" && cfg.ServiceAccountPath == "" {
				if token, err := sheets.LoadToken(tokenFile()); err == nil {
					cfg.RefreshToken = token.RefreshToken
				}
			}
			if err := cfg.Validate(); err != nil {
				return common.NewUserError("Google Sheets is not set up: "+err.Error()+". Run 'spice export auth' first.", err)
			}

			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := buildReport(cmd, a, filter)
			if err != nil {
				return err
			}

			writer, err := sheets.NewWriter(ctx, cfg, slog.Default())
			if err != nil {
				return err
			}
			return publish(ctx, cmd.OutOrStdout(), writer, report)
		},
	}

	flags.register(cmd)
	cmd.AddCommand(exportAuthCmd())

	return cmd
}

func publish(ctx context.Context, out io.Writer, w sheets.ReportWriter, report sheets.Report) error {
	id, err := w.Write(ctx, report)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf(
		"Exported %d transactions to https://docs.google.com/spreadsheets/d/%s",
		len(report.Transactions), id)))
	return nil
}

func buildReport(cmd *cobra.Command, a *app, filter service.TransactionFilter) (sheets.Report, error) {
	ctx := cmd.Context()

	user, err := result(a.engine.Me(ctx, a.session))
	if err != nil {
		return sheets.Report{}, err
	}
	txns, err := result(a.engine.Transactions(ctx, a.session, filter))
	if err != nil {
		return sheets.Report{}, err
	}
	summary, err := result(a.engine.Analytics(ctx, a.session, filter))
	if err != nil {
		return sheets.Report{}, err
	}
	return sheets.BuildReport(user.Name, txns, summary), nil
}

func exportAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to Google Sheets in the browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := appConfig.Sheets
			if cfg.ClientID == "" || cfg.ClientSecret == "" {
				return common.NewUserError("set sheets.client_id and sheets.client_secret (or SPICE_SHEETS_CLIENT_ID and SPICE_SHEETS_CLIENT_SECRET) first", common.ErrMissingConfig)
			}

			out := cmd.OutOrStdout()
			token, err := sheets.GetOrCreateToken(cmd.Context(), sheets.OAuth2Config{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				TokenFile:    tokenFile(),
			}, func(url string) {
				fmt.Fprintln(out, cli.FormatPrompt("Open this URL in your browser to authorize:"))
				fmt.Fprintln(out, url)
			})
			if err != nil {
				return fmt.Errorf("authorization failed: %w", err)
			}

			fmt.Fprintln(out, cli.FormatSuccess("Authorized. Token saved to "+tokenFile()))
			if token.RefreshToken == "" {
				fmt.Fprintln(out, cli.FormatWarning("Google did not return a refresh token; revoke access and run this again"))
			}
			return nil
		},
	}
}
