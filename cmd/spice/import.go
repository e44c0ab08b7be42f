package main

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/ofx"
	"github.com/Veraticus/spice-ledger/internal/pattern"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file|dir|glob>...",
		Short: "Import debits from OFX/QFX bank statements",
		Long: `Import the outgoing transactions from OFX or QFX files exported from your bank.
Each one is categorized by the model, with merchant rules filling in what the
model cannot place (or everything, when no API key is set). Entries already
imported are skipped, as are transfers and card payments.

Examples:
  spice import ~/Downloads/chase_jan.qfx
  spice import ~/Downloads/*.qfx
  spice import ~/Downloads/statements --dry-run`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := expandStatementFiles(args)
			if err != nil {
				return err
			}

			entries, err := parseStatements(files)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, cli.FormatWarning("No debits found in the given files"))
				return nil
			}

			if dryRun {
				renderEntries(out, entries)
				fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Dry run: %d debits would be imported", len(entries))))
				return nil
			}

			rules, err := pattern.NewMatcher(append(appConfig.Rules, pattern.DefaultRules()...))
			if err != nil {
				return common.NewUserError("invalid merchant rules: "+err.Error(), err)
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			progress := cli.NewProgress(cmd.ErrOrStderr(), len(entries), "Importing")
			importer := ofx.NewImporter(a.store, a.gateway, a.gateway.Model(), slog.Default()).WithRules(rules)
			res, err := importer.Import(ctx, a.session, entries, progress.Set)
			if err != nil {
				return fmt.Errorf("import stopped after %d entries: %w", res.Imported+res.Duplicates+res.Transfers+res.Failed, err)
			}

			fmt.Fprintln(out, cli.RenderBox("Import complete", strings.Join([]string{
				fmt.Sprintf("Files:          %d", len(files)),
				fmt.Sprintf("Imported:       %d", res.Imported),
				fmt.Sprintf("Already had:    %d", res.Duplicates),
				fmt.Sprintf("Transfers:      %d", res.Transfers),
				fmt.Sprintf("Uncategorized:  %d", res.Uncategorized),
				fmt.Sprintf("Failed:         %d", res.Failed),
			}, "\n")))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "show what would be imported without saving")

	return cmd
}

// expandStatementFiles resolves globs and walks directories for .ofx and .qfx
// files. Arguments that match nothing are logged and skipped.
func expandStatementFiles(args []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, pattern := range args {
		if info, err := os.Stat(pattern); err == nil && info.IsDir() {
			err := filepath.WalkDir(pattern, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && isStatementFile(path) {
					add(path)
				}
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("failed to walk %s: %w", pattern, err)
			}
			continue
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, common.NewUserError(fmt.Sprintf("invalid pattern %s", pattern), err)
		}
		if len(matches) == 0 {
			slog.Warn("No files found matching pattern", "pattern", pattern)
		}
		for _, m := range matches {
			add(m)
		}
	}

	if len(files) == 0 {
		return nil, common.NewUserError("no files found to import", nil)
	}
	return files, nil
}

func isStatementFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ofx", ".qfx":
		return true
	}
	return false
}

// parseStatements reads every file and returns their debits in file order.
// Unreadable files are logged and skipped.
func parseStatements(files []string) ([]ofx.Entry, error) {
	parser := ofx.NewParser(slog.Default())

	var entries []ofx.Entry
	var parsed int
	for _, path := range files {
		f, err := os.Open(path) // #nosec G304
		if err != nil {
			slog.Error("Failed to open file", "file", path, "error", err)
			continue
		}
		stmt, err := parser.Parse(f)
		_ = f.Close()
		if err != nil {
			slog.Error("Failed to parse OFX file", "file", path, "error", err)
			continue
		}
		parsed++

		debits := stmt.Debits()
		slog.Info("Processed file",
			"file", filepath.Base(path),
			"entries", len(stmt.Entries),
			"debits", len(debits))
		entries = append(entries, debits...)
	}

	if parsed == 0 {
		return nil, common.NewUserError("none of the files could be read as OFX", nil)
	}
	return entries, nil
}

func renderEntries(w io.Writer, entries []ofx.Entry) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Date", "Amount", "Merchant", "Account"})
	table.SetBorder(false)

	for _, e := range entries {
		table.Append([]string{
			e.Date.Format("2006-01-02"),
			fmt.Sprintf("%.2f %s", e.Amount, e.Currency),
			e.Merchant,
			e.AccountID,
		})
	}
	table.Render()
}
