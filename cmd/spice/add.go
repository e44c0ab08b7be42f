package main

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/engine"
	"github.com/Veraticus/spice-ledger/internal/intake"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/tui"
	"github.com/Veraticus/spice-ledger/internal/tui/themes"
	"github.com/spf13/cobra"
)

const (
	tuiSurface = "tui"
	cliSurface = "cli"
)

func addCmd() *cobra.Command {
	var (
		text      string
		imagePath string
		category  string
		theme     string
		yes       bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a transaction from a sentence or a receipt photo",
		Long: `Add a transaction by describing it.

Without flags an interactive screen opens: type, watch the preview fill in,
press Ctrl+S to save. With --text or --image the entry is extracted once and
shown for confirmation.

Examples:
  spice add
  spice add --text "Uber to the airport 32 dollars yesterday"
  spice add --image ~/receipts/lunch.jpg --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if text != "" && imagePath != "" {
				return common.NewUserError("use either --text or --image, not both", nil)
			}

			var override *model.Category
			if category != "" {
				c, ok := model.ParseCategory(category)
				if !ok {
					return common.NewUserError(fmt.Sprintf("unknown category %q", category), nil)
				}
				override = &c
			}

			if text == "" && imagePath == "" {
				return runAddInteractive(cmd, theme)
			}
			return runAddOnce(cmd, text, imagePath, override, yes)
		},
	}

	cmd.Flags().StringVarP(&text, "text", "t", "", "describe the transaction in plain language")
	cmd.Flags().StringVarP(&imagePath, "image", "i", "", "path to a receipt image")
	cmd.Flags().StringVarP(&category, "category", "c", "", "override the extracted category")
	cmd.Flags().StringVar(&theme, "theme", "default", "screen theme ("+strings.Join(themes.Names(), ", ")+")")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "save without asking")

	return cmd
}

func runAddInteractive(cmd *cobra.Command, theme string) error {
	ctx := cmd.Context()
	updates := tui.NewUpdates()

	a, err := openApp(ctx, true, engine.WithIntakeOptions(intake.WithNotify(updates.Notify)))
	if err != nil {
		return err
	}
	defer a.Close()

	surface := a.engine.Pipeline(a.session).Surface(tuiSurface)
	saved, err := tui.Run(ctx, surface, updates, tui.WithTheme(themes.GetTheme(theme)))
	if err != nil {
		return err
	}

	if len(saved) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Saved %d transaction(s)", len(saved))))
	}
	return nil
}

func runAddOnce(cmd *cobra.Command, text, imagePath string, override *model.Category, yes bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	surface := a.engine.Pipeline(a.session).Surface(cliSurface)
	if imagePath != "" {
		data, mimeType, err := readImage(imagePath)
		if err != nil {
			return err
		}
		if _, err := result(a.engine.IntakeImage(a.session, cliSurface, data, mimeType)); err != nil {
			return err
		}
	} else {
		if _, err := result(a.engine.IntakeText(a.session, cliSurface, text)); err != nil {
			return err
		}
		if !surface.Flush() {
			return common.NewUserError(
				fmt.Sprintf("entry is too short; describe it in at least %d characters", appConfig.Intake.MinInputLength), nil)
		}
	}

	snap, err := surface.Await(ctx)
	if err != nil {
		return err
	}
	if snap.Preview == nil {
		return fmt.Errorf("extraction did not produce a preview (state %s)", snap.State)
	}
	fmt.Fprintln(out, cli.RenderPreview(*snap.Preview))

	if !yes {
		ok, err := cli.NewLineReader(cmd.InOrStdin()).Confirm(ctx, out, "Save this transaction?")
		if err != nil {
			return err
		}
		if !ok {
			a.engine.IntakeCancel(a.session, cliSurface)
			fmt.Fprintln(out, cli.FormatInfo("Discarded"))
			return nil
		}
	}

	txn, err := result(a.engine.IntakeConfirm(ctx, a.session, cliSurface, intake.Overrides{Category: override}))
	if err != nil {
		return common.NewUserError("could not save: "+err.Error(), err)
	}
	fmt.Fprintln(out, cli.FormatSuccess("Saved "+cli.FormatTransaction(txn)))
	return nil
}

// readImage loads a receipt and works out its MIME type from the extension,
// falling back to content sniffing.
func readImage(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}
