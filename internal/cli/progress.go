package cli

import (
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"
)

// Progress draws a counted bar for a batch job such as a statement import.
type Progress struct {
	bar *progressbar.ProgressBar
}

func NewProgress(w io.Writer, total int, label string) *Progress {
	return &Progress{bar: progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSetWidth(32),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[red]━[reset]",
			SaucerHead:    "[red]╸[reset]",
			SaucerPadding: "─",
			BarStart:      " ",
			BarEnd:        " ",
		}),
		progressbar.OptionOnCompletion(func() { _, _ = io.WriteString(w, "\n") }),
	)}
}

// Set moves the bar to done units; its signature fits ofx.ProgressFunc.
func (p *Progress) Set(done, _ int) {
	if err := p.bar.Set(done); err != nil {
		slog.Debug("Progress bar update failed", "error", err)
	}
}
