package importer

import (
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// BarProgress draws a terminal progress bar.
type BarProgress struct {
	bar *progressbar.ProgressBar
}

// NewProgress returns a bar on w when enabled and stderr is a terminal, a no-op otherwise.
func NewProgress(enabled bool, w io.Writer, total int, description string) Progress {
	if !enabled || !isInteractive() {
		return noopProgress{}
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(18),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
	)
	return &BarProgress{bar: bar}
}

func (p *BarProgress) Increment(n int) {
	_ = p.bar.Add(n)
}

func (p *BarProgress) Complete() {
	_ = p.bar.Finish()
}

func isInteractive() bool {
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
