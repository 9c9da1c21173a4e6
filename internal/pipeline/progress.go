package pipeline

import (
	"io"

	"github.com/schollz/progressbar/v3"
)

// Progress receives one Add per classified activity and a Close when
// classification ends, successfully or not.
type Progress interface {
	Add(n int) error
	Close()
}

type noProgress struct{}

func (noProgress) Add(int) error { return nil }
func (noProgress) Close()        {}

// Bar draws classification progress on a terminal.
type Bar struct {
	bar *progressbar.ProgressBar
}

// NewBar creates a bar for total activities writing to w, usually stderr.
func NewBar(w io.Writer, total int, description string) *Bar {
	return &Bar{bar: progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "#",
			SaucerPadding: ".",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)}
}

func (b *Bar) Add(n int) error { return b.bar.Add(n) }

// Close completes the bar, which erases it from the terminal.
func (b *Bar) Close() { _ = b.bar.Finish() }
