package cli

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
)

// CLIProgressReporter renders an indeterminate progress bar over Core's
// per-file IndexAll callback; the total chunk/embedding count isn't known
// until indexing finishes, so unlike a bounded job this only tracks files
// seen so far.
type CLIProgressReporter struct {
	quiet     bool
	bar       *progressbar.ProgressBar
	startTime time.Time
	files     int
}

// NewCLIProgressReporter creates a CLI progress reporter. When quiet is
// true, OnFile and OnComplete are no-ops.
func NewCLIProgressReporter(quiet bool) *CLIProgressReporter {
	r := &CLIProgressReporter{quiet: quiet, startTime: time.Now()}
	if !quiet {
		r.bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Indexing files"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("files/s"),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionSpinnerType(14),
		)
	}
	return r
}

// OnFile is passed directly as Core.IndexAll's progress callback.
func (r *CLIProgressReporter) OnFile(relPath string) {
	if r.quiet {
		return
	}
	r.files++
	_ = r.bar.Add(1)
}

// OnComplete prints a summary line once IndexAll returns.
func (r *CLIProgressReporter) OnComplete(filesScanned, chunksStored int, dur time.Duration) {
	if r.quiet {
		return
	}
	_ = r.bar.Finish()
	fmt.Println()
	fmt.Printf("done: %s files, %s chunks in %.1fs\n",
		formatNumber(filesScanned), formatNumber(chunksStored), dur.Seconds())
}

// formatNumber renders n with thousands separators, e.g. 12345 -> "12,345".
func formatNumber(n int) string {
	s := fmt.Sprintf("%d", n)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
