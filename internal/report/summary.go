package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chmdznr/bulk-renamer/pkg/models"
	"github.com/chmdznr/bulk-renamer/pkg/utils"
)

// Run is the outcome of one (task, directory) pair
type Run struct {
	Task     string
	Dir      string
	Patterns []string
	DryRun   bool
	Stats    models.RenameStats
}

var (
	heavyRule = strings.Repeat("=", 40)
	lightRule = strings.Repeat("-", 40)
)

// PrintSummary writes the human readable summary of one run. The error line
// only appears when at least one error was counted.
func PrintSummary(w io.Writer, stats models.RenameStats, dryRun bool, label string) {
	title := "Summary"
	if dryRun {
		title = "Dry Run Summary"
	}
	if label != "" {
		title += " - " + label
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, heavyRule)
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, heavyRule)
	fmt.Fprintf(w, " Duration:      %s\n", utils.FormatDuration(stats.Duration()))
	fmt.Fprintln(w, lightRule)
	fmt.Fprintf(w, " Files scanned: %s\n", utils.FormatCount(stats.FilesScanned))
	fmt.Fprintf(w, " Dirs scanned:  %s\n", utils.FormatCount(stats.DirsScanned))
	fmt.Fprintln(w, lightRule)
	fmt.Fprintf(w, " Files renamed: %s\n", utils.FormatCount(stats.FilesRenamed))
	fmt.Fprintf(w, " Files skipped: %s\n", utils.FormatCount(stats.FilesSkipped))
	fmt.Fprintf(w, " Dirs renamed:  %s\n", utils.FormatCount(stats.DirsRenamed))
	fmt.Fprintf(w, " Dirs skipped:  %s\n", utils.FormatCount(stats.DirsSkipped))
	if stats.Errors > 0 {
		fmt.Fprintln(w, lightRule)
		fmt.Fprintf(w, " Errors:        %s\n", utils.FormatCount(stats.Errors))
	}
	fmt.Fprintln(w, heavyRule)
	fmt.Fprintln(w)
}

// Totals sums the counters and durations of runs
func Totals(runs []Run) (models.RenameStats, time.Duration) {
	var (
		total    models.RenameStats
		duration time.Duration
	)
	for _, r := range runs {
		total.Add(r.Stats)
		duration += r.Stats.Duration()
	}
	return total, duration
}

// PrintTotals writes the grand total across runs
func PrintTotals(w io.Writer, runs []Run) {
	total, duration := Totals(runs)

	fmt.Fprintln(w)
	fmt.Fprintln(w, heavyRule)
	fmt.Fprintf(w, "  Grand Total (%d runs)\n", len(runs))
	fmt.Fprintln(w, heavyRule)
	fmt.Fprintf(w, " Duration:      %s\n", utils.FormatDuration(duration))
	fmt.Fprintf(w, " Files scanned: %s\n", utils.FormatCount(total.FilesScanned))
	fmt.Fprintf(w, " Dirs scanned:  %s\n", utils.FormatCount(total.DirsScanned))
	fmt.Fprintf(w, " Files renamed: %s\n", utils.FormatCount(total.FilesRenamed))
	fmt.Fprintf(w, " Dirs renamed:  %s\n", utils.FormatCount(total.DirsRenamed))
	if total.Errors > 0 {
		fmt.Fprintf(w, " Errors:        %s\n", utils.FormatCount(total.Errors))
	}
	fmt.Fprintln(w, heavyRule)
	fmt.Fprintln(w)
}
