package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"

	"github.com/cascadekit/cascade/pkg/models"
)

// printReport writes a colored run summary to stdout.
func printReport(report *models.RunReport) {
	fmt.Printf("\nRun %s", report.RunID)
	if report.Aborted {
		fmt.Printf(" %s", color.New(color.FgYellow).Sprint("(aborted)"))
	}
	fmt.Printf("  %s\n\n", formatRunDuration(report.FinishedAt.Sub(report.StartedAt)))

	for _, w := range report.Waves {
		fmt.Printf("Wave %d:\n", w.Index)
		for _, id := range w.ItemIDs() {
			printOutcome(report.Outcomes[id])
		}
	}

	// Items only present in outcomes (e.g. recorded after an abort) still
	// belong in the summary.
	printed := make(map[string]bool)
	for _, w := range report.Waves {
		for _, id := range w.ItemIDs() {
			printed[id] = true
		}
	}
	var extra []string
	for id := range report.Outcomes {
		if !printed[id] {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	for _, id := range extra {
		printOutcome(report.Outcomes[id])
	}

	succeeded, failed, timedOut := report.Counts()
	fmt.Printf("\n%s %d succeeded, %d failed, %d timed out\n",
		color.New(color.Bold).Sprint("Items:"), succeeded, failed, timedOut)

	if report.Final != nil {
		printStatus("•", fmt.Sprintf("Merge (%s): %s",
			report.Final.Strategy, report.Final.Status), mergeColor(report.Final.Status))
		for _, m := range report.WaveMerges {
			for _, c := range m.Conflicts {
				fmt.Printf("  conflict on %s: %s (winner %s)\n", c.Artifact, c.Resolution, c.WinnerID)
			}
		}
	}

	if len(report.Reconciliation) > 0 {
		fmt.Printf("\nModules (%d created this run):\n", report.ResourcesCreated)
		for _, d := range report.Reconciliation {
			attr := color.FgGreen
			if d.Action == models.ActionDelete {
				attr = color.FgRed
			}
			printStatus(string(d.Action), fmt.Sprintf("%s (%s)", d.Module, d.Reason), attr)
		}
	}
}

// printOutcome renders one item line.
func printOutcome(o *models.Outcome) {
	if o == nil {
		return
	}
	var attr color.Attribute
	switch o.Status {
	case models.OutcomeSuccess:
		attr = color.FgGreen
	case models.OutcomeTimedOut:
		attr = color.FgYellow
	default:
		attr = color.FgRed
	}

	line := fmt.Sprintf("%s  %s", o.ItemID, formatRunDuration(o.Duration()))
	if o.Error != "" {
		line += "  " + o.Error
	}
	fmt.Print("  ")
	printStatus(statusSymbol(o.Status), line, attr)
}

// statusSymbol maps an outcome status to its display symbol.
func statusSymbol(status models.OutcomeStatus) string {
	switch status {
	case models.OutcomeSuccess:
		return "✓"
	case models.OutcomeTimedOut:
		return "◷"
	case models.OutcomeFailed:
		return "✗"
	default:
		return "•"
	}
}

// mergeColor maps a merge status to a display color.
func mergeColor(status models.MergeStatus) color.Attribute {
	switch status {
	case models.MergeSuccess:
		return color.FgGreen
	case models.MergePartial:
		return color.FgYellow
	default:
		return color.FgRed
	}
}

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}

// formatRunDuration formats a duration in a human-readable way.
func formatRunDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
