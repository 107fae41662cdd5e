// Package observability provides logging setup and formatted CLI output for
// automation runs.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jonathan/apply-autopilot/internal/automation"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintEvent writes one progress event as a single line.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintEvent(ev automation.Event) {
	ts := ev.At.Format("15:04:05")
	switch {
	case ev.Platform == "":
		fmt.Fprintf(p.out, "%s  %-18s %s\n", ts, ev.Kind, ev.Message)
	case ev.Page > 0:
		fmt.Fprintf(p.out, "%s  [%s p%d] %-18s %s\n", ts, ev.Platform, ev.Page, ev.Kind, ev.Message)
	default:
		fmt.Fprintf(p.out, "%s  [%s] %-18s %s\n", ts, ev.Platform, ev.Kind, ev.Message)
	}
}

// PrintTask outputs a summary box for the task followed by one box per
// platform, in name order.
func (p *Printer) PrintTask(task automation.Task) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Task:      %s\n", task.ID))
	sb.WriteString(fmt.Sprintf("Status:    %s\n", task.Status))
	sb.WriteString(fmt.Sprintf("Keywords:  %s\n", task.Keywords))
	sb.WriteString(fmt.Sprintf("Limits:    %d applications, %d pages\n", task.MaxApplications, task.MaxPages))
	if task.CompletedAt != nil {
		sb.WriteString(fmt.Sprintf("Duration:  %s\n", task.CompletedAt.Sub(task.StartedAt).Round(time.Second)))
	}
	sb.WriteString(fmt.Sprintf("Applied:   %d", task.Applied()))
	p.printBox("AUTOMATION TASK", sb.String())

	names := make([]string, 0, len(task.Platforms))
	for name := range task.Platforms {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p.PrintPlatformResult(name, task.Platforms[name])
	}
}

// PrintPlatformResult outputs one platform's status and its most recent
// application attempts.
func (p *Printer) PrintPlatformResult(name string, res *automation.PlatformResult) {
	if res == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Status:    %s", res.Status))
	if res.LoginMode != "" {
		sb.WriteString(fmt.Sprintf(" (%s login)", res.LoginMode))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Pages:     %d, listings seen: %d\n", res.PagesDone, res.ListingsSeen))
	sb.WriteString(fmt.Sprintf("Applied:   %d of %d attempts\n", res.TotalApplied, len(res.Applications)))
	if res.Error != nil {
		sb.WriteString(fmt.Sprintf("Error:     %s\n", *res.Error))
	} else if res.Message != "" {
		sb.WriteString(fmt.Sprintf("Note:      %s\n", res.Message))
	}

	if len(res.Applications) > 0 {
		sb.WriteString("\n")
		start := max(0, len(res.Applications)-maxItemsToShow)
		if start > 0 {
			sb.WriteString(fmt.Sprintf("... %d earlier attempts\n", start))
		}
		for _, a := range res.Applications[start:] {
			mark := "✓"
			if !a.Succeeded {
				mark = "✗"
			}
			line := fmt.Sprintf("%s %s @ %s", mark, a.Title, a.Organization)
			if !a.Succeeded && a.Reason != "" {
				line += " (" + a.Reason + ")"
			}
			sb.WriteString(line + "\n")
		}
	}

	p.printBox(strings.ToUpper(name), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintScrapeResult outputs the counts of one scrape.
func (p *Printer) PrintScrapeResult(res automation.ScrapeResult) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Platform:  %s\n", res.Platform))
	sb.WriteString(fmt.Sprintf("Keywords:  %s\n", res.Keywords))
	sb.WriteString(fmt.Sprintf("Pages:     %d\n", res.Pages))
	sb.WriteString(fmt.Sprintf("Seen:      %d\n", res.Seen))
	sb.WriteString(fmt.Sprintf("New:       %d", res.Stored))
	p.printBox("SCRAPE RESULT", sb.String())
}
