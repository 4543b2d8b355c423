package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/spboyer/debugprompt/internal/debugprompt"
	"github.com/spboyer/debugprompt/internal/gotest"
)

// formatDuration formats a duration in a consistent, human-readable way.
// This ensures stable output regardless of Go version changes.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(10 * time.Millisecond).String()
}

func failedCount(sum *gotest.Summary) int {
	n := len(sum.Failures)
	if n == 0 && sum.Failed() {
		n = 1
	}
	return n
}

// promptPath returns the prompt path a listener attached, or "".
func promptPath(details []string) string {
	for _, d := range details {
		if p, ok := strings.CutPrefix(d, debugprompt.AnnouncePrefix); ok {
			return p
		}
	}
	return ""
}

func promptCount(sum *gotest.Summary) int {
	n := 0
	for _, f := range sum.Failures {
		if promptPath(f.Details) != "" {
			n++
		}
	}
	return n
}

// printSummary writes a per-package table followed by the failed tests and
// their prompts.
func printSummary(w io.Writer, sum *gotest.Summary) {
	if len(sum.Packages) == 0 {
		fmt.Fprintln(w, "\nNo test events received. Did you pass -json to go test?") //nolint:errcheck
		return
	}

	nameWidth := len("Package")
	for _, p := range sum.Packages {
		nameWidth = max(nameWidth, runewidth.StringWidth(p.Name))
	}
	const colStatus, colCount = 8, 7
	totalWidth := nameWidth + 2 + colStatus + 3*(2+colCount) + 2 + len("Time")

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("═", totalWidth)) //nolint:errcheck

	fmt.Fprintf(w, "%s  %s  %s  %s  %s  %s\n", //nolint:errcheck
		padRight("Package", nameWidth),
		padRight("Status", colStatus),
		padRight("Passed", colCount),
		padRight("Failed", colCount),
		padRight("Skipped", colCount),
		"Time")
	fmt.Fprintf(w, "%s\n", strings.Repeat("─", totalWidth)) //nolint:errcheck

	for _, p := range sum.Packages {
		status := p.Status
		if status == "" {
			status = "?"
		}
		fmt.Fprintf(w, "%s  %s  %s  %s  %s  %s\n", //nolint:errcheck
			padRight(p.Name, nameWidth),
			padRight(status, colStatus),
			padRight(fmt.Sprint(p.Passed), colCount),
			padRight(fmt.Sprint(p.Failed), colCount),
			padRight(fmt.Sprint(p.Skipped), colCount),
			formatDuration(p.Elapsed))
	}

	if len(sum.Failures) == 0 {
		return
	}

	fmt.Fprintf(w, "\nFailed tests (%d):\n", len(sum.Failures)) //nolint:errcheck
	for _, f := range sum.Failures {
		if p := promptPath(f.Details); p != "" {
			fmt.Fprintf(w, "  ✗ %s\n      → %s\n", f.Scenario, p) //nolint:errcheck
		} else {
			fmt.Fprintf(w, "  ✗ %s\n", f.Scenario) //nolint:errcheck
		}
	}
}

// FormatMarkdownSummary formats a run as Markdown, e.g. for
// $GITHUB_STEP_SUMMARY.
func FormatMarkdownSummary(sum *gotest.Summary) string {
	var b strings.Builder

	statusIcon := "✅ Passed"
	if sum.Failed() {
		statusIcon = "❌ Failed"
	}
	b.WriteString("## 🧪 Test Results\n\n")
	b.WriteString(fmt.Sprintf("**Status:** %s\n\n", statusIcon))

	b.WriteString("| Package | Status | Passed | Failed | Skipped | Time |\n")
	b.WriteString("|---------|--------|--------|--------|---------|------|\n")
	for _, p := range sum.Packages {
		icon := "✅"
		switch p.Status {
		case gotest.ActionFail:
			icon = "❌"
		case gotest.ActionSkip:
			icon = "⏭️"
		}
		b.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %s |\n",
			p.Name, icon, p.Passed, p.Failed, p.Skipped, formatDuration(p.Elapsed)))
	}

	if len(sum.Failures) > 0 {
		b.WriteString("\n### Failed Tests\n\n")
		for _, f := range sum.Failures {
			if p := promptPath(f.Details); p != "" {
				b.WriteString(fmt.Sprintf("- `%s` → [prompt](%s)\n", f.Scenario, p))
			} else {
				b.WriteString(fmt.Sprintf("- `%s`\n", f.Scenario))
			}
		}
	}
	return b.String()
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}
