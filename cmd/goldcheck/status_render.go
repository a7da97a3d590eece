package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"

	"goldcheck/internal/failure"
	"goldcheck/internal/regression"
)

type outcome int

const (
	outcomePass outcome = iota
	outcomeGenerated
	outcomeFail
	outcomeEmpty
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

const failureIndent = "  "

func outcomeOf(r regression.Result) outcome {
	switch {
	case !r.Passed():
		return outcomeFail
	case r.Generated:
		return outcomeGenerated
	default:
		return outcomePass
	}
}

func (o outcome) label() string {
	switch o {
	case outcomeFail:
		return "FAIL"
	case outcomeGenerated:
		return "GENERATED"
	case outcomeEmpty:
		return "EMPTY"
	default:
		return "PASS"
	}
}

func (o outcome) color() string {
	switch o {
	case outcomeFail:
		return ansiRed
	case outcomeGenerated:
		return ansiCyan
	case outcomeEmpty:
		return ansiYellow
	default:
		return ansiGreen
	}
}

func paint(text, color string, colorize bool) string {
	if !colorize || color == "" {
		return text
	}
	return color + text + ansiReset
}

// summaryLine renders "Summary: [PASS] ..." with per-class failure counts.
func summaryLine(summary regression.Summary, colorize bool) string {
	if len(summary.Results) == 0 {
		return paint(fmt.Sprintf("Summary: [%s] no resources found", outcomeEmpty.label()), outcomeEmpty.color(), colorize)
	}
	kind := outcomePass
	if summary.Failed() > 0 {
		kind = outcomeFail
	}
	message := fmt.Sprintf("%d passed, %d failed", summary.Passed(), summary.Failed())
	if breakdown := classBreakdown(summary.ByClass()); breakdown != "" {
		message += " (" + breakdown + ")"
	}
	message += " run " + summary.RunID
	return paint(fmt.Sprintf("Summary: [%s] %s", kind.label(), message), kind.color(), colorize)
}

func classBreakdown(counts map[failure.Class]int) string {
	if len(counts) == 0 {
		return ""
	}
	classes := make([]string, 0, len(counts))
	for class := range counts {
		classes = append(classes, string(class))
	}
	sort.Strings(classes)
	parts := make([]string, 0, len(classes))
	for _, class := range classes {
		parts = append(parts, fmt.Sprintf("%s=%d", class, counts[failure.Class(class)]))
	}
	return strings.Join(parts, ", ")
}

func failureSection(results []regression.Result, colorize bool) []string {
	var lines []string
	for _, r := range results {
		if r.Passed() {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s%s [%s]: %v", failureIndent, r.Test, r.Class(), r.Err))
	}
	if len(lines) == 0 {
		return nil
	}
	header := "== Failures =="
	rule := strings.Repeat("-", len(header))
	return append([]string{paint(header, ansiRed, colorize), paint(rule, ansiRed, colorize)}, lines...)
}

func shouldColorize(writer io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
