// Package util holds the text helpers shared by the bridge and the console.
package util

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// ellipsis marks text cut by the Truncate helpers.
const ellipsis = "..."

// Head returns the first n runes of s without any marker. The watchdog uses
// it for the "Sending: <head>..." status message, where the ellipsis is
// always appended by the caller.
func Head(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// OneLine collapses every run of whitespace, newlines included, into a
// single space so a multi-line command or prompt fits a console row.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TruncateString cuts s to maxLen runes, ending with "..." when cut.
// Plain text only; styled output goes through TruncateANSI.
func TruncateString(s string, maxLen int) string {
	if maxLen <= len(ellipsis) {
		return ellipsis
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-len(ellipsis)]) + ellipsis
}

// TruncateANSI cuts s to maxWidth terminal columns, keeping escape sequences
// intact and counting wide characters as two columns.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= len(ellipsis) {
		return ellipsis
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	// The tail counts toward maxWidth.
	return ansi.Truncate(s, maxWidth, ellipsis)
}
