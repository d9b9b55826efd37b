package pipeline

import (
	"fmt"
	"strings"
)

// ellipsis is reserved out of every truncation budget.
const ellipsis = "..."

// Truncate shortens s to at most limit bytes, preferring to cut at a
// newline, then a space, and only then at a raw byte boundary. A boundary is
// only taken when it lies past the midpoint of the available prefix, so a
// single early newline cannot eat most of the budget.
//
// The result is always <= limit bytes for limit >= 3; a limit below 3
// degenerates to just the ellipsis.
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	contentLimit := limit - 3
	if contentLimit <= 0 {
		return ellipsis
	}

	prefix := s[:contentLimit]

	if pos := strings.LastIndexByte(prefix, '\n'); pos > contentLimit/2 {
		return s[:pos] + ellipsis
	}

	if pos := strings.LastIndexByte(prefix, ' '); pos > contentLimit/2 {
		return s[:pos] + ellipsis
	}

	return prefix + ellipsis
}

// TruncateDiff shortens diff content while keeping both ends visible, so
// the start and end of a change remain readable. Diffs of ten lines or
// fewer fall back to plain boundary truncation.
func TruncateDiff(diff string, limit int) string {
	if len(diff) <= limit {
		return diff
	}

	lines := strings.Split(strings.TrimRight(diff, "\n"), "\n")
	if len(lines) <= 10 {
		return Truncate(diff, limit)
	}

	head := strings.Join(lines[:5], "\n")
	tail := strings.Join(lines[len(lines)-5:], "\n")
	hidden := len(lines) - 10

	return fmt.Sprintf("%s\n\n... [%d lines hidden] ...\n\n%s", head, hidden, tail)
}
