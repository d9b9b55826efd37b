package pipeline

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateShortString(t *testing.T) {
	s := "Hello, world!"
	assert.Equal(t, s, Truncate(s, 100))
	assert.Equal(t, s, Truncate(s, len(s)))
}

func TestTruncateAtWordBoundary(t *testing.T) {
	s := "Hello world this is a test"
	result := Truncate(s, 15)
	assert.True(t, strings.HasSuffix(result, "..."))
	assert.LessOrEqual(t, len(result), 15)
}

func TestTruncateAtNewline(t *testing.T) {
	s := "Line 1\nLine 2\nLine 3\nLine 4"
	result := Truncate(s, 15)
	assert.Contains(t, result, "Line 1")
	assert.True(t, strings.HasSuffix(result, "..."))
	assert.LessOrEqual(t, len(result), 15)
}

func TestTruncateEarlyBoundaryIgnored(t *testing.T) {
	// The only space sits before the midpoint of the prefix, so the cut
	// falls back to the hard byte boundary.
	s := "ab cdefghijklmnopqrstuvwxyz"
	result := Truncate(s, 20)
	assert.LessOrEqual(t, len(result), 20)
	assert.Greater(t, len(result), len("ab..."))
}

func TestTruncateDegenerateLimits(t *testing.T) {
	assert.Equal(t, "...", Truncate("something long enough", 0))
	assert.Equal(t, "...", Truncate("something long enough", 2))
	assert.Equal(t, "...", Truncate("something long enough", 3))
}

func TestTruncateNeverExceedsLimit(t *testing.T) {
	inputs := []string{
		"short",
		strings.Repeat("a", 500),
		strings.Repeat("word ", 100),
		strings.Repeat("line\n", 100),
		"no separators at all" + strings.Repeat("x", 200),
	}
	for _, s := range inputs {
		for _, limit := range []int{3, 4, 10, 50, 100, 499, 500, 501} {
			got := Truncate(s, limit)
			assert.LessOrEqual(t, len(got), limit, "input %q limit %d", s[:min(20, len(s))], limit)
			if len(s) <= limit {
				assert.Equal(t, s, got)
			}
		}
	}
}

func TestTruncateIdempotent(t *testing.T) {
	inputs := []string{
		strings.Repeat("word ", 100),
		strings.Repeat("line\n", 100),
		strings.Repeat("z", 300),
	}
	for _, s := range inputs {
		for _, limit := range []int{10, 50, 120} {
			once := Truncate(s, limit)
			assert.Equal(t, once, Truncate(once, limit))
		}
	}
}

func TestTruncateDiffKeepsHeadAndTail(t *testing.T) {
	var lines []string
	for i := 1; i <= 20; i++ {
		lines = append(lines, fmt.Sprintf("Line %d", i))
	}
	diff := strings.Join(lines, "\n")

	result := TruncateDiff(diff, 50)
	assert.Contains(t, result, "Line 1")
	assert.Contains(t, result, "Line 5")
	assert.Contains(t, result, "Line 16")
	assert.Contains(t, result, "Line 20")
	assert.Contains(t, result, "[10 lines hidden]")
	assert.NotContains(t, result, "Line 10\n")
}

func TestTruncateDiffShort(t *testing.T) {
	diff := "Line 1\nLine 2\nLine 3"
	assert.Equal(t, diff, TruncateDiff(diff, 1000))
}

func TestTruncateDiffFewLines(t *testing.T) {
	// Ten lines or fewer fall back to boundary truncation.
	diff := strings.Repeat("a long diff line with plenty of text\n", 5)
	result := TruncateDiff(diff, 40)
	assert.LessOrEqual(t, len(result), 40)
	assert.NotContains(t, result, "lines hidden")
}
