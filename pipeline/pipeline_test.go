package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devboy-tools/devboy/core"
)

func sampleIssues(n int) []core.Issue {
	issues := make([]core.Issue, 0, n)
	for i := 1; i <= n; i++ {
		issues = append(issues, core.Issue{
			Key:         fmt.Sprintf("gh#%d", i),
			Title:       fmt.Sprintf("Issue %d", i),
			Description: fmt.Sprintf("Description for issue %d", i),
			State:       "open",
			Source:      "github",
			Labels:      []string{"bug"},
			Author:      &core.User{ID: "1", Username: "test"},
			URL:         fmt.Sprintf("https://github.com/test/repo/issues/%d", i),
			CreatedAt:   "2024-01-01T00:00:00Z",
			UpdatedAt:   "2024-01-02T00:00:00Z",
		})
	}
	return issues
}

func sampleMergeRequests(n int) []core.MergeRequest {
	mrs := make([]core.MergeRequest, 0, n)
	for i := 1; i <= n; i++ {
		mrs = append(mrs, core.MergeRequest{
			Key:          fmt.Sprintf("mr#%d", i),
			Title:        fmt.Sprintf("MR %d", i),
			State:        "opened",
			Source:       "gitlab",
			SourceBranch: fmt.Sprintf("feature-%d", i),
			TargetBranch: "main",
		})
	}
	return mrs
}

func sampleDiffs(n int) []core.FileDiff {
	one := 1
	diffs := make([]core.FileDiff, 0, n)
	for i := 1; i <= n; i++ {
		diffs = append(diffs, core.FileDiff{
			FilePath:  fmt.Sprintf("src/file_%d.go", i),
			Diff:      fmt.Sprintf("+added line %d\n-removed line %d", i, i),
			Additions: &one,
			Deletions: &one,
		})
	}
	return diffs
}

func sampleComments(n int) []core.Comment {
	comments := make([]core.Comment, 0, n)
	for i := 1; i <= n; i++ {
		comments = append(comments, core.Comment{
			ID:        fmt.Sprintf("%d", i),
			Body:      fmt.Sprintf("Comment body %d", i),
			CreatedAt: "2024-01-01T00:00:00Z",
		})
	}
	return comments
}

func sampleDiscussions(n int) []core.Discussion {
	discussions := make([]core.Discussion, 0, n)
	for i := 1; i <= n; i++ {
		discussions = append(discussions, core.Discussion{
			ID:       fmt.Sprintf("%d", i),
			Resolved: i%2 == 0,
			Comments: []core.Comment{{ID: fmt.Sprintf("c%d", i), Body: fmt.Sprintf("Discussion comment %d", i)}},
		})
	}
	return discussions
}

func TestPipelineTruncatesItems(t *testing.T) {
	p := WithConfig(Config{MaxItems: 5, MaxChars: 10000, MaxCharsPerItem: 500, IncludeHints: true})

	out, err := p.TransformIssues(sampleIssues(25))
	require.NoError(t, err)

	assert.True(t, out.Truncated)
	assert.Equal(t, 25, out.TotalCount)
	assert.Equal(t, 5, out.IncludedCount)
	assert.Contains(t, out.AgentHint, "5/25")
	assert.Contains(t, out.AgentHint, "20 more available")
}

func TestPipelineNoTruncationUnderLimit(t *testing.T) {
	p := WithConfig(Config{MaxItems: 50, MaxChars: 100000, MaxCharsPerItem: 500, IncludeHints: true})

	out, err := p.TransformIssues(sampleIssues(5))
	require.NoError(t, err)

	assert.False(t, out.Truncated)
	assert.Empty(t, out.AgentHint)
	assert.Equal(t, 5, out.IncludedCount)
	assert.Equal(t, 5, out.TotalCount)
	assert.Equal(t, out.Content, out.StringWithHints())
}

func TestPipelineMarkdownFormat(t *testing.T) {
	p := WithConfig(Config{MaxItems: 3, MaxChars: 10000, MaxCharsPerItem: 500, Format: FormatMarkdown, IncludeHints: true})

	out, err := p.TransformIssues(sampleIssues(3))
	require.NoError(t, err)

	assert.Contains(t, out.Content, "## gh#1")
	assert.Contains(t, out.Content, "**State:**")
	assert.Contains(t, out.Content, "@test")
}

func TestPipelineCompactFormat(t *testing.T) {
	p := WithConfig(Config{MaxItems: 3, MaxChars: 10000, MaxCharsPerItem: 500, Format: FormatCompact, IncludeHints: true})

	out, err := p.TransformIssues(sampleIssues(3))
	require.NoError(t, err)

	assert.Contains(t, out.Content, "gh#1")
	assert.NotContains(t, out.Content, "##")
}

func TestPipelineJSONFormat(t *testing.T) {
	p := WithConfig(Config{MaxItems: 2, MaxChars: 10000, MaxCharsPerItem: 500, Format: FormatJSON, IncludeHints: true})

	out, err := p.TransformIssues(sampleIssues(2))
	require.NoError(t, err)

	var parsed []core.Issue
	require.NoError(t, json.Unmarshal([]byte(out.Content), &parsed))
	assert.Len(t, parsed, 2)
	assert.Equal(t, "gh#1", parsed[0].Key)
}

func TestPipelineCharLimit(t *testing.T) {
	p := WithConfig(Config{MaxItems: 100, MaxChars: 100, MaxCharsPerItem: 500, IncludeHints: true})

	out, err := p.TransformIssues(sampleIssues(25))
	require.NoError(t, err)

	assert.LessOrEqual(t, len(out.Content), 100)
	assert.True(t, out.Truncated)
	assert.Contains(t, out.AgentHint, "truncated to 100 chars")
}

func TestPipelineCharLimitKeepsItemHint(t *testing.T) {
	// Item truncation fires first; the char-budget stage must not
	// overwrite its hint.
	p := WithConfig(Config{MaxItems: 5, MaxChars: 100, MaxCharsPerItem: 500, IncludeHints: true})

	out, err := p.TransformIssues(sampleIssues(25))
	require.NoError(t, err)

	assert.True(t, out.Truncated)
	assert.Contains(t, out.AgentHint, "5/25")
	assert.NotContains(t, out.AgentHint, "truncated to")
}

func TestPipelineHintsDisabled(t *testing.T) {
	p := WithConfig(Config{MaxItems: 2, MaxChars: 100000, MaxCharsPerItem: 500, IncludeHints: false})

	out, err := p.TransformIssues(sampleIssues(25))
	require.NoError(t, err)

	assert.Equal(t, 2, out.IncludedCount)
	assert.True(t, out.Truncated)
	assert.Empty(t, out.AgentHint)
}

func TestTransformMergeRequests(t *testing.T) {
	p := WithConfig(Config{MaxItems: 3, MaxChars: 10000, MaxCharsPerItem: 500, IncludeHints: true})

	out, err := p.TransformMergeRequests(sampleMergeRequests(5))
	require.NoError(t, err)

	assert.Contains(t, out.Content, "mr#1")
	assert.Contains(t, out.Content, "`feature-1` → `main`")
	assert.True(t, out.Truncated)
	assert.Equal(t, 3, out.IncludedCount)
}

func TestTransformMergeRequestsCompact(t *testing.T) {
	p := WithConfig(Config{MaxItems: 10, MaxChars: 10000, MaxCharsPerItem: 500, Format: FormatCompact, IncludeHints: true})

	out, err := p.TransformMergeRequests(sampleMergeRequests(2))
	require.NoError(t, err)

	assert.Contains(t, out.Content, "mr#1 [opened] MR 1 (feature-1 → main)")
	assert.False(t, out.Truncated)
}

func TestTransformDiffs(t *testing.T) {
	p := WithConfig(Config{MaxItems: 3, MaxChars: 10000, MaxCharsPerItem: 500, IncludeHints: true})

	out, err := p.TransformDiffs(sampleDiffs(5), "get_merge_request_diffs")
	require.NoError(t, err)

	assert.Contains(t, out.Content, "src/file_1.go")
	assert.True(t, out.Truncated)
	assert.Equal(t, 3, out.IncludedCount)
	assert.Contains(t, out.AgentHint, "get_merge_request_diffs")
	assert.Contains(t, out.AgentHint, "offset=3")
}

func TestTransformDiffsHeadTailTruncation(t *testing.T) {
	var lines []string
	for i := 1; i <= 20; i++ {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}
	diffs := []core.FileDiff{{
		FilePath: "big.go",
		Diff:     strings.Join(lines, "\n"), // well over 50 chars
	}}

	p := WithConfig(Config{MaxItems: 10, MaxChars: 10000, MaxCharsPerItem: 50, IncludeHints: true})
	out, err := p.TransformDiffs(diffs, "get_merge_request_diffs")
	require.NoError(t, err)

	assert.Contains(t, out.Content, "line 1")
	assert.Contains(t, out.Content, "line 5")
	assert.Contains(t, out.Content, "line 16")
	assert.Contains(t, out.Content, "line 20")
	assert.Contains(t, out.Content, "[10 lines hidden]")
	// Caller's slice must not be mutated.
	assert.Contains(t, diffs[0].Diff, "line 10")
}

func TestTransformDiffsJSON(t *testing.T) {
	p := WithConfig(Config{MaxItems: 10, MaxChars: 10000, MaxCharsPerItem: 500, Format: FormatJSON, IncludeHints: true})

	out, err := p.TransformDiffs(sampleDiffs(2), "get_merge_request_diffs")
	require.NoError(t, err)

	var parsed []core.FileDiff
	require.NoError(t, json.Unmarshal([]byte(out.Content), &parsed))
	assert.Len(t, parsed, 2)
}

func TestTransformComments(t *testing.T) {
	p := WithConfig(Config{MaxItems: 3, MaxChars: 10000, MaxCharsPerItem: 500, IncludeHints: true})

	out, err := p.TransformComments(sampleComments(5))
	require.NoError(t, err)

	assert.Contains(t, out.Content, "Comment body 1")
	assert.True(t, out.Truncated)
	assert.Equal(t, 3, out.IncludedCount)
}

func TestTransformDiscussions(t *testing.T) {
	p := WithConfig(Config{MaxItems: 3, MaxChars: 10000, MaxCharsPerItem: 500, IncludeHints: true})

	out, err := p.TransformDiscussions(sampleDiscussions(5))
	require.NoError(t, err)

	assert.Contains(t, out.Content, "Discussion comment 1")
	assert.True(t, out.Truncated)
	assert.Equal(t, 3, out.IncludedCount)
}

func TestTransformDiscussionsCompact(t *testing.T) {
	p := WithConfig(Config{MaxItems: 10, MaxChars: 10000, MaxCharsPerItem: 500, Format: FormatCompact, IncludeHints: true})

	out, err := p.TransformDiscussions(sampleDiscussions(2))
	require.NoError(t, err)

	assert.Contains(t, out.Content, "#1")
	assert.Contains(t, out.Content, "replies")
	assert.NotContains(t, out.Content, "##")
}

func TestStringWithHints(t *testing.T) {
	out := &Output{Content: "content"}
	assert.Equal(t, "content", out.StringWithHints())

	out.AgentHint = "hint text"
	assert.Equal(t, "content\n\nhint text", out.StringWithHints())
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseFormat("json"))
	assert.Equal(t, FormatCompact, ParseFormat("compact"))
	assert.Equal(t, FormatMarkdown, ParseFormat("markdown"))
	assert.Equal(t, FormatMarkdown, ParseFormat(""))
	assert.Equal(t, FormatMarkdown, ParseFormat("bogus"))
}

func TestEmptyCollections(t *testing.T) {
	p := New()

	out, err := p.TransformIssues(nil)
	require.NoError(t, err)
	assert.Equal(t, "No issues found.", out.Content)
	assert.False(t, out.Truncated)

	out, err = p.TransformDiffs(nil, "get_merge_request_diffs")
	require.NoError(t, err)
	assert.Equal(t, "No file changes.", out.Content)
}
