package pipeline

import (
	"fmt"
	"strings"

	"github.com/devboy-tools/devboy/core"
)

// Markdown and compact renderers for the unified result types. Markdown
// always carries a stable per-item heading keyed by the entity key; compact
// never emits heading markup. JSON rendering is plain serialization and
// lives in pipeline.go.

// maxDescriptionLen bounds inline descriptions in markdown output.
const maxDescriptionLen = 200

// --- Issues ---

// IssuesToMarkdown converts issues to markdown.
func IssuesToMarkdown(issues []core.Issue) string {
	if len(issues) == 0 {
		return "No issues found."
	}

	var b strings.Builder
	b.WriteString("# Issues\n\n")
	for i := range issues {
		issueToMarkdown(&b, &issues[i])
		b.WriteByte('\n')
	}
	return b.String()
}

func issueToMarkdown(b *strings.Builder, issue *core.Issue) {
	fmt.Fprintf(b, "## %s - %s\n\n", issue.Key, issue.Title)

	fmt.Fprintf(b, "**State:** %s | **Source:** %s", issue.State, issue.Source)
	if issue.Priority != "" {
		fmt.Fprintf(b, " | **Priority:** %s", issue.Priority)
	}
	b.WriteByte('\n')

	if len(issue.Labels) > 0 {
		fmt.Fprintf(b, "**Labels:** %s\n", strings.Join(issue.Labels, ", "))
	}
	if issue.Author != nil {
		fmt.Fprintf(b, "**Author:** @%s\n", issue.Author.Username)
	}
	if len(issue.Assignees) > 0 {
		fmt.Fprintf(b, "**Assignees:** %s\n", joinUsernames(issue.Assignees))
	}
	if issue.Description != "" {
		fmt.Fprintf(b, "\n%s\n", Truncate(issue.Description, maxDescriptionLen))
	}
	if issue.URL != "" {
		fmt.Fprintf(b, "\n🔗 %s\n", issue.URL)
	}
}

// IssuesToCompact converts issues to one line per issue.
func IssuesToCompact(issues []core.Issue) string {
	if len(issues) == 0 {
		return "No issues found."
	}

	lines := make([]string, 0, len(issues))
	for _, issue := range issues {
		labels := ""
		if len(issue.Labels) > 0 {
			labels = fmt.Sprintf(" [%s]", strings.Join(issue.Labels, ", "))
		}
		lines = append(lines, fmt.Sprintf("%s [%s] %s%s", issue.Key, issue.State, issue.Title, labels))
	}
	return strings.Join(lines, "\n")
}

// --- Merge requests ---

// MergeRequestsToMarkdown converts merge requests to markdown.
func MergeRequestsToMarkdown(mrs []core.MergeRequest) string {
	if len(mrs) == 0 {
		return "No merge requests found."
	}

	var b strings.Builder
	b.WriteString("# Merge Requests\n\n")
	for i := range mrs {
		mergeRequestToMarkdown(&b, &mrs[i])
		b.WriteByte('\n')
	}
	return b.String()
}

func mergeRequestToMarkdown(b *strings.Builder, mr *core.MergeRequest) {
	draft := ""
	if mr.Draft {
		draft = " [DRAFT]"
	}
	fmt.Fprintf(b, "## %s%s - %s\n\n", mr.Key, draft, mr.Title)

	fmt.Fprintf(b, "**Branch:** `%s` → `%s`\n", mr.SourceBranch, mr.TargetBranch)
	fmt.Fprintf(b, "**State:** %s | **Source:** %s\n", mr.State, mr.Source)

	if len(mr.Labels) > 0 {
		fmt.Fprintf(b, "**Labels:** %s\n", strings.Join(mr.Labels, ", "))
	}
	if mr.Author != nil {
		fmt.Fprintf(b, "**Author:** @%s\n", mr.Author.Username)
	}
	if len(mr.Assignees) > 0 {
		fmt.Fprintf(b, "**Assignees:** %s\n", joinUsernames(mr.Assignees))
	}
	if len(mr.Reviewers) > 0 {
		fmt.Fprintf(b, "**Reviewers:** %s\n", joinUsernames(mr.Reviewers))
	}
	if mr.Description != "" {
		fmt.Fprintf(b, "\n%s\n", Truncate(mr.Description, maxDescriptionLen))
	}
	if mr.URL != "" {
		fmt.Fprintf(b, "\n🔗 %s\n", mr.URL)
	}
}

// MergeRequestsToCompact converts merge requests to one line each.
func MergeRequestsToCompact(mrs []core.MergeRequest) string {
	if len(mrs) == 0 {
		return "No merge requests found."
	}

	lines := make([]string, 0, len(mrs))
	for _, mr := range mrs {
		draft := ""
		if mr.Draft {
			draft = " [DRAFT]"
		}
		lines = append(lines, fmt.Sprintf("%s [%s]%s %s (%s → %s)",
			mr.Key, mr.State, draft, mr.Title, mr.SourceBranch, mr.TargetBranch))
	}
	return strings.Join(lines, "\n")
}

// --- File diffs ---

// DiffsToMarkdown converts file diffs to markdown with fenced diff blocks.
func DiffsToMarkdown(diffs []core.FileDiff) string {
	if len(diffs) == 0 {
		return "No file changes."
	}

	var b strings.Builder
	b.WriteString("# Changed Files\n\n")
	for i := range diffs {
		diffToMarkdown(&b, &diffs[i])
		b.WriteByte('\n')
	}
	return b.String()
}

func diffToMarkdown(b *strings.Builder, diff *core.FileDiff) {
	status := "✏️"
	switch {
	case diff.NewFile:
		status = "➕"
	case diff.DeletedFile:
		status = "➖"
	case diff.RenamedFile:
		status = "📝"
	}

	fmt.Fprintf(b, "## %s %s\n\n", status, diff.FilePath)

	if diff.RenamedFile && diff.OldPath != "" {
		fmt.Fprintf(b, "Renamed from: `%s`\n", diff.OldPath)
	}
	if diff.Additions != nil && diff.Deletions != nil {
		fmt.Fprintf(b, "+%d -%d\n\n", *diff.Additions, *diff.Deletions)
	}
	if diff.Diff != "" {
		b.WriteString("```diff\n")
		b.WriteString(diff.Diff)
		if !strings.HasSuffix(diff.Diff, "\n") {
			b.WriteByte('\n')
		}
		b.WriteString("```\n")
	}
}

// DiffsToCompact converts diffs to a git-status style listing.
func DiffsToCompact(diffs []core.FileDiff) string {
	if len(diffs) == 0 {
		return "No file changes."
	}

	lines := make([]string, 0, len(diffs))
	for _, diff := range diffs {
		status := "M"
		switch {
		case diff.NewFile:
			status = "A"
		case diff.DeletedFile:
			status = "D"
		case diff.RenamedFile:
			status = "R"
		}
		stats := ""
		if diff.Additions != nil && diff.Deletions != nil {
			stats = fmt.Sprintf(" (+%d -%d)", *diff.Additions, *diff.Deletions)
		}
		lines = append(lines, fmt.Sprintf("[%s] %s%s", status, diff.FilePath, stats))
	}
	return strings.Join(lines, "\n")
}

// --- Comments ---

// CommentsToMarkdown converts comments to markdown separated by rules.
func CommentsToMarkdown(comments []core.Comment) string {
	if len(comments) == 0 {
		return "No comments."
	}

	var b strings.Builder
	b.WriteString("# Comments\n\n")
	for i := range comments {
		commentToMarkdown(&b, &comments[i])
		b.WriteString("---\n\n")
	}
	return b.String()
}

func commentToMarkdown(b *strings.Builder, comment *core.Comment) {
	if comment.Author != nil {
		fmt.Fprintf(b, "**@%s**", comment.Author.Username)
	}
	if comment.CreatedAt != "" {
		fmt.Fprintf(b, " · %s", formatTimestamp(comment.CreatedAt))
	}
	b.WriteByte('\n')

	if comment.Position != nil {
		fmt.Fprintf(b, "📍 `%s` line %d\n", comment.Position.FilePath, comment.Position.Line)
	}

	b.WriteByte('\n')
	b.WriteString(comment.Body)
	b.WriteString("\n\n")
}

// CommentsToCompact converts comments to "author: body" lines.
func CommentsToCompact(comments []core.Comment) string {
	if len(comments) == 0 {
		return "No comments."
	}

	lines := make([]string, 0, len(comments))
	for _, c := range comments {
		author := "unknown"
		if c.Author != nil {
			author = "@" + c.Author.Username
		}
		lines = append(lines, fmt.Sprintf("%s: %s", author, Truncate(c.Body, 80)))
	}
	return strings.Join(lines, "\n")
}

// --- Discussions ---

// DiscussionsToMarkdown converts review discussions to markdown.
func DiscussionsToMarkdown(discussions []core.Discussion) string {
	if len(discussions) == 0 {
		return "No discussions."
	}

	var b strings.Builder
	b.WriteString("# Discussions\n\n")
	for i := range discussions {
		discussionToMarkdown(&b, &discussions[i], i+1)
		b.WriteByte('\n')
	}
	return b.String()
}

func discussionToMarkdown(b *strings.Builder, d *core.Discussion, index int) {
	status := "💬 Open"
	if d.Resolved {
		status = "✅ Resolved"
	}
	fmt.Fprintf(b, "## Discussion #%d [%s]\n\n", index, status)

	if d.Position != nil {
		fmt.Fprintf(b, "📍 `%s` line %d\n\n", d.Position.FilePath, d.Position.Line)
	}
	for i := range d.Comments {
		commentToMarkdown(b, &d.Comments[i])
	}
	b.WriteString("---\n")
}

// DiscussionsToCompact converts discussions to one summary line each.
func DiscussionsToCompact(discussions []core.Discussion) string {
	if len(discussions) == 0 {
		return "No discussions."
	}

	lines := make([]string, 0, len(discussions))
	for i, d := range discussions {
		status := "💬"
		if d.Resolved {
			status = "✅"
		}
		location := ""
		if d.Position != nil {
			location = fmt.Sprintf(" @%s:%d", d.Position.FilePath, d.Position.Line)
		}
		lines = append(lines, fmt.Sprintf("#%d %s %d replies%s", i+1, status, len(d.Comments), location))
	}
	return strings.Join(lines, "\n")
}

// --- Helpers ---

func joinUsernames(users []core.User) string {
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, "@"+u.Username)
	}
	return strings.Join(names, ", ")
}

// formatTimestamp keeps only the date portion of an ISO timestamp.
func formatTimestamp(ts string) string {
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ts
}
