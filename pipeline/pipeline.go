// Package pipeline turns heterogeneous result sets into a size-bounded,
// format-selectable representation with truncation and pagination hints.
//
// Per result kind, the stages apply in order: item-count truncation,
// per-item field truncation (diff bodies keep head and tail), rendering to
// the selected format, then a global character budget on the rendered text.
package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/devboy-tools/devboy/core"
)

// Format selects the output representation.
type Format int

const (
	// FormatMarkdown is the default, token-efficient readable format.
	FormatMarkdown Format = iota
	// FormatCompact is a minimal one-line-per-item format.
	FormatCompact
	// FormatJSON is direct structural serialization.
	FormatJSON
)

// ParseFormat maps a user-supplied format string to a Format.
// Unknown or empty strings fall back to markdown.
func ParseFormat(s string) Format {
	switch s {
	case "json":
		return FormatJSON
	case "compact":
		return FormatCompact
	default:
		return FormatMarkdown
	}
}

// Config controls a pipeline invocation. Immutable once the pipeline is
// built; derive a new config per call for per-request format overrides.
type Config struct {
	// MaxItems caps how many items of a collection are rendered.
	MaxItems int
	// MaxChars caps the rendered output as a whole.
	MaxChars int
	// MaxCharsPerItem caps large per-item text fields such as diff bodies.
	MaxCharsPerItem int
	// Format selects the renderer.
	Format Format
	// IncludeHints enables pagination hints on truncation.
	IncludeHints bool
}

// DefaultConfig returns the stock limits.
func DefaultConfig() Config {
	return Config{
		MaxItems:        20,
		MaxChars:        4000,
		MaxCharsPerItem: 500,
		Format:          FormatMarkdown,
		IncludeHints:    true,
	}
}

// WithFormat returns a copy of the config with the format replaced.
func (c Config) WithFormat(f Format) Config {
	c.Format = f
	return c
}

// Output is the result of a transformation.
//
// Truncated is true iff items were dropped (IncludedCount < TotalCount) or
// the rendered content exceeded MaxChars. AgentHint is non-empty iff
// Truncated and hints are enabled.
type Output struct {
	Content       string
	Truncated     bool
	TotalCount    int
	IncludedCount int
	AgentHint     string
}

// StringWithHints returns the content with the agent hint appended.
func (o *Output) StringWithHints() string {
	if o.AgentHint != "" {
		return o.Content + "\n\n" + o.AgentHint
	}
	return o.Content
}

// Pipeline applies the configured transformation stages per result kind.
type Pipeline struct {
	cfg Config
}

// New creates a pipeline with the default configuration.
func New() *Pipeline {
	return &Pipeline{cfg: DefaultConfig()}
}

// WithConfig creates a pipeline with a custom configuration.
func WithConfig(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg}
}

// Config returns the pipeline's configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// TransformIssues renders a list of issues.
func (p *Pipeline) TransformIssues(issues []core.Issue) (*Output, error) {
	total := len(issues)
	if total > p.cfg.MaxItems {
		issues = issues[:p.cfg.MaxItems]
	}

	var content string
	switch p.cfg.Format {
	case FormatJSON:
		b, err := json.MarshalIndent(issues, "", "  ")
		if err != nil {
			return nil, err
		}
		content = string(b)
	case FormatCompact:
		content = IssuesToCompact(issues)
	default:
		content = IssuesToMarkdown(issues)
	}

	return p.finish(content, total, len(issues), "issues", ""), nil
}

// TransformMergeRequests renders a list of merge requests.
func (p *Pipeline) TransformMergeRequests(mrs []core.MergeRequest) (*Output, error) {
	total := len(mrs)
	if total > p.cfg.MaxItems {
		mrs = mrs[:p.cfg.MaxItems]
	}

	var content string
	switch p.cfg.Format {
	case FormatJSON:
		b, err := json.MarshalIndent(mrs, "", "  ")
		if err != nil {
			return nil, err
		}
		content = string(b)
	case FormatCompact:
		content = MergeRequestsToCompact(mrs)
	default:
		content = MergeRequestsToMarkdown(mrs)
	}

	return p.finish(content, total, len(mrs), "merge_requests", ""), nil
}

// TransformComments renders a list of comments.
func (p *Pipeline) TransformComments(comments []core.Comment) (*Output, error) {
	total := len(comments)
	if total > p.cfg.MaxItems {
		comments = comments[:p.cfg.MaxItems]
	}

	var content string
	switch p.cfg.Format {
	case FormatJSON:
		b, err := json.MarshalIndent(comments, "", "  ")
		if err != nil {
			return nil, err
		}
		content = string(b)
	case FormatCompact:
		content = CommentsToCompact(comments)
	default:
		content = CommentsToMarkdown(comments)
	}

	return p.finish(content, total, len(comments), "comments", ""), nil
}

// TransformDiscussions renders a list of review discussions.
func (p *Pipeline) TransformDiscussions(discussions []core.Discussion) (*Output, error) {
	total := len(discussions)
	if total > p.cfg.MaxItems {
		discussions = discussions[:p.cfg.MaxItems]
	}

	var content string
	switch p.cfg.Format {
	case FormatJSON:
		b, err := json.MarshalIndent(discussions, "", "  ")
		if err != nil {
			return nil, err
		}
		content = string(b)
	case FormatCompact:
		content = DiscussionsToCompact(discussions)
	default:
		content = DiscussionsToMarkdown(discussions)
	}

	return p.finish(content, total, len(discussions), "discussions", ""), nil
}

// TransformDiffs renders a list of file diffs. Diff bodies are truncated
// per item with head/tail preservation before rendering, and the pagination
// hint names the tool to resume from with an offset.
func (p *Pipeline) TransformDiffs(diffs []core.FileDiff, toolName string) (*Output, error) {
	total := len(diffs)

	n := total
	if n > p.cfg.MaxItems {
		n = p.cfg.MaxItems
	}
	clipped := make([]core.FileDiff, n)
	for i := 0; i < n; i++ {
		clipped[i] = diffs[i]
		clipped[i].Diff = TruncateDiff(clipped[i].Diff, p.cfg.MaxCharsPerItem)
	}

	var content string
	switch p.cfg.Format {
	case FormatJSON:
		b, err := json.MarshalIndent(clipped, "", "  ")
		if err != nil {
			return nil, err
		}
		content = string(b)
	case FormatCompact:
		content = DiffsToCompact(clipped)
	default:
		content = DiffsToMarkdown(clipped)
	}

	return p.finish(content, total, n, "diffs", toolName), nil
}

// finish assembles the Output and applies the global character budget.
func (p *Pipeline) finish(content string, total, included int, kind, toolName string) *Output {
	out := &Output{
		Content:       content,
		TotalCount:    total,
		IncludedCount: included,
	}

	if included < total {
		out.Truncated = true
		if p.cfg.IncludeHints {
			out.AgentHint = p.paginationHint(kind, total, included, toolName)
		}
	}

	return p.applyCharLimit(out)
}

// applyCharLimit truncates the rendered text to the global budget. A hint
// produced by item truncation is never overwritten, but the truncated flag
// is set if the budget trimmed anything.
func (p *Pipeline) applyCharLimit(out *Output) *Output {
	if len(out.Content) <= p.cfg.MaxChars {
		return out
	}

	out.Content = Truncate(out.Content, p.cfg.MaxChars)
	out.Truncated = true
	if out.AgentHint == "" && p.cfg.IncludeHints {
		out.AgentHint = fmt.Sprintf(
			"⚠️ Output truncated to %d chars. Use pagination or filters to get more specific results.",
			p.cfg.MaxChars)
	}
	return out
}

// paginationHint tells the agent how much was hidden and how to get more.
func (p *Pipeline) paginationHint(kind string, total, included int, toolName string) string {
	remaining := total - included

	toolHint := ""
	if toolName != "" {
		toolHint = fmt.Sprintf(" Use `%s` with offset=%d.", toolName, included)
	}

	return fmt.Sprintf(
		"📊 Showing %d/%d %s. %d more available.%s You can use `offset` and `limit` parameters for pagination.",
		included, total, kind, remaining, toolHint)
}
