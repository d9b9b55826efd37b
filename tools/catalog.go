package tools

import "github.com/devboy-tools/devboy/protocol"

// Tool name constants. These are the server's public operation surface.
const (
	ToolGetIssues                  = "get_issues"
	ToolGetIssue                   = "get_issue"
	ToolGetIssueComments           = "get_issue_comments"
	ToolCreateIssue                = "create_issue"
	ToolUpdateIssue                = "update_issue"
	ToolAddIssueComment            = "add_issue_comment"
	ToolGetMergeRequests           = "get_merge_requests"
	ToolGetMergeRequest            = "get_merge_request"
	ToolGetMergeRequestDiscussions = "get_merge_request_discussions"
	ToolGetMergeRequestDiffs       = "get_merge_request_diffs"
	ToolCreateMergeRequestComment  = "create_merge_request_comment"
)

func intPtr(v int) *int { return &v }

var formatProperty = protocol.PropertyDetail{
	Type:        "string",
	Enum:        []string{"markdown", "compact", "json"},
	Description: "Output format (default: markdown)",
}

var keyProperty = protocol.PropertyDetail{
	Type:        "string",
	Description: "Entity key with provider namespace (e.g. gh#123, gitlab#456)",
}

var limitProperty = protocol.PropertyDetail{
	Type:        "integer",
	Description: "Maximum number of results (default: 20)",
	Minimum:     intPtr(1),
	Maximum:     intPtr(100),
}

var offsetProperty = protocol.PropertyDetail{
	Type:        "integer",
	Description: "Number of results to skip for pagination (default: 0)",
	Minimum:     intPtr(0),
}

var labelsProperty = protocol.PropertyDetail{
	Type:        "array",
	Items:       &protocol.PropertyDetail{Type: "string"},
	Description: "Filter by label names",
}

var providerProperty = protocol.PropertyDetail{
	Type:        "string",
	Description: "Provider to use (e.g. github, gitlab); defaults to the first configured provider",
}

// catalog is built once at package init and exposed verbatim via tools/list.
var catalog = []protocol.Tool{
	{
		Name:        ToolGetIssues,
		Description: "Get issues from configured providers (GitHub, GitLab)",
		InputSchema: protocol.ToolInputSchema{
			Type: "object",
			Properties: map[string]protocol.PropertyDetail{
				"state": {
					Type:        "string",
					Enum:        []string{"open", "closed", "all"},
					Description: "Filter by issue state (default: open)",
				},
				"search": {
					Type:        "string",
					Description: "Search query for title and description",
				},
				"labels": labelsProperty,
				"assignee": {
					Type:        "string",
					Description: "Filter by assignee username",
				},
				"limit":  limitProperty,
				"offset": offsetProperty,
				"format": formatProperty,
			},
		},
	},
	{
		Name:        ToolGetIssue,
		Description: "Get a single issue by key",
		InputSchema: protocol.ToolInputSchema{
			Type: "object",
			Properties: map[string]protocol.PropertyDetail{
				"key":    keyProperty,
				"format": formatProperty,
			},
			Required: []string{"key"},
		},
	},
	{
		Name:        ToolGetIssueComments,
		Description: "Get the comments on an issue",
		InputSchema: protocol.ToolInputSchema{
			Type: "object",
			Properties: map[string]protocol.PropertyDetail{
				"key":    keyProperty,
				"limit":  limitProperty,
				"format": formatProperty,
			},
			Required: []string{"key"},
		},
	},
	{
		Name:        ToolCreateIssue,
		Description: "Create a new issue",
		InputSchema: protocol.ToolInputSchema{
			Type: "object",
			Properties: map[string]protocol.PropertyDetail{
				"title": {
					Type:        "string",
					Description: "Issue title",
				},
				"description": {
					Type:        "string",
					Description: "Issue description body",
				},
				"labels": {
					Type:        "array",
					Items:       &protocol.PropertyDetail{Type: "string"},
					Description: "Labels to apply",
				},
				"assignees": {
					Type:        "array",
					Items:       &protocol.PropertyDetail{Type: "string"},
					Description: "Usernames to assign",
				},
				"provider": providerProperty,
			},
			Required: []string{"title"},
		},
	},
	{
		Name:        ToolUpdateIssue,
		Description: "Update an existing issue",
		InputSchema: protocol.ToolInputSchema{
			Type: "object",
			Properties: map[string]protocol.PropertyDetail{
				"key": keyProperty,
				"title": {
					Type:        "string",
					Description: "New title",
				},
				"description": {
					Type:        "string",
					Description: "New description body",
				},
				"state": {
					Type:        "string",
					Enum:        []string{"open", "closed"},
					Description: "New state",
				},
				"labels": {
					Type:        "array",
					Items:       &protocol.PropertyDetail{Type: "string"},
					Description: "Replacement label set",
				},
				"assignees": {
					Type:        "array",
					Items:       &protocol.PropertyDetail{Type: "string"},
					Description: "Replacement assignee set",
				},
				"provider": providerProperty,
			},
			Required: []string{"key"},
		},
	},
	{
		Name:        ToolAddIssueComment,
		Description: "Add a comment to an issue",
		InputSchema: protocol.ToolInputSchema{
			Type: "object",
			Properties: map[string]protocol.PropertyDetail{
				"key": keyProperty,
				"body": {
					Type:        "string",
					Description: "Comment body",
				},
				"provider": providerProperty,
			},
			Required: []string{"key", "body"},
		},
	},
	{
		Name:        ToolGetMergeRequests,
		Description: "Get merge requests / pull requests from configured providers",
		InputSchema: protocol.ToolInputSchema{
			Type: "object",
			Properties: map[string]protocol.PropertyDetail{
				"state": {
					Type:        "string",
					Enum:        []string{"open", "closed", "merged", "all"},
					Description: "Filter by MR/PR state (default: open)",
				},
				"author": {
					Type:        "string",
					Description: "Filter by author username",
				},
				"labels": labelsProperty,
				"limit":  limitProperty,
				"offset": offsetProperty,
				"format": formatProperty,
			},
		},
	},
	{
		Name:        ToolGetMergeRequest,
		Description: "Get a single merge request / pull request by key",
		InputSchema: protocol.ToolInputSchema{
			Type: "object",
			Properties: map[string]protocol.PropertyDetail{
				"key":    keyProperty,
				"format": formatProperty,
			},
			Required: []string{"key"},
		},
	},
	{
		Name:        ToolGetMergeRequestDiscussions,
		Description: "Get the review discussions on a merge request",
		InputSchema: protocol.ToolInputSchema{
			Type: "object",
			Properties: map[string]protocol.PropertyDetail{
				"key":    keyProperty,
				"format": formatProperty,
			},
			Required: []string{"key"},
		},
	},
	{
		Name:        ToolGetMergeRequestDiffs,
		Description: "Get the per-file diffs of a merge request",
		InputSchema: protocol.ToolInputSchema{
			Type: "object",
			Properties: map[string]protocol.PropertyDetail{
				"key":    keyProperty,
				"limit":  limitProperty,
				"offset": offsetProperty,
				"format": formatProperty,
			},
			Required: []string{"key"},
		},
	},
	{
		Name:        ToolCreateMergeRequestComment,
		Description: "Add a comment to a merge request, optionally anchored to a file and line",
		InputSchema: protocol.ToolInputSchema{
			Type: "object",
			Properties: map[string]protocol.PropertyDetail{
				"key": keyProperty,
				"body": {
					Type:        "string",
					Description: "Comment body",
				},
				"file_path": {
					Type:        "string",
					Description: "File to anchor a review comment to; omit for a general comment",
				},
				"line": {
					Type:        "integer",
					Description: "Line number in the file (default: 1)",
					Minimum:     intPtr(1),
				},
				"line_type": {
					Type:        "string",
					Enum:        []string{"new", "old"},
					Description: "Side of the diff the line refers to (default: new)",
				},
				"provider": providerProperty,
			},
			Required: []string{"key", "body"},
		},
	},
}

// Catalog returns the static tool definitions exposed via tools/list.
func Catalog() []protocol.Tool {
	return catalog
}
