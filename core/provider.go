package core

import "context"

// Provider is the capability interface every issue tracker / code review
// backend implements. The tool handler holds a slice of these and never
// downcasts; GitHub, GitLab, and test doubles are all substitutable.
//
// Providers self-report a name used for diagnostics and for explicit
// provider selection in mutation tools. They arrive already constructed and
// authenticated; credential handling happens before registration.
type Provider interface {
	// Name returns the provider name (e.g., "github", "gitlab").
	Name() string

	// ListIssues returns issues matching the filter.
	ListIssues(ctx context.Context, filter IssueFilter) ([]Issue, error)

	// GetIssue returns a single issue by its namespaced key.
	GetIssue(ctx context.Context, key string) (*Issue, error)

	// CreateIssue creates a new issue.
	CreateIssue(ctx context.Context, input CreateIssueInput) (*Issue, error)

	// UpdateIssue updates an existing issue.
	UpdateIssue(ctx context.Context, key string, input UpdateIssueInput) (*Issue, error)

	// ListIssueComments returns the comments on an issue.
	ListIssueComments(ctx context.Context, key string) ([]Comment, error)

	// AddIssueComment adds a comment to an issue.
	AddIssueComment(ctx context.Context, key, body string) (*Comment, error)

	// ListMergeRequests returns merge requests matching the filter.
	ListMergeRequests(ctx context.Context, filter MrFilter) ([]MergeRequest, error)

	// GetMergeRequest returns a single merge request by key.
	GetMergeRequest(ctx context.Context, key string) (*MergeRequest, error)

	// ListDiscussions returns the review discussions on a merge request.
	ListDiscussions(ctx context.Context, key string) ([]Discussion, error)

	// ListDiffs returns the per-file diffs of a merge request.
	ListDiffs(ctx context.Context, key string) ([]FileDiff, error)

	// AddMergeRequestComment adds a comment (general or positioned) to a
	// merge request.
	AddMergeRequestComment(ctx context.Context, key string, input CreateCommentInput) (*Comment, error)

	// CurrentUser returns the authenticated user.
	CurrentUser(ctx context.Context) (*User, error)
}
