package core

// IssueFilter narrows an issue listing. Zero values mean "no constraint";
// providers translate the fields into their native query parameters.
type IssueFilter struct {
	State    string
	Search   string
	Labels   []string
	Assignee string
	Limit    int
	Offset   int
}

// MrFilter narrows a merge request listing.
type MrFilter struct {
	State  string
	Author string
	Labels []string
	Limit  int
	Offset int
}

// CreateIssueInput carries the fields for creating an issue.
type CreateIssueInput struct {
	Title       string
	Description string
	Labels      []string
	Assignees   []string
}

// UpdateIssueInput carries the fields for updating an issue.
// Nil pointers mean "leave unchanged".
type UpdateIssueInput struct {
	Title       *string
	Description *string
	State       *string
	Labels      []string
	Assignees   []string
}

// CreateCommentInput carries the fields for a new merge request comment.
// Position is nil for general comments; set, it makes a review comment.
type CreateCommentInput struct {
	Body         string
	Position     *CodePosition
	DiscussionID string
}
