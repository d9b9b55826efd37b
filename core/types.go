// Package core provides the foundational types, the provider interface, and
// error handling shared across all devboy components.
package core

// User represents a user from an issue tracker or git hosting service.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Issue is the unified issue representation.
//
// Key is namespaced per provider ("gh#123", "gitlab#456", "CU-abc") so keys
// from different providers can coexist in one result set.
type Issue struct {
	Key         string   `json:"key"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	State       string   `json:"state"`
	Source      string   `json:"source"`
	Priority    string   `json:"priority,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	Author      *User    `json:"author,omitempty"`
	Assignees   []User   `json:"assignees,omitempty"`
	URL         string   `json:"url,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
}

// MergeRequest is the unified merge request / pull request representation.
type MergeRequest struct {
	Key          string   `json:"key"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	State        string   `json:"state"`
	Source       string   `json:"source"`
	SourceBranch string   `json:"source_branch"`
	TargetBranch string   `json:"target_branch"`
	Author       *User    `json:"author,omitempty"`
	Assignees    []User   `json:"assignees,omitempty"`
	Reviewers    []User   `json:"reviewers,omitempty"`
	Labels       []string `json:"labels,omitempty"`
	Draft        bool     `json:"draft,omitempty"`
	URL          string   `json:"url,omitempty"`
	CreatedAt    string   `json:"created_at,omitempty"`
	UpdatedAt    string   `json:"updated_at,omitempty"`
}

// CodePosition anchors a comment to a file and line in a diff.
type CodePosition struct {
	FilePath  string `json:"file_path"`
	Line      int    `json:"line"`
	LineType  string `json:"line_type"` // "new" or "old"
	CommitSHA string `json:"commit_sha,omitempty"`
}

// Comment represents a comment on an issue or merge request.
type Comment struct {
	ID        string        `json:"id"`
	Body      string        `json:"body"`
	Author    *User         `json:"author,omitempty"`
	CreatedAt string        `json:"created_at,omitempty"`
	UpdatedAt string        `json:"updated_at,omitempty"`
	Position  *CodePosition `json:"position,omitempty"`
}

// Discussion is a threaded review conversation on a merge request.
type Discussion struct {
	ID         string        `json:"id"`
	Resolved   bool          `json:"resolved"`
	ResolvedBy *User         `json:"resolved_by,omitempty"`
	Comments   []Comment     `json:"comments"`
	Position   *CodePosition `json:"position,omitempty"`
}

// FileDiff represents the change to a single file in a merge request.
type FileDiff struct {
	FilePath    string `json:"file_path"`
	OldPath     string `json:"old_path,omitempty"`
	NewFile     bool   `json:"new_file,omitempty"`
	DeletedFile bool   `json:"deleted_file,omitempty"`
	RenamedFile bool   `json:"renamed_file,omitempty"`
	Diff        string `json:"diff"`
	Additions   *int   `json:"additions,omitempty"`
	Deletions   *int   `json:"deletions,omitempty"`
}
