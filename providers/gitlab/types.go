package gitlab

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/devboy-tools/devboy/core"
)

// Wire representations of the GitLab REST v4 payloads this client touches.

type glUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

type glIssue struct {
	IID         int      `json:"iid"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	State       string   `json:"state"`
	Labels      []string `json:"labels"`
	Author      *glUser  `json:"author"`
	Assignees   []glUser `json:"assignees"`
	WebURL      string   `json:"web_url"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

type glDiffRefs struct {
	BaseSHA  string `json:"base_sha"`
	StartSHA string `json:"start_sha"`
	HeadSHA  string `json:"head_sha"`
}

type glMergeRequest struct {
	IID          int         `json:"iid"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	State        string      `json:"state"`
	SourceBranch string      `json:"source_branch"`
	TargetBranch string      `json:"target_branch"`
	Draft        bool        `json:"draft"`
	Labels       []string    `json:"labels"`
	Author       *glUser     `json:"author"`
	Assignees    []glUser    `json:"assignees"`
	Reviewers    []glUser    `json:"reviewers"`
	DiffRefs     *glDiffRefs `json:"diff_refs"`
	WebURL       string      `json:"web_url"`
	CreatedAt    string      `json:"created_at"`
	UpdatedAt    string      `json:"updated_at"`
}

type glNotePosition struct {
	NewPath string `json:"new_path"`
	OldPath string `json:"old_path"`
	NewLine *int   `json:"new_line"`
	OldLine *int   `json:"old_line"`
	HeadSHA string `json:"head_sha"`
}

type glNote struct {
	ID         int64           `json:"id"`
	Body       string          `json:"body"`
	System     bool            `json:"system"`
	Resolvable bool            `json:"resolvable"`
	Resolved   bool            `json:"resolved"`
	ResolvedBy *glUser         `json:"resolved_by"`
	Author     *glUser         `json:"author"`
	Position   *glNotePosition `json:"position"`
	CreatedAt  string          `json:"created_at"`
	UpdatedAt  string          `json:"updated_at"`
}

type glDiscussion struct {
	ID    string   `json:"id"`
	Notes []glNote `json:"notes"`
}

type glDiff struct {
	OldPath     string `json:"old_path"`
	NewPath     string `json:"new_path"`
	NewFile     bool   `json:"new_file"`
	RenamedFile bool   `json:"renamed_file"`
	DeletedFile bool   `json:"deleted_file"`
	Diff        string `json:"diff"`
}

type glChanges struct {
	Changes []glDiff `json:"changes"`
}

type createIssueRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Labels      string `json:"labels,omitempty"`
}

type updateIssueRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	StateEvent  *string `json:"state_event,omitempty"`
	Labels      *string `json:"labels,omitempty"`
}

type createNoteRequest struct {
	Body string `json:"body"`
}

type discussionPosition struct {
	PositionType string `json:"position_type"`
	BaseSHA      string `json:"base_sha"`
	StartSHA     string `json:"start_sha"`
	HeadSHA      string `json:"head_sha"`
	NewPath      string `json:"new_path,omitempty"`
	OldPath      string `json:"old_path,omitempty"`
	NewLine      *int   `json:"new_line,omitempty"`
	OldLine      *int   `json:"old_line,omitempty"`
}

type createDiscussionRequest struct {
	Body     string              `json:"body"`
	Position *discussionPosition `json:"position,omitempty"`
}

// --- Mapping to core types ---

func mapUser(u *glUser) *core.User {
	if u == nil {
		return nil
	}
	return &core.User{
		ID:        strconv.FormatInt(u.ID, 10),
		Username:  u.Username,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
	}
}

func mapUsers(users []glUser) []core.User {
	if len(users) == 0 {
		return nil
	}
	out := make([]core.User, 0, len(users))
	for i := range users {
		out = append(out, *mapUser(&users[i]))
	}
	return out
}

func mapIssue(issue *glIssue) core.Issue {
	return core.Issue{
		Key:         issueKey(issue.IID),
		Title:       issue.Title,
		Description: issue.Description,
		State:       issue.State,
		Source:      providerName,
		Labels:      issue.Labels,
		Author:      mapUser(issue.Author),
		Assignees:   mapUsers(issue.Assignees),
		URL:         issue.WebURL,
		CreatedAt:   issue.CreatedAt,
		UpdatedAt:   issue.UpdatedAt,
	}
}

func mapMergeRequest(mr *glMergeRequest) core.MergeRequest {
	return core.MergeRequest{
		Key:          mrKey(mr.IID),
		Title:        mr.Title,
		Description:  mr.Description,
		State:        mr.State,
		Source:       providerName,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		Author:       mapUser(mr.Author),
		Assignees:    mapUsers(mr.Assignees),
		Reviewers:    mapUsers(mr.Reviewers),
		Labels:       mr.Labels,
		Draft:        mr.Draft,
		URL:          mr.WebURL,
		CreatedAt:    mr.CreatedAt,
		UpdatedAt:    mr.UpdatedAt,
	}
}

func mapNote(note *glNote) core.Comment {
	return core.Comment{
		ID:        strconv.FormatInt(note.ID, 10),
		Body:      note.Body,
		Author:    mapUser(note.Author),
		CreatedAt: note.CreatedAt,
		UpdatedAt: note.UpdatedAt,
		Position:  mapPosition(note.Position),
	}
}

// mapPosition prefers the new-side location and falls back to the old
// side for comments on deleted lines.
func mapPosition(p *glNotePosition) *core.CodePosition {
	if p == nil {
		return nil
	}
	switch {
	case p.NewLine != nil:
		path := p.NewPath
		if path == "" {
			path = p.OldPath
		}
		return &core.CodePosition{FilePath: path, Line: *p.NewLine, LineType: "new", CommitSHA: p.HeadSHA}
	case p.OldLine != nil:
		path := p.OldPath
		if path == "" {
			path = p.NewPath
		}
		return &core.CodePosition{FilePath: path, Line: *p.OldLine, LineType: "old", CommitSHA: p.HeadSHA}
	default:
		return nil
	}
}

// mapDiscussion drops system notes; a discussion of only system notes maps
// to an empty comment list and is filtered by the caller.
func mapDiscussion(d *glDiscussion) core.Discussion {
	var comments []core.Comment
	var resolved bool
	var resolvedBy *core.User
	for i := range d.Notes {
		note := &d.Notes[i]
		if note.System {
			continue
		}
		if note.Resolvable && resolvedBy == nil {
			resolved = note.Resolved
			resolvedBy = mapUser(note.ResolvedBy)
		}
		comments = append(comments, mapNote(note))
	}
	var position *core.CodePosition
	if len(comments) > 0 {
		position = comments[0].Position
	}
	return core.Discussion{
		ID:         d.ID,
		Resolved:   resolved,
		ResolvedBy: resolvedBy,
		Comments:   comments,
		Position:   position,
	}
}

func mapDiff(d *glDiff) core.FileDiff {
	path := d.NewPath
	if path == "" {
		path = d.OldPath
	}
	var oldPath string
	if d.RenamedFile {
		oldPath = d.OldPath
	}
	return core.FileDiff{
		FilePath:    path,
		OldPath:     oldPath,
		NewFile:     d.NewFile,
		DeletedFile: d.DeletedFile,
		RenamedFile: d.RenamedFile,
		Diff:        d.Diff,
	}
}

// --- Key helpers ---

func issueKey(iid int) string {
	return fmt.Sprintf("gitlab#%d", iid)
}

func mrKey(iid int) string {
	return fmt.Sprintf("mr#%d", iid)
}

func parseKey(prefix, key string) (int, error) {
	rest, ok := strings.CutPrefix(key, prefix)
	if !ok {
		return 0, core.InvalidKeyError(key)
	}
	iid, err := strconv.Atoi(rest)
	if err != nil || iid <= 0 {
		return 0, core.InvalidKeyError(key)
	}
	return iid, nil
}
