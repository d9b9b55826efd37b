package github

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/devboy-tools/devboy/core"
)

// Wire representations of the GitHub REST v3 payloads this client touches.
// Only the consumed fields are declared.

type ghUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type ghLabel struct {
	Name string `json:"name"`
}

type ghIssue struct {
	Number      int       `json:"number"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	State       string    `json:"state"`
	Labels      []ghLabel `json:"labels"`
	User        *ghUser   `json:"user"`
	Assignees   []ghUser  `json:"assignees"`
	HTMLURL     string    `json:"html_url"`
	CreatedAt   string    `json:"created_at"`
	UpdatedAt   string    `json:"updated_at"`
	PullRequest *struct{} `json:"pull_request,omitempty"`
}

type ghBranchRef struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

type ghPull struct {
	Number             int         `json:"number"`
	Title              string      `json:"title"`
	Body               string      `json:"body"`
	State              string      `json:"state"`
	Draft              bool        `json:"draft"`
	MergedAt           string      `json:"merged_at"`
	Head               ghBranchRef `json:"head"`
	Base               ghBranchRef `json:"base"`
	User               *ghUser     `json:"user"`
	Assignees          []ghUser    `json:"assignees"`
	RequestedReviewers []ghUser    `json:"requested_reviewers"`
	Labels             []ghLabel   `json:"labels"`
	HTMLURL            string      `json:"html_url"`
	CreatedAt          string      `json:"created_at"`
	UpdatedAt          string      `json:"updated_at"`
}

type ghComment struct {
	ID        int64   `json:"id"`
	Body      string  `json:"body"`
	User      *ghUser `json:"user"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type ghReviewComment struct {
	ID               int64   `json:"id"`
	Body             string  `json:"body"`
	User             *ghUser `json:"user"`
	Path             string  `json:"path"`
	Line             int     `json:"line"`
	Side             string  `json:"side"`
	CommitID         string  `json:"commit_id"`
	OriginalCommitID string  `json:"original_commit_id"`
	InReplyToID      int64   `json:"in_reply_to_id"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

type ghReview struct {
	ID          int64   `json:"id"`
	Body        string  `json:"body"`
	State       string  `json:"state"`
	User        *ghUser `json:"user"`
	SubmittedAt string  `json:"submitted_at"`
}

type ghFile struct {
	Filename         string `json:"filename"`
	PreviousFilename string `json:"previous_filename"`
	Status           string `json:"status"`
	Patch            string `json:"patch"`
	Additions        int    `json:"additions"`
	Deletions        int    `json:"deletions"`
}

type createIssueRequest struct {
	Title     string   `json:"title"`
	Body      string   `json:"body,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	Assignees []string `json:"assignees,omitempty"`
}

type updateIssueRequest struct {
	Title     *string  `json:"title,omitempty"`
	Body      *string  `json:"body,omitempty"`
	State     *string  `json:"state,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	Assignees []string `json:"assignees,omitempty"`
}

type createCommentRequest struct {
	Body string `json:"body"`
}

type createReviewCommentRequest struct {
	Body      string `json:"body"`
	CommitID  string `json:"commit_id"`
	Path      string `json:"path"`
	Line      int    `json:"line"`
	Side      string `json:"side"`
	InReplyTo int64  `json:"in_reply_to,omitempty"`
}

// --- Mapping to core types ---

func mapUser(u *ghUser) *core.User {
	if u == nil {
		return nil
	}
	return &core.User{
		ID:        strconv.FormatInt(u.ID, 10),
		Username:  u.Login,
		Name:      u.Name,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
	}
}

func mapUsers(users []ghUser) []core.User {
	if len(users) == 0 {
		return nil
	}
	out := make([]core.User, 0, len(users))
	for i := range users {
		out = append(out, *mapUser(&users[i]))
	}
	return out
}

func mapLabels(labels []ghLabel) []string {
	if len(labels) == 0 {
		return nil
	}
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		out = append(out, l.Name)
	}
	return out
}

func mapIssue(issue *ghIssue) core.Issue {
	return core.Issue{
		Key:         issueKey(issue.Number),
		Title:       issue.Title,
		Description: issue.Body,
		State:       issue.State,
		Source:      providerName,
		Labels:      mapLabels(issue.Labels),
		Author:      mapUser(issue.User),
		Assignees:   mapUsers(issue.Assignees),
		URL:         issue.HTMLURL,
		CreatedAt:   issue.CreatedAt,
		UpdatedAt:   issue.UpdatedAt,
	}
}

func mapPull(pr *ghPull) core.MergeRequest {
	state := pr.State
	if pr.MergedAt != "" {
		state = "merged"
	}
	return core.MergeRequest{
		Key:          prKey(pr.Number),
		Title:        pr.Title,
		Description:  pr.Body,
		State:        state,
		Source:       providerName,
		SourceBranch: pr.Head.Ref,
		TargetBranch: pr.Base.Ref,
		Author:       mapUser(pr.User),
		Assignees:    mapUsers(pr.Assignees),
		Reviewers:    mapUsers(pr.RequestedReviewers),
		Labels:       mapLabels(pr.Labels),
		Draft:        pr.Draft,
		URL:          pr.HTMLURL,
		CreatedAt:    pr.CreatedAt,
		UpdatedAt:    pr.UpdatedAt,
	}
}

func mapComment(c *ghComment) core.Comment {
	return core.Comment{
		ID:        strconv.FormatInt(c.ID, 10),
		Body:      c.Body,
		Author:    mapUser(c.User),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func mapReviewComment(c *ghReviewComment) core.Comment {
	lineType := "new"
	if c.Side == "LEFT" {
		lineType = "old"
	}
	commitSHA := c.CommitID
	if commitSHA == "" {
		commitSHA = c.OriginalCommitID
	}
	return core.Comment{
		ID:        strconv.FormatInt(c.ID, 10),
		Body:      c.Body,
		Author:    mapUser(c.User),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Position: &core.CodePosition{
			FilePath:  c.Path,
			Line:      c.Line,
			LineType:  lineType,
			CommitSHA: commitSHA,
		},
	}
}

func mapFile(f *ghFile) core.FileDiff {
	additions := f.Additions
	deletions := f.Deletions
	return core.FileDiff{
		FilePath:    f.Filename,
		OldPath:     f.PreviousFilename,
		NewFile:     f.Status == "added",
		DeletedFile: f.Status == "removed",
		RenamedFile: f.Status == "renamed",
		Diff:        f.Patch,
		Additions:   &additions,
		Deletions:   &deletions,
	}
}

// --- Key helpers ---

func issueKey(number int) string {
	return fmt.Sprintf("gh#%d", number)
}

func prKey(number int) string {
	return fmt.Sprintf("pr#%d", number)
}

// parseKey extracts the numeric part of a namespaced key like "gh#123".
func parseKey(prefix, key string) (int, error) {
	rest, ok := strings.CutPrefix(key, prefix)
	if !ok {
		return 0, core.InvalidKeyError(key)
	}
	number, err := strconv.Atoi(rest)
	if err != nil || number <= 0 {
		return 0, core.InvalidKeyError(key)
	}
	return number, nil
}
