// Package github implements the core.Provider interface against the GitHub
// REST API, scoped to a single repository. Issues use gh#N keys, pull
// requests pr#N.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/devboy-tools/devboy/core"
	"github.com/devboy-tools/devboy/logx"
	"github.com/devboy-tools/devboy/types"
)

const (
	providerName   = "github"
	defaultBaseURL = "https://api.github.com"
	apiVersion     = "2022-11-28"
)

// Client talks to one repository on one GitHub instance.
type Client struct {
	httpClient *http.Client
	baseURL    string
	owner      string
	repo       string
	token      string
	logger     types.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a GitHub Enterprise instance.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger types.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for owner/repo authenticated with token.
func New(owner, repo, token string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		owner:      owner,
		repo:       repo,
		token:      token,
		logger:     logx.NewDefaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string {
	return providerName
}

func (c *Client) repoURL(endpoint string) string {
	return fmt.Sprintf("%s/repos/%s/%s%s", c.baseURL, c.owner, c.repo, endpoint)
}

// do performs one API call. A non-nil body is sent as JSON; the response
// body is decoded into out when out is non-nil. Non-2xx statuses become
// *core.APIError.
func (c *Client) do(ctx context.Context, method, rawURL string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("github: %s %s", method, rawURL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("github request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode github response: %w", err)
	}
	return nil
}

// apiError extracts the API "message" field when present.
func apiError(resp *http.Response) error {
	message := resp.Status
	var payload struct {
		Message string `json:"message"`
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && json.Unmarshal(data, &payload) == nil && payload.Message != "" {
		message = payload.Message
	}
	return &core.APIError{Status: resp.StatusCode, Message: message}
}

func (c *Client) ListIssues(ctx context.Context, filter core.IssueFilter) ([]core.Issue, error) {
	query := url.Values{}
	switch filter.State {
	case "", "open", "opened":
		query.Set("state", "open")
	case "closed":
		query.Set("state", "closed")
	case "all":
		query.Set("state", "all")
	default:
		query.Set("state", "open")
	}
	if len(filter.Labels) > 0 {
		query.Set("labels", strings.Join(filter.Labels, ","))
	}
	if filter.Assignee != "" {
		query.Set("assignee", filter.Assignee)
	}
	perPage := filter.Limit
	if perPage <= 0 || perPage > 100 {
		perPage = 100
	}
	query.Set("per_page", strconv.Itoa(perPage))
	skip := 0
	if filter.Offset > 0 {
		// GitHub paginates by page number; offsets that fall inside a
		// page are skipped client-side after the fetch.
		query.Set("page", strconv.Itoa(filter.Offset/perPage+1))
		skip = filter.Offset % perPage
	}

	var ghIssues []ghIssue
	if err := c.do(ctx, http.MethodGet, c.repoURL("/issues")+"?"+query.Encode(), nil, &ghIssues); err != nil {
		return nil, err
	}
	if skip >= len(ghIssues) {
		return []core.Issue{}, nil
	}
	ghIssues = ghIssues[skip:]

	issues := make([]core.Issue, 0, len(ghIssues))
	for i := range ghIssues {
		// The issues endpoint also returns pull requests.
		if ghIssues[i].PullRequest != nil {
			continue
		}
		issue := mapIssue(&ghIssues[i])
		if filter.Search != "" && !matchesSearch(issue, filter.Search) {
			continue
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

// matchesSearch is a client-side fallback: the plain issues endpoint has no
// free-text search parameter.
func matchesSearch(issue core.Issue, search string) bool {
	search = strings.ToLower(search)
	return strings.Contains(strings.ToLower(issue.Title), search) ||
		strings.Contains(strings.ToLower(issue.Description), search)
}

func (c *Client) GetIssue(ctx context.Context, key string) (*core.Issue, error) {
	number, err := parseKey("gh#", key)
	if err != nil {
		return nil, err
	}
	var issue ghIssue
	if err := c.do(ctx, http.MethodGet, c.repoURL(fmt.Sprintf("/issues/%d", number)), nil, &issue); err != nil {
		return nil, err
	}
	if issue.PullRequest != nil {
		return nil, fmt.Errorf("%s is a pull request, not an issue", key)
	}
	mapped := mapIssue(&issue)
	return &mapped, nil
}

func (c *Client) CreateIssue(ctx context.Context, input core.CreateIssueInput) (*core.Issue, error) {
	req := createIssueRequest{
		Title:     input.Title,
		Body:      input.Description,
		Labels:    input.Labels,
		Assignees: input.Assignees,
	}
	var issue ghIssue
	if err := c.do(ctx, http.MethodPost, c.repoURL("/issues"), req, &issue); err != nil {
		return nil, err
	}
	mapped := mapIssue(&issue)
	return &mapped, nil
}

func (c *Client) UpdateIssue(ctx context.Context, key string, input core.UpdateIssueInput) (*core.Issue, error) {
	number, err := parseKey("gh#", key)
	if err != nil {
		return nil, err
	}
	req := updateIssueRequest{
		Title:     input.Title,
		Body:      input.Description,
		State:     input.State,
		Labels:    input.Labels,
		Assignees: input.Assignees,
	}
	var issue ghIssue
	if err := c.do(ctx, http.MethodPatch, c.repoURL(fmt.Sprintf("/issues/%d", number)), req, &issue); err != nil {
		return nil, err
	}
	mapped := mapIssue(&issue)
	return &mapped, nil
}

func (c *Client) ListIssueComments(ctx context.Context, key string) ([]core.Comment, error) {
	number, err := parseKey("gh#", key)
	if err != nil {
		return nil, err
	}
	var ghComments []ghComment
	if err := c.do(ctx, http.MethodGet, c.repoURL(fmt.Sprintf("/issues/%d/comments", number)), nil, &ghComments); err != nil {
		return nil, err
	}
	comments := make([]core.Comment, 0, len(ghComments))
	for i := range ghComments {
		comments = append(comments, mapComment(&ghComments[i]))
	}
	return comments, nil
}

func (c *Client) AddIssueComment(ctx context.Context, key, body string) (*core.Comment, error) {
	number, err := parseKey("gh#", key)
	if err != nil {
		return nil, err
	}
	var comment ghComment
	err = c.do(ctx, http.MethodPost, c.repoURL(fmt.Sprintf("/issues/%d/comments", number)),
		createCommentRequest{Body: body}, &comment)
	if err != nil {
		return nil, err
	}
	mapped := mapComment(&comment)
	return &mapped, nil
}

func (c *Client) ListMergeRequests(ctx context.Context, filter core.MrFilter) ([]core.MergeRequest, error) {
	query := url.Values{}
	mergedOnly := false
	switch filter.State {
	case "", "open", "opened":
		query.Set("state", "open")
	case "closed":
		query.Set("state", "closed")
	case "merged":
		// No native merged filter; fetch closed and keep merged ones.
		query.Set("state", "closed")
		mergedOnly = true
	case "all":
		query.Set("state", "all")
	default:
		query.Set("state", "open")
	}
	perPage := filter.Limit
	if perPage <= 0 || perPage > 100 {
		perPage = 100
	}
	query.Set("per_page", strconv.Itoa(perPage))
	skip := 0
	if filter.Offset > 0 {
		query.Set("page", strconv.Itoa(filter.Offset/perPage+1))
		skip = filter.Offset % perPage
	}

	var pulls []ghPull
	if err := c.do(ctx, http.MethodGet, c.repoURL("/pulls")+"?"+query.Encode(), nil, &pulls); err != nil {
		return nil, err
	}
	if skip >= len(pulls) {
		return []core.MergeRequest{}, nil
	}
	pulls = pulls[skip:]

	mrs := make([]core.MergeRequest, 0, len(pulls))
	for i := range pulls {
		mr := mapPull(&pulls[i])
		if mergedOnly && mr.State != "merged" {
			continue
		}
		// Author and label filters are applied client-side, the pulls
		// endpoint accepts neither.
		if filter.Author != "" && (mr.Author == nil || mr.Author.Username != filter.Author) {
			continue
		}
		if !hasAllLabels(mr.Labels, filter.Labels) {
			continue
		}
		mrs = append(mrs, mr)
	}
	return mrs, nil
}

func hasAllLabels(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (c *Client) GetMergeRequest(ctx context.Context, key string) (*core.MergeRequest, error) {
	number, err := parseKey("pr#", key)
	if err != nil {
		return nil, err
	}
	var pull ghPull
	if err := c.do(ctx, http.MethodGet, c.repoURL(fmt.Sprintf("/pulls/%d", number)), nil, &pull); err != nil {
		return nil, err
	}
	mapped := mapPull(&pull)
	return &mapped, nil
}

// ListDiscussions merges three sources into one thread list: review
// comment threads, review summaries, and general PR comments. GitHub has
// no resolved flag on review threads via REST, so Resolved stays false.
func (c *Client) ListDiscussions(ctx context.Context, key string) ([]core.Discussion, error) {
	number, err := parseKey("pr#", key)
	if err != nil {
		return nil, err
	}

	var reviews []ghReview
	if err := c.do(ctx, http.MethodGet, c.repoURL(fmt.Sprintf("/pulls/%d/reviews", number)), nil, &reviews); err != nil {
		return nil, err
	}
	var reviewComments []ghReviewComment
	if err := c.do(ctx, http.MethodGet, c.repoURL(fmt.Sprintf("/pulls/%d/comments", number)), nil, &reviewComments); err != nil {
		return nil, err
	}
	var issueComments []ghComment
	if err := c.do(ctx, http.MethodGet, c.repoURL(fmt.Sprintf("/issues/%d/comments", number)), nil, &issueComments); err != nil {
		return nil, err
	}

	var discussions []core.Discussion

	// Review comments group into threads rooted at the first comment.
	threadOrder := make([]int64, 0)
	threads := make(map[int64][]core.Comment)
	for i := range reviewComments {
		rc := &reviewComments[i]
		root := rc.InReplyToID
		if root == 0 {
			root = rc.ID
		}
		if _, seen := threads[root]; !seen {
			threadOrder = append(threadOrder, root)
		}
		threads[root] = append(threads[root], mapReviewComment(rc))
	}
	for _, root := range threadOrder {
		comments := threads[root]
		var position *core.CodePosition
		if len(comments) > 0 {
			position = comments[0].Position
		}
		discussions = append(discussions, core.Discussion{
			ID:       strconv.FormatInt(root, 10),
			Comments: comments,
			Position: position,
		})
	}

	// Review submissions with a body become their own discussions.
	for i := range reviews {
		review := &reviews[i]
		if review.Body == "" {
			continue
		}
		discussions = append(discussions, core.Discussion{
			ID: fmt.Sprintf("review-%d", review.ID),
			Comments: []core.Comment{{
				ID:        strconv.FormatInt(review.ID, 10),
				Body:      review.Body,
				Author:    mapUser(review.User),
				CreatedAt: review.SubmittedAt,
			}},
		})
	}

	// General PR comments are single-comment discussions.
	for i := range issueComments {
		comment := mapComment(&issueComments[i])
		discussions = append(discussions, core.Discussion{
			ID:       comment.ID,
			Comments: []core.Comment{comment},
		})
	}

	return discussions, nil
}

func (c *Client) ListDiffs(ctx context.Context, key string) ([]core.FileDiff, error) {
	number, err := parseKey("pr#", key)
	if err != nil {
		return nil, err
	}
	var files []ghFile
	if err := c.do(ctx, http.MethodGet, c.repoURL(fmt.Sprintf("/pulls/%d/files", number)), nil, &files); err != nil {
		return nil, err
	}
	diffs := make([]core.FileDiff, 0, len(files))
	for i := range files {
		diffs = append(diffs, mapFile(&files[i]))
	}
	return diffs, nil
}

func (c *Client) AddMergeRequestComment(ctx context.Context, key string, input core.CreateCommentInput) (*core.Comment, error) {
	number, err := parseKey("pr#", key)
	if err != nil {
		return nil, err
	}

	// Fetching the PR both validates the key and supplies the head SHA
	// for positioned comments without an explicit commit.
	var pull ghPull
	if err := c.do(ctx, http.MethodGet, c.repoURL(fmt.Sprintf("/pulls/%d", number)), nil, &pull); err != nil {
		if core.IsNotFound(err) {
			return nil, fmt.Errorf("%s is not a pull request: %w", key, err)
		}
		return nil, err
	}

	if input.Position != nil {
		commitSHA := input.Position.CommitSHA
		if commitSHA == "" {
			commitSHA = pull.Head.SHA
		}
		side := "RIGHT"
		if input.Position.LineType == "old" {
			side = "LEFT"
		}
		req := createReviewCommentRequest{
			Body:     input.Body,
			CommitID: commitSHA,
			Path:     input.Position.FilePath,
			Line:     input.Position.Line,
			Side:     side,
		}
		if input.DiscussionID != "" {
			if replyTo, err := strconv.ParseInt(input.DiscussionID, 10, 64); err == nil {
				req.InReplyTo = replyTo
			}
		}
		var comment ghReviewComment
		if err := c.do(ctx, http.MethodPost, c.repoURL(fmt.Sprintf("/pulls/%d/comments", number)), req, &comment); err != nil {
			return nil, err
		}
		mapped := mapReviewComment(&comment)
		return &mapped, nil
	}

	// General comments go through the issues endpoint.
	var comment ghComment
	err = c.do(ctx, http.MethodPost, c.repoURL(fmt.Sprintf("/issues/%d/comments", number)),
		createCommentRequest{Body: input.Body}, &comment)
	if err != nil {
		return nil, err
	}
	mapped := mapComment(&comment)
	return &mapped, nil
}

func (c *Client) CurrentUser(ctx context.Context) (*core.User, error) {
	var user ghUser
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/user", nil, &user); err != nil {
		return nil, err
	}
	return mapUser(&user), nil
}

var _ core.Provider = (*Client)(nil)
