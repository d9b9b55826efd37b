// Package gitlab implements the core.Provider interface against the GitLab
// REST API v4, scoped to a single project. Issues use gitlab#N keys, merge
// requests mr#N (N is the project-scoped iid).
package gitlab

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
	providerName   = "gitlab"
	defaultBaseURL = "https://gitlab.com"
)

// Client talks to one project on one GitLab instance.
type Client struct {
	httpClient *http.Client
	baseURL    string
	projectID  string
	token      string
	logger     types.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a self-hosted instance.
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

// New creates a client for the given project. projectID is numeric or a
// "group/project" path.
func New(projectID, token string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		projectID:  projectID,
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

func (c *Client) projectURL(endpoint string) string {
	return fmt.Sprintf("%s/api/v4/projects/%s%s", c.baseURL, url.PathEscape(c.projectID), endpoint)
}

func (c *Client) apiURL(endpoint string) string {
	return c.baseURL + "/api/v4" + endpoint
}

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
	req.Header.Set("PRIVATE-TOKEN", c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("gitlab: %s %s", method, rawURL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gitlab request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode gitlab response: %w", err)
	}
	return nil
}

// apiError extracts the "message" or "error" field when present.
func apiError(resp *http.Response) error {
	message := resp.Status
	var payload struct {
		Message interface{} `json:"message"`
		Error   string      `json:"error"`
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && json.Unmarshal(data, &payload) == nil {
		if payload.Message != nil {
			message = fmt.Sprintf("%v", payload.Message)
		} else if payload.Error != "" {
			message = payload.Error
		}
	}
	return &core.APIError{Status: resp.StatusCode, Message: message}
}

func (c *Client) ListIssues(ctx context.Context, filter core.IssueFilter) ([]core.Issue, error) {
	query := url.Values{}
	switch filter.State {
	case "", "open", "opened":
		query.Set("state", "opened")
	case "closed":
		query.Set("state", "closed")
	case "all":
		// No state parameter returns all.
	default:
		query.Set("state", "opened")
	}
	if filter.Search != "" {
		query.Set("search", filter.Search)
	}
	if len(filter.Labels) > 0 {
		query.Set("labels", strings.Join(filter.Labels, ","))
	}
	if filter.Assignee != "" {
		query.Set("assignee_username", filter.Assignee)
	}
	perPage := filter.Limit
	if perPage <= 0 || perPage > 100 {
		perPage = 100
	}
	query.Set("per_page", strconv.Itoa(perPage))
	skip := 0
	if filter.Offset > 0 {
		// The API paginates by page number; mid-page offsets are
		// skipped client-side after the fetch.
		query.Set("page", strconv.Itoa(filter.Offset/perPage+1))
		skip = filter.Offset % perPage
	}

	var glIssues []glIssue
	if err := c.do(ctx, http.MethodGet, c.projectURL("/issues")+"?"+query.Encode(), nil, &glIssues); err != nil {
		return nil, err
	}
	if skip >= len(glIssues) {
		return []core.Issue{}, nil
	}
	glIssues = glIssues[skip:]
	issues := make([]core.Issue, 0, len(glIssues))
	for i := range glIssues {
		issues = append(issues, mapIssue(&glIssues[i]))
	}
	return issues, nil
}

func (c *Client) GetIssue(ctx context.Context, key string) (*core.Issue, error) {
	iid, err := parseKey("gitlab#", key)
	if err != nil {
		return nil, err
	}
	var issue glIssue
	if err := c.do(ctx, http.MethodGet, c.projectURL(fmt.Sprintf("/issues/%d", iid)), nil, &issue); err != nil {
		return nil, err
	}
	mapped := mapIssue(&issue)
	return &mapped, nil
}

func (c *Client) CreateIssue(ctx context.Context, input core.CreateIssueInput) (*core.Issue, error) {
	req := createIssueRequest{
		Title:       input.Title,
		Description: input.Description,
		Labels:      strings.Join(input.Labels, ","),
	}
	var issue glIssue
	if err := c.do(ctx, http.MethodPost, c.projectURL("/issues"), req, &issue); err != nil {
		return nil, err
	}
	mapped := mapIssue(&issue)
	return &mapped, nil
}

func (c *Client) UpdateIssue(ctx context.Context, key string, input core.UpdateIssueInput) (*core.Issue, error) {
	iid, err := parseKey("gitlab#", key)
	if err != nil {
		return nil, err
	}
	req := updateIssueRequest{
		Title:       input.Title,
		Description: input.Description,
	}
	// GitLab drives state through state_event, not a state field.
	if input.State != nil {
		event := "reopen"
		if *input.State == "closed" || *input.State == "close" {
			event = "close"
		}
		req.StateEvent = &event
	}
	if input.Labels != nil {
		labels := strings.Join(input.Labels, ",")
		req.Labels = &labels
	}
	var issue glIssue
	if err := c.do(ctx, http.MethodPut, c.projectURL(fmt.Sprintf("/issues/%d", iid)), req, &issue); err != nil {
		return nil, err
	}
	mapped := mapIssue(&issue)
	return &mapped, nil
}

func (c *Client) ListIssueComments(ctx context.Context, key string) ([]core.Comment, error) {
	iid, err := parseKey("gitlab#", key)
	if err != nil {
		return nil, err
	}
	var notes []glNote
	if err := c.do(ctx, http.MethodGet, c.projectURL(fmt.Sprintf("/issues/%d/notes", iid)), nil, &notes); err != nil {
		return nil, err
	}
	comments := make([]core.Comment, 0, len(notes))
	for i := range notes {
		if notes[i].System {
			continue
		}
		comments = append(comments, mapNote(&notes[i]))
	}
	return comments, nil
}

func (c *Client) AddIssueComment(ctx context.Context, key, body string) (*core.Comment, error) {
	iid, err := parseKey("gitlab#", key)
	if err != nil {
		return nil, err
	}
	var note glNote
	err = c.do(ctx, http.MethodPost, c.projectURL(fmt.Sprintf("/issues/%d/notes", iid)),
		createNoteRequest{Body: body}, &note)
	if err != nil {
		return nil, err
	}
	mapped := mapNote(&note)
	return &mapped, nil
}

func (c *Client) ListMergeRequests(ctx context.Context, filter core.MrFilter) ([]core.MergeRequest, error) {
	query := url.Values{}
	switch filter.State {
	case "", "open", "opened":
		query.Set("state", "opened")
	case "closed":
		query.Set("state", "closed")
	case "merged":
		query.Set("state", "merged")
	case "all":
		query.Set("state", "all")
	default:
		query.Set("state", "opened")
	}
	if filter.Author != "" {
		query.Set("author_username", filter.Author)
	}
	if len(filter.Labels) > 0 {
		query.Set("labels", strings.Join(filter.Labels, ","))
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
	query.Set("order_by", "updated_at")
	query.Set("sort", "desc")

	var glMRs []glMergeRequest
	if err := c.do(ctx, http.MethodGet, c.projectURL("/merge_requests")+"?"+query.Encode(), nil, &glMRs); err != nil {
		return nil, err
	}
	if skip >= len(glMRs) {
		return []core.MergeRequest{}, nil
	}
	glMRs = glMRs[skip:]
	mrs := make([]core.MergeRequest, 0, len(glMRs))
	for i := range glMRs {
		mrs = append(mrs, mapMergeRequest(&glMRs[i]))
	}
	return mrs, nil
}

func (c *Client) GetMergeRequest(ctx context.Context, key string) (*core.MergeRequest, error) {
	iid, err := parseKey("mr#", key)
	if err != nil {
		return nil, err
	}
	var mr glMergeRequest
	if err := c.do(ctx, http.MethodGet, c.projectURL(fmt.Sprintf("/merge_requests/%d", iid)), nil, &mr); err != nil {
		return nil, err
	}
	mapped := mapMergeRequest(&mr)
	return &mapped, nil
}

func (c *Client) ListDiscussions(ctx context.Context, key string) ([]core.Discussion, error) {
	iid, err := parseKey("mr#", key)
	if err != nil {
		return nil, err
	}
	var glDiscussions []glDiscussion
	if err := c.do(ctx, http.MethodGet, c.projectURL(fmt.Sprintf("/merge_requests/%d/discussions", iid)), nil, &glDiscussions); err != nil {
		return nil, err
	}
	discussions := make([]core.Discussion, 0, len(glDiscussions))
	for i := range glDiscussions {
		d := mapDiscussion(&glDiscussions[i])
		// Discussions of system notes only carry nothing useful.
		if len(d.Comments) == 0 {
			continue
		}
		discussions = append(discussions, d)
	}
	return discussions, nil
}

func (c *Client) ListDiffs(ctx context.Context, key string) ([]core.FileDiff, error) {
	iid, err := parseKey("mr#", key)
	if err != nil {
		return nil, err
	}
	// The changes endpoint includes diff content, the diffs one does not.
	var changes glChanges
	if err := c.do(ctx, http.MethodGet, c.projectURL(fmt.Sprintf("/merge_requests/%d/changes", iid)), nil, &changes); err != nil {
		return nil, err
	}
	diffs := make([]core.FileDiff, 0, len(changes.Changes))
	for i := range changes.Changes {
		diffs = append(diffs, mapDiff(&changes.Changes[i]))
	}
	return diffs, nil
}

func (c *Client) AddMergeRequestComment(ctx context.Context, key string, input core.CreateCommentInput) (*core.Comment, error) {
	iid, err := parseKey("mr#", key)
	if err != nil {
		return nil, err
	}

	// Replies go into the existing discussion thread.
	if input.DiscussionID != "" {
		var note glNote
		err := c.do(ctx, http.MethodPost,
			c.projectURL(fmt.Sprintf("/merge_requests/%d/discussions/%s/notes", iid, url.PathEscape(input.DiscussionID))),
			createNoteRequest{Body: input.Body}, &note)
		if err != nil {
			return nil, err
		}
		mapped := mapNote(&note)
		return &mapped, nil
	}

	// Positioned comments need the MR diff_refs to anchor the discussion.
	if input.Position != nil {
		var mr glMergeRequest
		if err := c.do(ctx, http.MethodGet, c.projectURL(fmt.Sprintf("/merge_requests/%d", iid)), nil, &mr); err != nil {
			return nil, err
		}
		if mr.DiffRefs == nil {
			return nil, fmt.Errorf("merge request %s has no diff refs, cannot create inline comment", key)
		}

		position := &discussionPosition{
			PositionType: "text",
			BaseSHA:      mr.DiffRefs.BaseSHA,
			StartSHA:     mr.DiffRefs.StartSHA,
			HeadSHA:      mr.DiffRefs.HeadSHA,
		}
		line := input.Position.Line
		if input.Position.LineType == "old" {
			position.OldPath = input.Position.FilePath
			position.OldLine = &line
		} else {
			position.NewPath = input.Position.FilePath
			position.NewLine = &line
		}

		var discussion glDiscussion
		err := c.do(ctx, http.MethodPost, c.projectURL(fmt.Sprintf("/merge_requests/%d/discussions", iid)),
			createDiscussionRequest{Body: input.Body, Position: position}, &discussion)
		if err != nil {
			return nil, err
		}
		if len(discussion.Notes) == 0 {
			return nil, fmt.Errorf("discussion created with no notes")
		}
		mapped := mapNote(&discussion.Notes[0])
		return &mapped, nil
	}

	var note glNote
	err = c.do(ctx, http.MethodPost, c.projectURL(fmt.Sprintf("/merge_requests/%d/notes", iid)),
		createNoteRequest{Body: input.Body}, &note)
	if err != nil {
		return nil, err
	}
	mapped := mapNote(&note)
	return &mapped, nil
}

func (c *Client) CurrentUser(ctx context.Context) (*core.User, error) {
	var user glUser
	if err := c.do(ctx, http.MethodGet, c.apiURL("/user"), nil, &user); err != nil {
		return nil, err
	}
	return mapUser(&user), nil
}

var _ core.Provider = (*Client)(nil)
