// Package tools declares the server's tool catalog and executes tool calls
// against the configured providers, delegating result shaping to the
// pipeline.
package tools

import (
	"context"
	"fmt"

	"github.com/devboy-tools/devboy/core"
	"github.com/devboy-tools/devboy/logx"
	"github.com/devboy-tools/devboy/pipeline"
	"github.com/devboy-tools/devboy/protocol"
	"github.com/devboy-tools/devboy/types"
)

// Handler executes tools against the injected provider set.
//
// Fan-out tools query every provider sequentially and keep partial
// successes; lookup tools scan providers in registration order and stop at
// the first success; mutation tools route to an explicitly named provider
// or fall back per tool (first registered for creation, retry-next for
// update/comment).
type Handler struct {
	providers []core.Provider
	cfg       pipeline.Config
	logger    types.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets a custom logger.
func WithLogger(logger types.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithPipelineConfig sets the base pipeline configuration. Per-call format
// overrides derive from it.
func WithPipelineConfig(cfg pipeline.Config) Option {
	return func(h *Handler) {
		h.cfg = cfg
	}
}

// NewHandler creates a tool handler over the given providers. Provider
// order is registration order and decides lookup and fallback precedence.
func NewHandler(providers []core.Provider, opts ...Option) *Handler {
	h := &Handler{
		providers: providers,
		cfg:       pipeline.DefaultConfig(),
		logger:    logx.NewDefaultLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Tools returns the static catalog.
func (h *Handler) Tools() []protocol.Tool {
	return Catalog()
}

// Execute runs the named tool. Failures are always returned as tool-level
// results, never as errors: the caller wraps the result in a successful
// JSON-RPC response either way.
func (h *Handler) Execute(ctx context.Context, name string, args map[string]interface{}) *protocol.CallToolResult {
	switch name {
	case ToolGetIssues:
		return h.getIssues(ctx, args)
	case ToolGetIssue:
		return h.getIssue(ctx, args)
	case ToolGetIssueComments:
		return h.getIssueComments(ctx, args)
	case ToolCreateIssue:
		return h.createIssue(ctx, args)
	case ToolUpdateIssue:
		return h.updateIssue(ctx, args)
	case ToolAddIssueComment:
		return h.addIssueComment(ctx, args)
	case ToolGetMergeRequests:
		return h.getMergeRequests(ctx, args)
	case ToolGetMergeRequest:
		return h.getMergeRequest(ctx, args)
	case ToolGetMergeRequestDiscussions:
		return h.getMergeRequestDiscussions(ctx, args)
	case ToolGetMergeRequestDiffs:
		return h.getMergeRequestDiffs(ctx, args)
	case ToolCreateMergeRequestComment:
		return h.createMergeRequestComment(ctx, args)
	default:
		return protocol.NewToolError(fmt.Sprintf("Unknown tool: %s", name))
	}
}

// pipelineFor derives a pipeline from the base config, applying a
// per-request format override when one was supplied.
func (h *Handler) pipelineFor(format string) *pipeline.Pipeline {
	cfg := h.cfg
	if format != "" {
		cfg = cfg.WithFormat(pipeline.ParseFormat(format))
	}
	return pipeline.WithConfig(cfg)
}

// pipelineWithLimit additionally narrows MaxItems for tools whose limit is
// applied handler-side rather than in the provider query.
func (h *Handler) pipelineWithLimit(format string, limit int) *pipeline.Pipeline {
	cfg := h.cfg
	if format != "" {
		cfg = cfg.WithFormat(pipeline.ParseFormat(format))
	}
	if limit > 0 && limit < cfg.MaxItems {
		cfg.MaxItems = limit
	}
	return pipeline.WithConfig(cfg)
}

// --- List tools (fan-out, at-least-one-success) ---

func (h *Handler) getIssues(ctx context.Context, args map[string]interface{}) *protocol.CallToolResult {
	var params getIssuesParams
	if err := decodeParams(args, &params); err != nil {
		return protocol.NewToolError(err.Error())
	}
	if len(h.providers) == 0 {
		return protocol.NewToolError("No providers configured")
	}

	limit := params.Limit
	if limit == 0 {
		limit = 20
	}
	filter := core.IssueFilter{
		State:    params.State,
		Search:   params.Search,
		Labels:   params.Labels,
		Assignee: params.Assignee,
		Limit:    limit,
		Offset:   params.Offset,
	}

	var all []core.Issue
	var errs AggregateError
	for _, p := range h.providers {
		issues, err := p.ListIssues(ctx, filter)
		if err != nil {
			h.logger.Warn("error from %s: %v", p.Name(), err)
			errs = append(errs, ProviderError{Provider: p.Name(), Err: err})
			continue
		}
		h.logger.Debug("got %d issues from %s", len(issues), p.Name())
		all = append(all, issues...)
	}

	if len(all) == 0 && len(errs) > 0 {
		return protocol.NewToolError("Failed to get issues: " + errs.Error())
	}

	out, err := h.pipelineFor(params.Format).TransformIssues(all)
	if err != nil {
		return protocol.NewToolError("Pipeline error: " + err.Error())
	}
	return protocol.NewTextResult(out.StringWithHints())
}

func (h *Handler) getMergeRequests(ctx context.Context, args map[string]interface{}) *protocol.CallToolResult {
	var params getMergeRequestsParams
	if err := decodeParams(args, &params); err != nil {
		return protocol.NewToolError(err.Error())
	}
	if len(h.providers) == 0 {
		return protocol.NewToolError("No providers configured")
	}

	limit := params.Limit
	if limit == 0 {
		limit = 20
	}
	filter := core.MrFilter{
		State:  params.State,
		Author: params.Author,
		Labels: params.Labels,
		Limit:  limit,
		Offset: params.Offset,
	}

	var all []core.MergeRequest
	var errs AggregateError
	for _, p := range h.providers {
		mrs, err := p.ListMergeRequests(ctx, filter)
		if err != nil {
			h.logger.Warn("error from %s: %v", p.Name(), err)
			errs = append(errs, ProviderError{Provider: p.Name(), Err: err})
			continue
		}
		h.logger.Debug("got %d merge requests from %s", len(mrs), p.Name())
		all = append(all, mrs...)
	}

	if len(all) == 0 && len(errs) > 0 {
		return protocol.NewToolError("Failed to get merge requests: " + errs.Error())
	}

	out, err := h.pipelineFor(params.Format).TransformMergeRequests(all)
	if err != nil {
		return protocol.NewToolError("Pipeline error: " + err.Error())
	}
	return protocol.NewTextResult(out.StringWithHints())
}

// --- Single-entity tools (ordered first-success lookup) ---

func (h *Handler) getIssue(ctx context.Context, args map[string]interface{}) *protocol.CallToolResult {
	var params getIssueParams
	if err := decodeParams(args, &params); err != nil {
		return protocol.NewToolError(err.Error())
	}
	if params.Key == "" {
		return protocol.NewToolError("Missing required argument: key")
	}
	if len(h.providers) == 0 {
		return protocol.NewToolError("No providers configured")
	}

	var errs AggregateError
	for _, p := range h.providers {
		issue, err := p.GetIssue(ctx, params.Key)
		if err != nil {
			errs = append(errs, ProviderError{Provider: p.Name(), Err: err})
			continue
		}
		out, err := h.pipelineFor(params.Format).TransformIssues([]core.Issue{*issue})
		if err != nil {
			return protocol.NewToolError("Pipeline error: " + err.Error())
		}
		return protocol.NewTextResult(out.StringWithHints())
	}
	return protocol.NewToolError(fmt.Sprintf("Issue %s not found: %s", params.Key, errs.Error()))
}

func (h *Handler) getIssueComments(ctx context.Context, args map[string]interface{}) *protocol.CallToolResult {
	var params getIssueCommentsParams
	if err := decodeParams(args, &params); err != nil {
		return protocol.NewToolError(err.Error())
	}
	if params.Key == "" {
		return protocol.NewToolError("Missing required argument: key")
	}
	if len(h.providers) == 0 {
		return protocol.NewToolError("No providers configured")
	}

	var errs AggregateError
	for _, p := range h.providers {
		comments, err := p.ListIssueComments(ctx, params.Key)
		if err != nil {
			errs = append(errs, ProviderError{Provider: p.Name(), Err: err})
			continue
		}
		out, err := h.pipelineWithLimit(params.Format, params.Limit).TransformComments(comments)
		if err != nil {
			return protocol.NewToolError("Pipeline error: " + err.Error())
		}
		return protocol.NewTextResult(out.StringWithHints())
	}
	return protocol.NewToolError(fmt.Sprintf("Issue %s not found: %s", params.Key, errs.Error()))
}

func (h *Handler) getMergeRequest(ctx context.Context, args map[string]interface{}) *protocol.CallToolResult {
	var params getMergeRequestParams
	if err := decodeParams(args, &params); err != nil {
		return protocol.NewToolError(err.Error())
	}
	if params.Key == "" {
		return protocol.NewToolError("Missing required argument: key")
	}
	if len(h.providers) == 0 {
		return protocol.NewToolError("No providers configured")
	}

	var errs AggregateError
	for _, p := range h.providers {
		mr, err := p.GetMergeRequest(ctx, params.Key)
		if err != nil {
			errs = append(errs, ProviderError{Provider: p.Name(), Err: err})
			continue
		}
		out, err := h.pipelineFor(params.Format).TransformMergeRequests([]core.MergeRequest{*mr})
		if err != nil {
			return protocol.NewToolError("Pipeline error: " + err.Error())
		}
		return protocol.NewTextResult(out.StringWithHints())
	}
	return protocol.NewToolError(fmt.Sprintf("Merge request %s not found: %s", params.Key, errs.Error()))
}

func (h *Handler) getMergeRequestDiscussions(ctx context.Context, args map[string]interface{}) *protocol.CallToolResult {
	var params getMergeRequestDiscussionsParams
	if err := decodeParams(args, &params); err != nil {
		return protocol.NewToolError(err.Error())
	}
	if params.Key == "" {
		return protocol.NewToolError("Missing required argument: key")
	}
	if len(h.providers) == 0 {
		return protocol.NewToolError("No providers configured")
	}

	var errs AggregateError
	for _, p := range h.providers {
		discussions, err := p.ListDiscussions(ctx, params.Key)
		if err != nil {
			errs = append(errs, ProviderError{Provider: p.Name(), Err: err})
			continue
		}
		out, err := h.pipelineFor(params.Format).TransformDiscussions(discussions)
		if err != nil {
			return protocol.NewToolError("Pipeline error: " + err.Error())
		}
		return protocol.NewTextResult(out.StringWithHints())
	}
	return protocol.NewToolError(fmt.Sprintf("Merge request %s not found: %s", params.Key, errs.Error()))
}

func (h *Handler) getMergeRequestDiffs(ctx context.Context, args map[string]interface{}) *protocol.CallToolResult {
	var params getMergeRequestDiffsParams
	if err := decodeParams(args, &params); err != nil {
		return protocol.NewToolError(err.Error())
	}
	if params.Key == "" {
		return protocol.NewToolError("Missing required argument: key")
	}
	if len(h.providers) == 0 {
		return protocol.NewToolError("No providers configured")
	}

	var errs AggregateError
	for _, p := range h.providers {
		diffs, err := p.ListDiffs(ctx, params.Key)
		if err != nil {
			errs = append(errs, ProviderError{Provider: p.Name(), Err: err})
			continue
		}
		// Offset is applied handler-side; providers return the full set.
		if params.Offset > 0 {
			if params.Offset >= len(diffs) {
				diffs = nil
			} else {
				diffs = diffs[params.Offset:]
			}
		}
		out, err := h.pipelineWithLimit(params.Format, params.Limit).TransformDiffs(diffs, ToolGetMergeRequestDiffs)
		if err != nil {
			return protocol.NewToolError("Pipeline error: " + err.Error())
		}
		return protocol.NewTextResult(out.StringWithHints())
	}
	return protocol.NewToolError(fmt.Sprintf("Merge request %s not found: %s", params.Key, errs.Error()))
}

// --- Mutation tools ---

// providerByName resolves an explicitly requested provider.
func (h *Handler) providerByName(name string) (core.Provider, error) {
	for _, p := range h.providers {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("unknown provider: %s", name)
}

func (h *Handler) createIssue(ctx context.Context, args map[string]interface{}) *protocol.CallToolResult {
	var params createIssueParams
	if err := decodeParams(args, &params); err != nil {
		return protocol.NewToolError(err.Error())
	}
	if params.Title == "" {
		return protocol.NewToolError("Missing required argument: title")
	}
	if len(h.providers) == 0 {
		return protocol.NewToolError("No providers configured")
	}

	// Creation goes to the named provider, or the first registered one.
	target := h.providers[0]
	if params.Provider != "" {
		p, err := h.providerByName(params.Provider)
		if err != nil {
			return protocol.NewToolError(err.Error())
		}
		target = p
	}

	issue, err := target.CreateIssue(ctx, core.CreateIssueInput{
		Title:       params.Title,
		Description: params.Description,
		Labels:      params.Labels,
		Assignees:   params.Assignees,
	})
	if err != nil {
		return protocol.NewToolError(fmt.Sprintf("Failed to create issue: %s: %v", target.Name(), err))
	}

	out, perr := h.pipelineFor("").TransformIssues([]core.Issue{*issue})
	if perr != nil {
		return protocol.NewToolError("Pipeline error: " + perr.Error())
	}
	return protocol.NewTextResult(fmt.Sprintf("Created issue %s\n\n%s", issue.Key, out.StringWithHints()))
}

func (h *Handler) updateIssue(ctx context.Context, args map[string]interface{}) *protocol.CallToolResult {
	var params updateIssueParams
	if err := decodeParams(args, &params); err != nil {
		return protocol.NewToolError(err.Error())
	}
	if params.Key == "" {
		return protocol.NewToolError("Missing required argument: key")
	}
	if len(h.providers) == 0 {
		return protocol.NewToolError("No providers configured")
	}

	input := core.UpdateIssueInput{
		Title:       params.Title,
		Description: params.Description,
		State:       params.State,
		Labels:      params.Labels,
		Assignees:   params.Assignees,
	}

	candidates, result := h.mutationCandidates(params.Provider)
	if result != nil {
		return result
	}

	var errs AggregateError
	for _, p := range candidates {
		issue, err := p.UpdateIssue(ctx, params.Key, input)
		if err != nil {
			errs = append(errs, ProviderError{Provider: p.Name(), Err: err})
			continue
		}
		out, perr := h.pipelineFor("").TransformIssues([]core.Issue{*issue})
		if perr != nil {
			return protocol.NewToolError("Pipeline error: " + perr.Error())
		}
		return protocol.NewTextResult(fmt.Sprintf("Updated issue %s\n\n%s", issue.Key, out.StringWithHints()))
	}
	return protocol.NewToolError(fmt.Sprintf("Failed to update issue %s: %s", params.Key, errs.Error()))
}

func (h *Handler) addIssueComment(ctx context.Context, args map[string]interface{}) *protocol.CallToolResult {
	var params addIssueCommentParams
	if err := decodeParams(args, &params); err != nil {
		return protocol.NewToolError(err.Error())
	}
	if params.Key == "" || params.Body == "" {
		return protocol.NewToolError("Missing required arguments: key, body")
	}
	if len(h.providers) == 0 {
		return protocol.NewToolError("No providers configured")
	}

	candidates, result := h.mutationCandidates(params.Provider)
	if result != nil {
		return result
	}

	var errs AggregateError
	for _, p := range candidates {
		comment, err := p.AddIssueComment(ctx, params.Key, params.Body)
		if err != nil {
			errs = append(errs, ProviderError{Provider: p.Name(), Err: err})
			continue
		}
		return protocol.NewTextResult(fmt.Sprintf("Comment %s added to %s", comment.ID, params.Key))
	}
	return protocol.NewToolError(fmt.Sprintf("Failed to comment on %s: %s", params.Key, errs.Error()))
}

func (h *Handler) createMergeRequestComment(ctx context.Context, args map[string]interface{}) *protocol.CallToolResult {
	var params createMergeRequestCommentParams
	if err := decodeParams(args, &params); err != nil {
		return protocol.NewToolError(err.Error())
	}
	if params.Key == "" || params.Body == "" {
		return protocol.NewToolError("Missing required arguments: key, body")
	}
	if len(h.providers) == 0 {
		return protocol.NewToolError("No providers configured")
	}

	input := core.CreateCommentInput{Body: params.Body}
	// A position is only attached when a file path was supplied.
	if params.FilePath != "" {
		line := params.Line
		if line == 0 {
			line = 1
		}
		lineType := params.LineType
		if lineType == "" {
			lineType = "new"
		}
		input.Position = &core.CodePosition{
			FilePath: params.FilePath,
			Line:     line,
			LineType: lineType,
		}
	}

	candidates, result := h.mutationCandidates(params.Provider)
	if result != nil {
		return result
	}

	var errs AggregateError
	for _, p := range candidates {
		comment, err := p.AddMergeRequestComment(ctx, params.Key, input)
		if err != nil {
			errs = append(errs, ProviderError{Provider: p.Name(), Err: err})
			continue
		}
		return protocol.NewTextResult(fmt.Sprintf("Comment %s added to %s", comment.ID, params.Key))
	}
	return protocol.NewToolError(fmt.Sprintf("Failed to comment on %s: %s", params.Key, errs.Error()))
}

// mutationCandidates returns the providers to try for update/comment
// mutations: only the named one when given, otherwise every provider in
// registration order (first to accept the call wins).
func (h *Handler) mutationCandidates(name string) ([]core.Provider, *protocol.CallToolResult) {
	if name == "" {
		return h.providers, nil
	}
	p, err := h.providerByName(name)
	if err != nil {
		return nil, protocol.NewToolError(err.Error())
	}
	return []core.Provider{p}, nil
}
