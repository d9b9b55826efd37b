package tools

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Typed parameter structs for tools/call arguments. Arguments arrive as a
// generic map; decodeParams maps them through mapstructure with weak typing
// so JSON numbers land in int fields.

type getIssuesParams struct {
	State    string   `mapstructure:"state"`
	Search   string   `mapstructure:"search"`
	Labels   []string `mapstructure:"labels"`
	Assignee string   `mapstructure:"assignee"`
	Limit    int      `mapstructure:"limit"`
	Offset   int      `mapstructure:"offset"`
	Format   string   `mapstructure:"format"`
}

type getIssueParams struct {
	Key    string `mapstructure:"key"`
	Format string `mapstructure:"format"`
}

type getIssueCommentsParams struct {
	Key    string `mapstructure:"key"`
	Limit  int    `mapstructure:"limit"`
	Format string `mapstructure:"format"`
}

type createIssueParams struct {
	Title       string   `mapstructure:"title"`
	Description string   `mapstructure:"description"`
	Labels      []string `mapstructure:"labels"`
	Assignees   []string `mapstructure:"assignees"`
	Provider    string   `mapstructure:"provider"`
}

type updateIssueParams struct {
	Key         string   `mapstructure:"key"`
	Title       *string  `mapstructure:"title"`
	Description *string  `mapstructure:"description"`
	State       *string  `mapstructure:"state"`
	Labels      []string `mapstructure:"labels"`
	Assignees   []string `mapstructure:"assignees"`
	Provider    string   `mapstructure:"provider"`
}

type addIssueCommentParams struct {
	Key      string `mapstructure:"key"`
	Body     string `mapstructure:"body"`
	Provider string `mapstructure:"provider"`
}

type getMergeRequestsParams struct {
	State  string   `mapstructure:"state"`
	Author string   `mapstructure:"author"`
	Labels []string `mapstructure:"labels"`
	Limit  int      `mapstructure:"limit"`
	Offset int      `mapstructure:"offset"`
	Format string   `mapstructure:"format"`
}

type getMergeRequestParams struct {
	Key    string `mapstructure:"key"`
	Format string `mapstructure:"format"`
}

type getMergeRequestDiscussionsParams struct {
	Key    string `mapstructure:"key"`
	Format string `mapstructure:"format"`
}

type getMergeRequestDiffsParams struct {
	Key    string `mapstructure:"key"`
	Limit  int    `mapstructure:"limit"`
	Offset int    `mapstructure:"offset"`
	Format string `mapstructure:"format"`
}

type createMergeRequestCommentParams struct {
	Key      string `mapstructure:"key"`
	Body     string `mapstructure:"body"`
	FilePath string `mapstructure:"file_path"`
	Line     int    `mapstructure:"line"`
	LineType string `mapstructure:"line_type"`
	Provider string `mapstructure:"provider"`
}

// decodeParams maps a raw argument map into a typed params struct.
// A nil map decodes into the zero value.
func decodeParams(args map[string]interface{}, target interface{}) error {
	if args == nil {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := decoder.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
