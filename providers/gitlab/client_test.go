package gitlab

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devboy-tools/devboy/core"
	"github.com/devboy-tools/devboy/logx"
)

func newTestClient(t *testing.T, projectID string, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(projectID, "test-token",
		WithBaseURL(srv.URL),
		WithLogger(logx.Nop{}))
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestListIssues(t *testing.T) {
	client := newTestClient(t, "123", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/123/issues", r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get("PRIVATE-TOKEN"))
		q := r.URL.Query()
		assert.Equal(t, "opened", q.Get("state"))
		assert.Equal(t, "panic", q.Get("search"))
		assert.Equal(t, "alice", q.Get("assignee_username"))

		writeJSON(t, w, []map[string]interface{}{
			{"iid": 7, "title": "Broken build", "state": "opened",
				"labels": []string{"ci"},
				"author": map[string]interface{}{"id": 1, "username": "bob"}},
		})
	})

	issues, err := client.ListIssues(context.Background(), core.IssueFilter{
		Search:   "panic",
		Assignee: "alice",
	})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "gitlab#7", issues[0].Key)
	assert.Equal(t, "gitlab", issues[0].Source)
	assert.Equal(t, []string{"ci"}, issues[0].Labels)
}

func TestListIssuesMidPageOffset(t *testing.T) {
	client := newTestClient(t, "123", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "10", q.Get("per_page"))
		assert.Equal(t, "2", q.Get("page"))

		writeJSON(t, w, []map[string]interface{}{
			{"iid": 11, "title": "Eleventh", "state": "opened"},
			{"iid": 12, "title": "Twelfth", "state": "opened"},
			{"iid": 13, "title": "Thirteenth", "state": "opened"},
		})
	})

	// Offset 12 lands two items into page 2; those are skipped client-side.
	issues, err := client.ListIssues(context.Background(), core.IssueFilter{Limit: 10, Offset: 12})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "gitlab#13", issues[0].Key)
}

func TestProjectPathEscaped(t *testing.T) {
	client := newTestClient(t, "group/project", func(w http.ResponseWriter, r *http.Request) {
		// The slash in the project path must arrive percent-encoded.
		assert.Contains(t, r.URL.RawPath, "group%2Fproject")
		writeJSON(t, w, []map[string]interface{}{})
	})

	_, err := client.ListIssues(context.Background(), core.IssueFilter{})
	require.NoError(t, err)
}

func TestGetIssueInvalidKey(t *testing.T) {
	client := newTestClient(t, "123", func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for an invalid key")
	})

	for _, key := range []string{"gh#42", "42", "gitlab#", "gitlab#x"} {
		_, err := client.GetIssue(context.Background(), key)
		assert.ErrorIs(t, err, core.ErrInvalidKey, "key %q", key)
	}
}

func TestUpdateIssueStateEvent(t *testing.T) {
	client := newTestClient(t, "123", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v4/projects/123/issues/9", r.URL.Path)

		var raw map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Equal(t, "close", raw["state_event"])
		assert.NotContains(t, raw, "title")

		writeJSON(t, w, map[string]interface{}{"iid": 9, "title": "Done", "state": "closed"})
	})

	state := "closed"
	issue, err := client.UpdateIssue(context.Background(), "gitlab#9", core.UpdateIssueInput{State: &state})
	require.NoError(t, err)
	assert.Equal(t, "closed", issue.State)
}

func TestListIssueCommentsSkipsSystemNotes(t *testing.T) {
	client := newTestClient(t, "123", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/123/issues/9/notes", r.URL.Path)
		writeJSON(t, w, []map[string]interface{}{
			{"id": 1, "body": "changed the description", "system": true},
			{"id": 2, "body": "Real comment"},
		})
	})

	comments, err := client.ListIssueComments(context.Background(), "gitlab#9")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "2", comments[0].ID)
}

func TestListMergeRequests(t *testing.T) {
	client := newTestClient(t, "123", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "merged", q.Get("state"))
		assert.Equal(t, "updated_at", q.Get("order_by"))
		assert.Equal(t, "desc", q.Get("sort"))

		writeJSON(t, w, []map[string]interface{}{
			{"iid": 4, "title": "Add feature", "state": "merged",
				"source_branch": "feature", "target_branch": "main", "draft": false},
		})
	})

	mrs, err := client.ListMergeRequests(context.Background(), core.MrFilter{State: "merged"})
	require.NoError(t, err)
	require.Len(t, mrs, 1)
	assert.Equal(t, "mr#4", mrs[0].Key)
	assert.Equal(t, "feature", mrs[0].SourceBranch)
}

func TestListDiscussions(t *testing.T) {
	client := newTestClient(t, "123", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/123/merge_requests/4/discussions", r.URL.Path)
		writeJSON(t, w, []map[string]interface{}{
			{
				"id": "abc",
				"notes": []map[string]interface{}{
					{"id": 1, "body": "Inline remark", "resolvable": true, "resolved": true,
						"resolved_by": map[string]interface{}{"id": 5, "username": "carol"},
						"position": map[string]interface{}{
							"new_path": "main.go", "new_line": 10, "head_sha": "h1",
						}},
					{"id": 2, "body": "Reply"},
				},
			},
			{
				"id": "sys",
				"notes": []map[string]interface{}{
					{"id": 3, "body": "added 1 commit", "system": true},
				},
			},
		})
	})

	discussions, err := client.ListDiscussions(context.Background(), "mr#4")
	require.NoError(t, err)
	require.Len(t, discussions, 1)

	d := discussions[0]
	assert.Equal(t, "abc", d.ID)
	assert.True(t, d.Resolved)
	require.NotNil(t, d.ResolvedBy)
	assert.Equal(t, "carol", d.ResolvedBy.Username)
	require.Len(t, d.Comments, 2)
	require.NotNil(t, d.Position)
	assert.Equal(t, "main.go", d.Position.FilePath)
	assert.Equal(t, 10, d.Position.Line)
	assert.Equal(t, "new", d.Position.LineType)
}

func TestListDiffsUsesChangesEndpoint(t *testing.T) {
	client := newTestClient(t, "123", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/123/merge_requests/4/changes", r.URL.Path)
		writeJSON(t, w, map[string]interface{}{
			"changes": []map[string]interface{}{
				{"old_path": "a.go", "new_path": "a.go", "diff": "+x"},
				{"old_path": "old.go", "new_path": "new.go", "renamed_file": true, "diff": ""},
			},
		})
	})

	diffs, err := client.ListDiffs(context.Background(), "mr#4")
	require.NoError(t, err)
	require.Len(t, diffs, 2)
	assert.Equal(t, "a.go", diffs[0].FilePath)
	assert.Equal(t, "new.go", diffs[1].FilePath)
	assert.Equal(t, "old.go", diffs[1].OldPath)
	assert.True(t, diffs[1].RenamedFile)
}

func TestAddMergeRequestCommentPositioned(t *testing.T) {
	client := newTestClient(t, "123", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v4/projects/123/merge_requests/4":
			writeJSON(t, w, map[string]interface{}{
				"iid": 4, "state": "opened",
				"source_branch": "feature", "target_branch": "main",
				"diff_refs": map[string]interface{}{
					"base_sha": "b1", "start_sha": "s1", "head_sha": "h1",
				},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/api/v4/projects/123/merge_requests/4/discussions":
			var req createDiscussionRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.NotNil(t, req.Position)
			assert.Equal(t, "text", req.Position.PositionType)
			assert.Equal(t, "h1", req.Position.HeadSHA)
			assert.Equal(t, "main.go", req.Position.NewPath)
			require.NotNil(t, req.Position.NewLine)
			assert.Equal(t, 10, *req.Position.NewLine)
			assert.Nil(t, req.Position.OldLine)

			w.WriteHeader(http.StatusCreated)
			writeJSON(t, w, map[string]interface{}{
				"id": "d1",
				"notes": []map[string]interface{}{
					{"id": 77, "body": req.Body},
				},
			})
		default:
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
	})

	comment, err := client.AddMergeRequestComment(context.Background(), "mr#4", core.CreateCommentInput{
		Body: "Nit",
		Position: &core.CodePosition{
			FilePath: "main.go",
			Line:     10,
			LineType: "new",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "77", comment.ID)
}

func TestAddMergeRequestCommentReply(t *testing.T) {
	client := newTestClient(t, "123", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v4/projects/123/merge_requests/4/discussions/abc/notes", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		writeJSON(t, w, map[string]interface{}{"id": 88, "body": "Reply"})
	})

	comment, err := client.AddMergeRequestComment(context.Background(), "mr#4", core.CreateCommentInput{
		Body:         "Reply",
		DiscussionID: "abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "88", comment.ID)
}

func TestAddMergeRequestCommentGeneral(t *testing.T) {
	client := newTestClient(t, "123", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/123/merge_requests/4/notes", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		writeJSON(t, w, map[string]interface{}{"id": 99, "body": "General"})
	})

	comment, err := client.AddMergeRequestComment(context.Background(), "mr#4", core.CreateCommentInput{Body: "General"})
	require.NoError(t, err)
	assert.Equal(t, "99", comment.ID)
	assert.Nil(t, comment.Position)
}

func TestCurrentUser(t *testing.T) {
	client := newTestClient(t, "123", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/user", r.URL.Path)
		writeJSON(t, w, map[string]interface{}{"id": 5, "username": "carol", "name": "Carol"})
	})

	user, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "carol", user.Username)
}

func TestAPIErrorMapping(t *testing.T) {
	client := newTestClient(t, "123", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(t, w, map[string]interface{}{"message": "404 Not found"})
	})

	_, err := client.GetIssue(context.Background(), "gitlab#1")
	require.Error(t, err)
	assert.True(t, core.IsNotFound(err))
}

func TestMapPositionOldLine(t *testing.T) {
	oldLine := 3
	pos := mapPosition(&glNotePosition{OldPath: "gone.go", OldLine: &oldLine, HeadSHA: "h"})
	require.NotNil(t, pos)
	assert.Equal(t, "gone.go", pos.FilePath)
	assert.Equal(t, 3, pos.Line)
	assert.Equal(t, "old", pos.LineType)

	assert.Nil(t, mapPosition(nil))
	assert.Nil(t, mapPosition(&glNotePosition{NewPath: "a.go"}))
}
