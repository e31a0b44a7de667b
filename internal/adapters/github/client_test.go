package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AgentEnder/slack-linear-rundown/internal/config"
	"github.com/AgentEnder/slack-linear-rundown/internal/domain"
)

func testClient(url string) *Client {
	cfg := config.Config{GithubBaseURL: url, GithubToken: "ghp_test", HTTPTimeout: 5 * time.Second}
	return NewClient(cfg, zerolog.Nop())
}

func TestDoJSONRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	start := time.Now()
	_, err := testClient(srv.URL).RecentIssues(context.Background(), "octocat", "", time.Now())
	require.Error(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	// Two inter-attempt pauses (300ms, 600ms); none after the last failure.
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDoJSONStopsOnClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).RecentIssues(context.Background(), "octocat", "", time.Now())
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestRecentIssuesMapsFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search/issues", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("q"), "involves:octocat")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total_count":1,"items":[{
			"node_id":"I_abc","number":7,"title":"Tracker sync drops labels",
			"body":"relates to ENG-9","state":"open",
			"html_url":"https://github.com/acme/tracker/issues/7",
			"repository_url":"https://api.github.com/repos/acme/tracker",
			"user":{"login":"octocat"},
			"created_at":"2025-06-01T08:00:00Z","updated_at":"2025-06-03T08:00:00Z"}]}`))
	}))
	defer srv.Close()

	items, err := testClient(srv.URL).RecentIssues(context.Background(), "octocat", "", time.Now())
	require.NoError(t, err)
	require.Len(t, items, 1)
	a := items[0]
	assert.Equal(t, domain.KindExternalIssue, a.Kind)
	assert.Equal(t, "acme/tracker", a.Repo)
	assert.Equal(t, 7, a.Number)
	assert.Equal(t, "octocat", a.Author)
	require.NotNil(t, a.UpdatedAt)
	assert.Equal(t, time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC), *a.UpdatedAt)
}
