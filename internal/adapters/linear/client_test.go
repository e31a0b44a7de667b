package linear

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
	cfg := config.Config{LinearBaseURL: url, LinearAPIKey: "lin_test", HTTPTimeout: 5 * time.Second}
	return NewClient(cfg, zerolog.Nop())
}

func TestQueryRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	start := time.Now()
	_, err := testClient(srv.URL).AssignedIssues(context.Background(), "user-1", time.Now())
	require.Error(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	// Two inter-attempt pauses (300ms, 600ms); none after the last failure.
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestQueryDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).AssignedIssues(context.Background(), "user-1", time.Now())
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestAssignedIssuesMapsNodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"issues":{
			"pageInfo":{"hasNextPage":false,"endCursor":""},
			"nodes":[{
				"id":"iss_1","identifier":"ENG-42","title":"Fix search",
				"url":"https://linear.app/acme/issue/ENG-42",
				"priority":2,
				"createdAt":"2025-06-01T10:00:00Z","updatedAt":"2025-06-02T10:00:00Z",
				"state":{"name":"Backlog","type":"backlog"},
				"team":{"id":"t1","name":"Engineering","key":"ENG"}
			}]}}}`))
	}))
	defer srv.Close()

	items, err := testClient(srv.URL).AssignedIssues(context.Background(), "user-1", time.Now())
	require.NoError(t, err)
	require.Len(t, items, 1)
	it := items[0]
	assert.Equal(t, "ENG-42", it.Identifier)
	assert.Equal(t, "ENG", it.TeamKey)
	assert.Equal(t, 2, it.Priority)
	require.NotNil(t, it.CreatedAt)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), *it.CreatedAt)
	// "backlog" is not a bucketing state type; it behaves as unstarted.
	assert.Equal(t, domain.StateUnstarted, it.StateType)
	assert.Nil(t, it.CompletedAt)
}

func TestQuerySurfacesGraphQLErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"rate limited"}]}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).AssignedIssues(context.Background(), "user-1", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}
