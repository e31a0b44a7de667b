package services

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AgentEnder/slack-linear-rundown/internal/domain"
)

type fakeRunStore struct {
	started  []domain.SyncType
	success  []domain.SyncType
	failed   []domain.SyncType
	lastMeta map[string]any
	lastErr  string
	startErr error
}

func (f *fakeRunStore) StartSyncRun(_ context.Context, t domain.SyncType) error {
	f.started = append(f.started, t)
	return f.startErr
}

func (f *fakeRunStore) FinishSyncRunSuccess(_ context.Context, t domain.SyncType, md map[string]any) error {
	f.success = append(f.success, t)
	f.lastMeta = md
	return nil
}

func (f *fakeRunStore) FinishSyncRunFailure(_ context.Context, t domain.SyncType, msg string) error {
	f.failed = append(f.failed, t)
	f.lastErr = msg
	return nil
}

func TestTrackerRecordsSuccess(t *testing.T) {
	store := &fakeRunStore{}
	tr := NewTracker(store, zerolog.Nop())
	err := tr.Run(context.Background(), domain.SyncArtifacts, func(context.Context) (map[string]any, error) {
		return map[string]any{"artifacts": 4}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.SyncType{domain.SyncArtifacts}, store.started)
	assert.Equal(t, []domain.SyncType{domain.SyncArtifacts}, store.success)
	assert.Empty(t, store.failed)
	assert.Equal(t, map[string]any{"artifacts": 4}, store.lastMeta)
}

func TestTrackerRecordsFailure(t *testing.T) {
	store := &fakeRunStore{}
	tr := NewTracker(store, zerolog.Nop())
	cause := errors.New("graphql: rate limited")
	err := tr.Run(context.Background(), domain.SyncWorkItems, func(context.Context) (map[string]any, error) {
		return nil, cause
	})
	require.ErrorIs(t, err, cause)
	assert.Equal(t, []domain.SyncType{domain.SyncWorkItems}, store.failed)
	assert.Empty(t, store.success)
	assert.Equal(t, "graphql: rate limited", store.lastErr)
}

func TestTrackerBookkeepingErrorDoesNotBlockWork(t *testing.T) {
	store := &fakeRunStore{startErr: errors.New("db busy")}
	tr := NewTracker(store, zerolog.Nop())
	ran := false
	err := tr.Run(context.Background(), domain.SyncDelivery, func(context.Context) (map[string]any, error) {
		ran = true
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, []domain.SyncType{domain.SyncDelivery}, store.success)
}
