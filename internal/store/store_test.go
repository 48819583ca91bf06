package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	logger := zerolog.Nop()
	s, err := New(filepath.Join(t.TempDir(), "queue.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreCRUD(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	m := &models.Mutation{
		ID:        "m-1",
		Kind:      models.KindUpsertRow,
		Payload:   []byte(`{"rowId":"r1","tableId":"t1","term":"gehen"}`),
		OwnerID:   "alice",
		CreatedAt: 1,
		Status:    models.MutationPending,
	}

	require.NoError(t, s.Save(ctx, m))

	loaded, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, m.ID, loaded[0].ID)
	assert.Equal(t, models.KindUpsertRow, loaded[0].Kind)
	assert.JSONEq(t, string(m.Payload), string(loaded[0].Payload))
	assert.Equal(t, "alice", loaded[0].OwnerID)
	assert.Nil(t, loaded[0].LastError)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, s.Delete(ctx, m.ID))
	count, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Deleting an absent row is not an error.
	require.NoError(t, s.Delete(ctx, "nope"))
}

func TestStoreUpsertOverwritesState(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	m := &models.Mutation{
		ID:        "m-1",
		Kind:      models.KindSaveStats,
		Payload:   []byte(`{"sessionId":"s1"}`),
		OwnerID:   "alice",
		CreatedAt: 1,
		Status:    models.MutationPending,
	}
	require.NoError(t, s.Save(ctx, m))

	errMsg := "remote said no"
	m.Status = models.MutationFailed
	m.Attempt = 4
	m.DeferCount = 2
	m.LastError = &errMsg
	m.Payload = []byte(`{"sessionId":"s1","results":[1]}`)
	require.NoError(t, s.Save(ctx, m))

	loaded, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, models.MutationFailed, loaded[0].Status)
	assert.Equal(t, 4, loaded[0].Attempt)
	assert.Equal(t, 2, loaded[0].DeferCount)
	require.NotNil(t, loaded[0].LastError)
	assert.Equal(t, errMsg, *loaded[0].LastError)
	assert.JSONEq(t, `{"sessionId":"s1","results":[1]}`, string(loaded[0].Payload))
}

func TestStoreLoadAllOrdersByCreation(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	// Inserted out of order on purpose.
	for _, seq := range []int64{3, 1, 2} {
		m := &models.Mutation{
			ID:        "m-" + string(rune('0'+seq)),
			Kind:      models.KindSaveSettings,
			Payload:   []byte(`{}`),
			OwnerID:   "alice",
			CreatedAt: seq,
			Status:    models.MutationPending,
		}
		require.NoError(t, s.Save(ctx, m))
	}

	loaded, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, int64(1), loaded[0].CreatedAt)
	assert.Equal(t, int64(2), loaded[1].CreatedAt)
	assert.Equal(t, int64(3), loaded[2].CreatedAt)
}

func TestStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queue.db")
	logger := zerolog.Nop()
	ctx := context.Background()

	s, err := New(path, &logger)
	require.NoError(t, err)

	m := &models.Mutation{
		ID:        "m-1",
		Kind:      models.KindDeleteFolder,
		Payload:   []byte(`{"folderId":"f1"}`),
		OwnerID:   "alice",
		CreatedAt: 9,
		Status:    models.MutationProcessing,
		Attempt:   2,
	}
	require.NoError(t, s.Save(ctx, m))
	require.NoError(t, s.Close())

	// Simulated process restart.
	s2, err := New(path, &logger)
	require.NoError(t, err)
	defer s2.Close()

	loaded, err := s2.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, models.MutationProcessing, loaded[0].Status)
	assert.Equal(t, 2, loaded[0].Attempt)
}

func TestStoreClear(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		m := &models.Mutation{
			ID:        "m-" + string(rune('0'+i)),
			Kind:      models.KindUpsertTable,
			Payload:   []byte(`{}`),
			OwnerID:   "alice",
			CreatedAt: i,
			Status:    models.MutationPending,
		}
		require.NoError(t, s.Save(ctx, m))
	}

	require.NoError(t, s.Clear(ctx))
	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
