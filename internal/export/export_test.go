package export

import (
	"testing"
	"time"

	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()

	errMsg := "remote error 500: boom"
	mutations := []models.Mutation{
		{
			ID:        "m-1",
			Kind:      models.KindUpsertRow,
			Payload:   []byte(`{"rowId":"r1","tableId":"t1"}`),
			OwnerID:   "alice",
			CreatedAt: 1,
			Status:    models.MutationPending,
		},
		{
			ID:         "m-2",
			Kind:       models.KindSaveStats,
			Payload:    []byte(`{"sessionId":"s1"}`),
			OwnerID:    "alice",
			CreatedAt:  2,
			Status:     models.MutationFailed,
			Attempt:    5,
			DeferCount: 1,
			LastError:  &errMsg,
		},
	}
	entries := []models.LogEntry{
		{MutationID: "m-0", Kind: models.KindDeleteRow, Timestamp: time.Now(), Status: models.LogSynced},
	}

	path, err := WriteReport(dir, mutations, entries)
	require.NoError(t, err)
	assert.Contains(t, path, "sync_report_")

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{queueSheet, logSheet}, f.GetSheetList())

	rows, err := f.GetRows(queueSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus two mutations")
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "m-1", rows[1][0])
	assert.Equal(t, "failed", rows[2][4])
	assert.Equal(t, errMsg, rows[2][7])

	logRows, err := f.GetRows(logSheet)
	require.NoError(t, err)
	require.Len(t, logRows, 2)
	assert.Equal(t, "m-0", logRows[1][0])
	assert.Equal(t, "synced", logRows[1][3])
}

func TestWriteReportEmptyState(t *testing.T) {
	path, err := WriteReport(t.TempDir(), nil, nil)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(queueSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1, "header only")
}
