package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionLogEvictsOldestPastCapacity(t *testing.T) {
	l := NewActionLog(3)

	for i := 0; i < 5; i++ {
		l.Append(models.LogEntry{
			MutationID: fmt.Sprintf("m-%d", i),
			Kind:       models.KindUpsertRow,
			Timestamp:  time.Now(),
			Status:     models.LogSynced,
		})
	}

	entries := l.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "m-2", entries[0].MutationID)
	assert.Equal(t, "m-4", entries[2].MutationID)
	assert.Equal(t, 3, l.Len())
}

func TestActionLogSnapshotIsDetached(t *testing.T) {
	l := NewActionLog(10)
	l.Append(models.LogEntry{MutationID: "m-1", Status: models.LogFailed})

	snap := l.Entries()
	snap[0].MutationID = "tampered"

	assert.Equal(t, "m-1", l.Entries()[0].MutationID)
}
