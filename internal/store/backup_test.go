package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/config"
	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestPerformBackupProducesReadableCopy(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "queue.db")
	backupDir := filepath.Join(dir, "backups")
	logger := zerolog.Nop()

	s, err := New(dbPath, &logger)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	m := &models.Mutation{
		ID:        "m-1",
		Kind:      models.KindUpsertRow,
		Payload:   []byte(`{"rowId":"r1","tableId":"t1"}`),
		OwnerID:   "alice",
		CreatedAt: 1,
		Status:    models.MutationPending,
	}
	require.NoError(t, s.Save(ctx, m))

	svc := NewBackupService(dbPath, config.BackupConfig{
		Enabled:     true,
		StoragePath: backupDir,
	}, &logger)
	require.NoError(t, svc.PerformBackup())

	files, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	require.Len(t, files, 1)

	// The backup must itself be a valid queue database.
	restored, err := New(filepath.Join(backupDir, files[0].Name()), &logger)
	require.NoError(t, err)
	defer restored.Close()

	loaded, err := restored.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, "m-1", loaded[0].ID)
}

func TestCleanupOldBackups(t *testing.T) {
	dir := t.TempDir()
	backupDir := filepath.Join(dir, "backups")
	require.NoError(t, os.MkdirAll(backupDir, 0o755))
	logger := zerolog.Nop()

	oldFile := filepath.Join(backupDir, "queue_old.db")
	require.NoError(t, os.WriteFile(oldFile, []byte("old"), 0o644))
	oldTime := time.Now().AddDate(0, 0, -10)
	require.NoError(t, os.Chtimes(oldFile, oldTime, oldTime))

	freshFile := filepath.Join(backupDir, "queue_fresh.db")
	require.NoError(t, os.WriteFile(freshFile, []byte("fresh"), 0o644))

	svc := NewBackupService(filepath.Join(dir, "queue.db"), config.BackupConfig{
		Enabled:       true,
		StoragePath:   backupDir,
		RetentionDays: 7,
	}, &logger)
	svc.CleanupOldBackups()

	_, err := os.Stat(oldFile)
	require.True(t, os.IsNotExist(err), "backup past retention must be removed")
	_, err = os.Stat(freshFile)
	require.NoError(t, err)
}
