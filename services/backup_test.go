package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"repairdesk-backend/models"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupSnapshot(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	rec, err := e.Records.Create(ctx, RecordInput{CustomerName: "Ali", PhoneNumber: "09121234567"}, "")
	require.NoError(t, err)
	ticket, err := e.Repairs.Create(ctx, RepairInput{CustomerName: "Ali", PhoneNumber: "09121234567"}, "")
	require.NoError(t, err)
	_, err = e.Renewals.Renew(ctx, RenewalRequest{RecordID: rec.ID, Target: models.TargetWarranty, DurationMonths: 6})
	require.NoError(t, err)

	var first, second bytes.Buffer
	require.NoError(t, e.Backup.Write(ctx, &first))
	require.NoError(t, e.Backup.Write(ctx, &second))
	assert.Equal(t, first.String(), second.String())

	var snap Snapshot
	require.NoError(t, json.Unmarshal(first.Bytes(), &snap))
	assert.Equal(t, SnapshotVersion, snap.Version)
	require.Len(t, snap.Records, 1)
	assert.Equal(t, rec.ID, snap.Records[0].ID)
	require.Len(t, snap.Repairs, 1)
	assert.Equal(t, ticket.TrackingCode, snap.Repairs[0].TrackingCode)
	assert.Len(t, snap.Renewals, 1)
	assert.Len(t, snap.Notifications, 1)
	assert.Len(t, snap.Audit, 3)
}

func TestBackupEmptyStore(t *testing.T) {
	e, _ := newTestEngine(t)
	snap, err := e.Backup.Snapshot(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, snap.Records)
	assert.Empty(t, snap.Records)
	assert.NotNil(t, snap.Repairs)
	assert.NotNil(t, snap.Audit)
}

func TestBackupSaveKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	e, _ := newTestEngine(t, func(o *Options) {
		o.BackupDir = dir
		o.BackupKeep = 2
	})
	ctx := context.Background()
	_, err := e.Records.Create(ctx, RecordInput{CustomerName: "Ali", PhoneNumber: "09121234567"}, "")
	require.NoError(t, err)

	for _, name := range []string{"backup_20240101_000000.json", "backup_20240201_000000.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o600))
	}

	path, err := e.Backup.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "backup_20240320_120000.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Len(t, snap.Records, 1)

	files, err := filepath.Glob(filepath.Join(dir, "*"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "backup_20240201_000000.json"),
		path,
	}, files)
}

func TestBackupSaveNeedsDirectory(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Backup.Save(context.Background())
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}
