package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"repairdesk-backend/models"
	"repairdesk-backend/repository"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// SnapshotVersion 2 added repair tickets.
const SnapshotVersion = 2

const backupPattern = "backup_*.json"

// Snapshot is the full content of the store. Every list is sorted by id so
// the same store always produces the same bytes.
type Snapshot struct {
	Version       int                      `json:"version"`
	Records       []models.ServiceRecord   `json:"records"`
	Repairs       []models.RepairTicket    `json:"repairs"`
	Renewals      []models.RenewalEvent    `json:"renewals"`
	Notifications []models.NotificationLog `json:"notifications"`
	Audit         []models.AuditLog        `json:"audit"`
}

// BackupService snapshots the store. Save writes to dir and keeps the newest
// keep files; keep <= 0 keeps all of them.
type BackupService struct {
	store repository.Store
	cal   *Calendar
	dir   string
	keep  int
	log   *zap.Logger
}

func (b *BackupService) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{Version: SnapshotVersion}
	err := b.store.Atomic(ctx, func(tx repository.Store) error {
		var err error
		if snap.Records, err = tx.Records().List(ctx); err != nil {
			return err
		}
		if snap.Repairs, err = tx.Repairs().List(ctx); err != nil {
			return err
		}
		if snap.Renewals, err = tx.Renewals().List(ctx); err != nil {
			return err
		}
		if snap.Notifications, err = tx.Notifications().List(ctx, 0); err != nil {
			return err
		}
		snap.Audit, err = tx.Audit().List(ctx, 0)
		return err
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(snap.Records, func(i, j int) bool { return snap.Records[i].ID.String() < snap.Records[j].ID.String() })
	sort.Slice(snap.Repairs, func(i, j int) bool { return snap.Repairs[i].ID.String() < snap.Repairs[j].ID.String() })
	sort.Slice(snap.Renewals, func(i, j int) bool { return snap.Renewals[i].ID.String() < snap.Renewals[j].ID.String() })
	sort.Slice(snap.Notifications, func(i, j int) bool {
		return snap.Notifications[i].ID.String() < snap.Notifications[j].ID.String()
	})
	sort.Slice(snap.Audit, func(i, j int) bool { return snap.Audit[i].ID.String() < snap.Audit[j].ID.String() })

	if snap.Records == nil {
		snap.Records = []models.ServiceRecord{}
	}
	if snap.Repairs == nil {
		snap.Repairs = []models.RepairTicket{}
	}
	if snap.Renewals == nil {
		snap.Renewals = []models.RenewalEvent{}
	}
	if snap.Notifications == nil {
		snap.Notifications = []models.NotificationLog{}
	}
	if snap.Audit == nil {
		snap.Audit = []models.AuditLog{}
	}
	return snap, nil
}

// Write encodes the snapshot as indented JSON.
func (b *BackupService) Write(ctx context.Context, w io.Writer) error {
	snap, err := b.Snapshot(ctx)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// Save writes a snapshot file into the backup directory and prunes old ones.
// The file appears under its final name only once it is complete.
func (b *BackupService) Save(ctx context.Context) (string, error) {
	if b.dir == "" {
		return "", invalid("backupDir", "backup directory is not configured")
	}
	if err := os.MkdirAll(b.dir, 0o750); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	tmp, err := os.CreateTemp(b.dir, ".backup-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create backup file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := b.Write(ctx, tmp); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	path := filepath.Join(b.dir, "backup_"+b.cal.Now().Format("20060102_150405")+".json")
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("store backup file: %w", err)
	}
	removed, err := b.prune()
	if err != nil {
		b.log.Warn("pruning old backups failed", zap.Error(err))
	}
	b.log.Info("backup saved", zap.String("path", path), zap.Int("pruned", removed))
	return path, nil
}

// prune removes all but the newest keep backups. Names sort by time.
func (b *BackupService) prune() (int, error) {
	if b.keep <= 0 {
		return 0, nil
	}
	files, err := filepath.Glob(filepath.Join(b.dir, backupPattern))
	if err != nil || len(files) <= b.keep {
		return 0, err
	}
	sort.Strings(files)
	removed := 0
	for _, f := range files[:len(files)-b.keep] {
		if err := os.Remove(f); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
