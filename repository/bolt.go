package repository

import (
	"context"
	"fmt"
	"time"

	"repairdesk-backend/models"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var (
	recordsBucket       = []byte("records")
	repairsBucket       = []byte("repairs")
	renewalsBucket      = []byte("renewals")
	notificationsBucket = []byte("notifications")
	auditBucket         = []byte("audit")
)

// BoltStore keeps everything in one local file, one bucket per entity, values
// JSON encoded under the entity id.
type BoltStore struct {
	db *bolt.DB
	tx *bolt.Tx
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{recordsBucket, repairsBucket, renewalsBucket, notificationsBucket, auditBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Records() RecordRepository             { return boltRecords{s} }
func (s *BoltStore) Repairs() RepairRepository             { return boltRepairs{s} }
func (s *BoltStore) Renewals() RenewalRepository           { return boltRenewals{s} }
func (s *BoltStore) Notifications() NotificationRepository { return boltNotifications{s} }
func (s *BoltStore) Audit() AuditRepository                { return boltAudit{s} }

func (s *BoltStore) Atomic(ctx context.Context, fn func(tx Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(&BoltStore{db: s.db, tx: tx})
	})
}

func (s *BoltStore) Close() error {
	if s.tx != nil {
		return nil
	}
	return s.db.Close()
}

func (s *BoltStore) update(fn func(tx *bolt.Tx) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	return s.db.Update(fn)
}

func (s *BoltStore) view(fn func(tx *bolt.Tx) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	return s.db.View(fn)
}

func boltPut(tx *bolt.Tx, bucket []byte, id uuid.UUID, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return tx.Bucket(bucket).Put([]byte(id.String()), data)
}

func boltExists(tx *bolt.Tx, bucket []byte, id uuid.UUID) bool {
	return tx.Bucket(bucket).Get([]byte(id.String())) != nil
}

func boltGet[T any](tx *bolt.Tx, bucket []byte, id uuid.UUID) (*T, error) {
	data := tx.Bucket(bucket).Get([]byte(id.String()))
	if data == nil {
		return nil, ErrNotFound
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", bucket, id, err)
	}
	return &v, nil
}

func boltAll[T any](tx *bolt.Tx, bucket []byte) ([]T, error) {
	var out []T
	err := tx.Bucket(bucket).ForEach(func(k, data []byte) error {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("decode %s/%s: %w", bucket, k, err)
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

func boltDelete(tx *bolt.Tx, bucket []byte, ids []uuid.UUID) (int64, error) {
	b := tx.Bucket(bucket)
	for _, id := range ids {
		if err := b.Delete([]byte(id.String())); err != nil {
			return 0, err
		}
	}
	return int64(len(ids)), nil
}

type boltRecords struct{ s *BoltStore }

func (r boltRecords) Create(ctx context.Context, rec *models.ServiceRecord) error {
	stampRecord(rec)
	return r.s.update(func(tx *bolt.Tx) error {
		return boltPut(tx, recordsBucket, rec.ID, rec)
	})
}

func (r boltRecords) Update(ctx context.Context, rec *models.ServiceRecord) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	return r.s.update(func(tx *bolt.Tx) error {
		if !boltExists(tx, recordsBucket, rec.ID) {
			return ErrNotFound
		}
		return boltPut(tx, recordsBucket, rec.ID, rec)
	})
}

func (r boltRecords) GetByID(ctx context.Context, id uuid.UUID) (rec *models.ServiceRecord, err error) {
	err = r.s.view(func(tx *bolt.Tx) error {
		rec, err = boltGet[models.ServiceRecord](tx, recordsBucket, id)
		return err
	})
	return rec, err
}

func (r boltRecords) List(ctx context.Context) (recs []models.ServiceRecord, err error) {
	err = r.s.view(func(tx *bolt.Tx) error {
		recs, err = boltAll[models.ServiceRecord](tx, recordsBucket)
		return err
	})
	sortRecords(recs)
	return recs, err
}

func (r boltRecords) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.update(func(tx *bolt.Tx) error {
		if !boltExists(tx, recordsBucket, id) {
			return ErrNotFound
		}
		_, err := boltDelete(tx, recordsBucket, []uuid.UUID{id})
		return err
	})
}

type boltRepairs struct{ s *BoltStore }

func (r boltRepairs) Create(ctx context.Context, t *models.RepairTicket) error {
	stampRepair(t)
	return r.s.update(func(tx *bolt.Tx) error {
		return boltPut(tx, repairsBucket, t.ID, t)
	})
}

func (r boltRepairs) Update(ctx context.Context, t *models.RepairTicket) error {
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = time.Now()
	}
	return r.s.update(func(tx *bolt.Tx) error {
		if !boltExists(tx, repairsBucket, t.ID) {
			return ErrNotFound
		}
		return boltPut(tx, repairsBucket, t.ID, t)
	})
}

func (r boltRepairs) GetByID(ctx context.Context, id uuid.UUID) (t *models.RepairTicket, err error) {
	err = r.s.view(func(tx *bolt.Tx) error {
		t, err = boltGet[models.RepairTicket](tx, repairsBucket, id)
		return err
	})
	return t, err
}

func (r boltRepairs) GetByTrackingCode(ctx context.Context, code string) (*models.RepairTicket, error) {
	tickets, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tickets {
		if tickets[i].TrackingCode == code {
			return &tickets[i], nil
		}
	}
	return nil, ErrNotFound
}

func (r boltRepairs) List(ctx context.Context) (tickets []models.RepairTicket, err error) {
	err = r.s.view(func(tx *bolt.Tx) error {
		tickets, err = boltAll[models.RepairTicket](tx, repairsBucket)
		return err
	})
	sortRepairs(tickets)
	return tickets, err
}

func (r boltRepairs) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.update(func(tx *bolt.Tx) error {
		if !boltExists(tx, repairsBucket, id) {
			return ErrNotFound
		}
		_, err := boltDelete(tx, repairsBucket, []uuid.UUID{id})
		return err
	})
}

type boltRenewals struct{ s *BoltStore }

func (r boltRenewals) Create(ctx context.Context, e *models.RenewalEvent) error {
	stampRenewal(e)
	return r.s.update(func(tx *bolt.Tx) error {
		return boltPut(tx, renewalsBucket, e.ID, e)
	})
}

func (r boltRenewals) ListByRecord(ctx context.Context, recordID uuid.UUID) ([]models.RenewalEvent, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.RenewalEvent
	for _, e := range all {
		if e.RecordID == recordID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r boltRenewals) List(ctx context.Context) (events []models.RenewalEvent, err error) {
	err = r.s.view(func(tx *bolt.Tx) error {
		events, err = boltAll[models.RenewalEvent](tx, renewalsBucket)
		return err
	})
	sortRenewals(events)
	return events, err
}

type boltNotifications struct{ s *BoltStore }

func (r boltNotifications) Create(ctx context.Context, n *models.NotificationLog) error {
	stampNotification(n)
	return r.s.update(func(tx *bolt.Tx) error {
		return boltPut(tx, notificationsBucket, n.ID, n)
	})
}

func (r boltNotifications) Update(ctx context.Context, n *models.NotificationLog) error {
	n.UpdatedAt = time.Now()
	return r.s.update(func(tx *bolt.Tx) error {
		if !boltExists(tx, notificationsBucket, n.ID) {
			return ErrNotFound
		}
		return boltPut(tx, notificationsBucket, n.ID, n)
	})
}

func (r boltNotifications) GetByID(ctx context.Context, id uuid.UUID) (n *models.NotificationLog, err error) {
	err = r.s.view(func(tx *bolt.Tx) error {
		n, err = boltGet[models.NotificationLog](tx, notificationsBucket, id)
		return err
	})
	return n, err
}

func (r boltNotifications) all() (logs []models.NotificationLog, err error) {
	err = r.s.view(func(tx *bolt.Tx) error {
		logs, err = boltAll[models.NotificationLog](tx, notificationsBucket)
		return err
	})
	sortNotifications(logs)
	return logs, err
}

func (r boltNotifications) List(ctx context.Context, limit int) ([]models.NotificationLog, error) {
	logs, err := r.all()
	return head(logs, limit), err
}

func (r boltNotifications) ListUndelivered(ctx context.Context, maxRetries, limit int) ([]models.NotificationLog, error) {
	logs, err := r.all()
	if err != nil {
		return nil, err
	}
	return undelivered(logs, maxRetries, limit), nil
}

func (r boltNotifications) DeleteOlderThan(ctx context.Context, cutoff time.Time) (n int64, err error) {
	err = r.s.update(func(tx *bolt.Tx) error {
		logs, err := boltAll[models.NotificationLog](tx, notificationsBucket)
		if err != nil {
			return err
		}
		var ids []uuid.UUID
		for _, l := range logs {
			if l.CreatedAt.Before(cutoff) {
				ids = append(ids, l.ID)
			}
		}
		n, err = boltDelete(tx, notificationsBucket, ids)
		return err
	})
	return n, err
}

func (r boltNotifications) TrimTo(ctx context.Context, keep int) (n int64, err error) {
	if keep <= 0 {
		return 0, nil
	}
	err = r.s.update(func(tx *bolt.Tx) error {
		logs, err := boltAll[models.NotificationLog](tx, notificationsBucket)
		if err != nil {
			return err
		}
		sortNotifications(logs)
		var ids []uuid.UUID
		for i := keep; i < len(logs); i++ {
			ids = append(ids, logs[i].ID)
		}
		n, err = boltDelete(tx, notificationsBucket, ids)
		return err
	})
	return n, err
}

type boltAudit struct{ s *BoltStore }

func (r boltAudit) Create(ctx context.Context, a *models.AuditLog) error {
	stampAudit(a)
	return r.s.update(func(tx *bolt.Tx) error {
		return boltPut(tx, auditBucket, a.ID, a)
	})
}

func (r boltAudit) List(ctx context.Context, limit int) (logs []models.AuditLog, err error) {
	err = r.s.view(func(tx *bolt.Tx) error {
		logs, err = boltAll[models.AuditLog](tx, auditBucket)
		return err
	})
	sortAudit(logs)
	return head(logs, limit), err
}

func (r boltAudit) DeleteOlderThan(ctx context.Context, cutoff time.Time) (n int64, err error) {
	err = r.s.update(func(tx *bolt.Tx) error {
		logs, err := boltAll[models.AuditLog](tx, auditBucket)
		if err != nil {
			return err
		}
		var ids []uuid.UUID
		for _, l := range logs {
			if l.Timestamp.Before(cutoff) {
				ids = append(ids, l.ID)
			}
		}
		n, err = boltDelete(tx, auditBucket, ids)
		return err
	})
	return n, err
}

func (r boltAudit) TrimTo(ctx context.Context, keep int) (n int64, err error) {
	if keep <= 0 {
		return 0, nil
	}
	err = r.s.update(func(tx *bolt.Tx) error {
		logs, err := boltAll[models.AuditLog](tx, auditBucket)
		if err != nil {
			return err
		}
		sortAudit(logs)
		var ids []uuid.UUID
		for i := keep; i < len(logs); i++ {
			ids = append(ids, logs[i].ID)
		}
		n, err = boltDelete(tx, auditBucket, ids)
		return err
	})
	return n, err
}
