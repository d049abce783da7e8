package repository

import (
	"context"
	"errors"
	"time"

	"repairdesk-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStore keeps every entity in its own SQL table.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Records() RecordRepository             { return gormRecords{s.db} }
func (s *GormStore) Repairs() RepairRepository             { return gormRepairs{s.db} }
func (s *GormStore) Renewals() RenewalRepository           { return gormRenewals{s.db} }
func (s *GormStore) Notifications() NotificationRepository { return gormNotifications{s.db} }
func (s *GormStore) Audit() AuditRepository                { return gormAudit{s.db} }

func (s *GormStore) Atomic(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

type gormRecords struct{ db *gorm.DB }

func (r gormRecords) Create(ctx context.Context, rec *models.ServiceRecord) error {
	stampRecord(rec)
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r gormRecords) Update(ctx context.Context, rec *models.ServiceRecord) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	res := r.db.WithContext(ctx).Model(rec).Select("*").Updates(rec)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r gormRecords) GetByID(ctx context.Context, id uuid.UUID) (*models.ServiceRecord, error) {
	var rec models.ServiceRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

func (r gormRecords) List(ctx context.Context) ([]models.ServiceRecord, error) {
	var recs []models.ServiceRecord
	err := r.db.WithContext(ctx).Order("created_at asc").Order("id asc").Find(&recs).Error
	return recs, err
}

func (r gormRecords) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.ServiceRecord{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type gormRepairs struct{ db *gorm.DB }

func (r gormRepairs) Create(ctx context.Context, t *models.RepairTicket) error {
	stampRepair(t)
	return r.db.WithContext(ctx).Create(t).Error
}

func (r gormRepairs) Update(ctx context.Context, t *models.RepairTicket) error {
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = time.Now()
	}
	res := r.db.WithContext(ctx).Model(t).Select("*").Updates(t)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r gormRepairs) GetByID(ctx context.Context, id uuid.UUID) (*models.RepairTicket, error) {
	var t models.RepairTicket
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r gormRepairs) GetByTrackingCode(ctx context.Context, code string) (*models.RepairTicket, error) {
	var t models.RepairTicket
	if err := r.db.WithContext(ctx).First(&t, "tracking_code = ?", code).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r gormRepairs) List(ctx context.Context) ([]models.RepairTicket, error) {
	var tickets []models.RepairTicket
	err := r.db.WithContext(ctx).Order("created_at asc").Order("id asc").Find(&tickets).Error
	return tickets, err
}

func (r gormRepairs) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.RepairTicket{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type gormRenewals struct{ db *gorm.DB }

func (r gormRenewals) Create(ctx context.Context, e *models.RenewalEvent) error {
	stampRenewal(e)
	return r.db.WithContext(ctx).Create(e).Error
}

func (r gormRenewals) ListByRecord(ctx context.Context, recordID uuid.UUID) ([]models.RenewalEvent, error) {
	var events []models.RenewalEvent
	err := r.db.WithContext(ctx).
		Where("record_id = ?", recordID).
		Order("renewed_at desc").Order("id desc").
		Find(&events).Error
	return events, err
}

func (r gormRenewals) List(ctx context.Context) ([]models.RenewalEvent, error) {
	var events []models.RenewalEvent
	err := r.db.WithContext(ctx).Order("renewed_at desc").Order("id desc").Find(&events).Error
	return events, err
}

type gormNotifications struct{ db *gorm.DB }

func (r gormNotifications) Create(ctx context.Context, n *models.NotificationLog) error {
	stampNotification(n)
	return r.db.WithContext(ctx).Create(n).Error
}

func (r gormNotifications) Update(ctx context.Context, n *models.NotificationLog) error {
	n.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Model(n).Select("*").Updates(n)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r gormNotifications) GetByID(ctx context.Context, id uuid.UUID) (*models.NotificationLog, error) {
	var n models.NotificationLog
	if err := r.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

func (r gormNotifications) List(ctx context.Context, limit int) ([]models.NotificationLog, error) {
	var logs []models.NotificationLog
	q := r.db.WithContext(ctx).Order("created_at desc").Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&logs).Error
	return logs, err
}

func (r gormNotifications) ListUndelivered(ctx context.Context, maxRetries, limit int) ([]models.NotificationLog, error) {
	var logs []models.NotificationLog
	q := r.db.WithContext(ctx).
		Where("status <> ? AND retry_count < ?", models.NotificationSent, maxRetries).
		Order("created_at asc").Order("id asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&logs).Error
	return logs, err
}

func (r gormNotifications) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.NotificationLog{})
	return res.RowsAffected, res.Error
}

func (r gormNotifications) TrimTo(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	db := r.db.WithContext(ctx)
	newest := db.Model(&models.NotificationLog{}).Select("id").
		Order("created_at desc").Order("id desc").Limit(keep)
	res := db.Where("id NOT IN (?)", newest).Delete(&models.NotificationLog{})
	return res.RowsAffected, res.Error
}

type gormAudit struct{ db *gorm.DB }

func (r gormAudit) Create(ctx context.Context, a *models.AuditLog) error {
	stampAudit(a)
	return r.db.WithContext(ctx).Create(a).Error
}

func (r gormAudit) List(ctx context.Context, limit int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	q := r.db.WithContext(ctx).Order("timestamp desc").Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&logs).Error
	return logs, err
}

func (r gormAudit) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&models.AuditLog{})
	return res.RowsAffected, res.Error
}

func (r gormAudit) TrimTo(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	db := r.db.WithContext(ctx)
	newest := db.Model(&models.AuditLog{}).Select("id").
		Order("timestamp desc").Order("id desc").Limit(keep)
	res := db.Where("id NOT IN (?)", newest).Delete(&models.AuditLog{})
	return res.RowsAffected, res.Error
}
