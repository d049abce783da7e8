// Package repository holds the typed data access layer. Every entity gets its
// own repository; a Store groups them and runs multi-entity writes atomically.
package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"repairdesk-backend/models"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

// RecordRepository lists records oldest first (createdAt, then id).
type RecordRepository interface {
	Create(ctx context.Context, r *models.ServiceRecord) error
	Update(ctx context.Context, r *models.ServiceRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ServiceRecord, error)
	List(ctx context.Context) ([]models.ServiceRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// RepairRepository lists tickets oldest first (createdAt, then id).
type RepairRepository interface {
	Create(ctx context.Context, r *models.RepairTicket) error
	Update(ctx context.Context, r *models.RepairTicket) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.RepairTicket, error)
	GetByTrackingCode(ctx context.Context, code string) (*models.RepairTicket, error)
	List(ctx context.Context) ([]models.RepairTicket, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// RenewalRepository lists events newest first.
type RenewalRepository interface {
	Create(ctx context.Context, e *models.RenewalEvent) error
	ListByRecord(ctx context.Context, recordID uuid.UUID) ([]models.RenewalEvent, error)
	List(ctx context.Context) ([]models.RenewalEvent, error)
}

// NotificationRepository lists entries newest first. A limit of 0 means all.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.NotificationLog) error
	Update(ctx context.Context, n *models.NotificationLog) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.NotificationLog, error)
	List(ctx context.Context, limit int) ([]models.NotificationLog, error)
	// ListUndelivered returns entries not yet sent with fewer than maxRetries
	// attempts, oldest first.
	ListUndelivered(ctx context.Context, maxRetries, limit int) ([]models.NotificationLog, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	// TrimTo keeps the newest keep entries. keep <= 0 is a no-op.
	TrimTo(ctx context.Context, keep int) (int64, error)
}

// AuditRepository lists entries newest first. A limit of 0 means all.
type AuditRepository interface {
	Create(ctx context.Context, a *models.AuditLog) error
	List(ctx context.Context, limit int) ([]models.AuditLog, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	TrimTo(ctx context.Context, keep int) (int64, error)
}

// Store is the persistence boundary. Atomic runs fn against a transactional
// view of the store: either every write inside fn is kept or none is.
type Store interface {
	Records() RecordRepository
	Repairs() RepairRepository
	Renewals() RenewalRepository
	Notifications() NotificationRepository
	Audit() AuditRepository
	Atomic(ctx context.Context, fn func(tx Store) error) error
	Close() error
}

func sortRecords(rs []models.ServiceRecord) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].CreatedAt.Before(rs[j].CreatedAt)
		}
		return rs[i].ID.String() < rs[j].ID.String()
	})
}

func sortRepairs(rs []models.RepairTicket) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].CreatedAt.Before(rs[j].CreatedAt)
		}
		return rs[i].ID.String() < rs[j].ID.String()
	})
}

func sortRenewals(es []models.RenewalEvent) {
	sort.SliceStable(es, func(i, j int) bool {
		if !es[i].RenewedAt.Equal(es[j].RenewedAt) {
			return es[i].RenewedAt.After(es[j].RenewedAt)
		}
		return es[i].ID.String() > es[j].ID.String()
	})
}

func sortNotifications(ns []models.NotificationLog) {
	sort.SliceStable(ns, func(i, j int) bool {
		if !ns[i].CreatedAt.Equal(ns[j].CreatedAt) {
			return ns[i].CreatedAt.After(ns[j].CreatedAt)
		}
		return ns[i].ID.String() > ns[j].ID.String()
	})
}

func sortAudit(as []models.AuditLog) {
	sort.SliceStable(as, func(i, j int) bool {
		if !as[i].Timestamp.Equal(as[j].Timestamp) {
			return as[i].Timestamp.After(as[j].Timestamp)
		}
		return as[i].ID.String() > as[j].ID.String()
	})
}

func undelivered(all []models.NotificationLog, maxRetries, limit int) []models.NotificationLog {
	var out []models.NotificationLog
	// all is newest first; walk backwards for oldest first
	for i := len(all) - 1; i >= 0; i-- {
		n := all[i]
		if n.Status == models.NotificationSent || n.RetryCount >= maxRetries {
			continue
		}
		out = append(out, n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func head[T any](xs []T, limit int) []T {
	if limit > 0 && len(xs) > limit {
		return xs[:limit]
	}
	return xs
}

func stampRecord(r *models.ServiceRecord) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
}

func stampRepair(r *models.RepairTicket) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
}

func stampRenewal(e *models.RenewalEvent) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.RenewedAt.IsZero() {
		e.RenewedAt = time.Now()
	}
}

func stampNotification(n *models.NotificationLog) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}
}

func stampAudit(a *models.AuditLog) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
}
