package services

import (
	"context"
	"fmt"
	"sync"

	"repairdesk-backend/repository"

	"go.uber.org/zap"
)

// RetentionPolicy bounds the audit and notification logs. Zero disables a
// limit.
type RetentionPolicy struct {
	AuditDays        int `json:"auditDays"`
	AuditMaxEntries  int `json:"auditMaxEntries"`
	NotifyDays       int `json:"notifyDays"`
	NotifyMaxEntries int `json:"notifyMaxEntries"`
}

type RetentionReport struct {
	AuditRemoved         int64 `json:"auditRemoved"`
	NotificationsRemoved int64 `json:"notificationsRemoved"`
}

type RetentionService struct {
	store  repository.Store
	cal    *Calendar
	mu     *sync.Mutex
	policy RetentionPolicy
	log    *zap.Logger
}

func (s *RetentionService) Policy() RetentionPolicy { return s.policy }

// Apply removes entries older than the configured age, then trims each log
// to its maximum size keeping the newest entries. It holds the writer lock,
// so no renewal or delivery is in flight while entries are removed.
func (s *RetentionService) Apply(ctx context.Context) (RetentionReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report RetentionReport
	now := s.cal.Now()
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		report = RetentionReport{}
		if s.policy.AuditDays > 0 {
			n, err := tx.Audit().DeleteOlderThan(ctx, now.AddDate(0, 0, -s.policy.AuditDays))
			if err != nil {
				return fmt.Errorf("prune audit log: %w", err)
			}
			report.AuditRemoved += n
		}
		if s.policy.AuditMaxEntries > 0 {
			n, err := tx.Audit().TrimTo(ctx, s.policy.AuditMaxEntries)
			if err != nil {
				return fmt.Errorf("trim audit log: %w", err)
			}
			report.AuditRemoved += n
		}
		if s.policy.NotifyDays > 0 {
			n, err := tx.Notifications().DeleteOlderThan(ctx, now.AddDate(0, 0, -s.policy.NotifyDays))
			if err != nil {
				return fmt.Errorf("prune notification log: %w", err)
			}
			report.NotificationsRemoved += n
		}
		if s.policy.NotifyMaxEntries > 0 {
			n, err := tx.Notifications().TrimTo(ctx, s.policy.NotifyMaxEntries)
			if err != nil {
				return fmt.Errorf("trim notification log: %w", err)
			}
			report.NotificationsRemoved += n
		}
		return nil
	})
	if err != nil {
		return RetentionReport{}, err
	}

	s.log.Info("retention applied",
		zap.Int64("auditRemoved", report.AuditRemoved),
		zap.Int64("notificationsRemoved", report.NotificationsRemoved))
	return report, nil
}
