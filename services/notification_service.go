package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"repairdesk-backend/models"
	"repairdesk-backend/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationService appends to the notification log and hands entries to
// the transport. Entries start pending and end sent or failed; failed
// entries are retried with their original content.
type NotificationService struct {
	store      repository.Store
	cal        *Calendar
	transport  Transport
	mu         *sync.Mutex
	maxRetries int
	log        *zap.Logger

	tplMu     sync.RWMutex
	templates Templates
}

type RetryReport struct {
	Attempted int `json:"attempted"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}

func (s *NotificationService) Templates() Templates {
	s.tplMu.RLock()
	defer s.tplMu.RUnlock()
	return s.templates
}

func (s *NotificationService) SetTemplates(t Templates) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.tplMu.Lock()
	s.templates = t
	s.tplMu.Unlock()
	return nil
}

func (s *NotificationService) MaxRetries() int { return s.maxRetries }

// Dispatch records a manual reminder for a record. message is sent as is;
// placeholder substitution is the caller's job.
func (s *NotificationService) Dispatch(ctx context.Context, recordID uuid.UUID, message string) (*models.NotificationLog, error) {
	if strings.TrimSpace(message) == "" {
		return nil, invalid("message", "message is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.Records().GetByID(ctx, recordID)
	if err != nil {
		return nil, mapNotFound(err, "record", recordID.String())
	}
	return s.queueAndDeliver(ctx, rec, models.CategoryManualReminder, message)
}

func (s *NotificationService) List(ctx context.Context, limit int) ([]models.NotificationLog, error) {
	return s.store.Notifications().List(ctx, limit)
}

func (s *NotificationService) Get(ctx context.Context, id uuid.UUID) (*models.NotificationLog, error) {
	n, err := s.store.Notifications().GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "notification", id.String())
	}
	return n, nil
}

// RetryOne re-delivers a single entry on request. The retry limit of the
// background job does not apply; an entry already sent is refused.
func (s *NotificationService) RetryOne(ctx context.Context, id uuid.UUID) (*models.NotificationLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.store.Notifications().GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "notification", id.String())
	}
	if n.Status == models.NotificationSent {
		return nil, invalid("status", "notification %s was already sent", id)
	}
	n.RetryCount++
	if err := s.deliver(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Retry re-delivers pending and failed entries that still have attempts left.
func (s *NotificationService) Retry(ctx context.Context) (RetryReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report RetryReport
	entries, err := s.store.Notifications().ListUndelivered(ctx, s.maxRetries, 0)
	if err != nil {
		return report, err
	}
	for i := range entries {
		n := &entries[i]
		n.RetryCount++
		report.Attempted++
		if err := s.deliver(ctx, n); err != nil {
			return report, err
		}
		if n.Status == models.NotificationSent {
			report.Sent++
		} else {
			report.Failed++
		}
	}
	if report.Attempted > 0 {
		s.log.Info("notification retry finished",
			zap.Int("attempted", report.Attempted),
			zap.Int("sent", report.Sent),
			zap.Int("failed", report.Failed))
	}
	return report, nil
}

// newEntry builds a pending log entry for rec. The caller persists it.
func (s *NotificationService) newEntry(rec *models.ServiceRecord, category, message string) *models.NotificationLog {
	now := s.cal.Now()
	return &models.NotificationLog{
		RecordID:       rec.ID,
		RecipientName:  rec.CustomerName,
		RecipientPhone: rec.PhoneNumber,
		Category:       category,
		MessageContent: message,
		SentDate:       s.cal.Timestamp(),
		Status:         models.NotificationPending,
		Channel:        s.transport.Name(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// queueAndDeliver must be called with s.mu held.
func (s *NotificationService) queueAndDeliver(ctx context.Context, rec *models.ServiceRecord, category, message string) (*models.NotificationLog, error) {
	if strings.TrimSpace(rec.PhoneNumber) == "" {
		return nil, invalid("phoneNumber", "record %s has no phone number", rec.ID)
	}
	n := s.newEntry(rec, category, message)
	if err := s.store.Notifications().Create(ctx, n); err != nil {
		return nil, err
	}
	if err := s.deliver(ctx, n); err != nil {
		return n, err
	}
	return n, nil
}

// deliver sends n and stores the outcome. A transport failure is recorded on
// the entry; only a store failure is returned. Must be called with s.mu held.
func (s *NotificationService) deliver(ctx context.Context, n *models.NotificationLog) error {
	ref, sendErr := s.transport.Send(ctx, n.RecipientPhone, n.MessageContent)
	n.SentDate = s.cal.Timestamp()
	n.Channel = s.transport.Name()
	if sendErr != nil {
		n.Status = models.NotificationFailed
		n.ErrorMessage = sendErr.Error()
		s.log.Warn("notification delivery failed",
			zap.String("id", n.ID.String()),
			zap.Int("retry", n.RetryCount),
			zap.Error(sendErr))
	} else {
		n.Status = models.NotificationSent
		n.ProviderRef = ref
		n.ErrorMessage = ""
	}
	if err := s.store.Notifications().Update(ctx, n); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// pruned by retention while in flight
			return nil
		}
		return err
	}
	return nil
}
