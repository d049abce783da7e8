package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"repairdesk-backend/models"
	"repairdesk-backend/repository"
	"repairdesk-backend/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RenewalRequest struct {
	RecordID       uuid.UUID
	Target         models.RenewalTarget
	DurationMonths int
	User           string
}

type RenewalResult struct {
	Record       *models.ServiceRecord   `json:"record"`
	Event        *models.RenewalEvent    `json:"event"`
	Notification *models.NotificationLog `json:"notification,omitempty"`
}

// RenewalService extends warranty and antivirus expiries.
type RenewalService struct {
	store            repository.Store
	cal              *Calendar
	notifications    *NotificationService
	mu               *sync.Mutex
	allowed          []int
	defaultAntivirus models.AntivirusType
	notifyOnRenewal  atomic.Bool
	log              *zap.Logger
}

func (s *RenewalService) AllowedDurations() []int {
	out := make([]int, len(s.allowed))
	copy(out, s.allowed)
	return out
}

func (s *RenewalService) NotifyOnRenewal() bool { return s.notifyOnRenewal.Load() }

func (s *RenewalService) SetNotifyOnRenewal(on bool) { s.notifyOnRenewal.Store(on) }

func (s *RenewalService) durationAllowed(months int) bool {
	for _, m := range s.allowed {
		if m == months {
			return true
		}
	}
	return false
}

// Renew moves the chosen expiry forward by req.DurationMonths. Remaining
// validity is kept: the base is the current expiry while it is today or
// later, otherwise today. The record update, description note, renewal
// event, audit entry and (when enabled) the notification entry are written
// in one transaction. Delivery of the notification happens after commit.
func (s *RenewalService) Renew(ctx context.Context, req RenewalRequest) (*RenewalResult, error) {
	if !req.Target.Valid() {
		return nil, invalid("target", "must be %q or %q", models.TargetWarranty, models.TargetAntivirus)
	}
	if !s.durationAllowed(req.DurationMonths) {
		return nil, invalid("durationMonths", "%d is not one of %v", req.DurationMonths, s.allowed)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.cal.Today()
	notify := s.NotifyOnRenewal()
	result := &RenewalResult{}

	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		rec, err := tx.Records().GetByID(ctx, req.RecordID)
		if err != nil {
			return mapNotFound(err, "record", req.RecordID.String())
		}

		previous := rec.Expiry(req.Target)
		base := today
		if d, err := utils.ParseJalali(previous); err == nil && utils.DaysBetweenJalali(today, d) >= 0 {
			base = d
		}
		next := base.AddMonths(req.DurationMonths).String()

		rec.SetExpiry(req.Target, next)
		if req.Target == models.TargetAntivirus && rec.AntivirusType == models.AntivirusNone {
			rec.AntivirusType = s.defaultAntivirus
		}
		rec.AppendNote(fmt.Sprintf("%s: %s renewed for %d months until %s",
			today, req.Target, req.DurationMonths, next))
		rec.UpdatedAt = s.cal.Now()
		if err := tx.Records().Update(ctx, rec); err != nil {
			return mapNotFound(err, "record", req.RecordID.String())
		}

		event := &models.RenewalEvent{
			RecordID:       rec.ID,
			Target:         req.Target,
			DurationMonths: req.DurationMonths,
			PreviousExpiry: previous,
			Base:           base.String(),
			NewExpiry:      next,
			User:           userOrSystem(req.User),
			RenewedAt:      s.cal.Now(),
		}
		if err := tx.Renewals().Create(ctx, event); err != nil {
			return fmt.Errorf("write renewal event: %w", err)
		}

		details := fmt.Sprintf("%s renewed for %d months (%s -> %s) on %s",
			req.Target, req.DurationMonths, displayDate(previous), next, describe(rec))
		if err := writeAudit(ctx, tx, s.cal, models.AuditRenew, "Renewal", details, req.User); err != nil {
			return err
		}

		if notify && rec.PhoneNumber != "" {
			msg := Render(s.notifications.Templates().RenewalConfirmation, templateVars(rec, req.Target, next))
			n := s.notifications.newEntry(rec, models.CategoryRenewalConfirmation, msg)
			if err := tx.Notifications().Create(ctx, n); err != nil {
				return fmt.Errorf("queue renewal notification: %w", err)
			}
			result.Notification = n
		}

		result.Record = rec
		result.Event = event
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("renewal applied",
		zap.String("record", req.RecordID.String()),
		zap.String("target", string(req.Target)),
		zap.Int("months", req.DurationMonths),
		zap.String("expiry", result.Event.NewExpiry))

	if result.Notification != nil {
		if err := s.notifications.deliver(ctx, result.Notification); err != nil {
			s.log.Error("storing renewal notification outcome failed", zap.Error(err))
		}
	}
	return result, nil
}

// History returns the renewal events of one record, newest first.
func (s *RenewalService) History(ctx context.Context, recordID uuid.UUID) ([]models.RenewalEvent, error) {
	if _, err := s.store.Records().GetByID(ctx, recordID); err != nil {
		return nil, mapNotFound(err, "record", recordID.String())
	}
	return s.store.Renewals().ListByRecord(ctx, recordID)
}

func userOrSystem(user string) string {
	if user == "" {
		return "system"
	}
	return user
}

func displayDate(d string) string {
	if d == "" {
		return "unset"
	}
	return d
}

func normalizeDurations(ds []int) []int {
	seen := map[int]bool{}
	var out []int
	for _, d := range ds {
		if d > 0 && !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Ints(out)
	return out
}
