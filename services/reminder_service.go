// services/reminder_service.go
package services

import (
	"context"
	"strings"

	"repairdesk-backend/models"
	"repairdesk-backend/repository"

	"go.uber.org/zap"
)

// Templates hold the message bodies used for automatic messages. They may
// contain {name}, {model}, {date} and {service}.
type Templates struct {
	Warranty            string `json:"warranty" binding:"required"`
	Antivirus           string `json:"antivirus" binding:"required"`
	RenewalConfirmation string `json:"renewalConfirmation" binding:"required"`
}

func DefaultTemplates() Templates {
	return Templates{
		Warranty:            "Dear {name}, the {service} of your {model} expires on {date}. Please contact us to renew it.",
		Antivirus:           "Dear {name}, the {service} on your {model} expires on {date}. Please contact us to renew it.",
		RenewalConfirmation: "Dear {name}, the {service} of your {model} has been renewed until {date}.",
	}
}

func (t Templates) Validate() error {
	switch {
	case strings.TrimSpace(t.Warranty) == "":
		return invalid("warranty", "template is required")
	case strings.TrimSpace(t.Antivirus) == "":
		return invalid("antivirus", "template is required")
	case strings.TrimSpace(t.RenewalConfirmation) == "":
		return invalid("renewalConfirmation", "template is required")
	}
	return nil
}

// Render substitutes {key} placeholders. Unknown placeholders are left alone.
func Render(tpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

func templateVars(rec *models.ServiceRecord, target models.RenewalTarget, date string) map[string]string {
	model := strings.TrimSpace(rec.Brand + " " + rec.Model)
	if model == "" {
		model = "device"
	}
	return map[string]string{
		"name":    rec.CustomerName,
		"model":   model,
		"date":    date,
		"service": string(target),
	}
}

// ReminderTarget is one expiry a reminder can be sent for.
type ReminderTarget struct {
	Record   *models.ServiceRecord `json:"record"`
	Target   models.RenewalTarget  `json:"target"`
	Expiry   string                `json:"expiry"`
	DaysLeft int                   `json:"daysLeft"`
}

type BatchReport struct {
	Targets int `json:"targets"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// ReminderService finds expiring warranties and antivirus licences and sends
// templated reminders for them.
type ReminderService struct {
	store         repository.Store
	cal           *Calendar
	notifications *NotificationService
	leadDays      int
	log           *zap.Logger
}

func (s *ReminderService) LeadDays() int { return s.leadDays }

// DueWithin returns every expiry at most days away, already expired ones
// included. Antivirus entries of type none are never returned.
func (s *ReminderService) DueWithin(ctx context.Context, days int) ([]ReminderTarget, error) {
	return s.targets(ctx, func(left int) bool { return left <= days })
}

// DueIn returns the expiries exactly days away.
func (s *ReminderService) DueIn(ctx context.Context, days int) ([]ReminderTarget, error) {
	return s.targets(ctx, func(left int) bool { return left == days })
}

func (s *ReminderService) targets(ctx context.Context, match func(daysLeft int) bool) ([]ReminderTarget, error) {
	recs, err := s.store.Records().List(ctx)
	if err != nil {
		return nil, err
	}

	var out []ReminderTarget
	for _, rec := range MostRecentFirst(recs) {
		rec := rec
		if days, err := s.cal.DaysUntil(rec.WarrantyExpiration); err == nil && match(days) {
			out = append(out, ReminderTarget{Record: &rec, Target: models.TargetWarranty, Expiry: rec.WarrantyExpiration, DaysLeft: days})
		}
		if rec.AntivirusType == models.AntivirusNone {
			continue
		}
		if days, err := s.cal.DaysUntil(rec.AntivirusExpiration); err == nil && match(days) {
			out = append(out, ReminderTarget{Record: &rec, Target: models.TargetAntivirus, Expiry: rec.AntivirusExpiration, DaysLeft: days})
		}
	}
	return out, nil
}

// Send renders the configured template for each target and dispatches it.
// Targets without a phone number are skipped.
func (s *ReminderService) Send(ctx context.Context, targets []ReminderTarget) (BatchReport, error) {
	s.notifications.mu.Lock()
	defer s.notifications.mu.Unlock()

	report := BatchReport{Targets: len(targets)}
	tpls := s.notifications.Templates()
	for _, t := range targets {
		if strings.TrimSpace(t.Record.PhoneNumber) == "" {
			report.Skipped++
			continue
		}
		tpl, category := tpls.Warranty, models.CategoryWarrantyWarning
		if t.Target == models.TargetAntivirus {
			tpl, category = tpls.Antivirus, models.CategoryAntivirusWarning
		}
		msg := Render(tpl, templateVars(t.Record, t.Target, t.Expiry))

		n, err := s.notifications.queueAndDeliver(ctx, t.Record, category, msg)
		if err != nil {
			return report, err
		}
		if n.Status == models.NotificationSent {
			report.Sent++
		} else {
			report.Failed++
		}
	}
	return report, nil
}

// SendDailyReminders sends one reminder per expiry that is exactly the lead
// time away, so a given expiry is reminded once.
func (s *ReminderService) SendDailyReminders(ctx context.Context) (BatchReport, error) {
	s.log.Info("Starting daily reminder processing", zap.Int("leadDays", s.leadDays))
	targets, err := s.DueIn(ctx, s.leadDays)
	if err != nil {
		return BatchReport{}, err
	}
	report, err := s.Send(ctx, targets)
	if err != nil {
		return report, err
	}
	s.log.Info("Daily reminder processing completed",
		zap.Int("targets", report.Targets),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed))
	return report, nil
}
