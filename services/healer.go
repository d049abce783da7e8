package services

import (
	"context"
	"fmt"
	"sync"

	"repairdesk-backend/models"
	"repairdesk-backend/repository"
	"repairdesk-backend/utils"

	"go.uber.org/zap"
)

// HealReport summarizes one healing pass.
type HealReport struct {
	Scanned      int `json:"scanned"`
	Backfilled   int `json:"backfilled"`
	Cleared      int `json:"cleared"`
	Retyped      int `json:"retyped"`
	Unresolvable int `json:"unresolvable"`
}

func (r HealReport) Changed() int {
	return r.Backfilled + r.Cleared + r.Retyped
}

// Healer restores the antivirus invariant: a record has a parseable antivirus
// expiry exactly when its type is not none.
type Healer struct {
	store              repository.Store
	cal                *Calendar
	mu                 *sync.Mutex
	antivirusTermYears int
	log                *zap.Logger
}

// heal fixes rec in place and reports what it did.
func (h *Healer) heal(rec *models.ServiceRecord, report *HealReport) bool {
	changed := false

	t, ok := models.ParseAntivirusType(string(rec.AntivirusType))
	if !ok {
		t = models.AntivirusNone
		report.Retyped++
		changed = true
	}
	if t != rec.AntivirusType {
		rec.AntivirusType = t
		changed = true
	}

	if t == models.AntivirusNone {
		if rec.AntivirusExpiration != "" {
			rec.AntivirusExpiration = ""
			report.Cleared++
			changed = true
		}
		return changed
	}

	if _, err := utils.ParseJalali(rec.AntivirusExpiration); err == nil {
		return changed
	}
	reception, err := utils.ParseJalali(rec.ReceptionDate)
	if err != nil {
		report.Unresolvable++
		h.log.Warn("cannot backfill antivirus expiry",
			zap.String("id", rec.ID.String()),
			zap.String("receptionDate", rec.ReceptionDate))
		return changed
	}
	rec.AntivirusExpiration = reception.AddMonths(12 * h.antivirusTermYears).String()
	report.Backfilled++
	return true
}

// Heal scans every record, persists the corrected ones and writes one audit
// entry when anything changed. All corrections commit together.
func (h *Healer) Heal(ctx context.Context, user string) (HealReport, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var report HealReport
	err := h.store.Atomic(ctx, func(tx repository.Store) error {
		report = HealReport{}
		recs, err := tx.Records().List(ctx)
		if err != nil {
			return err
		}
		for i := range recs {
			rec := &recs[i]
			report.Scanned++
			if !h.heal(rec, &report) {
				continue
			}
			rec.UpdatedAt = h.cal.Now()
			if err := tx.Records().Update(ctx, rec); err != nil {
				return fmt.Errorf("persist healed record %s: %w", rec.ID, err)
			}
		}
		if report.Changed() == 0 {
			return nil
		}
		details := fmt.Sprintf("scanned %d, backfilled %d, cleared %d, retyped %d, unresolvable %d",
			report.Scanned, report.Backfilled, report.Cleared, report.Retyped, report.Unresolvable)
		return writeAudit(ctx, tx, h.cal, models.AuditHeal, "Healing pass", details, user)
	})
	if err != nil {
		return HealReport{}, err
	}

	h.log.Info("healing pass finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("backfilled", report.Backfilled),
		zap.Int("cleared", report.Cleared),
		zap.Int("retyped", report.Retyped),
		zap.Int("unresolvable", report.Unresolvable))
	return report, nil
}
