package services

import (
	"context"

	"repairdesk-backend/models"
	"repairdesk-backend/repository"
	"repairdesk-backend/utils"

	"github.com/shopspring/decimal"
)

// DashboardOverview is the summary shown on the dashboard.
type DashboardOverview struct {
	TotalRecords         int                   `json:"totalRecords"`
	TotalCustomers       int                   `json:"totalCustomers"`
	SkippedRecords       int                   `json:"skippedRecords"`
	Revenue              decimal.Decimal       `json:"revenue"`
	MonthlyRevenue       decimal.Decimal       `json:"monthlyRevenue"`
	WarrantyStatus       map[Status]int        `json:"warrantyStatus"`
	AntivirusStatus      map[Status]int        `json:"antivirusStatus"`
	ExpiringWarranty     []ReminderTarget      `json:"expiringWarranty"`
	ExpiringAntivirus    []ReminderTarget      `json:"expiringAntivirus"`
	RecentRenewals       []models.RenewalEvent `json:"recentRenewals"`
	FailedNotifications  int                   `json:"failedNotifications"`
	PendingNotifications int                   `json:"pendingNotifications"`

	RepairStatus  map[models.RepairStatus]int `json:"repairStatus"`
	OpenRepairs   int                         `json:"openRepairs"`
	RepairRevenue decimal.Decimal             `json:"repairRevenue"`
}

const recentRenewalCount = 5

type ReportService struct {
	store      repository.Store
	cal        *Calendar
	records    *RecordService
	aggregator *Aggregator
	reminders  *ReminderService
}

// Overview builds the dashboard from one read of the store. Records of
// antivirus type none are left out of the antivirus histogram and list.
func (s *ReportService) Overview(ctx context.Context) (*DashboardOverview, error) {
	recs, err := s.store.Records().List(ctx)
	if err != nil {
		return nil, err
	}

	out := &DashboardOverview{
		TotalRecords:      len(recs),
		Revenue:           decimal.Zero,
		MonthlyRevenue:    decimal.Zero,
		WarrantyStatus:    map[Status]int{},
		AntivirusStatus:   map[Status]int{},
		ExpiringWarranty:  []ReminderTarget{},
		ExpiringAntivirus: []ReminderTarget{},
		RepairStatus:      map[models.RepairStatus]int{},
		RepairRevenue:     decimal.Zero,
	}

	today := s.cal.Today()
	for i := range recs {
		rec := &recs[i]
		amount := utils.AmountOrZero(rec.TotalPrice)
		out.Revenue = out.Revenue.Add(amount)
		if d, err := utils.ParseJalali(rec.ReceptionDate); err == nil && d.Year == today.Year && d.Month == today.Month {
			out.MonthlyRevenue = out.MonthlyRevenue.Add(amount)
		}

		view := s.records.View(rec)
		out.WarrantyStatus[view.Warranty.Status]++
		if rec.AntivirusType != models.AntivirusNone {
			out.AntivirusStatus[view.Antivirus.Status]++
		}
	}

	tickets, err := s.store.Repairs().List(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tickets {
		out.RepairStatus[t.Status]++
		if t.Status.Open() {
			out.OpenRepairs++
		}
		if t.Status == models.RepairCompleted {
			out.RepairRevenue = out.RepairRevenue.Add(utils.AmountOrZero(t.Cost))
		}
	}

	agg := s.aggregator.Aggregate(recs)
	out.SkippedRecords = agg.Skipped
	s.aggregator.AttachRepairs(&agg, tickets)
	out.TotalCustomers = len(agg.Customers)

	due, err := s.reminders.DueWithin(ctx, s.cal.ExpiringSoonDays())
	if err != nil {
		return nil, err
	}
	for _, t := range due {
		if t.DaysLeft < 0 {
			continue
		}
		if t.Target == models.TargetAntivirus {
			out.ExpiringAntivirus = append(out.ExpiringAntivirus, t)
		} else {
			out.ExpiringWarranty = append(out.ExpiringWarranty, t)
		}
	}

	renewals, err := s.store.Renewals().List(ctx)
	if err != nil {
		return nil, err
	}
	if len(renewals) > recentRenewalCount {
		renewals = renewals[:recentRenewalCount]
	}
	out.RecentRenewals = renewals
	if out.RecentRenewals == nil {
		out.RecentRenewals = []models.RenewalEvent{}
	}

	logs, err := s.store.Notifications().List(ctx, 0)
	if err != nil {
		return nil, err
	}
	for _, n := range logs {
		switch n.Status {
		case models.NotificationFailed:
			out.FailedNotifications++
		case models.NotificationPending:
			out.PendingNotifications++
		}
	}
	return out, nil
}
