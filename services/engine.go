package services

import (
	"sync"
	"time"

	"repairdesk-backend/models"
	"repairdesk-backend/repository"

	"go.uber.org/zap"
)

// Options are the policy values of the engine.
type Options struct {
	Location             *time.Location
	Now                  func() time.Time
	ExpiringSoonDays     int
	AllowedDurations     []int
	AntivirusTermYears   int
	// RepairWarrantyMonths is the default warranty on repair work; 0 gives none.
	RepairWarrantyMonths int
	NotifyOnRenewal      bool
	NotifyMaxRetries     int
	ReminderLeadDays     int
	Retention            RetentionPolicy
	Templates            Templates
	BackupDir            string
	BackupKeep           int
}

func DefaultOptions() Options {
	return Options{
		Location:             time.UTC,
		ExpiringSoonDays:     30,
		AllowedDurations:     []int{6, 12, 24},
		AntivirusTermYears:   1,
		RepairWarrantyMonths: 12,
		NotifyOnRenewal:      true,
		NotifyMaxRetries:     3,
		ReminderLeadDays:     7,
		Retention:            RetentionPolicy{AuditDays: 365, NotifyDays: 365},
		Templates:            DefaultTemplates(),
	}
}

// Engine wires every service over one store. All mutating operations share
// one writer lock.
type Engine struct {
	Store         repository.Store
	Calendar      *Calendar
	Records       *RecordService
	Repairs       *RepairService
	Customers     *Aggregator
	Renewals      *RenewalService
	Notifications *NotificationService
	Reminders     *ReminderService
	Healer        *Healer
	Retention     *RetentionService
	Exporter      *Exporter
	Importer      *Importer
	Backup        *BackupService
	Reports       *ReportService
}

func NewEngine(store repository.Store, transport Transport, opts Options, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.AntivirusTermYears <= 0 {
		opts.AntivirusTermYears = 1
	}
	durations := normalizeDurations(opts.AllowedDurations)
	if len(durations) == 0 {
		durations = DefaultOptions().AllowedDurations
	}
	if err := opts.Templates.Validate(); err != nil {
		opts.Templates = DefaultTemplates()
	}
	if transport == nil {
		transport = NewLogTransport(log)
	}

	mu := &sync.Mutex{}
	cal := NewCalendar(opts.Location, opts.Now, opts.ExpiringSoonDays)

	records := &RecordService{store: store, cal: cal, mu: mu, antivirusTermYears: opts.AntivirusTermYears, log: log}
	repairs := &RepairService{store: store, cal: cal, mu: mu, warrantyMonths: opts.RepairWarrantyMonths, log: log}
	aggregator := &Aggregator{store: store, records: records, log: log}
	notifications := &NotificationService{
		store:      store,
		cal:        cal,
		transport:  transport,
		mu:         mu,
		maxRetries: opts.NotifyMaxRetries,
		log:        log,
		templates:  opts.Templates,
	}
	renewals := &RenewalService{
		store:            store,
		cal:              cal,
		notifications:    notifications,
		mu:               mu,
		allowed:          durations,
		defaultAntivirus: models.AntivirusSingle,
		log:              log,
	}
	renewals.SetNotifyOnRenewal(opts.NotifyOnRenewal)
	reminders := &ReminderService{store: store, cal: cal, notifications: notifications, leadDays: opts.ReminderLeadDays, log: log}

	return &Engine{
		Store:         store,
		Calendar:      cal,
		Records:       records,
		Repairs:       repairs,
		Customers:     aggregator,
		Renewals:      renewals,
		Notifications: notifications,
		Reminders:     reminders,
		Healer:        &Healer{store: store, cal: cal, mu: mu, antivirusTermYears: opts.AntivirusTermYears, log: log},
		Retention:     &RetentionService{store: store, cal: cal, mu: mu, policy: opts.Retention, log: log},
		Exporter:      &Exporter{store: store, records: records, repairs: repairs, aggregator: aggregator, log: log},
		Importer:      &Importer{records: records, log: log},
		Backup:        &BackupService{store: store, cal: cal, dir: opts.BackupDir, keep: opts.BackupKeep, log: log},
		Reports:       &ReportService{store: store, cal: cal, records: records, aggregator: aggregator, reminders: reminders},
	}
}
