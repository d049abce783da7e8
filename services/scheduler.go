package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Schedule holds the cron specs of the background jobs. An empty spec
// disables the job; the backup job is off by default.
type Schedule struct {
	Heal      string
	Retention string
	Retry     string
	Reminders string
	Backup    string
}

func DefaultSchedule() Schedule {
	return Schedule{
		Heal:      "@daily",
		Retention: "@daily",
		Retry:     "@every 15m",
		Reminders: "0 9 * * *",
	}
}

const jobTimeout = 5 * time.Minute

// Scheduler runs the engine's periodic jobs in the shop's time zone.
type Scheduler struct {
	engine *Engine
	cron   *cron.Cron
	log    *zap.Logger
}

func NewScheduler(e *Engine, schedule Schedule, loc *time.Location, log *zap.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := &Scheduler{
		engine: e,
		cron:   cron.New(cron.WithLocation(loc), cron.WithParser(cronParser)),
		log:    log,
	}

	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) error
	}{
		{"heal", schedule.Heal, func(ctx context.Context) error {
			_, err := e.Healer.Heal(ctx, "system")
			return err
		}},
		{"retention", schedule.Retention, func(ctx context.Context) error {
			_, err := e.Retention.Apply(ctx)
			return err
		}},
		{"notification-retry", schedule.Retry, func(ctx context.Context) error {
			_, err := e.Notifications.Retry(ctx)
			return err
		}},
		{"expiry-reminders", schedule.Reminders, func(ctx context.Context) error {
			_, err := e.Reminders.SendDailyReminders(ctx)
			return err
		}},
		{"backup", schedule.Backup, func(ctx context.Context) error {
			_, err := e.Backup.Save(ctx)
			return err
		}},
	}
	for _, j := range jobs {
		if j.spec == "" {
			continue
		}
		j := j
		if _, err := s.cron.AddFunc(j.spec, func() { s.runJob(j.name, j.run) }); err != nil {
			return nil, err
		}
		log.Info("job scheduled", zap.String("job", j.name), zap.String("spec", j.spec))
	}
	return s, nil
}

func (s *Scheduler) runJob(name string, run func(ctx context.Context) error) {
	defer func() {
		if err := recover(); err != nil {
			s.log.Error("job panicked", zap.String("job", name), zap.Any("panic", err))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	start := time.Now()
	if err := run(ctx); err != nil {
		s.log.Error("job failed", zap.String("job", name), zap.Error(err))
		return
	}
	s.log.Debug("job finished", zap.String("job", name), zap.Duration("took", time.Since(start)))
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Scheduler started")
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
