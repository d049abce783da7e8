package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"repairdesk-backend/config"
	"repairdesk-backend/repository"
	"repairdesk-backend/routes"
	"repairdesk-backend/services"
	"repairdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		hashPassword(os.Args[2:])
		return
	}

	settings := config.LoadSettings()
	logger := config.InitLogger(settings.Log)
	defer logger.Sync() //nolint:errcheck

	if settings.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}
	if settings.AdminPasswordHash == "" {
		logger.Warn("ADMIN_PASSWORD_HASH is not set, login is disabled")
	}
	if err := utils.RegisterValidators(); err != nil {
		logger.Fatal("failed to register validators", zap.Error(err))
	}

	store, err := openStore(settings)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", settings.StoreDriver), zap.Error(err))
	}
	defer store.Close()

	loc := settings.Location()
	opts := services.DefaultOptions()
	opts.Location = loc
	opts.ExpiringSoonDays = settings.ExpiringSoonDays
	opts.AllowedDurations = settings.AllowedDurations
	opts.AntivirusTermYears = settings.AntivirusTermYears
	opts.RepairWarrantyMonths = settings.RepairWarrantyMonths
	opts.NotifyOnRenewal = settings.NotifyOnRenewal
	opts.NotifyMaxRetries = settings.NotifyMaxRetries
	opts.ReminderLeadDays = settings.ReminderLeadDays
	opts.Retention = services.RetentionPolicy{
		AuditDays:        settings.AuditRetentionDays,
		AuditMaxEntries:  settings.AuditMaxEntries,
		NotifyDays:       settings.NotifyRetentionDays,
		NotifyMaxEntries: settings.NotifyMaxEntries,
	}
	opts.BackupDir = settings.BackupDir
	opts.BackupKeep = settings.BackupKeep

	engine := services.NewEngine(store, newTransport(settings, logger), opts, logger)

	report, err := engine.Healer.Heal(context.Background(), "system")
	if err != nil {
		logger.Error("startup heal failed", zap.Error(err))
	} else if report.Changed() > 0 {
		logger.Info("healed records at startup", zap.Any("report", report))
	}

	scheduler, err := services.NewScheduler(engine, services.Schedule{
		Heal:      settings.HealCron,
		Retention: settings.RetentionCron,
		Retry:     settings.RetryCron,
		Reminders: settings.ReminderCron,
		Backup:    settings.BackupCron,
	}, loc, logger)
	if err != nil {
		logger.Fatal("invalid job schedule", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	if settings.Log.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := routes.SetupRouter(engine, settings)
	printRoutes(r, logger)

	go func() {
		if err := r.Run(":" + settings.Port); err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")
}

func openStore(s config.Settings) (repository.Store, error) {
	switch s.StoreDriver {
	case "postgres":
		db, err := config.ConnectDB(s.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return repository.NewGormStore(db), nil
	case "bolt":
		return repository.NewBoltStore(s.BoltPath)
	case "memory":
		return repository.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", s.StoreDriver)
	}
}

func newTransport(s config.Settings, logger *zap.Logger) services.Transport {
	if s.NotifyTransport != "twilio" {
		return services.NewLogTransport(logger)
	}
	if s.Twilio.AccountSID == "" || s.Twilio.AuthToken == "" {
		logger.Warn("twilio credentials missing, falling back to log transport")
		return services.NewLogTransport(logger)
	}
	return services.NewTwilioTransport(services.TwilioConfig{
		AccountSID:   s.Twilio.AccountSID,
		AuthToken:    s.Twilio.AuthToken,
		From:         s.Twilio.From,
		WhatsAppFrom: s.Twilio.WhatsAppFrom,
	}, logger)
}

func hashPassword(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: repairdesk-backend hash-password <password>")
		os.Exit(2)
	}
	hash, err := utils.HashPassword(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(hash)
}

func printRoutes(r *gin.Engine, logger *zap.Logger) {
	for _, route := range r.Routes() {
		logger.Debug("route", zap.String("method", route.Method), zap.String("path", route.Path))
	}
}
