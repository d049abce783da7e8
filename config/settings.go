package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
)

type LogSettings struct {
	Mode string // development or production
	File string // rotated JSON log file, empty for stdout only
}

type TwilioSettings struct {
	AccountSID   string
	AuthToken    string
	From         string
	WhatsAppFrom string
}

// Settings is every value read from the environment. Policy constants live
// here and nowhere else.
type Settings struct {
	Port        string
	CORSOrigins []string
	JWTSecret   string
	TokenTTL    time.Duration

	AdminUsername     string
	AdminPasswordHash string

	StoreDriver string // postgres, bolt or memory
	DatabaseURL string
	BoltPath    string

	Timezone             string
	ExpiringSoonDays     int
	AllowedDurations     []int
	AntivirusTermYears   int
	RepairWarrantyMonths int

	NotifyOnRenewal  bool
	NotifyTransport  string // log or twilio
	NotifyMaxRetries int
	ReminderLeadDays int
	Twilio           TwilioSettings

	AuditRetentionDays  int
	AuditMaxEntries     int
	NotifyRetentionDays int
	NotifyMaxEntries    int

	HealCron      string
	RetentionCron string
	RetryCron     string
	ReminderCron  string
	BackupCron    string // empty disables automatic backups
	BackupDir     string
	BackupKeep    int

	Log LogSettings
}

func env(key string, def interface{}) interface{} {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func envString(key, def string) string {
	return cast.ToString(env(key, def))
}

func envInt(key string, def int) int {
	n, err := cast.ToIntE(env(key, def))
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	b, err := cast.ToBoolE(env(key, def))
	if err != nil {
		return def
	}
	return b
}

func envList(key string, def []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadSettings reads the environment. Call godotenv.Load first to pick up
// a .env file.
func LoadSettings() Settings {
	durations := cast.ToIntSlice(envList("RENEWAL_DURATIONS", []string{"6", "12", "24"}))

	return Settings{
		Port:        envString("PORT", "8080"),
		CORSOrigins: envList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		JWTSecret:   envString("JWT_SECRET", ""),
		TokenTTL:    cast.ToDuration(envString("TOKEN_TTL", "24h")),

		AdminUsername:     envString("ADMIN_USERNAME", "admin"),
		AdminPasswordHash: envString("ADMIN_PASSWORD_HASH", ""),

		StoreDriver: strings.ToLower(envString("STORE_DRIVER", "bolt")),
		DatabaseURL: envString("DB_URL", ""),
		BoltPath:    envString("BOLT_PATH", "repairdesk.db"),

		Timezone:             envString("TIMEZONE", "Asia/Tehran"),
		ExpiringSoonDays:     envInt("EXPIRING_SOON_DAYS", 30),
		AllowedDurations:     durations,
		AntivirusTermYears:   envInt("ANTIVIRUS_TERM_YEARS", 1),
		RepairWarrantyMonths: envInt("REPAIR_WARRANTY_MONTHS", 12),

		NotifyOnRenewal:  envBool("NOTIFY_ON_RENEWAL", true),
		NotifyTransport:  strings.ToLower(envString("NOTIFY_TRANSPORT", "log")),
		NotifyMaxRetries: envInt("NOTIFY_MAX_RETRIES", 3),
		ReminderLeadDays: envInt("REMINDER_LEAD_DAYS", 7),
		Twilio: TwilioSettings{
			AccountSID:   envString("TWILIO_ACCOUNT_SID", ""),
			AuthToken:    envString("TWILIO_AUTH_TOKEN", ""),
			From:         envString("TWILIO_PHONE_NUMBER", ""),
			WhatsAppFrom: envString("TWILIO_WHATSAPP_NUMBER", ""),
		},

		AuditRetentionDays:  envInt("AUDIT_RETENTION_DAYS", 365),
		AuditMaxEntries:     envInt("AUDIT_MAX_ENTRIES", 0),
		NotifyRetentionDays: envInt("NOTIFY_RETENTION_DAYS", 365),
		NotifyMaxEntries:    envInt("NOTIFY_MAX_ENTRIES", 0),

		HealCron:      envString("HEAL_CRON", "@daily"),
		RetentionCron: envString("RETENTION_CRON", "@daily"),
		RetryCron:     envString("RETRY_CRON", "@every 15m"),
		ReminderCron:  envString("REMINDER_CRON", "0 9 * * *"),
		BackupCron:    envString("BACKUP_CRON", ""),
		BackupDir:     envString("BACKUP_DIR", "backups"),
		BackupKeep:    envInt("BACKUP_KEEP", 14),

		Log: LogSettings{
			Mode: envString("LOG_MODE", "development"),
			File: envString("LOG_FILE", ""),
		},
	}
}

// Location resolves the configured time zone, falling back to UTC.
func (s Settings) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
