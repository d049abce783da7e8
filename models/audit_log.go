package models

import (
	"time"

	"github.com/google/uuid"
)

type AuditType string

const (
	AuditCreate AuditType = "create"
	AuditUpdate AuditType = "update"
	AuditDelete AuditType = "delete"
	AuditRenew  AuditType = "renew"
	AuditHeal   AuditType = "heal"
)

type AuditLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Action    string    `json:"action"`
	Details   string    `gorm:"type:text" json:"details"`
	User      string    `gorm:"type:varchar(64)" json:"user"`
	Type      AuditType `gorm:"type:varchar(16);index" json:"type"`
	Timestamp time.Time `gorm:"index" json:"timestamp"`
}

// RenewalEvent is the structured history entry written by every renewal.
type RenewalEvent struct {
	ID             uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	RecordID       uuid.UUID     `gorm:"type:uuid;index" json:"recordId"`
	Target         RenewalTarget `gorm:"type:varchar(16)" json:"target"`
	DurationMonths int           `json:"durationMonths"`
	PreviousExpiry string        `gorm:"type:varchar(16)" json:"previousExpiry"`
	Base           string        `gorm:"type:varchar(16)" json:"base"`
	NewExpiry      string        `gorm:"type:varchar(16)" json:"newExpiry"`
	User           string        `gorm:"type:varchar(64)" json:"user"`
	RenewedAt      time.Time     `gorm:"index" json:"renewedAt"`
}

// Tables lists every persisted model for migration.
var Tables = []interface{}{
	&ServiceRecord{},
	&RepairTicket{},
	&RenewalEvent{},
	&NotificationLog{},
	&AuditLog{},
}
