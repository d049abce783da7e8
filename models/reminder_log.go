// models/reminder_log.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

const (
	CategoryManualReminder      = "manual reminder"
	CategoryRenewalConfirmation = "renewal confirmation"
	CategoryWarrantyWarning     = "warranty warning"
	CategoryAntivirusWarning    = "antivirus warning"
)

// NotificationLog is one message handed to the transport. Content is never
// rewritten; only delivery fields change on retry.
type NotificationLog struct {
	ID             uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	RecordID       uuid.UUID          `gorm:"type:uuid;index" json:"recordId"`
	RecipientName  string             `json:"recipientName"`
	RecipientPhone string             `json:"recipientPhone"`
	Category       string             `gorm:"type:varchar(40)" json:"category"`
	MessageContent string             `gorm:"type:text" json:"messageContent"`
	SentDate       string             `gorm:"type:varchar(20)" json:"sentDate"`
	Status         NotificationStatus `gorm:"type:varchar(10);index" json:"status"`
	Channel        string             `gorm:"type:varchar(20)" json:"channel"` // log, sms
	ProviderRef    string             `json:"providerRef,omitempty"`
	ErrorMessage   string             `gorm:"type:text" json:"errorMessage,omitempty"`
	RetryCount     int                `gorm:"default:0" json:"retryCount"`
	CreatedAt      time.Time          `gorm:"index" json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

func (n *NotificationLog) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return
}
