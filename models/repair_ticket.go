package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RepairStatus string

const (
	RepairInProgress   RepairStatus = "in_progress"
	RepairWaitingParts RepairStatus = "waiting_parts"
	RepairCompleted    RepairStatus = "completed"
	RepairCancelled    RepairStatus = "cancelled"
)

// ParseRepairStatus accepts the stored enum values case-insensitively.
func ParseRepairStatus(s string) (RepairStatus, bool) {
	switch st := RepairStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case RepairInProgress, RepairWaitingParts, RepairCompleted, RepairCancelled:
		return st, true
	}
	return "", false
}

// Open reports whether the device is still in the shop.
func (s RepairStatus) Open() bool {
	return s == RepairInProgress || s == RepairWaitingParts
}

type RepairServiceType string

const (
	RepairHardware RepairServiceType = "hardware"
	RepairSoftware RepairServiceType = "software"
)

func ParseRepairServiceType(s string) (RepairServiceType, bool) {
	switch t := RepairServiceType(strings.ToLower(strings.TrimSpace(s))); t {
	case RepairHardware, RepairSoftware:
		return t, true
	}
	return "", false
}

// RepairTicket is one device accepted for repair or software service. The
// warranty covers the work done, not the device.
type RepairTicket struct {
	ID                 uuid.UUID         `gorm:"type:uuid;primary_key" json:"id"`
	TrackingCode       string            `gorm:"type:varchar(16);uniqueIndex" json:"trackingCode"`
	CustomerName       string            `json:"customerName"`
	PhoneNumber        string            `gorm:"index" json:"phoneNumber"`
	DeviceModel        string            `json:"deviceModel"`
	Issue              string            `gorm:"type:text" json:"issue"`
	ServiceType        RepairServiceType `gorm:"type:varchar(16);default:'hardware'" json:"serviceType"`
	Status             RepairStatus      `gorm:"type:varchar(16);index;default:'in_progress'" json:"status"`
	Cost               string            `json:"cost"`
	ServiceDate        string            `gorm:"type:varchar(16);index" json:"serviceDate"`
	WarrantyExpiration string            `gorm:"type:varchar(16)" json:"warrantyExpiration"`
	CompletedDate      string            `gorm:"type:varchar(16)" json:"completedDate"`
	Description        string            `gorm:"type:text" json:"description"`
	CreatedAt          time.Time         `gorm:"index" json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

func (r *RepairTicket) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}

// AppendNote adds a line to the free-text description.
func (r *RepairTicket) AppendNote(note string) {
	if r.Description == "" {
		r.Description = note
		return
	}
	r.Description += "\n" + note
}
