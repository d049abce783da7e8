package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AntivirusType string

const (
	AntivirusNone   AntivirusType = "none"
	AntivirusSingle AntivirusType = "single"
	AntivirusDouble AntivirusType = "double"
)

// ParseAntivirusType accepts the stored enum values case-insensitively.
func ParseAntivirusType(s string) (AntivirusType, bool) {
	switch AntivirusType(strings.ToLower(strings.TrimSpace(s))) {
	case AntivirusNone:
		return AntivirusNone, true
	case AntivirusSingle:
		return AntivirusSingle, true
	case AntivirusDouble:
		return AntivirusDouble, true
	}
	return AntivirusNone, false
}

// RenewalTarget selects which expiry a renewal moves.
type RenewalTarget string

const (
	TargetWarranty  RenewalTarget = "warranty"
	TargetAntivirus RenewalTarget = "antivirus"
)

func (t RenewalTarget) Valid() bool {
	return t == TargetWarranty || t == TargetAntivirus
}

// ServiceRecord is one device sold or accepted for service. Dates are Jalali
// YYYY/MM/DD strings; the phone number is kept as typed.
type ServiceRecord struct {
	ID                  uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	CustomerName        string        `json:"customerName"`
	PhoneNumber         string        `gorm:"index" json:"phoneNumber"`
	Brand               string        `json:"brand"`
	Model               string        `json:"model"`
	SerialNumber        string        `gorm:"index" json:"serialNumber"`
	WarrantyCompany     string        `json:"warrantyCompany"`
	WarrantyMonths      int           `json:"warrantyMonths"`
	WarrantyExpiration  string        `gorm:"type:varchar(16)" json:"warrantyExpiration"`
	ReceptionDate       string        `gorm:"type:varchar(16);index" json:"receptionDate"`
	HasWindows          bool          `json:"hasWindows"`
	AntivirusType       AntivirusType `gorm:"type:varchar(16);default:'none'" json:"antivirusType"`
	AntivirusExpiration string        `gorm:"type:varchar(16)" json:"antivirusExpiration"`
	TotalPrice          string        `json:"totalPrice"`
	Description         string        `gorm:"type:text" json:"description"`
	CreatedAt           time.Time     `gorm:"index" json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

func (r *ServiceRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}

// Expiry returns the expiry string for a renewal target.
func (r *ServiceRecord) Expiry(t RenewalTarget) string {
	if t == TargetAntivirus {
		return r.AntivirusExpiration
	}
	return r.WarrantyExpiration
}

// SetExpiry sets the expiry string for a renewal target.
func (r *ServiceRecord) SetExpiry(t RenewalTarget, date string) {
	if t == TargetAntivirus {
		r.AntivirusExpiration = date
		return
	}
	r.WarrantyExpiration = date
}

// AppendNote adds a line to the free-text description.
func (r *ServiceRecord) AppendNote(note string) {
	if r.Description == "" {
		r.Description = note
		return
	}
	r.Description += "\n" + note
}
