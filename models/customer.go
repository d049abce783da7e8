package models

import (
	"github.com/shopspring/decimal"
)

type CustomerTag string

const (
	TagWarrantyExpiring  CustomerTag = "warranty_expiring"
	TagAntivirusExpiring CustomerTag = "antivirus_expiring"
)

// Customer is derived from ServiceRecords on every read and never stored.
// Key is the normalized phone number.
type Customer struct {
	Key         string           `json:"key"`
	Name        string           `json:"name"`
	Phone       string           `json:"phone"`
	TotalSpent  decimal.Decimal  `json:"totalSpent"`
	ItemsBought int              `json:"itemsBought"`
	LastVisit   string           `json:"lastVisit"`
	Tags        []CustomerTag    `json:"tags"`
	Devices     []*ServiceRecord `json:"devices"`

	RepairsCount int             `json:"repairsCount"`
	OpenRepairs  int             `json:"openRepairs"`
	Repairs      []*RepairTicket `json:"repairs"`
}

// HasTag reports whether tag is set.
func (c *Customer) HasTag(tag CustomerTag) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
