package services

import (
	"time"

	"repairdesk-backend/utils"
)

// Status is the expiry classification of a date relative to today.
type Status string

const (
	StatusUnknown      Status = "unknown"
	StatusExpired      Status = "expired"
	StatusExpiringSoon Status = "expiring_soon"
	StatusActive       Status = "active"
)

// Calendar answers every "relative to today" question in the shop's time
// zone. It owns the expiring-soon threshold.
type Calendar struct {
	loc              *time.Location
	now              func() time.Time
	expiringSoonDays int
}

func NewCalendar(loc *time.Location, now func() time.Time, expiringSoonDays int) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Calendar{loc: loc, now: now, expiringSoonDays: expiringSoonDays}
}

func (c *Calendar) Now() time.Time {
	return c.now().In(c.loc)
}

func (c *Calendar) Today() utils.JalaliDate {
	return utils.JalaliFromTime(c.Now())
}

func (c *Calendar) Timestamp() string {
	return utils.FormatJalaliTimestamp(c.Now())
}

func (c *Calendar) ExpiringSoonDays() int {
	return c.expiringSoonDays
}

// DaysUntil returns the signed number of days from today to date. A
// negative value means date is in the past.
func (c *Calendar) DaysUntil(date string) (int, error) {
	d, err := utils.ParseJalali(date)
	if err != nil {
		return 0, err
	}
	return utils.DaysBetweenJalali(c.Today(), d), nil
}

// Classify never fails; malformed or empty input is StatusUnknown.
func (c *Calendar) Classify(date string) Status {
	days, err := c.DaysUntil(date)
	if err != nil {
		return StatusUnknown
	}
	return c.classifyDays(days)
}

func (c *Calendar) classifyDays(days int) Status {
	switch {
	case days < 0:
		return StatusExpired
	case days <= c.expiringSoonDays:
		return StatusExpiringSoon
	default:
		return StatusActive
	}
}

// Expiry is the classification of one expiry date plus the remaining days
// when the date parses.
type Expiry struct {
	Date     string `json:"date"`
	Status   Status `json:"status"`
	DaysLeft *int   `json:"daysLeft"`
}

func (c *Calendar) Expiry(date string) Expiry {
	e := Expiry{Date: date, Status: StatusUnknown}
	days, err := c.DaysUntil(date)
	if err != nil {
		return e
	}
	e.Status = c.classifyDays(days)
	e.DaysLeft = &days
	return e
}
