// utils/dates.go
package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ptime "github.com/yaa110/go-persian-calendar"
)

// Accepted Jalali year range. Anything outside is treated as malformed input,
// which also rejects Gregorian dates typed into a Jalali field.
const (
	MinJalaliYear = 1200
	MaxJalaliYear = 1600
)

// Unit is the granularity accepted by AddDuration.
type Unit string

const (
	UnitMonth Unit = "month"
	UnitYear  Unit = "year"
)

// ParseError reports malformed date or amount input.
type ParseError struct {
	Kind   string
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s %q: %s", e.Kind, e.Input, e.Reason)
}

// JalaliDate is a civil date in the Persian calendar.
type JalaliDate struct {
	Year  int
	Month int
	Day   int
}

// String formats the date as YYYY/MM/DD.
func (d JalaliDate) String() string {
	return fmt.Sprintf("%04d/%02d/%02d", d.Year, d.Month, d.Day)
}

// IsZero reports whether d is the zero date.
func (d JalaliDate) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

var digitFolder = strings.NewReplacer(
	"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
	"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
)

// FoldDigits maps Persian and Arabic-Indic digits to ASCII.
func FoldDigits(s string) string {
	return digitFolder.Replace(s)
}

// ParseJalali parses YYYY/MM/DD (or YYYY-MM-DD), with ASCII or Persian digits.
func ParseJalali(s string) (JalaliDate, error) {
	raw := strings.TrimSpace(FoldDigits(s))
	if raw == "" {
		return JalaliDate{}, &ParseError{Kind: "date", Input: s, Reason: "empty"}
	}

	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == '/' || r == '-' })
	if len(parts) != 3 {
		return JalaliDate{}, &ParseError{Kind: "date", Input: s, Reason: "expected YYYY/MM/DD"}
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return JalaliDate{}, &ParseError{Kind: "date", Input: s, Reason: "non-numeric field"}
		}
		nums[i] = n
	}

	d := JalaliDate{Year: nums[0], Month: nums[1], Day: nums[2]}
	if d.Year < MinJalaliYear || d.Year > MaxJalaliYear {
		return JalaliDate{}, &ParseError{Kind: "date", Input: s, Reason: "year out of range"}
	}
	if d.Month < 1 || d.Month > 12 {
		return JalaliDate{}, &ParseError{Kind: "date", Input: s, Reason: "month out of range"}
	}
	if d.Day < 1 || d.Day > MonthLength(d.Year, d.Month) {
		return JalaliDate{}, &ParseError{Kind: "date", Input: s, Reason: "day out of range"}
	}
	return d, nil
}

// IsLeapJalali reports whether Esfand of year y has 30 days.
func IsLeapJalali(y int) bool {
	t := ptime.Date(y, ptime.Esfand, 30, 12, 0, 0, 0, time.UTC)
	back := ptime.New(t.Time())
	return back.Month() == ptime.Esfand && back.Day() == 30
}

// MonthLength returns the number of days in month m of Jalali year y.
func MonthLength(y, m int) int {
	switch {
	case m <= 6:
		return 31
	case m <= 11:
		return 30
	case IsLeapJalali(y):
		return 30
	default:
		return 29
	}
}

// ToGregorian returns the Gregorian civil date of d at midnight UTC.
func (d JalaliDate) ToGregorian() time.Time {
	g := ptime.Date(d.Year, ptime.Month(d.Month), d.Day, 12, 0, 0, 0, time.UTC).Time()
	return time.Date(g.Year(), g.Month(), g.Day(), 0, 0, 0, 0, time.UTC)
}

// DayNumber is a linear day count (days since the Unix epoch) used for all
// date differences.
func (d JalaliDate) DayNumber() int64 {
	return d.ToGregorian().Unix() / 86400
}

// AddMonths adds n calendar months, clamping the day to the target month length.
func (d JalaliDate) AddMonths(n int) JalaliDate {
	total := d.Year*12 + (d.Month - 1) + n
	y := floorDiv(total, 12)
	m := total - y*12 + 1
	day := d.Day
	if l := MonthLength(y, m); day > l {
		day = l
	}
	return JalaliDate{Year: y, Month: m, Day: day}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// JalaliFromTime converts t (in its own location) to a Jalali civil date.
func JalaliFromTime(t time.Time) JalaliDate {
	p := ptime.New(t)
	return JalaliDate{Year: p.Year(), Month: int(p.Month()), Day: p.Day()}
}

// FormatJalaliTimestamp renders t as "YYYY/MM/DD HH:mm:ss" in the Jalali calendar.
func FormatJalaliTimestamp(t time.Time) string {
	return JalaliFromTime(t).String() + t.Format(" 15:04:05")
}

// AddDuration adds amount months or years to a Jalali date string.
func AddDuration(date string, amount int, unit Unit) (string, error) {
	d, err := ParseJalali(date)
	if err != nil {
		return "", err
	}
	switch unit {
	case UnitMonth:
		return d.AddMonths(amount).String(), nil
	case UnitYear:
		return d.AddMonths(12 * amount).String(), nil
	default:
		return "", fmt.Errorf("unsupported unit %q", unit)
	}
}

// DaysBetweenJalali returns the signed number of days from start to end.
func DaysBetweenJalali(start, end JalaliDate) int {
	return int(end.DayNumber() - start.DayNumber())
}
