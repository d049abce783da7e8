package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJalali(t *testing.T) {
	tests := []struct {
		in   string
		want JalaliDate
	}{
		{"1402/05/10", JalaliDate{1402, 5, 10}},
		{" 1402-5-10 ", JalaliDate{1402, 5, 10}},
		{"۱۴۰۲/۰۵/۱۰", JalaliDate{1402, 5, 10}},
		{"1403/12/30", JalaliDate{1403, 12, 30}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseJalali(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.String(), got.String())
		})
	}
}

func TestParseJalaliRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "   ", "1402/05", "1402/xx/10", "2023/08/01", "1402/13/01", "1402/07/31", "1402/12/30", "1402/05/00"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseJalali(in)
			var perr *ParseError
			assert.ErrorAs(t, err, &perr)
		})
	}
}

func TestToGregorian(t *testing.T) {
	d, err := ParseJalali("1402/05/10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC), d.ToGregorian())

	nowruz := JalaliDate{1403, 1, 1}
	assert.Equal(t, time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), nowruz.ToGregorian())
	assert.Equal(t, nowruz, JalaliFromTime(time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)))
}

func TestLeapYears(t *testing.T) {
	assert.True(t, IsLeapJalali(1403))
	assert.False(t, IsLeapJalali(1402))
	assert.False(t, IsLeapJalali(1404))
	assert.Equal(t, 30, MonthLength(1403, 12))
	assert.Equal(t, 29, MonthLength(1404, 12))
	assert.Equal(t, 31, MonthLength(1404, 6))
	assert.Equal(t, 30, MonthLength(1404, 7))
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		name   string
		from   JalaliDate
		months int
		want   JalaliDate
	}{
		{"plain", JalaliDate{1402, 5, 10}, 12, JalaliDate{1403, 5, 10}},
		{"clamp to 30 day month", JalaliDate{1403, 6, 31}, 1, JalaliDate{1403, 7, 30}},
		{"clamp leap esfand", JalaliDate{1403, 12, 30}, 12, JalaliDate{1404, 12, 29}},
		{"year rollover", JalaliDate{1402, 10, 15}, 6, JalaliDate{1403, 4, 15}},
		{"backwards", JalaliDate{1403, 1, 31}, -1, JalaliDate{1402, 12, 29}},
		{"zero", JalaliDate{1403, 2, 2}, 0, JalaliDate{1403, 2, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.AddMonths(tt.months))
		})
	}
}

func TestDaysBetweenJalali(t *testing.T) {
	assert.Equal(t, 1, DaysBetweenJalali(JalaliDate{1402, 12, 29}, JalaliDate{1403, 1, 1}))
	assert.Equal(t, -1, DaysBetweenJalali(JalaliDate{1403, 1, 1}, JalaliDate{1402, 12, 29}))
	assert.Equal(t, 366, DaysBetweenJalali(JalaliDate{1403, 1, 1}, JalaliDate{1404, 1, 1}))
	assert.Equal(t, 31, DaysBetweenJalali(JalaliDate{1403, 1, 1}, JalaliDate{1403, 2, 1}))
}

func TestAddDuration(t *testing.T) {
	got, err := AddDuration("1402/05/10", 1, UnitYear)
	require.NoError(t, err)
	assert.Equal(t, "1403/05/10", got)

	got, err = AddDuration("۱۴۰۳/۰۶/۳۱", 1, UnitMonth)
	require.NoError(t, err)
	assert.Equal(t, "1403/07/30", got)

	_, err = AddDuration("1403/06/31", 1, Unit("day"))
	assert.Error(t, err)

	_, err = AddDuration("garbage", 1, UnitMonth)
	assert.Error(t, err)
}

func TestFormatJalaliTimestamp(t *testing.T) {
	ts := time.Date(2024, 3, 20, 12, 30, 5, 0, time.UTC)
	assert.Equal(t, "1403/01/01 12:30:05", FormatJalaliTimestamp(ts))
}
