package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"09121234567", "9121234567"},
		{"+989121234567", "9121234567"},
		{"00989121234567", "9121234567"},
		{"989121234567", "9121234567"},
		{"9121234567", "9121234567"},
		{"0912 123 4567", "9121234567"},
		{"(0912) 123-4567", "9121234567"},
		{"۰۹۱۲۱۲۳۴۵۶۷", "9121234567"},
		{"", ""},
		{"   ", ""},
		{"0", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.in))
		})
	}
}

func TestNormalizePhoneStripsOnePrefix(t *testing.T) {
	// A local number starting with 98 keeps its digits after the leading 0.
	assert.Equal(t, "9891234567", NormalizePhone("09891234567"))
	// Only the first matching prefix is removed, so the key is not a fixed point.
	assert.Equal(t, "91234567", NormalizePhone(NormalizePhone("09891234567")))
	// A typical mobile key is stable.
	key := NormalizePhone("09121234567")
	assert.Equal(t, key, NormalizePhone(key))
}

func TestValidatePhone(t *testing.T) {
	assert.True(t, ValidatePhone("09121234567"))
	assert.True(t, ValidatePhone("+98 912 123 4567"))
	assert.True(t, ValidatePhone("۰۹۱۲۱۲۳۴۵۶۷"))
	assert.False(t, ValidatePhone(""))
	assert.False(t, ValidatePhone("abc"))
	assert.False(t, ValidatePhone("12"))
}

func TestToE164(t *testing.T) {
	assert.Equal(t, "+989121234567", ToE164("09121234567"))
	assert.Equal(t, "+989121234567", ToE164("0098 912 123 4567"))
	assert.Equal(t, "+989121234567", ToE164("+98 (912) 123-4567"))
	assert.Equal(t, "+989121234567", ToE164("9121234567"))

	assert.Equal(t, "+15551234567", ToE164("+1 555 123 4567"))
	assert.Equal(t, "+447911123456", ToE164("0044 7911 123456"))
	assert.Equal(t, "+971501234567", ToE164("+۹۷۱ ۵۰ ۱۲۳ ۴۵۶۷"))
}
