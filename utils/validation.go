// utils/validation.go
package utils

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Longest first so "0098" is never read as "0" followed by "098".
var phonePrefixes = []string{"+98", "0098", "98", "0"}

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// cleanPhone folds digits and removes whitespace and the usual separators.
func cleanPhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' || r == '(' || r == ')' {
			return -1
		}
		return r
	}, FoldDigits(phone))
}

// NormalizePhone maps the many ways a number is typed (0912..., +98912...,
// 0098912..., 98912...) to one grouping key. Exactly one leading prefix is
// removed; length and format are not checked.
func NormalizePhone(phone string) string {
	cleaned := cleanPhone(phone)
	for _, p := range phonePrefixes {
		if strings.HasPrefix(cleaned, p) {
			return cleaned[len(p):]
		}
	}
	return cleaned
}

// ValidatePhone checks that a phone number looks dialable after cleanup.
func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(cleanPhone(phone))
}

// ToE164 renders a number in the international form used by SMS providers.
// Local and Iranian numbers get +98; a number already written with another
// country code (+1..., 001...) keeps it.
func ToE164(phone string) string {
	cleaned := cleanPhone(phone)
	switch {
	case strings.HasPrefix(cleaned, "+98"), strings.HasPrefix(cleaned, "0098"):
	case strings.HasPrefix(cleaned, "+"):
		return cleaned
	case strings.HasPrefix(cleaned, "00"):
		return "+" + cleaned[2:]
	}
	return "+98" + NormalizePhone(phone)
}

// RegisterValidators adds the "jalali" binding tag to gin's validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("jalali", func(fl validator.FieldLevel) bool {
		_, err := ParseJalali(fl.Field().String())
		return err == nil
	})
}
