package validator

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	phoneRegex   = regexp.MustCompile(`^[0-9]{10}$`)
	batchNoRegex = regexp.MustCompile(`^RSV-[0-9]{8}$`)
)

// New creates a new validator instance with custom validations registered.
// This ensures consistent validation across the application and tests.
func New() *validator.Validate {
	v := validator.New()

	// Register custom "notblank" validator - rejects whitespace-only strings
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok {
			return true // Not a string, let other validators handle it
		}
		return strings.TrimSpace(str) != ""
	})

	// "phone" - 10-digit phone number, digits only
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok {
			return true
		}
		return phoneRegex.MatchString(str)
	})

	// "batchno" - voucher batch number, "RSV-" followed by 8 digits
	_ = v.RegisterValidation("batchno", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok {
			return true
		}
		return batchNoRegex.MatchString(str)
	})

	return v
}
