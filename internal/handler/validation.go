package handler

import (
	"errors"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// snakeCase converts a Go field name (PhoneNo) to its JSON form (phone_no).
func snakeCase(field string) string {
	var b strings.Builder
	for i, r := range field {
		if unicode.IsUpper(r) {
			if i > 0 && !unicode.IsUpper(rune(field[i-1])) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// formatValidationError converts validator errors into a stable client-facing
// message for the first failing field.
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return "invalid request"
	}

	for _, fe := range ve {
		field := snakeCase(fe.Field())
		switch fe.Tag() {
		case "required":
			return "invalid request: " + field + " is required"
		case "notblank":
			return "invalid request: " + field + " cannot be whitespace only"
		case "max":
			return "invalid request: " + field + " exceeds maximum length of " + fe.Param()
		case "phone":
			return "invalid request: " + field + " must be a 10-digit phone number"
		case "batchno":
			return "invalid request: " + field + " must match RSV-XXXXXXXX"
		case "gte":
			return "invalid request: " + field + " must be at least " + fe.Param()
		case "lte":
			return "invalid request: " + field + " must be at most " + fe.Param()
		case "oneof":
			return "invalid request: " + field + " must be one of " + fe.Param()
		case "uuid":
			return "invalid request: " + field + " must be a valid UUID"
		case "len":
			return "invalid request: " + field + " must be exactly " + fe.Param() + " characters"
		case "numeric":
			return "invalid request: " + field + " must be numeric"
		default:
			return "invalid request: " + field + " is invalid"
		}
	}
	return "invalid request"
}
