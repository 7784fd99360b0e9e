package model

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var contactPattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// ValidContact accepts international phone numbers: optional leading plus,
// 7 to 15 digits.
func ValidContact(fl validator.FieldLevel) bool {
	return contactPattern.MatchString(fl.Field().String())
}
