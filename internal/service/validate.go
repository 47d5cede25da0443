package service

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidEmail is returned for a malformed or missing email address.
var ErrInvalidEmail = errors.New("invalid email address")

var validate = validator.New(validator.WithRequiredStructEnabled())

// fieldErrors maps a struct field name to the sentinel reported when that
// field fails validation.
type fieldErrors map[string]error

// check validates v and reports the first failing field as its sentinel.
// Fields without a sentinel fall back to the raw validator error.
func (m fieldErrors) check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		if sentinel, ok := m[fe.StructField()]; ok {
			return sentinel
		}
	}
	return verrs
}

// normalizeEmail trims and lower-cases an address for comparison.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email is a syntactically valid address of at
// most 255 characters.
func ValidEmail(email string) bool {
	return validate.Var(email, "required,email,max=255") == nil
}
