// Package validation holds the storefront's input rules. Everything here is pure.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"bundle-storefront/internal/core/domain"
)

var (
	phoneRe = regexp.MustCompile(`^0[235679]\d{8}$`)
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	spaceRe = regexp.MustCompile(`\s+`)
)

const (
	MsgPhoneRequired  = "Phone number is required"
	MsgPhoneInvalid   = "Please enter a valid Ghanaian phone number (e.g., 0201234567)"
	MsgEmailRequired  = "Email is required"
	MsgEmailInvalid   = "Please enter a valid email address"
	MsgNameRequired   = "Full name is required"
	MsgNetworkMissing = "Please select a network"
	MsgBundleMissing  = "Please select a bundle"
)

// NormalizePhone strips all whitespace.
func NormalizePhone(s string) string {
	return spaceRe.ReplaceAllString(s, "")
}

// ValidatePhone reports whether s is a 10-digit local mobile number (0 + 2/3/5/6/7/9 + 8 digits).
func ValidatePhone(s string) bool {
	return phoneRe.MatchString(NormalizePhone(s))
}

func ValidateEmail(s string) bool {
	return emailRe.MatchString(strings.TrimSpace(s))
}

// Form is what the customer filled in.
type Form struct {
	Network  string
	Bundle   string
	Phone    string
	Email    string
	FullName string
}

// FieldError is a user-visible message for one field.
type FieldError struct {
	Field   string
	Message string
}

// FormError lists every invalid field of a form.
type FormError struct {
	Fields []FieldError
}

func (e *FormError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "invalid form: " + strings.Join(msgs, "; ")
}

func (e *FormError) Unwrap() error { return domain.ErrValidationFailed }

// Message returns the first user-facing message.
func (e *FormError) Message() string {
	if len(e.Fields) == 0 {
		return ""
	}
	return e.Fields[0].Message
}

// PhoneMessage returns the inline error for the phone input, or "" if valid.
func PhoneMessage(s string) string {
	switch {
	case strings.TrimSpace(s) == "":
		return MsgPhoneRequired
	case !ValidatePhone(s):
		return MsgPhoneInvalid
	}
	return ""
}

// EmailMessage returns the inline error for the email input, or "" if valid.
func EmailMessage(s string) string {
	switch {
	case strings.TrimSpace(s) == "":
		return MsgEmailRequired
	case !ValidateEmail(s):
		return MsgEmailInvalid
	}
	return ""
}

// ValidateForm returns nil when the form can be submitted, otherwise a *FormError.
func ValidateForm(f Form) error {
	var errs []FieldError
	if strings.TrimSpace(f.Network) == "" {
		errs = append(errs, FieldError{Field: "network", Message: MsgNetworkMissing})
	}
	if strings.TrimSpace(f.Bundle) == "" {
		errs = append(errs, FieldError{Field: "bundle", Message: MsgBundleMissing})
	}
	if msg := PhoneMessage(f.Phone); msg != "" {
		errs = append(errs, FieldError{Field: "phone", Message: msg})
	}
	if msg := EmailMessage(f.Email); msg != "" {
		errs = append(errs, FieldError{Field: "email", Message: msg})
	}
	if strings.TrimSpace(f.FullName) == "" {
		errs = append(errs, FieldError{Field: "full_name", Message: MsgNameRequired})
	}
	if len(errs) > 0 {
		return &FormError{Fields: errs}
	}
	return nil
}
