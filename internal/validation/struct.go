package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"bundle-storefront/internal/core/domain"
)

// NewStructValidator returns a validator with the storefront's custom tags registered:
// gh_phone (ValidatePhone), shop_email (ValidateEmail) and order_status
// (pending_verification|completed or empty).
func NewStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("gh_phone", func(fl validator.FieldLevel) bool {
		return ValidatePhone(fl.Field().String())
	})
	_ = v.RegisterValidation("shop_email", func(fl validator.FieldLevel) bool {
		return ValidateEmail(fl.Field().String())
	})
	_ = v.RegisterValidation("order_status", func(fl validator.FieldLevel) bool {
		_, ok := domain.ParseStatus(fl.Field().String())
		return ok
	})
	return v
}

// Struct validates s and converts validator errors into a domain validation error.
func Struct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrValidationFailed, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", domain.ErrValidationFailed, strings.Join(fields, ", "))
}
