package authflow

import (
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/ohitsyle/jusq-sub002/internal/errors"
)

// CodeLength is the length of PINs and one-time codes.
const CodeLength = 6

// Field names a secret input of the flow.
type Field string

const (
	FieldPin        Field = "pin"
	FieldOTP        Field = "otp"
	FieldNewPin     Field = "newPin"
	FieldConfirmPin Field = "confirmPin"
)

// ParseField maps a wire name to a Field.
func ParseField(s string) (Field, bool) {
	switch f := Field(s); f {
	case FieldPin, FieldOTP, FieldNewPin, FieldConfirmPin:
		return f, true
	}
	return "", false
}

// AcceptDigits applies the keystroke rule for PIN and OTP fields: the new value
// is taken only if it is all digits and at most CodeLength long, otherwise the
// current value is kept.
func AcceptDigits(current, next string) (string, bool) {
	if len(next) > CodeLength {
		return current, false
	}
	for i := 0; i < len(next); i++ {
		if next[i] < '0' || next[i] > '9' {
			return current, false
		}
	}
	return next, true
}

// WithField sets field on s when the step owns that field and the value passes
// AcceptDigits. The returned bool is false when the input was rejected.
func WithField(s Step, field Field, value string) (Step, bool) {
	var ok bool
	switch v := s.(type) {
	case PinStep:
		if field != FieldPin {
			return s, false
		}
		v.Pin, ok = AcceptDigits(v.Pin, value)
		return v, ok
	case ForgotOTPStep:
		if field != FieldOTP {
			return s, false
		}
		v.OTP, ok = AcceptDigits(v.OTP, value)
		return v, ok
	case ForgotNewPinStep:
		if field != FieldNewPin {
			return s, false
		}
		v.NewPin, ok = AcceptDigits(v.NewPin, value)
		return v, ok
	case ForgotConfirmStep:
		if field != FieldConfirmPin {
			return s, false
		}
		v.ConfirmPin, ok = AcceptDigits(v.ConfirmPin, value)
		return v, ok
	}
	return s, false
}

var validate = validator.New(validator.WithRequiredStructEnabled())

type emailInput struct {
	Email string `validate:"required,email,max=254"`
}

type codeInput struct {
	Code string `validate:"required,len=6,number"`
}

// NormalizeEmail trims surrounding space and lowercases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks the basic address pattern.
func ValidateEmail(email string) error {
	if err := validate.Struct(emailInput{Email: email}); err != nil {
		return apperrors.ValidationField("email", "Please enter a valid email address.")
	}
	return nil
}

// ValidateCode checks that value is exactly six digits.
func ValidateCode(field Field, value string) error {
	if err := validate.Struct(codeInput{Code: value}); err != nil {
		if field == FieldOTP {
			return apperrors.ValidationField(string(field), "Enter the 6-digit code sent to your email.")
		}
		return apperrors.ValidationField(string(field), "PIN must be exactly 6 digits.")
	}
	return nil
}
