// Package authflow defines the steps of the login and PIN-recovery state machine
// and the input rules shared by every step.
package authflow

import (
	"github.com/ohitsyle/jusq-sub002/internal/domain/auth"
)

// StepName is the wire name of a step.
type StepName string

const (
	StepEmail         StepName = "email"
	StepPin           StepName = "pin"
	StepSuccess       StepName = "success"
	StepActivation    StepName = "activation"
	StepForgotEmail   StepName = "forgot-email"
	StepForgotOTP     StepName = "forgot-otp"
	StepForgotNewPin  StepName = "forgot-newpin"
	StepForgotConfirm StepName = "forgot-confirm"
)

// Step is the active stage of the flow. Each implementation carries only
// the fields that exist at that stage.
type Step interface {
	Name() StepName
	step()
}

// EmailStep collects the account email.
type EmailStep struct {
	Email string
}

// PinStep collects the PIN for an already accepted email.
type PinStep struct {
	Email string
	Hint  auth.UiHint
	Pin   string
}

// SuccessStep is terminal; the session has been committed and only the
// landing route survives.
type SuccessStep struct {
	Redirect string
}

// ActivationHandoff is passed verbatim to the account activation flow.
type ActivationHandoff struct {
	AccountID   string `json:"accountId"`
	AccountType string `json:"accountType"`
	Email       string `json:"email"`
	FullName    string `json:"fullName"`
}

// ActivationStep is terminal; the account must be activated elsewhere.
type ActivationStep struct {
	Handoff ActivationHandoff
}

// ForgotEmailStep collects the email that should receive a recovery code.
type ForgotEmailStep struct {
	Email string
}

// ForgotOTPStep collects the emailed recovery code.
type ForgotOTPStep struct {
	Email string
	OTP   string
}

// ForgotNewPinStep collects the candidate PIN.
type ForgotNewPinStep struct {
	Email  string
	OTP    string
	NewPin string
}

// ForgotConfirmStep collects the PIN confirmation.
type ForgotConfirmStep struct {
	Email      string
	OTP        string
	NewPin     string
	ConfirmPin string
}

func (EmailStep) Name() StepName         { return StepEmail }
func (PinStep) Name() StepName           { return StepPin }
func (SuccessStep) Name() StepName       { return StepSuccess }
func (ActivationStep) Name() StepName    { return StepActivation }
func (ForgotEmailStep) Name() StepName   { return StepForgotEmail }
func (ForgotOTPStep) Name() StepName     { return StepForgotOTP }
func (ForgotNewPinStep) Name() StepName  { return StepForgotNewPin }
func (ForgotConfirmStep) Name() StepName { return StepForgotConfirm }

func (EmailStep) step()         {}
func (PinStep) step()           {}
func (SuccessStep) step()       {}
func (ActivationStep) step()    {}
func (ForgotEmailStep) step()   {}
func (ForgotOTPStep) step()     {}
func (ForgotNewPinStep) step()  {}
func (ForgotConfirmStep) step() {}

// Terminal reports whether s ends the flow.
func Terminal(s Step) bool {
	switch s.(type) {
	case SuccessStep, ActivationStep:
		return true
	}
	return false
}

// Recovery reports whether s belongs to the forgot-PIN sub-path.
func Recovery(s Step) bool {
	switch s.(type) {
	case ForgotEmailStep, ForgotOTPStep, ForgotNewPinStep, ForgotConfirmStep:
		return true
	}
	return false
}

// EmailOf returns the email carried by s, if any.
func EmailOf(s Step) string {
	switch v := s.(type) {
	case EmailStep:
		return v.Email
	case PinStep:
		return v.Email
	case ForgotEmailStep:
		return v.Email
	case ForgotOTPStep:
		return v.Email
	case ForgotNewPinStep:
		return v.Email
	case ForgotConfirmStep:
		return v.Email
	case ActivationStep:
		return v.Handoff.Email
	}
	return ""
}
