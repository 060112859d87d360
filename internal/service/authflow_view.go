package service

import (
	domainauth "github.com/ohitsyle/jusq-sub002/internal/domain/auth"
	"github.com/ohitsyle/jusq-sub002/internal/domain/authflow"
)

// FlowView is the serializable snapshot of an AuthFlow. Secret fields are
// reported by length only.
type FlowView struct {
	Step       authflow.StepName           `json:"step"`
	Email      string                      `json:"email,omitempty"`
	Hint       *domainauth.UiHint          `json:"hint,omitempty"`
	Error      string                      `json:"error,omitempty"`
	ErrorField string                      `json:"errorField,omitempty"`
	Notice     string                      `json:"notice,omitempty"`
	Busy       bool                        `json:"busy"`
	ResendIn   int                         `json:"resendIn"`
	CanResend  bool                        `json:"canResend"`
	Redirect   string                      `json:"redirect,omitempty"`
	Handoff    *authflow.ActivationHandoff `json:"activation,omitempty"`
	Fields     map[authflow.Field]int      `json:"fields,omitempty"`
}

// View returns the current snapshot.
func (f *AuthFlow) View() FlowView {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := FlowView{
		Step:       f.step.Name(),
		Email:      authflow.EmailOf(f.step),
		Error:      f.errMsg,
		ErrorField: f.errField,
		Notice:     f.notice,
		Busy:       f.busy,
	}
	switch st := f.step.(type) {
	case authflow.PinStep:
		hint := st.Hint
		v.Hint = &hint
		v.Fields = map[authflow.Field]int{authflow.FieldPin: len(st.Pin)}
	case authflow.ForgotOTPStep:
		v.ResendIn = f.cooldown.Remaining()
		v.CanResend = v.ResendIn == 0 && !f.busy
		v.Fields = map[authflow.Field]int{authflow.FieldOTP: len(st.OTP)}
	case authflow.ForgotNewPinStep:
		v.Fields = map[authflow.Field]int{authflow.FieldNewPin: len(st.NewPin)}
	case authflow.ForgotConfirmStep:
		v.Fields = map[authflow.Field]int{
			authflow.FieldNewPin:     len(st.NewPin),
			authflow.FieldConfirmPin: len(st.ConfirmPin),
		}
	case authflow.SuccessStep:
		v.Redirect = st.Redirect
	case authflow.ActivationStep:
		handoff := st.Handoff
		v.Handoff = &handoff
	}
	return v
}
