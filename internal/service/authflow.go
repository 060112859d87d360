package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ohitsyle/jusq-sub002/internal/clock"
	domainauth "github.com/ohitsyle/jusq-sub002/internal/domain/auth"
	"github.com/ohitsyle/jusq-sub002/internal/domain/authflow"
	apperrors "github.com/ohitsyle/jusq-sub002/internal/errors"
	"github.com/ohitsyle/jusq-sub002/internal/ports"
)

// Messages shown on the flow.
const (
	msgRetry          = "We couldn't reach the server. Please try again."
	msgUnknownRole    = "Your account type is not recognized. Please contact the system administrator."
	msgPinMismatch    = "PINs do not match."
	msgCodeSent       = "If an account exists for that email, a 6-digit code has been sent."
	msgCodeResent     = "A new code has been sent."
	msgPinReset       = "Your PIN has been reset. Sign in with your new PIN."
	msgResendCooldown = "Please wait before requesting a new code."
)

var (
	// ErrBusy rejects a submission while another one is in flight.
	ErrBusy = apperrors.New(apperrors.ErrCodeBusy, "A request is already in progress.")
	// ErrStale reports a response that arrived after the flow moved on.
	ErrStale = apperrors.New(apperrors.ErrCodeStale, "The request was superseded.")
	// ErrInvalidStep rejects an action the active step does not offer.
	ErrInvalidStep = apperrors.New(apperrors.ErrCodeInvalidStep, "That action is not available right now.")
)

// SessionCommitter persists a session produced by a successful login.
type SessionCommitter interface {
	Commit(ctx context.Context, p domainauth.Principal, token string, isAdmin bool) error
}

// AuthFlowOptions groups dependencies for AuthFlow.
type AuthFlowOptions struct {
	Backend         ports.Backend
	Heuristic       ports.RoleHeuristic
	Sessions        SessionCommitter
	Clock           clock.Clock
	CooldownSeconds int
	Logger          *slog.Logger
}

// AuthFlow is the login and PIN-recovery state machine of one device.
//
// Operations are serialized by mu. Backend calls run without holding mu;
// busy blocks duplicate submissions meanwhile, and epoch is bumped on every
// navigation so a response for an abandoned step is dropped with ErrStale.
type AuthFlow struct {
	mu       sync.Mutex
	step     authflow.Step
	errMsg   string
	errField string
	notice   string
	busy     bool
	epoch    uint64

	backend   ports.Backend
	heuristic ports.RoleHeuristic
	sessions  SessionCommitter
	cooldown  *ResendCooldown
	cooldownN int
	clk       clock.Clock
	// codesSent remembers when a recovery code last went to each email so
	// navigating away and back cannot issue another one early.
	codesSent map[string]time.Time
	logger    *slog.Logger
}

// NewAuthFlow constructs a flow positioned on the email step.
func NewAuthFlow(opts AuthFlowOptions) *AuthFlow {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	n := opts.CooldownSeconds
	if n <= 0 {
		n = DefaultResendCooldown
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &AuthFlow{
		step:      authflow.EmailStep{},
		backend:   opts.Backend,
		heuristic: opts.Heuristic,
		sessions:  opts.Sessions,
		cooldown:  NewResendCooldown(clk),
		cooldownN: n,
		clk:       clk,
		logger:    logger.With("component", "auth_flow"),
	}
}

// Step returns the active step.
func (f *AuthFlow) Step() authflow.Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// SubmitEmail accepts the account email and moves to the PIN step. A
// finished flow starts over.
func (f *AuthFlow) SubmitEmail(email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restartTerminalLocked()
	if _, ok := f.step.(authflow.EmailStep); !ok {
		return ErrInvalidStep
	}
	if f.busy {
		return ErrBusy
	}

	normalized := authflow.NormalizeEmail(email)
	if err := authflow.ValidateEmail(normalized); err != nil {
		f.step = authflow.EmailStep{Email: email}
		return f.fail(err)
	}
	f.clearMessages()
	f.step = authflow.PinStep{Email: normalized, Hint: f.heuristic.Guess(normalized)}
	return nil
}

// Input applies a keystroke-level change to a secret field of the active step.
// It returns false and leaves the field unchanged when the value is rejected.
func (f *AuthFlow) Input(field authflow.Field, value string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return false
	}
	next, ok := authflow.WithField(f.step, field, value)
	if !ok {
		return false
	}
	f.step = next
	if f.errField == string(field) {
		f.errMsg, f.errField = "", ""
	}
	return true
}

// SubmitPin verifies the PIN with the backend. Only the backend-asserted role
// reaches the committed session; the heuristic hint merely picks the endpoint.
func (f *AuthFlow) SubmitPin(ctx context.Context) error {
	f.mu.Lock()
	st, ok := f.step.(authflow.PinStep)
	if !ok {
		f.mu.Unlock()
		return ErrInvalidStep
	}
	if f.busy {
		f.mu.Unlock()
		return ErrBusy
	}
	if err := authflow.ValidateCode(authflow.FieldPin, st.Pin); err != nil {
		defer f.mu.Unlock()
		return f.fail(err)
	}
	epoch := f.begin()
	f.mu.Unlock()

	res, err := f.backend.Login(ctx, ports.LoginRequest{
		Email: st.Email,
		Pin:   st.Pin,
		Admin: st.Hint.Kind == domainauth.KindAdmin,
	})

	f.mu.Lock()
	defer f.mu.Unlock()
	if epoch != f.epoch {
		return ErrStale
	}
	f.busy = false
	if err != nil {
		f.logger.InfoContext(ctx, "login rejected", "code", apperrors.GetCode(err))
		return f.fail(err)
	}

	if res.RequiresActivation {
		f.clearMessages()
		f.step = authflow.ActivationStep{Handoff: authflow.ActivationHandoff{
			AccountID:   res.AccountID,
			AccountType: res.AccountType,
			Email:       fallbackString(res.Email, st.Email),
			FullName:    res.FullName,
		}}
		return nil
	}

	role, err := domainauth.ParseAuthoritativeRole(res.Role)
	if err != nil {
		f.logger.WarnContext(ctx, "login returned unrecognized role", "role", res.Role)
		return f.fail(apperrors.Wrap(err, apperrors.ErrCodeForbidden, msgUnknownRole))
	}
	active := res.IsActive
	if active == nil {
		active = domainauth.Bool(true)
	}
	principal := domainauth.NewPrincipal(role, domainauth.Account{
		AccountID:   res.AccountID,
		Email:       fallbackString(res.Email, st.Email),
		DisplayName: res.FullName,
		AccountType: res.AccountType,
	}, active)

	// The redirect is only exposed once the session is stored.
	if err := f.sessions.Commit(ctx, principal, res.Token, principal.IsAdmin()); err != nil {
		f.logger.ErrorContext(ctx, "commit session", "error", err)
		return f.fail(err)
	}
	f.clearMessages()
	f.cooldown.Stop()
	f.step = authflow.SuccessStep{Redirect: domainauth.LandingPath(principal)}
	return nil
}

// ChangeEmail returns from the PIN step to the email step.
func (f *AuthFlow) ChangeEmail() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.step.(authflow.PinStep)
	if !ok {
		return ErrInvalidStep
	}
	f.navigate(authflow.EmailStep{Email: st.Email})
	return nil
}

// ForgotPin enters the recovery path with the current email pre-filled.
func (f *AuthFlow) ForgotPin() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restartTerminalLocked()
	switch f.step.(type) {
	case authflow.EmailStep, authflow.PinStep:
	default:
		return ErrInvalidStep
	}
	f.navigate(authflow.ForgotEmailStep{Email: authflow.EmailOf(f.step)})
	return nil
}

// RequestOTP asks the backend to email a recovery code. An empty email uses
// the pre-filled one. Unknown accounts look the same as known ones.
func (f *AuthFlow) RequestOTP(ctx context.Context, email string) error {
	f.mu.Lock()
	st, ok := f.step.(authflow.ForgotEmailStep)
	if !ok {
		f.mu.Unlock()
		return ErrInvalidStep
	}
	if f.busy {
		f.mu.Unlock()
		return ErrBusy
	}
	if email == "" {
		email = st.Email
	}
	normalized := authflow.NormalizeEmail(email)
	if err := authflow.ValidateEmail(normalized); err != nil {
		defer f.mu.Unlock()
		f.step = authflow.ForgotEmailStep{Email: email}
		return f.fail(err)
	}
	f.step = authflow.ForgotEmailStep{Email: normalized}
	if f.codeWaitLocked(normalized) > 0 {
		defer f.mu.Unlock()
		return f.fail(apperrors.New(apperrors.ErrCodeRateLimited, msgResendCooldown))
	}
	epoch := f.begin()
	f.mu.Unlock()

	err := f.sendCode(ctx, normalized)

	f.mu.Lock()
	defer f.mu.Unlock()
	if epoch != f.epoch {
		return ErrStale
	}
	f.busy = false
	if err != nil {
		return f.fail(err)
	}
	f.clearMessages()
	f.notice = msgCodeSent
	f.step = authflow.ForgotOTPStep{Email: normalized}
	f.codeIssuedLocked(normalized)
	return nil
}

// ResendOTP issues a fresh code once the cooldown has run out. Success
// restarts the cooldown and clears any partially entered code.
func (f *AuthFlow) ResendOTP(ctx context.Context) error {
	f.mu.Lock()
	st, ok := f.step.(authflow.ForgotOTPStep)
	if !ok {
		f.mu.Unlock()
		return ErrInvalidStep
	}
	if f.busy {
		f.mu.Unlock()
		return ErrBusy
	}
	if !f.cooldown.Available() {
		f.mu.Unlock()
		return apperrors.New(apperrors.ErrCodeRateLimited, msgResendCooldown)
	}
	epoch := f.begin()
	f.mu.Unlock()

	err := f.sendCode(ctx, st.Email)

	f.mu.Lock()
	defer f.mu.Unlock()
	if epoch != f.epoch {
		return ErrStale
	}
	f.busy = false
	if err != nil {
		return f.fail(err)
	}
	f.clearMessages()
	f.notice = msgCodeResent
	f.step = authflow.ForgotOTPStep{Email: st.Email}
	f.codeIssuedLocked(st.Email)
	return nil
}

// codeIssuedLocked starts the resend window for email.
func (f *AuthFlow) codeIssuedLocked(email string) {
	if f.codesSent == nil {
		f.codesSent = make(map[string]time.Time)
	}
	for e := range f.codesSent {
		if f.codeWaitLocked(e) == 0 {
			delete(f.codesSent, e)
		}
	}
	f.codesSent[email] = f.clk.Now()
	f.cooldown.Start(f.cooldownN)
}

// codeWaitLocked returns how long until another code may be sent to email.
// It outlives the visible countdown, which stops when the code step is left.
func (f *AuthFlow) codeWaitLocked(email string) time.Duration {
	sentAt, ok := f.codesSent[email]
	if !ok {
		return 0
	}
	wait := time.Duration(f.cooldownN)*time.Second - f.clk.Now().Sub(sentAt)
	return max(wait, 0)
}

func (f *AuthFlow) sendCode(ctx context.Context, email string) error {
	err := f.backend.ForgotPin(ctx, email)
	if apperrors.IsNotFound(err) {
		f.logger.InfoContext(ctx, "recovery code requested for unknown account")
		return nil
	}
	return err
}

// SubmitOTP checks the code format and advances. The code is verified by the
// backend only together with the new PIN at confirmation.
func (f *AuthFlow) SubmitOTP() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.step.(authflow.ForgotOTPStep)
	if !ok {
		return ErrInvalidStep
	}
	if f.busy {
		return ErrBusy
	}
	if err := authflow.ValidateCode(authflow.FieldOTP, st.OTP); err != nil {
		return f.fail(err)
	}
	f.clearMessages()
	f.step = authflow.ForgotNewPinStep{Email: st.Email, OTP: st.OTP}
	return nil
}

// SubmitNewPin checks the candidate PIN format and asks for confirmation.
func (f *AuthFlow) SubmitNewPin() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.step.(authflow.ForgotNewPinStep)
	if !ok {
		return ErrInvalidStep
	}
	if f.busy {
		return ErrBusy
	}
	if err := authflow.ValidateCode(authflow.FieldNewPin, st.NewPin); err != nil {
		return f.fail(err)
	}
	f.clearMessages()
	f.step = authflow.ForgotConfirmStep{Email: st.Email, OTP: st.OTP, NewPin: st.NewPin}
	return nil
}

// SubmitConfirmPin resets the PIN when the confirmation matches. A mismatch
// never reaches the backend and keeps the candidate PIN.
func (f *AuthFlow) SubmitConfirmPin(ctx context.Context) error {
	f.mu.Lock()
	st, ok := f.step.(authflow.ForgotConfirmStep)
	if !ok {
		f.mu.Unlock()
		return ErrInvalidStep
	}
	if f.busy {
		f.mu.Unlock()
		return ErrBusy
	}
	if err := authflow.ValidateCode(authflow.FieldConfirmPin, st.ConfirmPin); err != nil {
		defer f.mu.Unlock()
		return f.fail(err)
	}
	if st.ConfirmPin != st.NewPin {
		defer f.mu.Unlock()
		return f.fail(apperrors.ValidationField(string(authflow.FieldConfirmPin), msgPinMismatch))
	}
	epoch := f.begin()
	f.mu.Unlock()

	err := f.backend.ResetPin(ctx, ports.ResetPinRequest{Email: st.Email, OTP: st.OTP, NewPin: st.NewPin})

	f.mu.Lock()
	defer f.mu.Unlock()
	if epoch != f.epoch {
		return ErrStale
	}
	f.busy = false
	if err != nil {
		return f.fail(err)
	}
	f.navigate(authflow.EmailStep{})
	f.notice = msgPinReset
	return nil
}

// Back moves one step towards the email step.
func (f *AuthFlow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch st := f.step.(type) {
	case authflow.SuccessStep, authflow.ActivationStep:
		f.navigate(authflow.EmailStep{})
	case authflow.PinStep:
		f.navigate(authflow.EmailStep{Email: st.Email})
	case authflow.ForgotEmailStep:
		f.navigate(authflow.EmailStep{Email: st.Email})
	case authflow.ForgotOTPStep:
		f.navigate(authflow.ForgotEmailStep{Email: st.Email})
	case authflow.ForgotNewPinStep:
		f.navigate(authflow.ForgotOTPStep{Email: st.Email, OTP: st.OTP})
	case authflow.ForgotConfirmStep:
		f.navigate(authflow.ForgotNewPinStep{Email: st.Email, OTP: st.OTP, NewPin: st.NewPin})
	default:
		return ErrInvalidStep
	}
	return nil
}

// Cancel abandons the flow and returns to an empty email step.
func (f *AuthFlow) Cancel() {
	f.Reset()
}

// Reset returns to an empty email step, discarding every transient field.
func (f *AuthFlow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigate(authflow.EmailStep{})
}

// Settle returns a finished flow to an empty email step and reports
// whether it did. Unfinished flows are left alone.
func (f *AuthFlow) Settle() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.restartTerminalLocked()
}

// restartTerminalLocked moves a finished flow back to the email step.
// Callers must hold f.mu.
func (f *AuthFlow) restartTerminalLocked() bool {
	if !authflow.Terminal(f.step) {
		return false
	}
	f.navigate(authflow.EmailStep{})
	return true
}

// Close stops the cooldown timer. The flow stays usable.
func (f *AuthFlow) Close() {
	f.cooldown.Stop()
}

// navigate moves to next and invalidates in-flight responses. The resend
// cooldown only survives while the code step is reachable.
// Callers must hold f.mu.
func (f *AuthFlow) navigate(next authflow.Step) {
	f.epoch++
	f.busy = false
	f.clearMessages()
	switch next.(type) {
	case authflow.ForgotOTPStep, authflow.ForgotNewPinStep, authflow.ForgotConfirmStep:
	default:
		f.cooldown.Stop()
	}
	f.step = next
}

// begin marks the flow busy and returns the epoch of the request.
// Callers must hold f.mu.
func (f *AuthFlow) begin() uint64 {
	f.busy = true
	f.errMsg, f.errField, f.notice = "", "", ""
	return f.epoch
}

// fail records err as the inline message of the active step and returns it.
// Callers must hold f.mu.
func (f *AuthFlow) fail(err error) error {
	f.errMsg = apperrors.UserMessage(err, msgRetry)
	f.errField = apperrors.GetField(err)
	f.notice = ""
	return err
}

func (f *AuthFlow) clearMessages() {
	f.errMsg, f.errField, f.notice = "", "", ""
}

func fallbackString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
