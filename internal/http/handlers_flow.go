package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ohitsyle/jusq-sub002/internal/domain/authflow"
	apperrors "github.com/ohitsyle/jusq-sub002/internal/errors"
	"github.com/ohitsyle/jusq-sub002/internal/service"
)

const msgDigitsOnly = "Use digits only, up to 6."

// FlowHandlers exposes the login and PIN-recovery flow of the requesting device.
// Every response carries the current flow view, errors included.
type FlowHandlers struct {
	Flows  *service.Flows
	Logger *slog.Logger
}

type flowResponse struct {
	Flow  service.FlowView `json:"flow"`
	Error *ErrorBody       `json:"error,omitempty"`
}

type emailRequest struct {
	Email string `json:"email"`
}

// valueRequest optionally sets the step's secret field before submitting it.
type valueRequest struct {
	Value *string `json:"value"`
}

func (h *FlowHandlers) flowFor(r *http.Request) *service.AuthFlow {
	return h.Flows.For(DeviceFromContext(r.Context()))
}

func (h *FlowHandlers) respond(w http.ResponseWriter, r *http.Request, f *service.AuthFlow, err error) {
	status := StatusFor(err)
	switch {
	case status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable:
		h.logger().Error("auth flow failed", "path", r.URL.Path, "error", err)
	case err != nil:
		h.logger().Debug("auth flow rejected", "path", r.URL.Path, "code", apperrors.GetCode(err))
	}
	WriteJSON(w, status, flowResponse{Flow: f.View(), Error: errorBody(err)})
}

func (h *FlowHandlers) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// Get handles GET /auth/flow.
func (h *FlowHandlers) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.flowFor(r), nil)
}

// SubmitEmail handles POST /auth/flow/email.
func (h *FlowHandlers) SubmitEmail(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	f := h.flowFor(r)
	h.respond(w, r, f, f.SubmitEmail(req.Email))
}

// SetField handles PUT /auth/flow/fields/{field}.
func (h *FlowHandlers) SetField(w http.ResponseWriter, r *http.Request) {
	f := h.flowFor(r)
	field, ok := authflow.ParseField(r.PathValue("field"))
	if !ok {
		h.respond(w, r, f, apperrors.NotFound("Unknown field."))
		return
	}
	var req valueRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	value := ""
	if req.Value != nil {
		value = *req.Value
	}
	h.respond(w, r, f, h.input(f, field, value))
}

// input reports a rejected keystroke as an error so the client can keep its
// previous value.
func (h *FlowHandlers) input(f *service.AuthFlow, field authflow.Field, value string) error {
	if f.Input(field, value) {
		return nil
	}
	if f.View().Busy {
		return service.ErrBusy
	}
	if _, owned := authflow.WithField(f.Step(), field, ""); !owned {
		return service.ErrInvalidStep
	}
	return apperrors.ValidationField(string(field), msgDigitsOnly)
}

// submitWith returns a handler that applies an optional field value and then runs submit.
func (h *FlowHandlers) submitWith(field authflow.Field, submit func(context.Context, *service.AuthFlow) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req valueRequest
		if !DecodeOptionalJSON(w, r, &req) {
			return
		}
		f := h.flowFor(r)
		if req.Value != nil {
			if err := h.input(f, field, *req.Value); err != nil {
				h.respond(w, r, f, err)
				return
			}
		}
		h.respond(w, r, f, submit(r.Context(), f))
	}
}

// action returns a handler for body-less transitions.
func (h *FlowHandlers) action(run func(*service.AuthFlow) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := h.flowFor(r)
		h.respond(w, r, f, run(f))
	}
}

// SubmitPin handles POST /auth/flow/pin.
func (h *FlowHandlers) SubmitPin() http.HandlerFunc {
	return h.submitWith(authflow.FieldPin, func(ctx context.Context, f *service.AuthFlow) error {
		return f.SubmitPin(ctx)
	})
}

// ChangeEmail handles POST /auth/flow/change-email.
func (h *FlowHandlers) ChangeEmail() http.HandlerFunc {
	return h.action((*service.AuthFlow).ChangeEmail)
}

// ForgotPin handles POST /auth/flow/forgot.
func (h *FlowHandlers) ForgotPin() http.HandlerFunc {
	return h.action((*service.AuthFlow).ForgotPin)
}

// Back handles POST /auth/flow/back.
func (h *FlowHandlers) Back() http.HandlerFunc {
	return h.action((*service.AuthFlow).Back)
}

// Cancel handles POST /auth/flow/cancel.
func (h *FlowHandlers) Cancel() http.HandlerFunc {
	return h.action(func(f *service.AuthFlow) error {
		f.Cancel()
		return nil
	})
}

// RequestOTP handles POST /auth/flow/forgot/request. The email may be omitted
// to use the pre-filled one.
func (h *FlowHandlers) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !DecodeOptionalJSON(w, r, &req) {
		return
	}
	f := h.flowFor(r)
	h.respond(w, r, f, f.RequestOTP(r.Context(), req.Email))
}

// ResendOTP handles POST /auth/flow/forgot/resend.
func (h *FlowHandlers) ResendOTP(w http.ResponseWriter, r *http.Request) {
	f := h.flowFor(r)
	h.respond(w, r, f, f.ResendOTP(r.Context()))
}

// SubmitOTP handles POST /auth/flow/forgot/otp.
func (h *FlowHandlers) SubmitOTP() http.HandlerFunc {
	return h.submitWith(authflow.FieldOTP, func(_ context.Context, f *service.AuthFlow) error {
		return f.SubmitOTP()
	})
}

// SubmitNewPin handles POST /auth/flow/forgot/new-pin.
func (h *FlowHandlers) SubmitNewPin() http.HandlerFunc {
	return h.submitWith(authflow.FieldNewPin, func(_ context.Context, f *service.AuthFlow) error {
		return f.SubmitNewPin()
	})
}

// SubmitConfirmPin handles POST /auth/flow/forgot/confirm.
func (h *FlowHandlers) SubmitConfirmPin() http.HandlerFunc {
	return h.submitWith(authflow.FieldConfirmPin, func(ctx context.Context, f *service.AuthFlow) error {
		return f.SubmitConfirmPin(ctx)
	})
}
