package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	domainauth "github.com/ohitsyle/jusq-sub002/internal/domain/auth"
	apperrors "github.com/ohitsyle/jusq-sub002/internal/errors"
	"github.com/ohitsyle/jusq-sub002/internal/http/validation"
	"github.com/ohitsyle/jusq-sub002/internal/service"
)

// SessionHandlers exposes the persisted identity of the requesting device.
type SessionHandlers struct {
	Identities     *service.Identities
	Flows          *service.Flows
	RestoreTimeout time.Duration
	Logger         *slog.Logger
}

type sessionResponse struct {
	Status        service.IdentityStatus `json:"status"`
	Authenticated bool                   `json:"authenticated"`
	Principal     *domainauth.Principal  `json:"principal,omitempty"`
	Landing       string                 `json:"landing,omitempty"`
	Warning       string                 `json:"warning,omitempty"`
}

type profileRequest struct {
	DisplayName *string `json:"displayName"`
	Email       *string `json:"email"`
}

func newSessionResponse(state service.IdentityState) sessionResponse {
	resp := sessionResponse{Status: state.Status, Warning: state.Warning}
	if state.Session != nil {
		p := state.Session.Principal
		resp.Authenticated = true
		resp.Principal = &p
		resp.Landing = domainauth.LandingPath(p)
	}
	return resp
}

func (h *SessionHandlers) restore(r *http.Request) (*service.IdentityStore, service.IdentityState) {
	timeout := h.RestoreTimeout
	if timeout <= 0 {
		timeout = DefaultRestoreTimeout
	}
	store := h.Identities.For(DeviceFromContext(r.Context()))
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()
	return store, store.Restore(ctx)
}

func (h *SessionHandlers) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// Get handles GET /auth/session. A restore that is still running answers 503
// with Retry-After so the client shows its loading gate.
func (h *SessionHandlers) Get(w http.ResponseWriter, r *http.Request) {
	_, state := h.restore(r)
	if state.Status != service.IdentityReady {
		w.Header().Set("Retry-After", strconv.Itoa(1))
		WriteJSON(w, http.StatusServiceUnavailable, newSessionResponse(state))
		return
	}
	WriteJSON(w, http.StatusOK, newSessionResponse(state))
}

// PatchProfile handles PATCH /auth/session/profile. Only the display name and
// email may change; kind and role stay as the backend asserted them.
func (h *SessionHandlers) PatchProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	fv := validation.New()
	if req.DisplayName != nil {
		fv.Validate("displayName", *req.DisplayName, validation.Required("Display name", 120))
	}
	if req.Email != nil {
		fv.Validate("email", *req.Email, validation.Required("Email", 254), validation.Email("Email"))
	}
	if field, msg, ok := fv.First(); ok {
		WriteAppError(w, apperrors.ValidationField(field, msg))
		return
	}

	store, state := h.restore(r)
	if state.Status != service.IdentityReady {
		w.Header().Set("Retry-After", strconv.Itoa(1))
		WriteJSON(w, http.StatusServiceUnavailable, newSessionResponse(state))
		return
	}
	if state.Session == nil {
		WriteAppError(w, service.ErrNoSession)
		return
	}

	p := state.Session.Principal
	if req.DisplayName != nil {
		p.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.Email != nil {
		p.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if err := store.Patch(r.Context(), p); err != nil {
		h.logger().Warn("profile patch failed", "error", err)
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, newSessionResponse(store.State()))
}

// Logout handles POST /auth/logout. It clears both identity namespaces and
// resets the device's flow.
func (h *SessionHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	deviceID := DeviceFromContext(r.Context())
	store := h.Identities.For(deviceID)
	if err := store.Clear(r.Context()); err != nil {
		h.logger().Error("logout failed", "error", err)
		WriteAppError(w, err)
		return
	}
	if h.Flows != nil {
		h.Flows.For(deviceID).Reset()
	}
	resp := newSessionResponse(store.State())
	WriteJSON(w, http.StatusOK, struct {
		sessionResponse
		Redirect string `json:"redirect"`
	}{resp, domainauth.LoginPath})
}
