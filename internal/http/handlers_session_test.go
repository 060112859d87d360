package httpx

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/ohitsyle/jusq-sub002/internal/domain/auth"
	"github.com/ohitsyle/jusq-sub002/internal/domain/authflow"
	authmocks "github.com/ohitsyle/jusq-sub002/internal/mocks/auth"
	"github.com/ohitsyle/jusq-sub002/internal/service"
)

func TestSession_GetLoggedOut(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodGet, "/auth/session", "")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[sessionResponse](t, rec)
	assert.Equal(t, service.IdentityReady, resp.Status)
	assert.False(t, resp.Authenticated)
	assert.Nil(t, resp.Principal)
}

func TestSession_GetAfterAdminLogin(t *testing.T) {
	h := newHarness(t, &authmocks.FakeBackend{LoginFunc: loginAs("Accounting")})
	h.login(t, "ledger@campus.edu")

	rec := h.do(t, http.MethodGet, "/auth/session", "")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[sessionResponse](t, rec)
	assert.True(t, resp.Authenticated)
	require.NotNil(t, resp.Principal)
	assert.Equal(t, domainauth.KindAdmin, resp.Principal.Kind)
	assert.Equal(t, domainauth.RoleAccounting, resp.Principal.RoleTag)
	assert.Equal(t, "/accounting-home", resp.Landing)
	assert.NotContains(t, rec.Body.String(), "tok-")
}

func TestSession_GetWhileRestorePending(t *testing.T) {
	h := newHarnessWithStorage(t, nil, newBlockingFactory(t))

	rec := h.do(t, http.MethodGet, "/auth/session", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, service.IdentityPending, decode[sessionResponse](t, rec).Status)
}

func TestSession_PatchProfile(t *testing.T) {
	h := newHarness(t, &authmocks.FakeBackend{LoginFunc: loginAs("")})
	h.login(t, "ana@campus.edu")

	rec := h.do(t, http.MethodPatch, "/auth/session/profile", `{"displayName":"  Ana M. Cruz "}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[sessionResponse](t, rec)
	assert.Equal(t, "Ana M. Cruz", resp.Principal.DisplayName)
	assert.Equal(t, "ana@campus.edu", resp.Principal.Email)
	assert.Equal(t, "tok-", h.identities.For(testDevice).State().Session.Token[:4])
}

func TestSession_PatchProfileValidation(t *testing.T) {
	h := newHarness(t, &authmocks.FakeBackend{LoginFunc: loginAs("")})
	h.login(t, "ana@campus.edu")

	rec := h.do(t, http.MethodPatch, "/auth/session/profile", `{"email":"nope"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"email"`)

	rec = h.do(t, http.MethodPatch, "/auth/session/profile", `{"role":"sysad"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSession_PatchProfileWithoutSession(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodPatch, "/auth/session/profile", `{"displayName":"Ana"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSession_LogoutClearsIdentityAndFlow(t *testing.T) {
	h := newHarness(t, &authmocks.FakeBackend{LoginFunc: loginAs("treasury")})
	h.login(t, "cash@campus.edu")

	rec := h.do(t, http.MethodPost, "/auth/logout", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redirect":"/login"`)
	assert.Zero(t, h.storage.Scope(testDevice).(interface{ Len() int }).Len())
	assert.Equal(t, authflow.StepEmail, h.flows.For(testDevice).Step().Name())

	rec = h.do(t, http.MethodGet, "/treasury-dashboard", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSession_DevicesAreIsolated(t *testing.T) {
	h := newHarness(t, &authmocks.FakeBackend{LoginFunc: loginAs("")})
	h.login(t, "ana@campus.edu")

	other := func(r *http.Request) {
		r.Header.Del("Cookie")
		r.AddCookie(&http.Cookie{Name: DeviceCookieName, Value: "0b8e4f52-7c1d-4e7a-9b3a-5d6e7f8091a2"})
	}
	rec := h.do(t, http.MethodGet, "/auth/session", "", other)

	assert.False(t, decode[sessionResponse](t, rec).Authenticated)
}

func TestSession_NewDeviceGetsCookie(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodGet, "/auth/session", "", withoutDevice)

	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, DeviceCookieName, rec.Result().Cookies()[0].Name)
}
