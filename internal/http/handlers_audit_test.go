package httpx

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ohitsyle/jusq-sub002/internal/adapters/backend"
	"github.com/ohitsyle/jusq-sub002/internal/domain/auditlog"
	apperrors "github.com/ohitsyle/jusq-sub002/internal/errors"
	authmocks "github.com/ohitsyle/jusq-sub002/internal/mocks/auth"
	"github.com/ohitsyle/jusq-sub002/internal/service"
)

func auditRecords() []auditlog.EventRecord {
	return []auditlog.EventRecord{
		{ID: "1", EventType: auditlog.TypeLogin, Metadata: auditlog.Metadata{AdminRole: "treasury"}},
		{ID: "2", EventType: auditlog.TypeCashIn, Metadata: auditlog.Metadata{AdminRole: "treasury"}},
		{ID: "3", EventType: auditlog.TypeTripStart, TargetEntity: auditlog.EntityTrip},
		{ID: "4", EventType: auditlog.TypeLogin, Metadata: auditlog.Metadata{AdminRole: "sysad"}},
	}
}

func TestAudit_FiltersByRole(t *testing.T) {
	var gotToken string
	fb := &authmocks.FakeBackend{
		LoginFunc: loginAs("treasury"),
		AuditLogsFunc: func(_ context.Context, token string) ([]auditlog.EventRecord, error) {
			gotToken = token
			return auditRecords(), nil
		},
	}
	h := newHarness(t, fb)
	h.login(t, "cash@campus.edu")

	rec := h.do(t, http.MethodGet, "/api/audit-logs", "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[service.AuditResult](t, rec)
	assert.Equal(t, "tok-treasury", gotToken)
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 2, res.Visible)
	ids := make([]string, 0, len(res.Records))
	for _, r := range res.Records {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"1", "2"}, ids)
}

func TestAudit_Query(t *testing.T) {
	fb := &authmocks.FakeBackend{
		LoginFunc: loginAs("sysad"),
		AuditLogsFunc: func(context.Context, string) ([]auditlog.EventRecord, error) {
			return auditRecords(), nil
		},
	}
	h := newHarness(t, fb)
	h.login(t, "root@campus.edu")

	rec := h.do(t, http.MethodGet, "/api/audit-logs?q=%5B%3FeventType%3D%3D%27login%27%5D.id", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `["1","4"]`, string(mustField(t, rec.Body.Bytes(), "result")))

	rec = h.do(t, http.MethodGet, "/api/audit-logs?q=%5B%3F", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAudit_UserIsRedirected(t *testing.T) {
	h := newHarness(t, &authmocks.FakeBackend{LoginFunc: loginAs("")})
	h.login(t, "ana@campus.edu")

	rec := h.do(t, http.MethodGet, "/api/audit-logs", "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "/user-dashboard", decode[service.Decision](t, rec).Location)
	assert.Zero(t, h.backend.Calls("AuditLogs"))
}

func TestAudit_ExpiredTokenEndsSession(t *testing.T) {
	fb := &authmocks.FakeBackend{
		LoginFunc: loginAs("merchant"),
		AuditLogsFunc: func(context.Context, string) ([]auditlog.EventRecord, error) {
			return nil, apperrors.Unauthorized(backend.MsgSessionExpired)
		},
	}
	h := newHarness(t, fb)
	h.login(t, "shop@campus.edu")

	rec := h.do(t, http.MethodGet, "/api/audit-logs", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), backend.MsgSessionExpired)
	assert.Nil(t, h.identities.For(testDevice).State().Session)
}
