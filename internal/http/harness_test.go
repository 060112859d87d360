package httpx

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ohitsyle/jusq-sub002/internal/adapters/memstore"
	"github.com/ohitsyle/jusq-sub002/internal/clock"
	authmocks "github.com/ohitsyle/jusq-sub002/internal/mocks/auth"
	"github.com/ohitsyle/jusq-sub002/internal/ports"
	"github.com/ohitsyle/jusq-sub002/internal/service"
)

const testDevice = "6f1c2a7e-3b9d-4c1e-8a5f-0d2b7c9e4a11"

type harness struct {
	backend    *authmocks.FakeBackend
	storage    *memstore.Storage
	identities *service.Identities
	flows      *service.Flows
	clock      *clock.FakeClock
	handler    http.Handler
}

type harnessOption func(*RouterServices)

func withLimits(pin, otp int) harnessOption {
	return func(s *RouterServices) {
		s.PinAttemptsPerMinute = pin
		s.OTPRequestsPerMinute = otp
	}
}

func newHarness(t *testing.T, backend *authmocks.FakeBackend, opts ...harnessOption) *harness {
	t.Helper()
	return newHarnessWithStorage(t, backend, memstore.New(), opts...)
}

func newHarnessWithStorage(t *testing.T, backend *authmocks.FakeBackend, factory ports.StorageFactory, opts ...harnessOption) *harness {
	t.Helper()
	if backend == nil {
		backend = &authmocks.FakeBackend{}
	}
	identities, err := service.NewIdentities(service.IdentitiesOptions{
		Storage:  factory,
		Fallback: func() ports.Storage { return memstore.NewScoped() },
	})
	require.NoError(t, err)

	fc := clock.Fake(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC))
	flows, err := service.NewFlows(service.FlowsOptions{
		Identities: identities,
		Backend:    backend,
		Heuristic:  authmocks.StaticHeuristic{},
		Clock:      fc,
	})
	require.NoError(t, err)

	svcs := RouterServices{
		Identities:     identities,
		Flows:          flows,
		AuditFeed:      service.NewAuditFeed(service.AuditFeedOptions{Backend: backend}),
		Guard:          service.NewRouteGuard(),
		RestoreTimeout: 50 * time.Millisecond,
		// High enough that functional tests never trip them.
		PinAttemptsPerMinute: 1000,
		OTPRequestsPerMinute: 1000,
	}
	for _, o := range opts {
		o(&svcs)
	}

	h := &harness{backend: backend, identities: identities, flows: flows, clock: fc, handler: NewRouter(svcs)}
	if s, ok := factory.(*memstore.Storage); ok {
		h.storage = s
	}
	return h
}

type requestOption func(*http.Request)

func asBrowser(r *http.Request) { r.Header.Set("Accept", "text/html,application/xhtml+xml") }

func withoutDevice(r *http.Request) { r.Header.Del("Cookie") }

func (h *harness) do(t *testing.T, method, path, body string, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.AddCookie(&http.Cookie{Name: DeviceCookieName, Value: testDevice})
	for _, o := range opts {
		o(req)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

// login drives the flow to a committed session.
func (h *harness) login(t *testing.T, email string) flowResponse {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/auth/flow/email", `{"email":"`+email+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = h.do(t, http.MethodPost, "/auth/flow/pin", `{"value":"123456"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[flowResponse](t, rec)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func loginAs(role string) func(context.Context, ports.LoginRequest) (ports.LoginResult, error) {
	return func(_ context.Context, req ports.LoginRequest) (ports.LoginResult, error) {
		return ports.LoginResult{
			Token:     "tok-" + role,
			Role:      role,
			AccountID: "A-100",
			Email:     req.Email,
			FullName:  "Ana Cruz",
		}, nil
	}
}

// blockingFactory hands out storage whose reads hang until the test ends.
type blockingFactory struct {
	release chan struct{}
}

func newBlockingFactory(t *testing.T) *blockingFactory {
	f := &blockingFactory{release: make(chan struct{})}
	t.Cleanup(func() { close(f.release) })
	return f
}

func (f *blockingFactory) Scope(string) ports.Storage { return blockingStorage{f.release} }

type blockingStorage struct{ release chan struct{} }

func (s blockingStorage) Get(context.Context, string) (string, bool, error) {
	<-s.release
	return "", false, nil
}

func (s blockingStorage) SetMany(context.Context, map[string]string, ...string) error { return nil }

func (s blockingStorage) Delete(context.Context, ...string) error { return nil }
