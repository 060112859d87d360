package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/ohitsyle/jusq-sub002/internal/domain/auth"
	"github.com/ohitsyle/jusq-sub002/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Identities *service.Identities
	Flows      *service.Flows
	AuditFeed  *service.AuditFeed
	Guard      service.RouteGuard
	Cookies    CookieOptions
	// RestoreTimeout bounds how long a request waits for the device identity.
	RestoreTimeout time.Duration
	// Requests per minute per client IP; zero picks the defaults.
	PinAttemptsPerMinute int
	OTPRequestsPerMinute int
	// Ready is polled by /readyz (optional).
	Ready  func(context.Context) error
	Logger *slog.Logger
}

// NewRouter creates and configures the portal router with its middleware chain.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pinLimit := services.PinAttemptsPerMinute
	if pinLimit == 0 {
		pinLimit = DefaultPinAttemptsPerMinute
	}
	otpLimit := services.OTPRequestsPerMinute
	if otpLimit == 0 {
		otpLimit = DefaultOTPRequestsPerMinute
	}

	mux := http.NewServeMux()

	flowHandlers := &FlowHandlers{Flows: services.Flows, Logger: logger}
	sessionHandlers := &SessionHandlers{
		Identities:     services.Identities,
		Flows:          services.Flows,
		RestoreTimeout: services.RestoreTimeout,
		Logger:         logger,
	}
	auditHandlers := &AuditHandlers{Feed: services.AuditFeed, Identities: services.Identities, Logger: logger}
	guard := GuardOptions{
		Identities:     services.Identities,
		Guard:          services.Guard,
		RestoreTimeout: services.RestoreTimeout,
		Logger:         logger,
	}

	registerFlowRoutes(mux, flowHandlers, rateLimit(pinLimit), rateLimit(otpLimit))
	registerSessionRoutes(mux, sessionHandlers)
	registerPageRoutes(mux, guard, sessionHandlers)
	mux.Handle("GET /api/audit-logs",
		RequireCapability(guard, service.AdminsOnly(domainauth.AllRoleTags()...))(http.HandlerFunc(auditHandlers.List)))

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readinessHandler(services.Ready, logger))

	var handler http.Handler = mux
	handler = Device(services.Cookies)(handler)
	handler = BrowserDetection()(handler)
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}

func registerFlowRoutes(mux *http.ServeMux, h *FlowHandlers, pinLimit, otpLimit func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /auth/flow", h.Get)
	mux.HandleFunc("POST /auth/flow/email", h.SubmitEmail)
	mux.Handle("POST /auth/flow/pin", pinLimit(h.SubmitPin()))
	mux.Handle("POST /auth/flow/change-email", h.ChangeEmail())
	mux.Handle("POST /auth/flow/forgot", h.ForgotPin())
	mux.Handle("POST /auth/flow/back", h.Back())
	mux.Handle("POST /auth/flow/cancel", h.Cancel())
	mux.HandleFunc("PUT /auth/flow/fields/{field}", h.SetField)

	mux.Handle("POST /auth/flow/forgot/request", otpLimit(http.HandlerFunc(h.RequestOTP)))
	mux.Handle("POST /auth/flow/forgot/resend", otpLimit(http.HandlerFunc(h.ResendOTP)))
	mux.Handle("POST /auth/flow/forgot/otp", pinLimit(h.SubmitOTP()))
	mux.Handle("POST /auth/flow/forgot/new-pin", h.SubmitNewPin())
	mux.Handle("POST /auth/flow/forgot/confirm", pinLimit(h.SubmitConfirmPin()))
}

func registerSessionRoutes(mux *http.ServeMux, h *SessionHandlers) {
	mux.HandleFunc("GET /auth/session", h.Get)
	mux.HandleFunc("PATCH /auth/session/profile", h.PatchProfile)
	mux.HandleFunc("POST /auth/logout", h.Logout)
}

func registerPageRoutes(mux *http.ServeMux, guard GuardOptions, sessions *SessionHandlers) {
	mux.Handle("GET "+domainauth.LoginPath, loginPage(sessions))

	users := service.UsersOnly()
	pages := []struct {
		path string
		page string
		want service.Capability
	}{
		{domainauth.UserDashboardPath, PageUserDashboard, users},
		{domainauth.ChangePinPath, PageChangePin, service.Capability{Users: true, AllowInactive: true}},
		{domainauth.RoleLandingPath(domainauth.RoleTreasury), PageTreasuryDashboard, service.AdminsOnly(domainauth.RoleTreasury)},
		{domainauth.RoleLandingPath(domainauth.RoleAccounting), PageAccountingHome, service.AdminsOnly(domainauth.RoleAccounting)},
		{domainauth.RoleLandingPath(domainauth.RoleSysad), PageSysadDashboard, service.AdminsOnly(domainauth.RoleSysad)},
		{domainauth.RoleLandingPath(domainauth.RoleMotorpool), PageMotorpoolDashboard, service.AdminsOnly(domainauth.RoleMotorpool)},
		{domainauth.RoleLandingPath(domainauth.RoleMerchant), PageMerchantDashboard, service.AdminsOnly(domainauth.RoleMerchant)},
	}
	for _, p := range pages {
		mux.Handle("GET "+p.path, RequireCapability(guard, p.want)(landingPage(p.page)))
	}
}
