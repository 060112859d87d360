package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	domainauth "github.com/ohitsyle/jusq-sub002/internal/domain/auth"
	"github.com/ohitsyle/jusq-sub002/internal/service"
)

// DefaultRestoreTimeout bounds how long a guarded request waits for the
// persisted identity of its device.
const DefaultRestoreTimeout = 2 * time.Second

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &respWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					WriteJSON(w, http.StatusInternalServerError, map[string]any{
						"error": ErrorBody{Code: "internal", Message: msgInternal},
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// browserRequestKey is an unexported context key type for browser request detection.
type browserRequestKey struct{}

// BrowserDetection returns a middleware that records whether the request
// comes from a browser navigation or an API client.
func BrowserDetection() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), browserRequestKey{}, isBrowserRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsBrowserRequest returns true if the current request is from a browser.
func IsBrowserRequest(r *http.Request) bool {
	if isBrowser, ok := r.Context().Value(browserRequestKey{}).(bool); ok {
		return isBrowser
	}
	return isBrowserRequest(r)
}

// isBrowserRequest treats /api/ and /auth/ as API surfaces and anything
// else that accepts text/html as a page navigation.
func isBrowserRequest(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/auth/") {
		return false
	}
	accept := r.Header.Get("Accept")
	if accept == "" {
		return true
	}
	return strings.Contains(accept, "text/html")
}

// GuardOptions groups dependencies for RequireCapability.
type GuardOptions struct {
	Identities     *service.Identities
	Guard          service.RouteGuard
	RestoreTimeout time.Duration
	Logger         *slog.Logger
}

// RequireCapability returns a middleware that admits the request only when
// the device's identity satisfies want. Browsers are redirected; API clients
// get a JSON decision with the matching status.
func RequireCapability(opts GuardOptions, want service.Capability) func(http.Handler) http.Handler {
	timeout := opts.RestoreTimeout
	if timeout <= 0 {
		timeout = DefaultRestoreTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store := opts.Identities.For(DeviceFromContext(r.Context()))

			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			state := store.Restore(ctx)
			cancel()

			decision := opts.Guard.Evaluate(state, want)
			switch decision.Outcome {
			case service.OutcomeAllow:
				next.ServeHTTP(w, r.WithContext(SetSessionInContext(r.Context(), state.Session)))
			case service.OutcomeLoading:
				logger.Warn("identity restore still pending", "path", r.URL.Path)
				w.Header().Set("Retry-After", strconv.Itoa(1))
				WriteJSON(w, http.StatusServiceUnavailable, decision)
			case service.OutcomeRedirectLogin:
				if IsBrowserRequest(r) {
					redirectToLogin(w, r)
					return
				}
				WriteJSON(w, http.StatusUnauthorized, decision)
			default:
				if IsBrowserRequest(r) {
					http.Redirect(w, r, decision.Location, http.StatusSeeOther)
					return
				}
				WriteJSON(w, http.StatusForbidden, decision)
			}
		})
	}
}

// redirectToLogin redirects browser requests to the login page with the current URL as redirect_uri.
func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := domainauth.LoginPath
	if p := safeRedirectPath(r.URL.RequestURI()); p != "" {
		target += "?redirect_uri=" + url.QueryEscape(p)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// safeRedirectPath accepts only same-origin absolute paths.
func safeRedirectPath(p string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, `\`) {
		return ""
	}
	u, err := url.Parse(p)
	if err != nil || u.IsAbs() || u.Host != "" {
		return ""
	}
	return p
}
