package httpx

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeviceCookieName names the cookie that identifies a browser.
const DeviceCookieName = "portal_device"

// deviceCookieMaxAge keeps the device id for a year.
const deviceCookieMaxAge = 365 * 24 * time.Hour

// CookieOptions controls attributes of cookies the portal sets.
type CookieOptions struct {
	Domain string
	// Secure forces the Secure attribute; otherwise it follows the request scheme.
	Secure bool
}

func (o CookieOptions) secure(r *http.Request) bool {
	return o.Secure || r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// Device returns a middleware that assigns every browser a stable device id.
// Persisted identity and login flows are scoped by this id.
func Device(opts CookieOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := deviceIDFromRequest(r)
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     DeviceCookieName,
					Value:    id,
					Path:     "/",
					Domain:   opts.Domain,
					HttpOnly: true,
					Secure:   opts.secure(r),
					SameSite: http.SameSiteLaxMode,
					MaxAge:   int(deviceCookieMaxAge.Seconds()),
				})
			}
			next.ServeHTTP(w, r.WithContext(SetDeviceInContext(r.Context(), id)))
		})
	}
}

// deviceIDFromRequest returns the cookie value when it is a well-formed UUID.
func deviceIDFromRequest(r *http.Request) string {
	c, err := r.Cookie(DeviceCookieName)
	if err != nil {
		return ""
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return ""
	}
	return id.String()
}
