package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	apperrors "github.com/ohitsyle/jusq-sub002/internal/errors"
)

const rateWindow = time.Minute

const msgTooManyAttempts = "Too many attempts. Please wait a moment and try again."

// rateLimit returns a per-client-IP limiter allowing n requests per minute.
// A non-positive n disables the limiter.
func rateLimit(n int) func(http.Handler) http.Handler {
	if n <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(n, rateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			WriteAppError(w, apperrors.New(apperrors.ErrCodeRateLimited, msgTooManyAttempts))
		}),
	)
}

func rateLimitKey(r *http.Request) (string, error) {
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
