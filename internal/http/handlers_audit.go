package httpx

import (
	"log/slog"
	"net/http"

	apperrors "github.com/ohitsyle/jusq-sub002/internal/errors"
	"github.com/ohitsyle/jusq-sub002/internal/service"
)

// AuditHandlers serves the department-scoped audit feed.
type AuditHandlers struct {
	Feed       *service.AuditFeed
	Identities *service.Identities
	Logger     *slog.Logger
}

// List handles GET /api/audit-logs?q=<jmespath>.
// A token the backend no longer accepts ends the device's session.
func (h *AuditHandlers) List(w http.ResponseWriter, r *http.Request) {
	sess, ok := GetSessionFromContext(r.Context())
	if !ok {
		WriteAppError(w, service.ErrNoSession)
		return
	}

	res, err := h.Feed.Fetch(r.Context(), *sess, r.URL.Query().Get("q"))
	if err != nil {
		if apperrors.IsUnauthorized(err) && h.Identities != nil {
			if cerr := h.Identities.For(DeviceFromContext(r.Context())).Clear(r.Context()); cerr != nil {
				h.logger().Error("clear expired session", "error", cerr)
			}
		}
		if StatusFor(err) >= http.StatusInternalServerError {
			h.logger().Warn("audit feed failed", "error", err)
		}
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

func (h *AuditHandlers) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}
