package httpx

import (
	"net/http"

	domainauth "github.com/ohitsyle/jusq-sub002/internal/domain/auth"
	"github.com/ohitsyle/jusq-sub002/internal/service"
)

type pageResponse struct {
	Page      string                `json:"page"`
	Principal *domainauth.Principal `json:"principal,omitempty"`
	Flow      *service.FlowView     `json:"flow,omitempty"`
}

// landingPage returns the placeholder for a guarded screen.
func landingPage(page string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := pageResponse{Page: page}
		if sess, ok := GetSessionFromContext(r.Context()); ok {
			p := sess.Principal
			resp.Principal = &p
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// loginPage returns the login screen state. The redirect_uri the guard
// attached is ignored; after login the principal's landing route wins.
// A finished flow whose session has since ended starts over, otherwise its
// redirect would send the browser straight back to the guard.
func loginPage(sessions *SessionHandlers) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flow := sessions.Flows.For(DeviceFromContext(r.Context()))
		if _, state := sessions.restore(r); state.Status == service.IdentityReady && !state.LoggedIn() {
			flow.Settle()
		}
		view := flow.View()
		WriteJSON(w, http.StatusOK, pageResponse{Page: PageLogin, Flow: &view})
	}
}
