package authroles

import (
	"strings"

	domainauth "github.com/ohitsyle/jusq-sub002/internal/domain/auth"
	"github.com/ohitsyle/jusq-sub002/internal/ports"
)

var _ ports.RoleHeuristic = EmailHeuristic{}

// EmailHeuristic guesses an admin department from substrings of the email's local part.
// The result only picks the login endpoint and copy; access is decided by the backend role.
type EmailHeuristic struct {
	// Markers maps a lowercase substring to the department it suggests.
	// Checked in the order of domainauth.AllRoleTags for determinism.
	Markers map[domainauth.RoleTag][]string
}

// DefaultMarkers uses each department name as its own marker.
func DefaultMarkers() map[domainauth.RoleTag][]string {
	m := make(map[domainauth.RoleTag][]string, len(domainauth.AllRoleTags()))
	for _, r := range domainauth.AllRoleTags() {
		m[r] = []string{string(r)}
	}
	return m
}

// NewEmailHeuristic returns a heuristic with DefaultMarkers when markers is empty.
func NewEmailHeuristic(markers map[domainauth.RoleTag][]string) EmailHeuristic {
	if len(markers) == 0 {
		markers = DefaultMarkers()
	}
	return EmailHeuristic{Markers: markers}
}

func (h EmailHeuristic) Guess(email string) domainauth.UiHint {
	local := strings.ToLower(strings.TrimSpace(email))
	if at := strings.LastIndexByte(local, '@'); at >= 0 {
		local = local[:at]
	}
	if local == "" {
		return domainauth.UiHint{Kind: domainauth.KindUser}
	}
	for _, r := range domainauth.AllRoleTags() {
		for _, marker := range h.Markers[r] {
			marker = strings.ToLower(strings.TrimSpace(marker))
			if marker != "" && strings.Contains(local, marker) {
				return domainauth.UiHint{Kind: domainauth.KindAdmin, RoleTag: r}
			}
		}
	}
	return domainauth.UiHint{Kind: domainauth.KindUser}
}
