package service

import (
	"slices"

	domainauth "github.com/ohitsyle/jusq-sub002/internal/domain/auth"
)

// Capability describes who may open a route. The zero value admits any
// logged-in, active principal.
type Capability struct {
	// Roles lists the admin departments admitted.
	Roles []domainauth.RoleTag
	// Users admits wallet users.
	Users bool
	// AllowInactive admits users whose account is explicitly inactive.
	AllowInactive bool
}

// AdminsOnly admits the listed departments.
func AdminsOnly(roles ...domainauth.RoleTag) Capability {
	return Capability{Roles: roles}
}

// UsersOnly admits wallet users.
func UsersOnly() Capability {
	return Capability{Users: true}
}

func (c Capability) restricted() bool {
	return len(c.Roles) > 0 || c.Users
}

func (c Capability) admits(p domainauth.Principal) bool {
	if !c.restricted() {
		return true
	}
	if p.IsAdmin() {
		return slices.Contains(c.Roles, p.RoleTag)
	}
	return c.Users
}

// Outcome is the result kind of a guard evaluation.
type Outcome string

const (
	OutcomeAllow            Outcome = "allow"
	OutcomeLoading          Outcome = "loading"
	OutcomeRedirectLogin    Outcome = "redirect-login"
	OutcomeRedirectFallback Outcome = "redirect-fallback"
)

// Decision is what the caller should do with a navigation.
type Decision struct {
	Outcome  Outcome `json:"outcome"`
	Location string  `json:"location,omitempty"`
}

// RouteGuard decides whether a navigation may proceed. It only reads the
// identity snapshot it is given.
type RouteGuard struct{}

// NewRouteGuard constructs a RouteGuard.
func NewRouteGuard() RouteGuard { return RouteGuard{} }

// Evaluate applies the guard rules in order: restore still pending shows a
// loading gate; no session goes to login; a capability mismatch goes to the
// principal's own landing route; an explicitly inactive user goes to the PIN
// change route unless the route admits inactive users.
func (RouteGuard) Evaluate(state IdentityState, want Capability) Decision {
	if state.Status != IdentityReady {
		return Decision{Outcome: OutcomeLoading}
	}
	if state.Session == nil {
		return Decision{Outcome: OutcomeRedirectLogin, Location: domainauth.LoginPath}
	}

	p := state.Session.Principal
	if !want.admits(p) {
		return Decision{Outcome: OutcomeRedirectFallback, Location: domainauth.LandingPath(p)}
	}
	if p.Kind == domainauth.KindUser && p.ExplicitlyInactive() && !want.AllowInactive {
		return Decision{Outcome: OutcomeRedirectFallback, Location: domainauth.ChangePinPath}
	}
	return Decision{Outcome: OutcomeAllow}
}
