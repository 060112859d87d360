package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/ohitsyle/jusq-sub002/internal/domain/auth"
)

func ready(p *domainauth.Principal) IdentityState {
	if p == nil {
		return IdentityState{Status: IdentityReady}
	}
	return IdentityState{Status: IdentityReady, Session: &domainauth.Session{Principal: *p, Token: "t"}}
}

func TestRouteGuard_Evaluate(t *testing.T) {
	guard := NewRouteGuard()
	treasury := adminPrincipal(domainauth.RoleTreasury)
	motorpool := adminPrincipal(domainauth.RoleMotorpool)
	active := userPrincipal()
	unknown := userPrincipal()
	unknown.IsActive = nil
	inactive := userPrincipal()
	inactive.IsActive = domainauth.Bool(false)

	finance := AdminsOnly(domainauth.RoleTreasury, domainauth.RoleAccounting)
	changePin := Capability{Users: true, AllowInactive: true}

	tests := []struct {
		name  string
		state IdentityState
		want  Capability
		exp   Decision
	}{
		{"pending shows loading", IdentityState{Status: IdentityPending}, finance, Decision{Outcome: OutcomeLoading}},
		{"logged out", ready(nil), finance, Decision{Outcome: OutcomeRedirectLogin, Location: "/login"}},
		{"role admitted", ready(&treasury), finance, Decision{Outcome: OutcomeAllow}},
		{"role mismatch goes home", ready(&motorpool), finance, Decision{Outcome: OutcomeRedirectFallback, Location: "/motorpool"}},
		{"user on admin route", ready(&active), finance, Decision{Outcome: OutcomeRedirectFallback, Location: "/user-dashboard"}},
		{"admin on user route", ready(&treasury), UsersOnly(), Decision{Outcome: OutcomeRedirectFallback, Location: "/treasury-dashboard"}},
		{"active user", ready(&active), UsersOnly(), Decision{Outcome: OutcomeAllow}},
		{"unknown activity is active", ready(&unknown), UsersOnly(), Decision{Outcome: OutcomeAllow}},
		{"inactive user", ready(&inactive), UsersOnly(), Decision{Outcome: OutcomeRedirectFallback, Location: "/change-pin"}},
		{"inactive user on change pin", ready(&inactive), changePin, Decision{Outcome: OutcomeAllow}},
		{"any principal", ready(&motorpool), Capability{}, Decision{Outcome: OutcomeAllow}},
		{"any principal but inactive", ready(&inactive), Capability{}, Decision{Outcome: OutcomeRedirectFallback, Location: "/change-pin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.exp, guard.Evaluate(tt.state, tt.want))
		})
	}
}

func TestRouteGuard_DoesNotMutateState(t *testing.T) {
	p := userPrincipal()
	state := ready(&p)
	before := *state.Session

	NewRouteGuard().Evaluate(state, AdminsOnly(domainauth.RoleSysad))
	assert.Equal(t, before, *state.Session)
}
