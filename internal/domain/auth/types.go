package auth

// Package auth contains domain-level types for principals, sessions and roles.
// It is pure and free of framework/adapter concerns.

import (
	"errors"
	"fmt"
	"strings"
)

// RoleTag is the closed set of admin departments.
// Keep string form for easy persistence in the principal JSON.
type RoleTag string

const (
	RoleTreasury   RoleTag = "treasury"
	RoleAccounting RoleTag = "accounting"
	RoleSysad      RoleTag = "sysad"
	RoleMotorpool  RoleTag = "motorpool"
	RoleMerchant   RoleTag = "merchant"
)

// AllRoleTags returns every admin role in a stable order.
func AllRoleTags() []RoleTag {
	return []RoleTag{RoleTreasury, RoleAccounting, RoleSysad, RoleMotorpool, RoleMerchant}
}

// Valid reports whether r belongs to the closed role set.
func (r RoleTag) Valid() bool {
	switch r {
	case RoleTreasury, RoleAccounting, RoleSysad, RoleMotorpool, RoleMerchant:
		return true
	}
	return false
}

// ParseRoleTag normalizes s and returns the matching RoleTag.
func ParseRoleTag(s string) (RoleTag, error) {
	r := RoleTag(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role tag %q", s)
	}
	return r, nil
}

// PrincipalKind distinguishes wallet holders from department admins.
type PrincipalKind string

const (
	KindUser  PrincipalKind = "user"
	KindAdmin PrincipalKind = "admin"
)

var (
	ErrAdminWithoutRole = errors.New("admin principal requires a role tag")
	ErrUserWithRole     = errors.New("user principal must not carry a role tag")
	ErrUnknownKind      = errors.New("unknown principal kind")
	ErrMissingToken     = errors.New("session token is empty")
)

// Principal identifies a logged-in actor.
type Principal struct {
	Kind        PrincipalKind `json:"kind"`
	RoleTag     RoleTag       `json:"role,omitempty"`
	AccountID   string        `json:"accountId"`
	Email       string        `json:"email"`
	DisplayName string        `json:"displayName"`
	// AccountType is informational (student, employee) and never used for access decisions.
	AccountType string `json:"accountType,omitempty"`
	// IsActive is nil when the backend did not say; nil is treated as active.
	IsActive *bool `json:"isActive,omitempty"`
}

// Validate enforces the kind/role invariant.
func (p Principal) Validate() error {
	switch p.Kind {
	case KindAdmin:
		if !p.RoleTag.Valid() {
			return ErrAdminWithoutRole
		}
	case KindUser:
		if p.RoleTag != "" {
			return ErrUserWithRole
		}
	default:
		return ErrUnknownKind
	}
	return nil
}

// IsAdmin reports whether p is an admin principal.
func (p Principal) IsAdmin() bool { return p.Kind == KindAdmin }

// ExplicitlyInactive is true only when IsActive is present and false.
func (p Principal) ExplicitlyInactive() bool {
	return p.IsActive != nil && !*p.IsActive
}

// Session is a token plus the principal it authenticates.
type Session struct {
	Principal Principal `json:"principal"`
	Token     string    `json:"-"`
}

// Valid reports whether the session is complete.
func (s Session) Valid() error {
	if s.Token == "" {
		return ErrMissingToken
	}
	return s.Principal.Validate()
}

// Bool returns a pointer to v, for populating Principal.IsActive.
func Bool(v bool) *bool { return &v }
