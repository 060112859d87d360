package auth

import (
	"fmt"
	"strings"
)

// UiHint is the provisional account guess derived from the email text.
// It selects login copy and endpoint only; nothing converts it into a Principal.
type UiHint struct {
	Kind    PrincipalKind `json:"kind"`
	RoleTag RoleTag       `json:"role,omitempty"`
}

// AuthoritativeRole is the role asserted by the backend in a credential response.
// It can only be obtained through ParseAuthoritativeRole.
type AuthoritativeRole struct {
	kind PrincipalKind
	role RoleTag
}

// Kind returns the principal kind implied by the backend role.
func (a AuthoritativeRole) Kind() PrincipalKind { return a.kind }

// RoleTag returns the admin role, empty for users.
func (a AuthoritativeRole) RoleTag() RoleTag { return a.role }

// userRoleNames are backend role values that denote a wallet holder.
var userRoleNames = map[string]bool{
	"":         true,
	"user":     true,
	"student":  true,
	"employee": true,
}

// ParseAuthoritativeRole maps the backend "role" field to a principal kind.
// An absent role means a wallet user; unknown values are rejected rather than guessed.
func ParseAuthoritativeRole(role string) (AuthoritativeRole, error) {
	normalized := strings.ToLower(strings.TrimSpace(role))
	if userRoleNames[normalized] {
		return AuthoritativeRole{kind: KindUser}, nil
	}
	tag, err := ParseRoleTag(normalized)
	if err != nil {
		return AuthoritativeRole{}, fmt.Errorf("backend role: %w", err)
	}
	return AuthoritativeRole{kind: KindAdmin, role: tag}, nil
}

// Account carries the descriptive fields of a principal.
type Account struct {
	AccountID   string
	Email       string
	DisplayName string
	AccountType string
}

// NewPrincipal builds a principal from a backend-asserted role.
func NewPrincipal(role AuthoritativeRole, acct Account, active *bool) Principal {
	return Principal{
		Kind:        role.kind,
		RoleTag:     role.role,
		AccountID:   acct.AccountID,
		Email:       acct.Email,
		DisplayName: acct.DisplayName,
		AccountType: acct.AccountType,
		IsActive:    active,
	}
}
