package ports

// Package ports defines interfaces (hexagonal ports) for identity and login behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"

	"github.com/ohitsyle/jusq-sub002/internal/domain/auditlog"
	domainauth "github.com/ohitsyle/jusq-sub002/internal/domain/auth"
)

// Storage is a device-scoped string key/value store for persisted identity.
type Storage interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// SetMany writes all values and deletes all keys in del as one unit.
	SetMany(ctx context.Context, values map[string]string, del ...string) error
	// Delete removes keys; missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// StorageFactory returns the Storage scoped to one browser device.
type StorageFactory interface {
	Scope(deviceID string) Storage
}

// StorageReleaser is implemented by factories that hold per-device state in
// process memory. Release drops the device's state once nothing refers to it.
type StorageReleaser interface {
	Release(deviceID string)
}

// LoginRequest carries the credential pair and the hint-selected endpoint.
type LoginRequest struct {
	Email string
	Pin   string
	// Admin selects the admin login endpoint; it comes from the UI hint only.
	Admin bool
}

// LoginResult is the backend credential response.
type LoginResult struct {
	Token              string
	Role               string
	AccountType        string
	RequiresActivation bool
	AccountID          string
	Email              string
	FullName           string
	// IsActive is nil when the backend omitted it.
	IsActive *bool
}

// ResetPinRequest carries everything the reset endpoint needs in one call.
type ResetPinRequest struct {
	Email  string
	OTP    string
	NewPin string
}

// Backend is the wallet REST backend as seen by the portal.
type Backend interface {
	Login(ctx context.Context, req LoginRequest) (LoginResult, error)
	ForgotPin(ctx context.Context, email string) error
	ResetPin(ctx context.Context, req ResetPinRequest) error
	AuditLogs(ctx context.Context, token string) ([]auditlog.EventRecord, error)
}

// RoleHeuristic guesses the account kind from the email text for UI purposes.
type RoleHeuristic interface {
	Guess(email string) domainauth.UiHint
}
