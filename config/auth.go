package config

import (
	"fmt"
	"strings"
	"time"

	domainauth "github.com/ohitsyle/jusq-sub002/internal/domain/auth"
)

// StorageMode selects where persisted identity lives.
type StorageMode string

const (
	// StorageRedis persists identity in Redis.
	StorageRedis StorageMode = "redis"
	// StorageMemory keeps identity in process memory (development only).
	StorageMemory StorageMode = "memory"
)

// UnmarshalText implements encoding.TextUnmarshaler for StorageMode.
func (m *StorageMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "redis", "memory":
		*m = StorageMode(v)
		return nil
	default:
		return fmt.Errorf("invalid StorageMode: %q (valid options: redis, memory)", v)
	}
}

// HintMarkers lists the email substrings that suggest each admin department.
// They only pick the login endpoint shown to the user.
type HintMarkers struct {
	Treasury   []string `env:"TREASURY"   envDefault:"treasury"`
	Accounting []string `env:"ACCOUNTING" envDefault:"accounting"`
	Sysad      []string `env:"SYSAD"      envDefault:"sysad"`
	Motorpool  []string `env:"MOTORPOOL"  envDefault:"motorpool"`
	Merchant   []string `env:"MERCHANT"   envDefault:"merchant"`
}

// ByRole returns the markers keyed by department, lowercased.
func (h HintMarkers) ByRole() map[domainauth.RoleTag][]string {
	out := map[domainauth.RoleTag][]string{
		domainauth.RoleTreasury:   lowerAll(h.Treasury),
		domainauth.RoleAccounting: lowerAll(h.Accounting),
		domainauth.RoleSysad:      lowerAll(h.Sysad),
		domainauth.RoleMotorpool:  lowerAll(h.Motorpool),
		domainauth.RoleMerchant:   lowerAll(h.Merchant),
	}
	for role, markers := range out {
		if len(markers) == 0 {
			delete(out, role)
		}
	}
	return out
}

// AuthConfig groups login flow and identity configuration.
type AuthConfig struct {
	// Storage selects the identity backend.
	Storage StorageMode `env:"AUTH_STORAGE" envDefault:"redis"`

	// ResendCooldown is the OTP resend window in seconds.
	ResendCooldown int `env:"AUTH_OTP_RESEND_COOLDOWN" envDefault:"60"`

	// RestoreTimeout bounds how long a request waits for the persisted identity.
	RestoreTimeout time.Duration `env:"AUTH_RESTORE_TIMEOUT" envDefault:"2s"`

	// RegistrySize bounds how many devices keep in-memory flow and identity state.
	RegistrySize int `env:"AUTH_REGISTRY_SIZE" envDefault:"4096"`

	// Per client IP, per minute.
	PinAttemptsPerMinute int `env:"AUTH_PIN_ATTEMPTS_PER_MINUTE" envDefault:"10"`
	OTPRequestsPerMinute int `env:"AUTH_OTP_REQUESTS_PER_MINUTE" envDefault:"5"`

	Hints HintMarkers `envPrefix:"AUTH_HINT_"`
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	if a.Storage == "" {
		a.Storage = StorageRedis
	}
	if a.ResendCooldown <= 0 {
		a.ResendCooldown = 60
	}
	if a.RestoreTimeout <= 0 {
		a.RestoreTimeout = 2 * time.Second
	}
	if a.RegistrySize <= 0 {
		a.RegistrySize = 4096
	}
	if a.PinAttemptsPerMinute < 0 {
		a.PinAttemptsPerMinute = 0
	}
	if a.OTPRequestsPerMinute < 0 {
		a.OTPRequestsPerMinute = 0
	}
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
