package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// BackendConfig locates the wallet REST backend.
type BackendConfig struct {
	URL            string        `env:"URL"              envDefault:"http://localhost:5000/api"`
	UserLoginPath  string        `env:"USER_LOGIN_PATH"  envDefault:"/login"`
	AdminLoginPath string        `env:"ADMIN_LOGIN_PATH" envDefault:"/admin/login"`
	ForgotPinPath  string        `env:"FORGOT_PIN_PATH"  envDefault:"/login/forgot-pin"`
	ResetPinPath   string        `env:"RESET_PIN_PATH"   envDefault:"/login/reset-pin"`
	AuditLogsPath  string        `env:"AUDIT_LOGS_PATH"  envDefault:"/admin/audit-logs"`
	Timeout        time.Duration `env:"TIMEOUT"          envDefault:"10s"`
}

// Sanitize applies guardrails to backend configuration values.
func (b *BackendConfig) Sanitize() {
	b.URL = strings.TrimRight(strings.TrimSpace(b.URL), "/")
	if b.Timeout <= 0 {
		b.Timeout = 10 * time.Second
	}
	if b.Timeout > time.Minute {
		b.Timeout = time.Minute
	}
}

// Validate checks the backend URL.
func (b *BackendConfig) Validate() error {
	u, err := url.Parse(b.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("BACKEND_URL %q must be an absolute http(s) URL", b.URL)
	}
	return nil
}
