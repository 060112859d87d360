// Package backend is the HTTP client for the wallet REST backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ohitsyle/jusq-sub002/internal/domain/auditlog"
	apperrors "github.com/ohitsyle/jusq-sub002/internal/errors"
	"github.com/ohitsyle/jusq-sub002/internal/ports"
)

var _ ports.Backend = (*Client)(nil)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 4 << 20

// User-facing messages. Credential failures share one message so responses
// never reveal whether an account exists.
const (
	MsgInvalidCredentials = "Invalid email or PIN."
	MsgInvalidCode        = "The code is invalid or has expired."
	MsgRateLimited        = "Too many attempts. Please wait a moment and try again."
	MsgUnavailable        = "We couldn't reach the server. Please try again."
	MsgSessionExpired     = "Your session has expired. Please sign in again."
	MsgForbidden          = "You do not have access to this resource."
)

// Config configures the backend client.
type Config struct {
	BaseURL        string
	UserLoginPath  string
	AdminLoginPath string
	ForgotPinPath  string
	ResetPinPath   string
	AuditLogsPath  string
	Timeout        time.Duration
	Client         *http.Client
}

// Client talks JSON over HTTP to the wallet backend.
type Client struct {
	base   *url.URL
	paths  Config
	client *http.Client
}

// NewClient validates cfg and builds a client.
func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("backend base url is required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse backend base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend base url must be http or https, got %q", base.Scheme)
	}

	cfg.UserLoginPath = fallbackString(cfg.UserLoginPath, "/login")
	cfg.AdminLoginPath = fallbackString(cfg.AdminLoginPath, "/admin/login")
	cfg.ForgotPinPath = fallbackString(cfg.ForgotPinPath, "/login/forgot-pin")
	cfg.ResetPinPath = fallbackString(cfg.ResetPinPath, "/login/reset-pin")
	cfg.AuditLogsPath = fallbackString(cfg.AuditLogsPath, "/admin/audit-logs")

	hc := cfg.Client
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{base: base, paths: cfg, client: hc}, nil
}

type loginBody struct {
	EmailOrUsername string `json:"emailOrUsername"`
	Password        string `json:"password"`
}

type loginResponse struct {
	Token              string     `json:"token"`
	Role               string     `json:"role"`
	AccountType        string     `json:"accountType"`
	RequiresActivation bool       `json:"requiresActivation"`
	AccountID          flexString `json:"accountId"`
	Email              string     `json:"email"`
	FullName           string     `json:"fullName"`
	IsActive           *bool      `json:"isActive"`
}

// Login verifies an email and PIN. An activation-required body is reported as
// a result on any status code, since the backend may send it with a 403.
func (c *Client) Login(ctx context.Context, req ports.LoginRequest) (ports.LoginResult, error) {
	path := c.paths.UserLoginPath
	if req.Admin {
		path = c.paths.AdminLoginPath
	}

	status, body, err := c.do(ctx, http.MethodPost, path, "", loginBody{EmailOrUsername: req.Email, Password: req.Pin})
	if err != nil {
		return ports.LoginResult{}, err
	}

	var resp loginResponse
	decodeErr := json.Unmarshal(body, &resp)
	if decodeErr == nil && resp.RequiresActivation {
		return resp.result(), nil
	}
	if err := statusError(status, MsgInvalidCredentials); err != nil {
		return ports.LoginResult{}, err
	}
	if decodeErr != nil {
		return ports.LoginResult{}, apperrors.Wrap(decodeErr, apperrors.ErrCodeUnavailable, MsgUnavailable)
	}
	if resp.Token == "" {
		return ports.LoginResult{}, apperrors.New(apperrors.ErrCodeUnavailable, MsgUnavailable)
	}
	return resp.result(), nil
}

func (r loginResponse) result() ports.LoginResult {
	return ports.LoginResult{
		Token:              r.Token,
		Role:               r.Role,
		AccountType:        r.AccountType,
		RequiresActivation: r.RequiresActivation,
		AccountID:          string(r.AccountID),
		Email:              r.Email,
		FullName:           r.FullName,
		IsActive:           r.IsActive,
	}
}

// ForgotPin asks the backend to email a recovery code. A 404 is returned as
// a not-found error so callers can decide how much to reveal.
func (c *Client) ForgotPin(ctx context.Context, email string) error {
	status, _, err := c.do(ctx, http.MethodPost, c.paths.ForgotPinPath, "", map[string]string{"email": email})
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return apperrors.NotFound("account not found")
	}
	return statusError(status, MsgInvalidCode)
}

// ResetPin sends the email, recovery code and new PIN in one request.
func (c *Client) ResetPin(ctx context.Context, req ports.ResetPinRequest) error {
	payload := map[string]string{"email": req.Email, "otp": req.OTP, "newPin": req.NewPin}
	status, _, err := c.do(ctx, http.MethodPost, c.paths.ResetPinPath, "", payload)
	if err != nil {
		return err
	}
	return statusError(status, MsgInvalidCode)
}

// AuditLogs fetches the shared audit feed. The backend returns either a bare
// array or an object with a "logs" array.
func (c *Client) AuditLogs(ctx context.Context, token string) ([]auditlog.EventRecord, error) {
	status, body, err := c.do(ctx, http.MethodGet, c.paths.AuditLogsPath, token, nil)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusUnauthorized:
		return nil, apperrors.Unauthorized(MsgSessionExpired)
	case http.StatusForbidden:
		return nil, apperrors.Forbidden(MsgForbidden)
	}
	if err := statusError(status, MsgUnavailable); err != nil {
		return nil, err
	}
	return decodeAuditLogs(body)
}

func decodeAuditLogs(body []byte) ([]auditlog.EventRecord, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	var records []auditlog.EventRecord
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, MsgUnavailable)
		}
		return records, nil
	}
	var envelope struct {
		Logs []auditlog.EventRecord `json:"logs"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, MsgUnavailable)
	}
	return envelope.Logs, nil
}

// do sends a JSON request and returns the status and body. Transport
// failures come back as unavailable errors.
func (c *Client) do(ctx context.Context, method, path, token string, payload any) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode backend request")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), reader)
	if err != nil {
		return 0, nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "create backend request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, apperrors.Wrap(fmt.Errorf("backend %s %s: %w", method, path, err), apperrors.ErrCodeUnavailable, MsgUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, apperrors.Wrap(fmt.Errorf("read backend response: %w", err), apperrors.ErrCodeUnavailable, MsgUnavailable)
	}
	return resp.StatusCode, body, nil
}

// statusError maps a non-2xx status to an AppError. rejected is the message
// used when the backend refused the request itself.
func statusError(status int, rejected string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return apperrors.New(apperrors.ErrCodeRateLimited, MsgRateLimited)
	case status >= 500:
		return apperrors.Wrap(fmt.Errorf("backend status %d", status), apperrors.ErrCodeUnavailable, MsgUnavailable)
	case isRejection(status):
		return apperrors.Wrap(fmt.Errorf("backend status %d", status), apperrors.ErrCodeUnauthorized, rejected)
	default:
		return apperrors.Wrap(fmt.Errorf("unexpected backend status %d", status), apperrors.ErrCodeUnavailable, MsgUnavailable)
	}
}

func isRejection(status int) bool {
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound,
		http.StatusConflict, http.StatusGone, http.StatusUnprocessableEntity:
		return true
	}
	return false
}

func fallbackString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
