package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ohitsyle/jusq-sub002/internal/errors"
	"github.com/ohitsyle/jusq-sub002/internal/ports"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)

	_, err = NewClient(Config{BaseURL: "ftp://example.com"})
	require.Error(t, err)

	c, err := NewClient(Config{BaseURL: "https://wallet.example.com/api"})
	require.NoError(t, err)
	assert.Equal(t, "/admin/login", c.paths.AdminLoginPath)
}

func TestClient_Login(t *testing.T) {
	t.Run("user endpoint success", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/login", r.URL.Path)
			var body loginBody
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "student01@nu.edu", body.EmailOrUsername)
			assert.Equal(t, "445566", body.Password)
			writeJSON(w, http.StatusOK, map[string]any{"token": "t1", "accountId": 1042, "fullName": "Stu Dent"})
		})

		res, err := c.Login(context.Background(), ports.LoginRequest{Email: "student01@nu.edu", Pin: "445566"})
		require.NoError(t, err)
		assert.Equal(t, "t1", res.Token)
		assert.Empty(t, res.Role)
		assert.Equal(t, "1042", res.AccountID)
		assert.Nil(t, res.IsActive)
	})

	t.Run("admin endpoint", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/admin/login", r.URL.Path)
			writeJSON(w, http.StatusOK, map[string]any{"token": "a1", "role": "treasury"})
		})

		res, err := c.Login(context.Background(), ports.LoginRequest{Email: "t@nu.edu", Pin: "123456", Admin: true})
		require.NoError(t, err)
		assert.Equal(t, "treasury", res.Role)
	})

	t.Run("activation on forbidden status", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusForbidden, map[string]any{
				"requiresActivation": true,
				"accountId":          "acc-9",
				"accountType":        "student",
				"email":              "new@nu.edu",
				"fullName":           "New Student",
			})
		})

		res, err := c.Login(context.Background(), ports.LoginRequest{Email: "new@nu.edu", Pin: "000000"})
		require.NoError(t, err)
		assert.True(t, res.RequiresActivation)
		assert.Equal(t, "acc-9", res.AccountID)
		assert.Equal(t, "student", res.AccountType)
	})

	t.Run("status mapping", func(t *testing.T) {
		tests := []struct {
			status int
			code   apperrors.ErrorCode
			msg    string
		}{
			{http.StatusUnauthorized, apperrors.ErrCodeUnauthorized, MsgInvalidCredentials},
			{http.StatusNotFound, apperrors.ErrCodeUnauthorized, MsgInvalidCredentials},
			{http.StatusUnprocessableEntity, apperrors.ErrCodeUnauthorized, MsgInvalidCredentials},
			{http.StatusTooManyRequests, apperrors.ErrCodeRateLimited, MsgRateLimited},
			{http.StatusInternalServerError, apperrors.ErrCodeUnavailable, MsgUnavailable},
			{http.StatusBadGateway, apperrors.ErrCodeUnavailable, MsgUnavailable},
		}
		for _, tt := range tests {
			t.Run(http.StatusText(tt.status), func(t *testing.T) {
				c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
					writeJSON(w, tt.status, map[string]string{"message": "account does not exist"})
				})
				_, err := c.Login(context.Background(), ports.LoginRequest{Email: "x@nu.edu", Pin: "111111"})
				require.Error(t, err)
				assert.Equal(t, tt.code, apperrors.GetCode(err))
				assert.Equal(t, tt.msg, apperrors.UserMessage(err, ""))
			})
		}
	})

	t.Run("success without token", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"role": "user"})
		})
		_, err := c.Login(context.Background(), ports.LoginRequest{Email: "x@nu.edu", Pin: "111111"})
		assert.True(t, apperrors.IsUnavailable(err))
	})
}

func TestClient_Login_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Login(context.Background(), ports.LoginRequest{Email: "x@nu.edu", Pin: "111111"})
	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err))
	assert.Equal(t, MsgUnavailable, apperrors.UserMessage(err, ""))
}

func TestClient_ForgotPin(t *testing.T) {
	var got map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/login/forgot-pin", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		if got["email"] == "ghost@nu.edu" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "sent"})
	})

	require.NoError(t, c.ForgotPin(context.Background(), "jane@nu.edu"))
	assert.Equal(t, "jane@nu.edu", got["email"])

	err := c.ForgotPin(context.Background(), "ghost@nu.edu")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestClient_ResetPin(t *testing.T) {
	var got map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/login/reset-pin", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		if got["otp"] != "123456" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "expired"})
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	req := ports.ResetPinRequest{Email: "jane@nu.edu", OTP: "123456", NewPin: "654321"}
	require.NoError(t, c.ResetPin(context.Background(), req))
	assert.Equal(t, map[string]string{"email": "jane@nu.edu", "otp": "123456", "newPin": "654321"}, got)

	req.OTP = "000000"
	err := c.ResetPin(context.Background(), req)
	assert.True(t, apperrors.IsUnauthorized(err))
	assert.Equal(t, MsgInvalidCode, apperrors.UserMessage(err, ""))
}

func TestClient_AuditLogs(t *testing.T) {
	t.Run("bare array", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, []map[string]any{
				{"eventType": "login", "metadata": map[string]string{"adminRole": "treasury"}},
				{"eventType": "trip_refund", "targetEntity": "trip"},
			})
		})
		logs, err := c.AuditLogs(context.Background(), "tok")
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, "treasury", logs[0].Metadata.AdminRole)
		assert.Equal(t, "trip", logs[1].TargetEntity)
	})

	t.Run("envelope", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"logs": []map[string]any{{"eventType": "logout"}}})
		})
		logs, err := c.AuditLogs(context.Background(), "tok")
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, "logout", logs[0].EventType)
	})

	t.Run("expired token", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		_, err := c.AuditLogs(context.Background(), "tok")
		assert.True(t, apperrors.IsUnauthorized(err))
	})
}
