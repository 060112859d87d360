// Package mocks provides mock implementations of the portal ports for tests.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the port interfaces.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	backend := mocks.NewMockBackend(ctrl)
//	backend.EXPECT().Login(gomock.Any(), gomock.Any()).Return(ports.LoginResult{Token: "t1"}, nil)
package mocks

// Generate mock for the Backend interface from internal/ports.
// This creates MockBackend with methods for all Backend interface methods:
// Login, ForgotPin, ResetPin, AuditLogs
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=backend_mock.go github.com/ohitsyle/jusq-sub002/internal/ports Backend
