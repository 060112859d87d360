package auth

// Package auth contains simple hand-written test doubles for identity ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"sync"

	"github.com/ohitsyle/jusq-sub002/internal/domain/auditlog"
	domainauth "github.com/ohitsyle/jusq-sub002/internal/domain/auth"
	"github.com/ohitsyle/jusq-sub002/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.Backend       = (*FakeBackend)(nil)
	_ ports.RoleHeuristic = StaticHeuristic{}
	_ ports.Storage       = (*FailingStorage)(nil)
)

// ErrStorageDown is returned by FailingStorage when a failure is switched on.
var ErrStorageDown = errors.New("storage unavailable")

// FakeBackend simulates the wallet backend with overridable behavior and call counters.
type FakeBackend struct {
	LoginFunc     func(ctx context.Context, req ports.LoginRequest) (ports.LoginResult, error)
	ForgotPinFunc func(ctx context.Context, email string) error
	ResetPinFunc  func(ctx context.Context, req ports.ResetPinRequest) error
	AuditLogsFunc func(ctx context.Context, token string) ([]auditlog.EventRecord, error)

	mu     sync.Mutex
	counts map[string]int
}

func (f *FakeBackend) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = make(map[string]int)
	}
	f.counts[name]++
}

// Calls returns how many times the named method was invoked.
func (f *FakeBackend) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[name]
}

func (f *FakeBackend) Login(ctx context.Context, req ports.LoginRequest) (ports.LoginResult, error) {
	f.record("Login")
	if f.LoginFunc != nil {
		return f.LoginFunc(ctx, req)
	}
	return ports.LoginResult{Token: "fake-token"}, nil
}

func (f *FakeBackend) ForgotPin(ctx context.Context, email string) error {
	f.record("ForgotPin")
	if f.ForgotPinFunc != nil {
		return f.ForgotPinFunc(ctx, email)
	}
	return nil
}

func (f *FakeBackend) ResetPin(ctx context.Context, req ports.ResetPinRequest) error {
	f.record("ResetPin")
	if f.ResetPinFunc != nil {
		return f.ResetPinFunc(ctx, req)
	}
	return nil
}

func (f *FakeBackend) AuditLogs(ctx context.Context, token string) ([]auditlog.EventRecord, error) {
	f.record("AuditLogs")
	if f.AuditLogsFunc != nil {
		return f.AuditLogsFunc(ctx, token)
	}
	return nil, nil
}

// StaticHeuristic returns the same hint for every email.
type StaticHeuristic struct {
	Hint domainauth.UiHint
}

func (s StaticHeuristic) Guess(string) domainauth.UiHint {
	if s.Hint.Kind == "" {
		return domainauth.UiHint{Kind: domainauth.KindUser}
	}
	return s.Hint
}

// FailingStorage wraps a Storage and fails reads or writes on demand.
type FailingStorage struct {
	Inner ports.Storage

	mu         sync.Mutex
	failReads  bool
	failWrites bool
	writes     int
}

// NewFailingStorage wraps inner with failures switched off.
func NewFailingStorage(inner ports.Storage) *FailingStorage {
	return &FailingStorage{Inner: inner}
}

// FailReads switches read failures on or off.
func (s *FailingStorage) FailReads(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failReads = v
}

// FailWrites switches write failures on or off.
func (s *FailingStorage) FailWrites(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = v
}

// Writes returns the number of write attempts, failed ones included.
func (s *FailingStorage) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *FailingStorage) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	fail := s.failReads
	s.mu.Unlock()
	if fail {
		return "", false, ErrStorageDown
	}
	return s.Inner.Get(ctx, key)
}

func (s *FailingStorage) SetMany(ctx context.Context, values map[string]string, del ...string) error {
	if s.writeFails() {
		return ErrStorageDown
	}
	return s.Inner.SetMany(ctx, values, del...)
}

func (s *FailingStorage) Delete(ctx context.Context, keys ...string) error {
	if s.writeFails() {
		return ErrStorageDown
	}
	return s.Inner.Delete(ctx, keys...)
}

func (s *FailingStorage) writeFails() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	return s.failWrites
}
