package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	domainauth "github.com/ohitsyle/jusq-sub002/internal/domain/auth"
	apperrors "github.com/ohitsyle/jusq-sub002/internal/errors"
	"github.com/ohitsyle/jusq-sub002/internal/ports"
)

// IdentityStatus tells whether a store has finished restoring.
type IdentityStatus string

const (
	IdentityPending IdentityStatus = "pending"
	IdentityReady   IdentityStatus = "ready"
)

// DegradedStorageWarning is shown once identity writes fall back to process memory.
const DegradedStorageWarning = "Your session could not be saved and will not survive a reload."

// IdentityState is an immutable snapshot of a store.
type IdentityState struct {
	Status  IdentityStatus
	Session *domainauth.Session
	Warning string
}

// LoggedIn reports whether the snapshot holds a session.
func (s IdentityState) LoggedIn() bool {
	return s.Status == IdentityReady && s.Session != nil
}

var (
	// ErrNoSession is returned by Patch when nobody is logged in.
	ErrNoSession = apperrors.Unauthorized("No active session.")
	// ErrIdentityChange is returned by Patch when the kind or role would change.
	ErrIdentityChange = apperrors.ValidationField("role", "Profile updates cannot change the account role.")
)

type namespace struct {
	kind     domainauth.PrincipalKind
	tokenKey string
	dataKey  string
}

var (
	adminNS = namespace{kind: domainauth.KindAdmin, tokenKey: "admin:token", dataKey: "admin:data"}
	userNS  = namespace{kind: domainauth.KindUser, tokenKey: "user:token", dataKey: "user:data"}
	// restoreOrder is the scan order of Restore.
	restoreOrder = []namespace{adminNS, userNS}
)

func namespaceFor(isAdmin bool) (active, other namespace) {
	if isAdmin {
		return adminNS, userNS
	}
	return userNS, adminNS
}

// IdentityStoreOptions groups dependencies for IdentityStore.
type IdentityStoreOptions struct {
	Storage ports.Storage
	// Fallback builds the in-memory storage used after a write failure.
	// When nil, write failures are returned to the caller.
	Fallback func() ports.Storage
	Logger   *slog.Logger
}

// IdentityStore owns the persisted session of one device.
// Storage is written before the in-memory snapshot, under one mutex, so a
// failed write never changes what callers observe.
type IdentityStore struct {
	mu       sync.Mutex
	storage  ports.Storage
	fallback func() ports.Storage
	degraded bool
	state    atomic.Pointer[IdentityState]
	restore  singleflight.Group
	logger   *slog.Logger
}

// NewIdentityStore constructs an IdentityStore in the pending state.
func NewIdentityStore(opts IdentityStoreOptions) *IdentityStore {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &IdentityStore{
		storage:  opts.Storage,
		fallback: opts.Fallback,
		logger:   logger.With("component", "identity_store"),
	}
	s.state.Store(&IdentityState{Status: IdentityPending})
	return s
}

// State returns the latest snapshot without touching storage.
func (s *IdentityStore) State() IdentityState {
	return *s.state.Load()
}

// Warning returns the degraded-storage notice, if any.
func (s *IdentityStore) Warning() string {
	return s.State().Warning
}

// Restore rebuilds the session from storage. Concurrent calls share one scan.
// If ctx ends first, the current snapshot is returned, which is pending when
// no restore has ever completed.
func (s *IdentityStore) Restore(ctx context.Context) IdentityState {
	ch := s.restore.DoChan("restore", func() (any, error) {
		return s.scan(context.WithoutCancel(ctx)), nil
	})
	select {
	case res := <-ch:
		state, _ := res.Val.(IdentityState)
		return state
	case <-ctx.Done():
		return s.State()
	}
}

func (s *IdentityStore) scan(ctx context.Context) IdentityState {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ns := range restoreOrder {
		sess, err := s.load(ctx, ns)
		if err != nil {
			s.logger.WarnContext(ctx, "identity read failed, treating as logged out",
				"namespace", ns.kind, "error", err)
			return s.publish(nil)
		}
		if sess != nil {
			return s.publish(sess)
		}
	}
	return s.publish(nil)
}

// load returns the namespace's session, nil when absent or invalid. Invalid
// records are purged. Only storage read failures are returned as errors.
func (s *IdentityStore) load(ctx context.Context, ns namespace) (*domainauth.Session, error) {
	token, hasToken, err := s.storage.Get(ctx, ns.tokenKey)
	if err != nil {
		return nil, err
	}
	data, hasData, err := s.storage.Get(ctx, ns.dataKey)
	if err != nil {
		return nil, err
	}
	if !hasToken && !hasData {
		return nil, nil
	}

	sess, reason := decodeSession(ns, token, data, hasToken, hasData)
	if reason == "" {
		return sess, nil
	}

	s.logger.WarnContext(ctx, "purging invalid persisted identity", "namespace", ns.kind, "reason", reason)
	if err := s.storage.Delete(ctx, ns.tokenKey, ns.dataKey); err != nil {
		s.logger.ErrorContext(ctx, "purge persisted identity", "namespace", ns.kind, "error", err)
	}
	return nil, nil
}

func decodeSession(ns namespace, token, data string, hasToken, hasData bool) (*domainauth.Session, string) {
	if !hasToken || token == "" {
		return nil, "missing token"
	}
	if !hasData {
		return nil, "missing principal"
	}
	var p domainauth.Principal
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, "unparseable principal"
	}
	if p.Kind != ns.kind {
		return nil, "principal kind does not match namespace"
	}
	sess := domainauth.Session{Principal: p, Token: token}
	if err := sess.Valid(); err != nil {
		return nil, err.Error()
	}
	return &sess, ""
}

// Commit persists a new session, replacing whatever was stored for either
// namespace. Fields of the previous session are never merged.
func (s *IdentityStore) Commit(ctx context.Context, p domainauth.Principal, token string, isAdmin bool) error {
	sess := domainauth.Session{Principal: p, Token: token}
	if err := sess.Valid(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "invalid session")
	}
	if p.IsAdmin() != isAdmin {
		return apperrors.Internal("session namespace does not match principal kind")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode principal")
	}

	active, other := namespaceFor(isAdmin)
	values := map[string]string{active.tokenKey: token, active.dataKey: string(data)}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(ctx, func(st ports.Storage) error {
		return st.SetMany(ctx, values, other.tokenKey, other.dataKey)
	}); err != nil {
		return err
	}
	s.publish(&sess)
	return nil
}

// Clear removes both namespaces regardless of which one is active.
func (s *IdentityStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(ctx, func(st ports.Storage) error {
		return st.Delete(ctx, adminNS.tokenKey, adminNS.dataKey, userNS.tokenKey, userNS.dataKey)
	}); err != nil {
		return err
	}
	s.publish(nil)
	return nil
}

// Patch replaces the principal of the active session and keeps its token.
func (s *IdentityStore) Patch(ctx context.Context, p domainauth.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.State()
	if cur.Session == nil {
		return ErrNoSession
	}
	if p.Kind != cur.Session.Principal.Kind || p.RoleTag != cur.Session.Principal.RoleTag {
		return ErrIdentityChange
	}
	if err := p.Validate(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid profile")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode principal")
	}

	active, _ := namespaceFor(p.IsAdmin())
	if err := s.write(ctx, func(st ports.Storage) error {
		return st.SetMany(ctx, map[string]string{active.dataKey: string(data)})
	}); err != nil {
		return err
	}
	s.publish(&domainauth.Session{Principal: p, Token: cur.Session.Token})
	return nil
}

// write applies op to storage. The first failure moves the store to its
// in-memory fallback for the rest of its life and retries op there.
// Callers must hold s.mu.
func (s *IdentityStore) write(ctx context.Context, op func(ports.Storage) error) error {
	err := op(s.storage)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil || s.degraded || s.fallback == nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "We couldn't save your session. Please try again.")
	}

	s.logger.WarnContext(ctx, "identity storage write failed, falling back to memory", "error", err)
	s.storage = s.fallback()
	s.degraded = true
	if retryErr := op(s.storage); retryErr != nil {
		return apperrors.Wrap(errors.Join(err, retryErr), apperrors.ErrCodeUnavailable,
			"We couldn't save your session. Please try again.")
	}
	return nil
}

// publish stores a ready snapshot. Callers must hold s.mu.
func (s *IdentityStore) publish(sess *domainauth.Session) IdentityState {
	next := IdentityState{Status: IdentityReady, Session: sess}
	if s.degraded {
		next.Warning = DegradedStorageWarning
	}
	s.state.Store(&next)
	return next
}

// String is used in logs.
func (s IdentityState) String() string {
	if s.Session == nil {
		return fmt.Sprintf("%s/anonymous", s.Status)
	}
	p := s.Session.Principal
	if p.IsAdmin() {
		return fmt.Sprintf("%s/admin:%s", s.Status, p.RoleTag)
	}
	return fmt.Sprintf("%s/user", s.Status)
}
