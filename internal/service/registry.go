package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ohitsyle/jusq-sub002/internal/clock"
	domainauth "github.com/ohitsyle/jusq-sub002/internal/domain/auth"
	"github.com/ohitsyle/jusq-sub002/internal/ports"
)

// DefaultRegistrySize bounds how many devices are kept in memory.
const DefaultRegistrySize = 4096

// IdentitiesOptions groups dependencies for Identities.
type IdentitiesOptions struct {
	Storage  ports.StorageFactory
	Fallback func() ports.Storage
	Size     int
	Logger   *slog.Logger
}

// Identities hands out the IdentityStore of each device.
type Identities struct {
	mu       sync.Mutex
	cache    *lru.Cache[string, *IdentityStore]
	storage  ports.StorageFactory
	fallback func() ports.Storage
	logger   *slog.Logger
}

// NewIdentities constructs a device registry of identity stores.
func NewIdentities(opts IdentitiesOptions) (*Identities, error) {
	if opts.Storage == nil {
		return nil, errors.New("identities: storage factory is required")
	}
	size := opts.Size
	if size <= 0 {
		size = DefaultRegistrySize
	}
	// Device maps of an in-memory factory go with the evicted store.
	var onEvict func(string, *IdentityStore)
	if rel, ok := opts.Storage.(ports.StorageReleaser); ok {
		onEvict = func(deviceID string, _ *IdentityStore) { rel.Release(deviceID) }
	}
	cache, err := lru.NewWithEvict(size, onEvict)
	if err != nil {
		return nil, fmt.Errorf("identities cache: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Identities{cache: cache, storage: opts.Storage, fallback: opts.Fallback, logger: logger}, nil
}

// For returns the store of deviceID, creating it on first use.
func (r *Identities) For(deviceID string) *IdentityStore {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.cache.Get(deviceID); ok {
		return s
	}
	s := NewIdentityStore(IdentityStoreOptions{
		Storage:  r.storage.Scope(deviceID),
		Fallback: r.fallback,
		Logger:   r.logger,
	})
	r.cache.Add(deviceID, s)
	return s
}

// FlowsOptions groups dependencies for Flows.
type FlowsOptions struct {
	Identities *Identities
	Backend    ports.Backend
	Heuristic  ports.RoleHeuristic
	Clock      clock.Clock
	// CooldownSeconds is the OTP resend window.
	CooldownSeconds int
	Size            int
	Logger          *slog.Logger
}

// Flows hands out the AuthFlow of each device. Evicted flows are closed so
// their cooldown timers stop.
type Flows struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *AuthFlow]
	opts  FlowsOptions
}

// NewFlows constructs a device registry of login flows.
func NewFlows(opts FlowsOptions) (*Flows, error) {
	if opts.Identities == nil || opts.Backend == nil || opts.Heuristic == nil {
		return nil, errors.New("flows: missing dependency")
	}
	size := opts.Size
	if size <= 0 {
		size = DefaultRegistrySize
	}
	cache, err := lru.NewWithEvict(size, func(_ string, f *AuthFlow) { f.Close() })
	if err != nil {
		return nil, fmt.Errorf("flows cache: %w", err)
	}
	return &Flows{cache: cache, opts: opts}, nil
}

// For returns the flow of deviceID, creating it on first use.
func (r *Flows) For(deviceID string) *AuthFlow {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.cache.Get(deviceID); ok {
		return f
	}
	f := NewAuthFlow(AuthFlowOptions{
		Backend:         r.opts.Backend,
		Heuristic:       r.opts.Heuristic,
		Sessions:        deviceSessions{identities: r.opts.Identities, deviceID: deviceID},
		Clock:           r.opts.Clock,
		CooldownSeconds: r.opts.CooldownSeconds,
		Logger:          r.opts.Logger,
	})
	r.cache.Add(deviceID, f)
	return f
}

// Len returns the number of live flows.
func (r *Flows) Len() int {
	return r.cache.Len()
}

// deviceSessions resolves the device's store on every commit, so a flow that
// outlives its store in the Identities cache commits into the live one.
type deviceSessions struct {
	identities *Identities
	deviceID   string
}

func (d deviceSessions) Commit(ctx context.Context, p domainauth.Principal, token string, isAdmin bool) error {
	return d.identities.For(d.deviceID).Commit(ctx, p, token, isAdmin)
}
