package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/ohitsyle/jusq-sub002/config"
	"github.com/ohitsyle/jusq-sub002/internal/adapters/authroles"
	"github.com/ohitsyle/jusq-sub002/internal/adapters/backend"
	"github.com/ohitsyle/jusq-sub002/internal/adapters/memstore"
	redisstore "github.com/ohitsyle/jusq-sub002/internal/adapters/redis"
	"github.com/ohitsyle/jusq-sub002/internal/clock"
	"github.com/ohitsyle/jusq-sub002/internal/ports"
	"github.com/ohitsyle/jusq-sub002/internal/service"
)

// ServiceDeps contains dependencies for building services.
type ServiceDeps struct {
	Config *config.AppConfig
	// RedisClient is required when Config.Auth.Storage is redis.
	RedisClient redis.UniversalClient
	// Backend overrides the HTTP backend client (optional, used in tests).
	Backend ports.Backend
	// Clock overrides the real clock (optional).
	Clock  clock.Clock
	Logger *slog.Logger
}

// ServiceContainer holds the services the HTTP layer needs.
type ServiceContainer struct {
	Identities *service.Identities
	Flows      *service.Flows
	AuditFeed  *service.AuditFeed
	Guard      service.RouteGuard
	// Ready reports whether persisted identity storage is reachable.
	Ready func(context.Context) error
}

// NewServices wires adapters into the portal services.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	storage, ready, err := newIdentityStorage(cfg, deps.RedisClient, logger)
	if err != nil {
		return ServiceContainer{}, err
	}

	be := deps.Backend
	if be == nil {
		be, err = backend.NewClient(backend.Config{
			BaseURL:        cfg.Backend.URL,
			UserLoginPath:  cfg.Backend.UserLoginPath,
			AdminLoginPath: cfg.Backend.AdminLoginPath,
			ForgotPinPath:  cfg.Backend.ForgotPinPath,
			ResetPinPath:   cfg.Backend.ResetPinPath,
			AuditLogsPath:  cfg.Backend.AuditLogsPath,
			Timeout:        cfg.Backend.Timeout,
		})
		if err != nil {
			return ServiceContainer{}, fmt.Errorf("backend client: %w", err)
		}
	}

	clk := deps.Clock
	if clk == nil {
		clk = clock.Real()
	}

	identities, err := service.NewIdentities(service.IdentitiesOptions{
		Storage:  storage,
		Fallback: func() ports.Storage { return memstore.NewScoped() },
		Size:     cfg.Auth.RegistrySize,
		Logger:   logger,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	flows, err := service.NewFlows(service.FlowsOptions{
		Identities:      identities,
		Backend:         be,
		Heuristic:       authroles.NewEmailHeuristic(cfg.Auth.Hints.ByRole()),
		Clock:           clk,
		CooldownSeconds: cfg.Auth.ResendCooldown,
		Size:            cfg.Auth.RegistrySize,
		Logger:          logger,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	return ServiceContainer{
		Identities: identities,
		Flows:      flows,
		AuditFeed:  service.NewAuditFeed(service.AuditFeedOptions{Backend: be, Logger: logger}),
		Guard:      service.NewRouteGuard(),
		Ready:      ready,
	}, nil
}

func newIdentityStorage(
	cfg *config.AppConfig,
	client redis.UniversalClient,
	logger *slog.Logger,
) (ports.StorageFactory, func(context.Context) error, error) {
	switch cfg.Auth.Storage {
	case config.StorageMemory:
		logger.Warn("identity storage is in memory; sessions are lost on restart")
		return memstore.New(), nil, nil
	case config.StorageRedis, "":
		if client == nil {
			return nil, nil, errors.New("redis client is required for redis identity storage")
		}
		store := redisstore.NewStorage(client, redisstore.StorageOptions{
			Prefix: cfg.Redis.KeyPrefix,
			TTL:    cfg.Redis.SessionTTL,
		})
		ready := func(ctx context.Context) error { return client.Ping(ctx).Err() }
		return store, ready, nil
	default:
		return nil, nil, fmt.Errorf("unknown identity storage %q", cfg.Auth.Storage)
	}
}
