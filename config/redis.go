package config

import (
	"errors"
	"strings"
	"time"
)

// RedisConfig contains Redis configuration for persisted identity.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`

	// KeyPrefix namespaces identity keys.
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"portal:identity:"`
	// SessionTTL expires persisted identity that is not rewritten; zero keeps it.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"720h"`
}

// Sanitize drops empty node entries.
func (r *RedisConfig) Sanitize() {
	r.SentinelNodes = compact(r.SentinelNodes)
	r.ClusterNodes = compact(r.ClusterNodes)
	if r.SessionTTL < 0 {
		r.SessionTTL = 0
	}
}

// Validate checks that the selected topology has addresses.
func (r *RedisConfig) Validate() error {
	switch {
	case r.UseCluster && len(r.ClusterNodes) == 0:
		return errors.New("REDIS_CLUSTER_NODES is required when REDIS_USE_CLUSTER=true")
	case r.UseSentinel && len(r.SentinelNodes) == 0:
		return errors.New("REDIS_SENTINEL_NODES is required when REDIS_USE_SENTINEL=true")
	case !r.UseCluster && !r.UseSentinel && strings.TrimSpace(r.URI) == "":
		return errors.New("REDIS_URI is required")
	}
	return nil
}

func compact(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
