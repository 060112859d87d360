package redis

// Package redis provides Redis-based adapters for the portal.

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ohitsyle/jusq-sub002/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.StorageFactory = (*Storage)(nil)
	_ ports.Storage        = (*scopedStorage)(nil)
)

// DefaultPrefix is the key namespace used when none is configured.
const DefaultPrefix = "portal:identity:"

// Storage is a Redis-backed identity storage for production use.
// Keys of one device share a hash tag so multi-key transactions stay on one cluster slot.
type Storage struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// StorageOptions configures a Storage.
type StorageOptions struct {
	// Prefix is prepended to every key.
	Prefix string
	// TTL bounds how long persisted identity survives without a new write; zero keeps it forever.
	TTL time.Duration
}

// NewStorage creates a new Redis-based identity storage.
func NewStorage(client redis.UniversalClient, opts StorageOptions) *Storage {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Storage{
		client: client,
		prefix: prefix,
		ttl:    opts.TTL,
	}
}

// Scope returns the storage view of one device.
//
//nolint:ireturn // callers only depend on the port.
func (s *Storage) Scope(deviceID string) ports.Storage {
	return &scopedStorage{parent: s, device: deviceID}
}

type scopedStorage struct {
	parent *Storage
	device string
}

func (s *scopedStorage) key(k string) string {
	return s.parent.prefix + "{" + s.device + "}:" + k
}

func (s *scopedStorage) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.parent.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

func (s *scopedStorage) SetMany(ctx context.Context, values map[string]string, del ...string) error {
	if len(values) == 0 && len(del) == 0 {
		return nil
	}
	_, err := s.parent.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			pipe.Set(ctx, s.key(k), v, s.parent.ttl)
		}
		if len(del) > 0 {
			pipe.Del(ctx, s.keys(del)...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis multi: %w", err)
	}
	return nil
}

func (s *scopedStorage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil // Nothing to delete
	}
	if err := s.parent.client.Del(ctx, s.keys(keys)...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *scopedStorage) keys(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = s.key(k)
	}
	return out
}

// DeviceKeys describes the persisted identity keys of one device.
type DeviceKeys struct {
	Device string
	Keys   []string
	TTL    time.Duration
}

// Devices scans the prefix and groups keys by device, sorted by device id.
func (s *Storage) Devices(ctx context.Context) ([]DeviceKeys, error) {
	byDevice := make(map[string]*DeviceKeys)
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		full := iter.Val()
		device, key, ok := s.split(full)
		if !ok {
			continue
		}
		entry, found := byDevice[device]
		if !found {
			entry = &DeviceKeys{Device: device}
			byDevice[device] = entry
			if ttl, err := s.client.TTL(ctx, full).Result(); err == nil {
				entry.TTL = ttl
			}
		}
		entry.Keys = append(entry.Keys, key)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}

	out := make([]DeviceKeys, 0, len(byDevice))
	for _, e := range byDevice {
		slices.Sort(e.Keys)
		out = append(out, *e)
	}
	slices.SortFunc(out, func(a, b DeviceKeys) int { return strings.Compare(a.Device, b.Device) })
	return out, nil
}

// Purge removes every persisted key of deviceID and reports how many were deleted.
func (s *Storage) Purge(ctx context.Context, deviceID string) (int64, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"{"+deviceID+"}:*", 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis del: %w", err)
	}
	return n, nil
}

// split reverses scopedStorage.key.
func (s *Storage) split(full string) (device, key string, ok bool) {
	rest, found := strings.CutPrefix(full, s.prefix+"{")
	if !found {
		return "", "", false
	}
	device, key, ok = strings.Cut(rest, "}:")
	return device, key, ok && device != ""
}
