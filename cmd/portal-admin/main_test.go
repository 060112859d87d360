package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ohitsyle/jusq-sub002/config"
)

func newTestContext(t *testing.T) (*commandContext, *miniredis.Miniredis, *bytes.Buffer) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var out bytes.Buffer
	cfg := config.AppConfig{Redis: config.RedisConfig{KeyPrefix: "portal:identity:"}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newCommandContext(context.Background(), cfg, client, &out, logger), mr, &out
}

func seed(t *testing.T, mr *miniredis.Miniredis) {
	t.Helper()
	require.NoError(t, mr.Set("portal:identity:{dev-a}:admin:token", "a"))
	require.NoError(t, mr.Set("portal:identity:{dev-a}:admin:data", "{}"))
	require.NoError(t, mr.Set("portal:identity:{dev-b}:user:token", "u"))
	mr.SetTTL("portal:identity:{dev-b}:user:token", 2*time.Hour)
}

func TestListIdentities_Table(t *testing.T) {
	ctx, mr, out := newTestContext(t)
	seed(t, mr)

	require.NoError(t, runListIdentities(ctx, nil))

	text := out.String()
	assert.Contains(t, text, "DEVICE")
	assert.Contains(t, text, "dev-a")
	assert.Contains(t, text, "admin:data,admin:token")
	assert.Contains(t, text, "no expiry")
	assert.Contains(t, text, "2h0m0s")
}

func TestListIdentities_NamespaceFilterJSON(t *testing.T) {
	ctx, mr, out := newTestContext(t)
	seed(t, mr)

	require.NoError(t, runListIdentities(ctx, []string{"-namespace", "user", "-json"}))

	var rows []identityRow
	require.NoError(t, json.Unmarshal(out.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "dev-b", rows[0].Device)
	assert.Equal(t, []string{"user"}, rows[0].Namespaces)
}

func TestListIdentities_Empty(t *testing.T) {
	ctx, _, out := newTestContext(t)

	require.NoError(t, runListIdentities(ctx, nil))
	assert.Equal(t, "No persisted identities.\n", out.String())
}

func TestListIdentities_BadNamespace(t *testing.T) {
	ctx, _, _ := newTestContext(t)
	assert.Error(t, runListIdentities(ctx, []string{"-namespace", "guest"}))
}

func TestRevokeIdentity(t *testing.T) {
	ctx, mr, out := newTestContext(t)
	seed(t, mr)

	require.NoError(t, runRevokeIdentity(ctx, []string{"-device", "dev-a", "-yes"}))

	assert.Equal(t, "Deleted 2 key(s) for device dev-a\n", out.String())
	assert.False(t, mr.Exists("portal:identity:{dev-a}:admin:token"))
	assert.True(t, mr.Exists("portal:identity:{dev-b}:user:token"))
}

func TestRevokeIdentity_RequiresFlags(t *testing.T) {
	ctx, mr, _ := newTestContext(t)
	seed(t, mr)

	require.ErrorContains(t, runRevokeIdentity(ctx, []string{"-yes"}), "-device")
	require.ErrorContains(t, runRevokeIdentity(ctx, []string{"-device", "dev-a"}), "-yes")
	assert.True(t, mr.Exists("portal:identity:{dev-a}:admin:token"))
}

func TestPrintUsageListsCommands(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printUsage(&buf))
	assert.Contains(t, buf.String(), "list-identities")
	assert.Contains(t, buf.String(), "revoke-identity")
}
