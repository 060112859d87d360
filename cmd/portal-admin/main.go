package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ohitsyle/jusq-sub002/config"
	redisstore "github.com/ohitsyle/jusq-sub002/internal/adapters/redis"
	"github.com/ohitsyle/jusq-sub002/internal/bootstrap"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx     context.Context
	Logger  *slog.Logger
	Config  config.AppConfig
	Out     io.Writer
	Storage *redisstore.Storage
}

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stderr); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	if err := run(cmd, os.Args[2:], logger); err != nil {
		logger.ErrorContext(context.Background(), "command failed", "command", cmdName, "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func run(cmd command, args []string, logger *slog.Logger) error {
	ctx := context.Background()
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Auth.Storage != config.StorageRedis {
		return errors.New("identity storage is not redis; nothing is persisted outside the portal process")
	}

	client, err := bootstrap.ConnectRedis(ctx, cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close redis failed", "error", cerr)
		}
	}()

	return cmd.run(newCommandContext(ctx, cfg, client, os.Stdout, logger), args)
}

func newCommandContext(
	ctx context.Context,
	cfg config.AppConfig,
	client redis.UniversalClient,
	out io.Writer,
	logger *slog.Logger,
) *commandContext {
	return &commandContext{
		Ctx:     ctx,
		Logger:  logger,
		Config:  cfg,
		Out:     out,
		Storage: redisstore.NewStorage(client, redisstore.StorageOptions{Prefix: cfg.Redis.KeyPrefix, TTL: cfg.Redis.SessionTTL}),
	}
}

func commands() map[string]command {
	return map[string]command{
		"list-identities": {
			name:        "list-identities",
			description: "List devices with a persisted identity in Redis",
			run:         runListIdentities,
		},
		"revoke-identity": {
			name:        "revoke-identity",
			description: "Delete the persisted identity of one device",
			run:         runRevokeIdentity,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: portal-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	names := make([]string, 0, len(commands()))
	for name := range commands() {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := writef(w, "  %-24s %s\n", name, commands()[name].description); err != nil {
			return err
		}
	}
	return nil
}

type listOptions struct {
	Namespace string
	JSON      bool
}

func parseListOptions(args []string) (listOptions, error) {
	var opts listOptions
	fs := flag.NewFlagSet("list-identities", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.Namespace, "namespace", "", "Only show devices holding this namespace (admin or user)")
	fs.BoolVar(&opts.JSON, "json", false, "Print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	switch opts.Namespace {
	case "", "admin", "user":
	default:
		return opts, fmt.Errorf("invalid -namespace %q (want admin or user)", opts.Namespace)
	}
	return opts, nil
}

type identityRow struct {
	Device     string   `json:"device"`
	Namespaces []string `json:"namespaces"`
	Keys       []string `json:"keys"`
	TTL        string   `json:"ttl"`
}

func runListIdentities(ctx *commandContext, args []string) error {
	opts, err := parseListOptions(args)
	if err != nil {
		return err
	}
	devices, err := ctx.Storage.Devices(ctx.Ctx)
	if err != nil {
		return err
	}

	rows := make([]identityRow, 0, len(devices))
	for _, d := range devices {
		ns := namespacesOf(d.Keys)
		if opts.Namespace != "" && !slices.Contains(ns, opts.Namespace) {
			continue
		}
		rows = append(rows, identityRow{Device: d.Device, Namespaces: ns, Keys: d.Keys, TTL: formatRedisTTL(d.TTL)})
	}

	if opts.JSON {
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	return renderIdentityTable(ctx.Out, rows)
}

// namespacesOf returns the distinct key namespaces ("admin", "user") in order.
func namespacesOf(keys []string) []string {
	var out []string
	for _, k := range keys {
		ns, _, ok := strings.Cut(k, ":")
		if ok && !slices.Contains(out, ns) {
			out = append(out, ns)
		}
	}
	slices.Sort(out)
	return out
}

func renderIdentityTable(w io.Writer, rows []identityRow) error {
	if len(rows) == 0 {
		return writeln(w, "No persisted identities.")
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "DEVICE\tNAMESPACES\tKEYS\tTTL"); err != nil {
		return fmt.Errorf("write identities header row: %w", err)
	}
	for _, row := range rows {
		if err := writef(tw, "%s\t%s\t%s\t%s\n",
			row.Device,
			strings.Join(row.Namespaces, ","),
			strings.Join(row.Keys, ","),
			row.TTL,
		); err != nil {
			return fmt.Errorf("write identity row: %w", err)
		}
	}
	return tw.Flush()
}

type revokeOptions struct {
	Device string
	Yes    bool
}

func parseRevokeOptions(args []string) (revokeOptions, error) {
	var opts revokeOptions
	fs := flag.NewFlagSet("revoke-identity", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.Device, "device", "", "Device id (value of the portal_device cookie)")
	fs.BoolVar(&opts.Yes, "yes", false, "Confirm the deletion")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.Device = strings.TrimSpace(opts.Device)
	if opts.Device == "" {
		return opts, errors.New("-device is required")
	}
	if !opts.Yes {
		return opts, errors.New("refusing to delete without -yes")
	}
	return opts, nil
}

func runRevokeIdentity(ctx *commandContext, args []string) error {
	opts, err := parseRevokeOptions(args)
	if err != nil {
		return err
	}
	n, err := ctx.Storage.Purge(ctx.Ctx, opts.Device)
	if err != nil {
		return err
	}
	ctx.Logger.InfoContext(ctx.Ctx, "revoked persisted identity", "device", opts.Device, "keys", n)
	return writef(ctx.Out, "Deleted %d key(s) for device %s\n", n, opts.Device)
}

func formatRedisTTL(ttl time.Duration) string {
	switch {
	case ttl == -1:
		return "no expiry"
	case ttl == -2:
		return "missing"
	case ttl < 0:
		return ttl.String()
	}
	return ttl.Round(time.Second).String()
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	_, err := fmt.Fprintln(w, args...)
	return err
}
