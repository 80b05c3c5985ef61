package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/runnerr0/botstats/internal/config"
	"github.com/runnerr0/botstats/internal/logger"
	"github.com/runnerr0/botstats/internal/storage"
)

const envFile = ".env"

// loadConfig resolves configuration.
// Priority: --db flag > BOTSTATS_* env (.env included) > config file > defaults.
func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}

	var (
		cfg *config.Config
		err error
	)
	if globals.Config != "" {
		cfg, err = config.Load(globals.Config)
	} else {
		cfg, err = config.LoadOrCreate()
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if globals.DBPath != "" {
		cfg.Storage.Path = globals.DBPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the command logger. One-shot commands stay silent
// unless --verbose is set.
func newLogger(cfg *config.Config, globals *GlobalFlags, quiet bool) (*zap.Logger, error) {
	if quiet && !globals.Verbose {
		return zap.NewNop(), nil
	}
	level := cfg.Logging.Level
	if globals.Verbose {
		level = "debug"
	}
	return logger.New(level, cfg.Logging.Environment)
}

// openStore opens the configured database, creating the table on first use.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (*storage.Store, error) {
	dbPath, err := cfg.DBPath()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.StoreOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, storage.WithLogger(log))

	store, err := storage.Open(ctx, dbPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return store, nil
}

// withStore runs fn against the configured store and closes it afterwards.
func withStore(globals *GlobalFlags, fn func(ctx context.Context, store *storage.Store) error) error {
	cfg, err := loadConfig(globals)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, globals, true)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := context.Background()
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(ctx, store)
}

// parseFieldValue turns a --field value into the most specific scalar.
func parseFieldValue(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

// parseFields parses repeated name=value pairs.
func parseFields(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	fields := make(map[string]any, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --field %q: expected name=value", p)
		}
		fields[name] = parseFieldValue(value)
	}
	return fields, nil
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats an int64 with comma separators.
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
		if len(s) > remainder {
			result.WriteString(",")
		}
	}
	for i := remainder; i < len(s); i += 3 {
		if i > remainder {
			result.WriteString(",")
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// orDash renders empty strings as "-" in tables.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
