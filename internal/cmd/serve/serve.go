package serve

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chirino/memstore/internal/config"
	registrycache "github.com/chirino/memstore/internal/registry/cache"
	registryembed "github.com/chirino/memstore/internal/registry/embed"
	"github.com/chirino/memstore/internal/registry/encrypt"
	registryvector "github.com/chirino/memstore/internal/registry/vector"
	"github.com/urfave/cli/v3"

	// Import all plugins to trigger init() registration.
	_ "github.com/chirino/memstore/internal/plugin/cache/noop"
	_ "github.com/chirino/memstore/internal/plugin/cache/redis"
	_ "github.com/chirino/memstore/internal/plugin/cache/ristretto"
	_ "github.com/chirino/memstore/internal/plugin/embed/disabled"
	_ "github.com/chirino/memstore/internal/plugin/embed/local"
	_ "github.com/chirino/memstore/internal/plugin/embed/openai"
	_ "github.com/chirino/memstore/internal/plugin/encrypt/dek"
	_ "github.com/chirino/memstore/internal/plugin/encrypt/plain"
	_ "github.com/chirino/memstore/internal/plugin/vector/qdrant"
)

// Command returns the serve sub-command.
func Command() *cli.Command {
	cfg := config.DefaultConfig()
	dbMaxConns := int(cfg.DBMaxConns)
	dbMinConns := int(cfg.DBMinConns)
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the memstore HTTP and MCP servers",
		Flags: flags(&cfg, &dbMaxConns, &dbMinConns),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg.DBMaxConns = int32(dbMaxConns)
			cfg.DBMinConns = int32(dbMinConns)
			return run(ctx, cfg)
		},
	}
}

func flags(cfg *config.Config, dbMaxConns, dbMinConns *int) []cli.Flag {
	return []cli.Flag{
		// ── Server ────────────────────────────────────────────────
		&cli.IntFlag{
			Name:        "http-port",
			Category:    "Server:",
			Sources:     cli.EnvVars("MEMSTORE_HTTP_PORT"),
			Destination: &cfg.HTTPPort,
			Value:       cfg.HTTPPort,
			Usage:       "HTTP server port",
		},
		&cli.IntFlag{
			Name:        "mcp-port",
			Category:    "Server:",
			Sources:     cli.EnvVars("MEMSTORE_MCP_PORT"),
			Destination: &cfg.MCPPort,
			Value:       cfg.MCPPort,
			Usage:       "MCP server port",
		},
		&cli.IntFlag{
			Name:        "drain-timeout-seconds",
			Category:    "Server:",
			Sources:     cli.EnvVars("MEMSTORE_DRAIN_TIMEOUT_SECONDS"),
			Destination: &cfg.DrainTimeout,
			Value:       cfg.DrainTimeout,
			Usage:       "Graceful shutdown timeout in seconds",
		},

		// ── Database ──────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "db-url",
			Category:    "Database:",
			Sources:     cli.EnvVars("MEMSTORE_DB_URL"),
			Destination: &cfg.DBURL,
			Usage:       "Database connection URL",
			Required:    true,
		},
		&cli.BoolFlag{
			Name:        "db-migrate-at-start",
			Category:    "Database:",
			Sources:     cli.EnvVars("MEMSTORE_DB_MIGRATE_AT_START"),
			Destination: &cfg.DatastoreMigrateAtStart,
			Value:       cfg.DatastoreMigrateAtStart,
			Usage:       "Not consulted: schema migrations are applied at every startup",
		},
		&cli.IntFlag{
			Name:        "db-max-conns",
			Category:    "Database:",
			Sources:     cli.EnvVars("MEMSTORE_DB_MAX_CONNS"),
			Destination: dbMaxConns,
			Value:       *dbMaxConns,
			Usage:       "Maximum pooled database connections",
		},
		&cli.IntFlag{
			Name:        "db-min-conns",
			Category:    "Database:",
			Sources:     cli.EnvVars("MEMSTORE_DB_MIN_CONNS"),
			Destination: dbMinConns,
			Value:       *dbMinConns,
			Usage:       "Minimum warm pooled database connections",
		},
		&cli.BoolFlag{
			Name:        "db-single-connection",
			Category:    "Database:",
			Sources:     cli.EnvVars("MEMSTORE_DB_SINGLE_CONNECTION"),
			Destination: &cfg.DBSingleConnection,
			Usage:       "Serialize every batch through one connection instead of a pool",
		},

		// ── Semantic indexing ─────────────────────────────────────
		&cli.StringFlag{
			Name:        "embedding-kind",
			Category:    "Semantic Indexing:",
			Sources:     cli.EnvVars("MEMSTORE_EMBED_TYPE"),
			Destination: &cfg.EmbedType,
			Value:       cfg.EmbedType,
			Usage:       "Embedding provider (" + strings.Join(registryembed.Names(), "|") + ")",
		},
		&cli.IntFlag{
			Name:        "index-dims",
			Category:    "Semantic Indexing:",
			Sources:     cli.EnvVars("MEMSTORE_INDEX_DIMS"),
			Destination: &cfg.IndexDims,
			Usage:       "Embedding vector dimensionality; 0 defers to the embedder's default",
		},
		&cli.StringFlag{
			Name:        "index-paths",
			Category:    "Semantic Indexing:",
			Sources:     cli.EnvVars("MEMSTORE_INDEX_PATHS"),
			Destination: &cfg.IndexPaths,
			Usage:       "Comma-separated JSON paths to embed by default; empty means the whole value",
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Category:    "Semantic Indexing:",
			Sources:     cli.EnvVars("MEMSTORE_OPENAI_API_KEY", "OPENAI_API_KEY"),
			Destination: &cfg.OpenAIAPIKey,
			Usage:       "OpenAI API key for the openai embedder",
		},

		// ── Vector backend ────────────────────────────────────────
		&cli.StringFlag{
			Name:        "vector-kind",
			Category:    "Vector Backend:",
			Sources:     cli.EnvVars("MEMSTORE_VECTOR_TYPE"),
			Destination: &cfg.VectorType,
			Value:       cfg.VectorType,
			Usage:       "Vector backend (sql|" + strings.Join(registryvector.Names(), "|") + ")",
		},
		&cli.StringFlag{
			Name:        "qdrant-host",
			Category:    "Vector Backend:",
			Sources:     cli.EnvVars("MEMSTORE_QDRANT_HOST"),
			Destination: &cfg.QdrantHost,
			Value:       cfg.QdrantHost,
			Usage:       "Qdrant host",
		},

		// ── Cache ─────────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "cache-kind",
			Category:    "Cache:",
			Sources:     cli.EnvVars("MEMSTORE_CACHE_TYPE"),
			Destination: &cfg.CacheType,
			Value:       cfg.CacheType,
			Usage:       "Cache backend (" + strings.Join(registrycache.Names(), "|") + ")",
		},
		&cli.StringFlag{
			Name:        "redis-url",
			Category:    "Cache:",
			Sources:     cli.EnvVars("MEMSTORE_REDIS_URL"),
			Destination: &cfg.RedisURL,
			Usage:       "Redis connection URL for the redis cache",
		},

		// ── Encryption ────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "encryption-kind",
			Category:    "Encryption:",
			Sources:     cli.EnvVars("MEMSTORE_ENCRYPT_TYPE"),
			Destination: &cfg.EncryptType,
			Value:       cfg.EncryptType,
			Usage:       "Value-at-rest encryption provider (" + strings.Join(encrypt.Names(), "|") + ")",
		},
		&cli.StringFlag{
			Name:        "encryption-key",
			Category:    "Encryption:",
			Sources:     cli.EnvVars("MEMSTORE_ENCRYPTION_KEY"),
			Destination: &cfg.EncryptionKey,
			Usage:       "Comma-separated AES keys for the 'dek' provider (hex or base64, 16/24/32 bytes). First is primary.",
		},

		// ── Monitoring ────────────────────────────────────────────
		&cli.BoolFlag{
			Name:        "metrics-enabled",
			Category:    "Monitoring:",
			Sources:     cli.EnvVars("MEMSTORE_METRICS_ENABLED"),
			Destination: &cfg.MetricsEnabled,
			Value:       cfg.MetricsEnabled,
			Usage:       "Enable Prometheus metrics at /metrics",
		},
		&cli.StringFlag{
			Name:        "metrics-labels",
			Category:    "Monitoring:",
			Sources:     cli.EnvVars("MEMSTORE_METRICS_LABELS"),
			Destination: &cfg.MetricsLabels,
			Value:       cfg.MetricsLabels,
			Usage:       "Comma-separated key=value pairs added as constant labels to all Prometheus metrics. Supports ${VAR} expansion.",
		},
	}
}

func run(ctx context.Context, cfg config.Config) error {
	srv, err := StartServer(ctx, &cfg)
	if err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("shutting down...")

	drainCtx, drainCancel := context.WithTimeout(context.Background(), time.Duration(cfg.DrainTimeout)*time.Second)
	defer drainCancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		log.Error("shutdown error", "err", err)
	}
	log.Info("server stopped")
	return nil
}
