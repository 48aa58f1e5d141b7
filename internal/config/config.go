// Package config carries the memstore service's runtime configuration,
// threaded through request-scoped contexts the way the rest of the
// codebase carries cross-cutting values.
package config

import (
	"context"
	"os"
	"strings"
	"time"
)

type contextKey struct{}

// WithContext returns a new context carrying the given Config.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext retrieves the Config from the context.
func FromContext(ctx context.Context) *Config {
	cfg, _ := ctx.Value(contextKey{}).(*Config)
	return cfg
}

const (
	ModeProd    = "prod"
	ModeTesting = "testing"
)

// Config holds all configuration for the memstore service.
type Config struct {
	// Mode toggles verbose diagnostics useful in tests ("testing") versus
	// production ("prod", default).
	Mode string

	// Database
	DBURL                   string
	DatastoreMigrateAtStart bool
	DBMaxConns              int32
	DBMinConns              int32
	DBMaxConnLifetime       time.Duration
	DBMaxConnIdleTime       time.Duration
	// DBSingleConnection serializes every batch through one connection
	// instead of a pool — for environments already fronted by a
	// transaction-pooling proxy.
	DBSingleConnection bool

	// Semantic indexing
	EmbedType  string // "none", "local", or "openai"
	IndexDims  int    // 0 means "ask the embedder's provider"
	IndexPaths string // comma-separated JSON paths; empty means "$" (whole value)

	// OpenAI embedder
	OpenAIAPIKey     string
	OpenAIModelName  string
	OpenAIBaseURL    string
	OpenAIDimensions int

	// Vector backend: "sql" (default, pgvector in the same database) or
	// "qdrant".
	VectorType             string
	QdrantHost              string
	QdrantPort              int
	QdrantCollectionPrefix  string
	QdrantCollectionName    string
	QdrantAPIKey            string
	QdrantUseTLS            bool

	// Cache in front of Get: "none", "ristretto" (in-process), or "redis".
	CacheType    string
	CacheTTL     time.Duration
	RedisURL     string
	RistrettoMaxCost int64

	// Value encryption at rest: "none" (pass-through, no key) or "dek"
	// (primary + legacy keys, for rotation).
	EncryptType string
	// EncryptionKey is a comma-separated list of AES keys, each hex or
	// base64 encoded and 16, 24 or 32 bytes long. The first is primary (used to encrypt); the rest are legacy
	// decryption-only keys kept around during a rotation.
	EncryptionKey string

	// Metrics
	MetricsEnabled bool
	// MetricsLabels is a comma-separated list of key=value pairs added as
	// constant labels to every metric.
	MetricsLabels string

	// Transport
	HTTPPort int
	MCPPort  int

	// DrainTimeout bounds graceful shutdown, in seconds.
	DrainTimeout int

	// TempDir overrides the directory ResolvedTempDir returns; empty means
	// the platform default.
	TempDir string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Mode:                    ModeProd,
		DatastoreMigrateAtStart: true,
		DBMaxConns:              10,
		DBMinConns:              1,
		DBMaxConnLifetime:       time.Hour,
		DBMaxConnIdleTime:       30 * time.Minute,
		EmbedType:               "none",
		OpenAIModelName:         "text-embedding-3-small",
		OpenAIBaseURL:           "https://api.openai.com/v1",
		VectorType:              "sql",
		QdrantHost:              "localhost",
		QdrantPort:              6334,
		QdrantCollectionPrefix:  "memstore",
		CacheType:               "none",
		CacheTTL:                10 * time.Minute,
		RistrettoMaxCost:        1 << 26, // 64 MiB
		EncryptType:             "none",
		MetricsEnabled:          true,
		MetricsLabels:           "service=memstore",
		HTTPPort:                8080,
		MCPPort:                 8090,
		DrainTimeout:            30,
	}
}

// IndexPathList splits IndexPaths on commas, trimming whitespace, and
// returns nil (not an empty slice) when unset.
func (c *Config) IndexPathList() []string {
	if c == nil || strings.TrimSpace(c.IndexPaths) == "" {
		return nil
	}
	parts := strings.Split(c.IndexPaths, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ResolvedTempDir returns TempDir with surrounding whitespace trimmed, or
// the platform default temp directory when TempDir is unset.
func (c *Config) ResolvedTempDir() string {
	if c != nil {
		if dir := strings.TrimSpace(c.TempDir); dir != "" {
			return dir
		}
	}
	return os.TempDir()
}
