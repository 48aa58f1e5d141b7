package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFromEnv starts from DefaultConfig and overlays every MEMSTORE_*
// environment variable that is set, matching the override-on-top-of-
// defaults convention the rest of the corpus uses for env-driven config.
func LoadFromEnv() (*Config, error) {
	cfg := DefaultConfig()

	applyStringEnv("MEMSTORE_DB_URL", &cfg.DBURL)
	if err := applyBoolEnv("MEMSTORE_DB_MIGRATE_AT_START", &cfg.DatastoreMigrateAtStart); err != nil {
		return nil, err
	}
	if err := applyInt32Env("MEMSTORE_DB_MAX_CONNS", &cfg.DBMaxConns); err != nil {
		return nil, err
	}
	if err := applyInt32Env("MEMSTORE_DB_MIN_CONNS", &cfg.DBMinConns); err != nil {
		return nil, err
	}
	if err := applyDurationEnv("MEMSTORE_DB_MAX_CONN_LIFETIME", &cfg.DBMaxConnLifetime); err != nil {
		return nil, err
	}
	if err := applyDurationEnv("MEMSTORE_DB_MAX_CONN_IDLE_TIME", &cfg.DBMaxConnIdleTime); err != nil {
		return nil, err
	}
	if err := applyBoolEnv("MEMSTORE_DB_SINGLE_CONNECTION", &cfg.DBSingleConnection); err != nil {
		return nil, err
	}

	applyStringEnv("MEMSTORE_EMBED_TYPE", &cfg.EmbedType)
	if err := applyIntEnv("MEMSTORE_INDEX_DIMS", &cfg.IndexDims); err != nil {
		return nil, err
	}
	applyStringEnv("MEMSTORE_INDEX_PATHS", &cfg.IndexPaths)

	applyStringEnv("MEMSTORE_OPENAI_API_KEY", &cfg.OpenAIAPIKey)
	applyStringEnv("MEMSTORE_OPENAI_MODEL_NAME", &cfg.OpenAIModelName)
	applyStringEnv("MEMSTORE_OPENAI_BASE_URL", &cfg.OpenAIBaseURL)
	if err := applyIntEnv("MEMSTORE_OPENAI_DIMENSIONS", &cfg.OpenAIDimensions); err != nil {
		return nil, err
	}

	applyStringEnv("MEMSTORE_VECTOR_TYPE", &cfg.VectorType)
	applyStringEnv("MEMSTORE_QDRANT_HOST", &cfg.QdrantHost)
	if err := applyIntEnv("MEMSTORE_QDRANT_PORT", &cfg.QdrantPort); err != nil {
		return nil, err
	}
	applyStringEnv("MEMSTORE_QDRANT_COLLECTION_PREFIX", &cfg.QdrantCollectionPrefix)
	applyStringEnv("MEMSTORE_QDRANT_COLLECTION_NAME", &cfg.QdrantCollectionName)
	applyStringEnv("MEMSTORE_QDRANT_API_KEY", &cfg.QdrantAPIKey)
	if err := applyBoolEnv("MEMSTORE_QDRANT_USE_TLS", &cfg.QdrantUseTLS); err != nil {
		return nil, err
	}

	applyStringEnv("MEMSTORE_CACHE_TYPE", &cfg.CacheType)
	if err := applyDurationEnv("MEMSTORE_CACHE_TTL", &cfg.CacheTTL); err != nil {
		return nil, err
	}
	applyStringEnv("MEMSTORE_REDIS_URL", &cfg.RedisURL)
	if err := applyInt64Env("MEMSTORE_RISTRETTO_MAX_COST", &cfg.RistrettoMaxCost); err != nil {
		return nil, err
	}

	applyStringEnv("MEMSTORE_ENCRYPT_TYPE", &cfg.EncryptType)
	applyStringEnv("MEMSTORE_ENCRYPTION_KEY", &cfg.EncryptionKey)

	if err := applyBoolEnv("MEMSTORE_METRICS_ENABLED", &cfg.MetricsEnabled); err != nil {
		return nil, err
	}
	applyStringEnv("MEMSTORE_METRICS_LABELS", &cfg.MetricsLabels)

	if err := applyIntEnv("MEMSTORE_HTTP_PORT", &cfg.HTTPPort); err != nil {
		return nil, err
	}
	if err := applyIntEnv("MEMSTORE_MCP_PORT", &cfg.MCPPort); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// QdrantAddress returns host:port for qdrant gRPC dialing.
func (c *Config) QdrantAddress() string {
	if c == nil {
		return "localhost:6334"
	}
	host := strings.TrimSpace(c.QdrantHost)
	if host == "" {
		host = "localhost"
	}
	port := c.QdrantPort
	if port <= 0 {
		port = 6334
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func applyStringEnv(key string, dest *string) {
	if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
		*dest = raw
	}
}

func applyIntEnv(key string, dest *int) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dest = v
	return nil
}

func applyInt32Env(key string, dest *int32) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dest = int32(v)
	return nil
}

func applyInt64Env(key string, dest *int64) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dest = v
	return nil
}

func applyBoolEnv(key string, dest *bool) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dest = v
	return nil
}

func applyDurationEnv(key string, dest *time.Duration) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dest = v
	return nil
}
