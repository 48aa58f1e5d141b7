package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_OverlaysDefaults(t *testing.T) {
	t.Setenv("MEMSTORE_DB_URL", "postgres://localhost/memstore")
	t.Setenv("MEMSTORE_DB_MAX_CONNS", "25")
	t.Setenv("MEMSTORE_EMBED_TYPE", "openai")
	t.Setenv("MEMSTORE_INDEX_DIMS", "1536")
	t.Setenv("MEMSTORE_CACHE_TTL", "5m")
	t.Setenv("MEMSTORE_QDRANT_PORT", "7443")
	t.Setenv("MEMSTORE_QDRANT_HOST", "qdrant.example")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	require.Equal(t, "postgres://localhost/memstore", cfg.DBURL)
	require.Equal(t, int32(25), cfg.DBMaxConns)
	require.Equal(t, "openai", cfg.EmbedType)
	require.Equal(t, 1536, cfg.IndexDims)
	require.Equal(t, 5*time.Minute, cfg.CacheTTL)
	require.Equal(t, "qdrant.example", cfg.QdrantHost)
	require.Equal(t, 7443, cfg.QdrantPort)

	// Unset values keep their defaults.
	require.Equal(t, "sql", cfg.VectorType)
	require.True(t, cfg.DatastoreMigrateAtStart)
}

func TestLoadFromEnv_RejectsInvalidValues(t *testing.T) {
	t.Setenv("MEMSTORE_DB_MAX_CONNS", "not-a-number")
	_, err := LoadFromEnv()
	require.Error(t, err)
}

func TestQdrantAddress_Defaults(t *testing.T) {
	var cfg Config
	require.Equal(t, "localhost:6334", cfg.QdrantAddress())
}

func TestQdrantAddress_UsesConfiguredHostAndPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QdrantHost = "qdrant.internal"
	cfg.QdrantPort = 7443

	require.Equal(t, "qdrant.internal:7443", cfg.QdrantAddress())
}
