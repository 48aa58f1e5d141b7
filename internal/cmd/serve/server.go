package serve

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chirino/memstore/internal/config"
	"github.com/chirino/memstore/internal/metrics"
	registrycache "github.com/chirino/memstore/internal/registry/cache"
	registryembed "github.com/chirino/memstore/internal/registry/embed"
	"github.com/chirino/memstore/internal/registry/encrypt"
	registryvector "github.com/chirino/memstore/internal/registry/vector"
	"github.com/chirino/memstore/internal/service"
	"github.com/chirino/memstore/internal/store"
	"github.com/chirino/memstore/internal/transport/httpapi"
	"github.com/chirino/memstore/internal/transport/mcpserver"
	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/server"
)

// Server holds the running HTTP and MCP listeners and the store beneath
// them.
type Server struct {
	Config *config.Config
	Store  *store.Store

	httpServer *http.Server
	mcpServer  *server.MCPServer
	mcpCancel  context.CancelFunc
	mcpDone    chan error
}

// Shutdown gracefully stops both listeners and closes the store.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			shutdownErr = err
		}
	}
	if s.mcpCancel != nil {
		s.mcpCancel()
		<-s.mcpDone
	}
	if s.Store != nil {
		s.Store.Close()
	}
	return shutdownErr
}

// StartServer wires the store, its decorators, and the HTTP/MCP
// transports, then starts serving. Use cfg.HTTPPort/MCPPort == 0 to bind
// OS-assigned ports in tests.
func StartServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	log.Info("starting memstore",
		"httpPort", cfg.HTTPPort,
		"mcpPort", cfg.MCPPort,
		"vector", cfg.VectorType,
		"cache", cfg.CacheType,
		"embedding", cfg.EmbedType,
	)

	if cfg.MetricsEnabled {
		labels, err := metrics.ParseLabels(cfg.MetricsLabels)
		if err != nil {
			return nil, fmt.Errorf("invalid metrics labels: %w", err)
		}
		metrics.Init(labels)
	}

	ctx = config.WithContext(ctx, cfg)

	idx, err := buildIndexConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	coreStore, err := store.Open(ctx, cfg.DBURL, store.PoolConfig{
		MaxConns:         cfg.DBMaxConns,
		MinConns:         cfg.DBMinConns,
		MaxConnLifetime:  cfg.DBMaxConnLifetime,
		MaxConnIdleTime:  cfg.DBMaxConnIdleTime,
		SingleConnection: cfg.DBSingleConnection,
	}, idx)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if idx != nil && idx.Backend == "qdrant" {
		vectorLoader, err := registryvector.Select("qdrant")
		if err != nil {
			coreStore.Close()
			return nil, err
		}
		vectorIndex, err := vectorLoader(ctx, idx.Dims)
		if err != nil {
			coreStore.Close()
			return nil, fmt.Errorf("failed to initialize qdrant vector index: %w", err)
		}
		coreStore = coreStore.WithVectorIndex(vectorIndex)
	}

	var svc service.KVStore = coreStore
	svc = service.WrapMetrics(svc)

	if cfg.CacheType != "" && cfg.CacheType != "none" {
		cacheLoader, err := registrycache.Select(cfg.CacheType)
		if err != nil {
			log.Warn("cache not available", "cache", cfg.CacheType, "err", err)
		} else if itemCache, err := cacheLoader(ctx); err != nil {
			log.Warn("failed to initialize cache", "cache", cfg.CacheType, "err", err)
		} else {
			svc = service.WrapCache(svc, itemCache)
		}
	}

	if cfg.EncryptType != "" && cfg.EncryptType != "none" {
		encryptLoader, err := encrypt.Select(cfg.EncryptType)
		if err != nil {
			coreStore.Close()
			return nil, err
		}
		provider, err := encryptLoader(ctx, cfg)
		if err != nil {
			coreStore.Close()
			return nil, fmt.Errorf("failed to initialize encryption: %w", err)
		}
		svc = service.WrapEncryption(svc, provider)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.MetricsEnabled {
		router.Use(metrics.GinMiddleware())
	}
	router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/ready", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ready"}) })
	httpapi.MountRoutes(router, svc)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	httpErrCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			httpErrCh <- err
		}
	}()
	select {
	case err := <-httpErrCh:
		coreStore.Close()
		return nil, fmt.Errorf("failed to start HTTP listener: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	mcpSrv := mcpserver.New(svc)
	mcpCtx, mcpCancel := context.WithCancel(context.Background())
	mcpDone := make(chan error, 1)
	go func() {
		mcpDone <- mcpserver.Serve(mcpCtx, mcpSrv, fmt.Sprintf(":%d", cfg.MCPPort))
	}()

	log.Info("memstore listening", "http", cfg.HTTPPort, "mcp", cfg.MCPPort)

	return &Server{
		Config:     cfg,
		Store:      coreStore,
		httpServer: httpServer,
		mcpServer:  mcpSrv,
		mcpCancel:  mcpCancel,
		mcpDone:    mcpDone,
	}, nil
}

// buildIndexConfig resolves the embedder plugin and assembles an
// IndexConfig, or returns nil when semantic indexing is disabled.
func buildIndexConfig(ctx context.Context, cfg *config.Config) (*store.IndexConfig, error) {
	if cfg.EmbedType == "" || cfg.EmbedType == "none" {
		return nil, nil
	}
	embedLoader, err := registryembed.Select(cfg.EmbedType)
	if err != nil {
		return nil, err
	}
	provider, err := embedLoader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder %q: %w", cfg.EmbedType, err)
	}
	dims := cfg.IndexDims
	if dims <= 0 {
		dims = provider.Dims
	}
	idx, err := store.NewIndexConfig(store.IndexConfig{
		Dims:    dims,
		Embed:   provider.Embedder,
		Fields:  cfg.IndexPathList(),
		Backend: cfg.VectorType,
	})
	if err != nil {
		return nil, err
	}
	return &idx, nil
}
