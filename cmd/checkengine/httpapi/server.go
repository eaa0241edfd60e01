// Package httpapi is checkengine's embeddable HTTP surface: submit a run,
// poll its result, stream its events over a websocket. Grounded on the
// teacher's pkg/server (component wiring, graceful shutdown) and its REST
// handler package (response envelope, bindJSON/validator wiring), pared
// down to this engine's own domain — no gRPC or file storage layers, and
// auth limited to an optional bearer-token check (auth.go).
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/checkrun-dev/engine/internal/config"
	"github.com/checkrun-dev/engine/internal/tracing"
	"github.com/checkrun-dev/engine/pkg/dispatch"
	"github.com/checkrun-dev/engine/pkg/providers"
)

// Server is the demo HTTP surface wrapping pkg/engine.
type Server struct {
	cfg        *config.Config
	log        zerolog.Logger
	tracer     *tracing.Provider
	router     *gin.Engine
	httpServer *http.Server
	registry   *dispatch.Registry
	runs       *runStore
}

// New builds a Server with a registry populated from pkg/providers'
// reference implementations. Callers embedding this engine in their own
// process should build their own dispatch.Registry and call NewWithRegistry
// instead.
func New(cfg *config.Config, log zerolog.Logger, tracer *tracing.Provider) (*Server, error) {
	registry := dispatch.NewRegistry()
	registry.Register(providers.NewHTTPProvider())
	registry.Register(providers.NewScriptProvider())
	registry.Register(providers.NewCommandProvider(nil))
	registry.Register(providers.NewLogProvider(log))
	registry.Register(providers.NewMemoryProvider())
	registry.Register(providers.NewHumanInputProvider())
	registry.Register(providers.NewAIProvider())
	registry.Register(providers.NewMCPProvider())

	return NewWithRegistry(cfg, log, tracer, registry)
}

// NewWithRegistry builds a Server dispatching checks through registry,
// for callers that want their own provider set instead of the reference
// implementations New wires by default.
func NewWithRegistry(cfg *config.Config, log zerolog.Logger, tracer *tracing.Provider, registry *dispatch.Registry) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))
	if cfg.Server.CORS {
		router.Use(corsMiddleware())
	}
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	s := &Server{
		cfg:      cfg,
		log:      log,
		tracer:   tracer,
		router:   router,
		registry: registry,
		runs:     newRunStore(),
	}

	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.router.Group("/")
	if len(s.cfg.Server.APIKeys) > 0 {
		api.Use(bearerAuth(s.cfg.Server.APIKeys))
	}
	api.POST("/runs", s.handleSubmitRun)
	api.GET("/runs/:id", s.handleGetRun)
	api.GET("/runs/:id/events", s.handleRunEvents)
}

// ListenAndServe blocks serving HTTP until the server is shut down.
func (s *Server) ListenAndServe() error {
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server and every run's event hub.
func (s *Server) Shutdown(ctx context.Context) error {
	s.runs.stopAll()
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the underlying gin.Engine for callers that want to mount
// additional routes before starting the server.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
