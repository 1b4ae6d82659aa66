package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/elofiber/viabilidade-ftth/internal/observability"
	"github.com/elofiber/viabilidade-ftth/internal/proximity"
	"github.com/elofiber/viabilidade-ftth/internal/ratelimit"
	"github.com/elofiber/viabilidade-ftth/services/api/config"
)

// Deps are the collaborators the server does not construct itself. Nil
// fields disable the matching feature.
type Deps struct {
	Limiter ratelimit.Store
	Metrics *observability.Collector
	Logger  *zap.Logger
}

// Server bundles router and dependencies for the viability API.
type Server struct {
	cfg     config.Config
	svc     *proximity.Service
	limiter ratelimit.Store
	metrics *observability.Collector
	log     *zap.Logger
	engine  *gin.Engine
}

// New constructs a server with routes and middleware.
func New(cfg config.Config, svc *proximity.Service, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)

	log := deps.Logger
	if log == nil {
		log = zap.L()
	}

	engine := gin.New()
	server := &Server{
		cfg:     cfg,
		svc:     svc,
		limiter: deps.Limiter,
		metrics: deps.Metrics,
		log:     log,
		engine:  engine,
	}

	engine.Use(recoveryMiddleware(log))
	engine.Use(requestIDMiddleware())
	engine.Use(accessLogMiddleware(log))
	engine.Use(metricsMiddleware(deps.Metrics))
	engine.Use(securityHeadersMiddleware())
	engine.Use(corsMiddleware(cfg.FrontendURL))

	server.registerRoutes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/", s.handleRoot)
	s.engine.GET("/health", handleHealth)
	s.engine.GET("/healthz", handleHealth)
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := s.engine.Group("/api")
	if s.cfg.RateLimitEnabled && s.limiter != nil {
		api.Use(rateLimitMiddleware(s.limiter, s.metrics, s.log))
	}
	if s.cfg.BearerToken != "" {
		api.Use(bearerAuthMiddleware(s.cfg.BearerToken))
	}
	{
		api.GET("/viability", s.handleViability)
		api.GET("/viabilidade", s.handleViability)
		api.GET("/infraestrutura", s.handleInfrastructure)
		api.GET("/estatisticas", s.handleStats)
		api.GET("/extract", s.handleExtract)
	}

	s.engine.POST("/viabilidade", s.handleCheckServing)

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Endpoint não encontrado"})
	})
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "API de Viabilidade FTTH",
		"version": "1.0.0",
		"endpoints": gin.H{
			"viabilidade":    "/api/viability?lat=<latitude>&lng=<longitude>&radius=<metros>",
			"infraestrutura": "/api/infraestrutura?lat=<latitude>&lng=<longitude>",
			"estatisticas":   "/api/estatisticas",
			"extrair":        "/api/extract?input=<link ou coordenadas>",
			"atendimento":    "POST /viabilidade",
			"health":         "/health",
		},
	})
}
