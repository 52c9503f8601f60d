package api

import (
	"context"
	"net/http"

	"example.com/backstage/services/tenders/api/middleware"
	"example.com/backstage/services/tenders/api/routes"
	"example.com/backstage/services/tenders/config"
	"example.com/backstage/services/tenders/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog/log"
)

// Server represents the HTTP server
type Server struct {
	router     *gin.Engine
	config     *config.Config
	httpServer *http.Server
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, nrApp *newrelic.Application, svc service.EventOrchestrator) *Server {
	gin.SetMode(cfg.Server.Mode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.Server.CorsOrigins))
	router.Use(middleware.Logger())
	if nrApp != nil {
		router.Use(nrgin.Middleware(nrApp), middleware.TransactionAttributes())
	}

	routes.SetupRoutes(router, svc, cfg.Auth)

	return &Server{
		router: router,
		config: cfg,
		httpServer: &http.Server{
			Addr:         cfg.Server.Address,
			Handler:      router,
			ReadTimeout:  cfg.Server.Timeout,
			WriteTimeout: cfg.Server.Timeout,
		},
	}
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.Server.Address).Msg("Starting server")
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
