// Package server exposes the client over HTTP with gin.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edgarlens/factgraph"
	"github.com/edgarlens/factgraph/pkg/config"
	"github.com/edgarlens/factgraph/pkg/server/handlers"
)

// Server represents the HTTP server
type Server struct {
	config *config.Config
	router *gin.Engine
	client factgraph.FactGraph
	logger *slog.Logger
	server *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, client factgraph.FactGraph, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config: cfg,
		client: client,
		logger: logger,
	}
}

// Setup sets up the server routes and middleware
func (s *Server) Setup() {
	gin.SetMode(s.config.Server.Mode)

	s.router = gin.New()
	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware())

	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
}

// setupRoutes sets up all the routes
func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.client)
	searchHandler := handlers.NewSearchHandler(s.client)
	graphHandler := handlers.NewGraphHandler(s.client)
	factsHandler := handlers.NewFactsHandler(s.client)
	ingestHandler := handlers.NewIngestHandler(s.client, s.logger)
	signalsHandler := handlers.NewSignalsHandler(s.client)

	// Health endpoints
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)
	s.router.GET("/live", healthHandler.LivenessCheck)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/search", searchHandler.Search)
		v1.POST("/timeline-search", searchHandler.Timeline)
		v1.GET("/entities", searchHandler.SearchEntities)
		v1.GET("/documents", searchHandler.ListDocuments)

		v1.POST("/facts", factsHandler.Facts)
		v1.POST("/citations", factsHandler.Citations)
		v1.GET("/conflicts", factsHandler.Conflicts)
		v1.POST("/corrections", factsHandler.ApplyCorrection)
		v1.POST("/reproject", factsHandler.Reproject)

		v1.POST("/graph/traverse", graphHandler.Traverse)
		v1.POST("/graph/explain", graphHandler.Explain)

		ingest := v1.Group("/ingest")
		{
			ingest.POST("", ingestHandler.Ingest)
			ingest.POST("/stream", ingestHandler.IngestStream)
		}

		v1.POST("/signals", signalsHandler.UpsertSignal)
		v1.POST("/signals/screen", signalsHandler.Screen)
	}
}

// Start starts the server
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping server")
	return s.server.Shutdown(ctx)
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
