package http

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	applog "tracker/internal/log"
	"tracker/internal/middleware/ratelimit"
	"tracker/internal/middleware/security"
	"tracker/internal/middleware/trace"
	"tracker/internal/services"
)

// ServerConfig holds the HTTP-facing settings.
type ServerConfig struct {
	Port        string
	RateLimit   string // empty disables rate limiting
	CORSOrigins []string
	Location    *time.Location
}

type Server struct {
	http.Server
	ledger   *services.LedgerService
	tracer   *trace.Middleware
	location *time.Location
	now      func() time.Time
}

// NewServer builds the gin engine and routes.
func NewServer(cfg ServerConfig, ledger *services.LedgerService, logger *applog.Logger) (*Server, error) {
	if err := registerValidators(); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	s := &Server{
		ledger:   ledger,
		tracer:   trace.NewMiddleware(logger),
		location: loc,
		now:      time.Now,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.tracer.Handler())
	router.Use(security.Headers(security.DefaultHeadersConfig()))
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	if cfg.RateLimit != "" {
		l, err := ratelimit.New(cfg.RateLimit)
		if err != nil {
			return nil, err
		}
		router.Use(ratelimit.Middleware(l))
	}

	s.routes(router)

	s.Server = http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(router *gin.Engine) {
	router.GET("/health", s.handleHealth)

	v1 := router.Group("/api/v1")
	v1.GET("/categories", s.handleCategories)

	owner := v1.Group("/owners/:owner")
	{
		owner.GET("/entries", s.handleListEntries)
		owner.POST("/entries", s.handleCreateEntry)
		owner.DELETE("/entries/:id", s.handleDeleteEntry)

		owner.GET("/templates", s.handleListTemplates)
		owner.POST("/templates", s.handleCreateTemplate)
		owner.DELETE("/templates/:id", s.handleDeleteTemplate)

		owner.POST("/materialize", s.handleMaterialize)
		owner.GET("/dashboard", s.handleDashboard)

		owner.PUT("/budget", s.handleSetBudget)
		owner.DELETE("/budget", s.handleClearBudget)
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", trace.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", trace.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// Start serves until the listener fails or the server is shut down.
func (s *Server) Start() error {
	if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Server.Shutdown(ctx)
}
