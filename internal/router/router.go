package router

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/recipebox/internal/api"
	"github.com/pageza/recipebox/internal/middleware"
	"github.com/pageza/recipebox/internal/monitoring"
	"github.com/pageza/recipebox/internal/session"
	"github.com/pageza/recipebox/web"
)

// Options holds the router settings that come from configuration
type Options struct {
	AllowedOrigins []string
	// UploadDir is served under /uploads; empty when images live in S3
	UploadDir   string
	CreateLimit gin.HandlerFunc
	ModifyLimit gin.HandlerFunc
}

// SetupRouter configures the application routes
func SetupRouter(
	log *zap.Logger,
	sessions *session.Manager,
	metrics *monitoring.Metrics,
	authHandler *api.AuthHandler,
	recipeHandler *api.RecipeHandler,
	healthHandler *api.HealthHandler,
	opts Options,
) (*gin.Engine, error) {
	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	router := gin.New()
	router.SetHTMLTemplate(tmpl)
	router.Use(
		middleware.RequestID(log),
		middleware.Recovery(log),
		metrics.Middleware(),
		middleware.CORS(opts.AllowedOrigins),
	)

	// Routes without a session
	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", metrics.Handler())
	router.StaticFS("/static", web.Static())
	if opts.UploadDir != "" {
		router.Static("/uploads", opts.UploadDir)
	}

	app := router.Group("", sessions.Middleware())
	authHandler.RegisterPages(app)
	authHandler.RegisterRoutes(app)
	authHandler.RegisterRoutes(app.Group("/api/user"))

	routeOpts := api.RouteOptions{CreateLimit: opts.CreateLimit, ModifyLimit: opts.ModifyLimit}
	recipeHandler.RegisterRoutes(app, routeOpts)
	recipeHandler.RegisterRoutes(app.Group("/api"), routeOpts)

	return router, nil
}
