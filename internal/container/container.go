// Package container wires the application together with fx
package container

import (
	"context"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/recipebox/config"
	"github.com/pageza/recipebox/internal/api"
	"github.com/pageza/recipebox/internal/database"
	"github.com/pageza/recipebox/internal/logger"
	"github.com/pageza/recipebox/internal/middleware"
	"github.com/pageza/recipebox/internal/monitoring"
	"github.com/pageza/recipebox/internal/router"
	"github.com/pageza/recipebox/internal/server"
	"github.com/pageza/recipebox/internal/service"
	"github.com/pageza/recipebox/internal/session"
	"github.com/pageza/recipebox/internal/upload"
)

// Module provides every component of the web app
var Module = fx.Options(
	ConfigModule,
	LoggerModule,
	DatabaseModule,
	SessionModule,
	UploadModule,
	ServiceModule,
	HTTPModule,
	LifecycleModule,
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: log.Named("fx")}
	}),
)

var ConfigModule = fx.Provide(config.LoadConfig)

var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, error) {
		return logger.New(logger.Config{
			Level:       cfg.LogLevel,
			Format:      cfg.LogFormat,
			Development: !config.IsProduction(),
		})
	},
)

var DatabaseModule = fx.Provide(
	database.New,
	newRedis,
)

var SessionModule = fx.Provide(
	newSessionStore,
	func(cfg *config.Config, store session.Store, log *zap.Logger) *session.Manager {
		return session.NewManager(store, session.NewCodec(cfg.SessionSecret), session.Options{
			TTL:    cfg.SessionTTL,
			Secure: cfg.SessionCookieSecure,
		}, log)
	},
)

var UploadModule = fx.Provide(
	newImageStorage,
	func(storage upload.Storage) *upload.Acceptor {
		return upload.NewAcceptor(storage)
	},
)

var ServiceModule = fx.Provide(
	fx.Annotate(service.NewAuthService, fx.As(new(service.IAuthService))),
	fx.Annotate(service.NewRecipeService, fx.As(new(service.IRecipeService))),
)

var HTTPModule = fx.Provide(
	monitoring.NewMetrics,
	func(auth service.IAuthService, sessions *session.Manager, metrics *monitoring.Metrics, log *zap.Logger) *api.AuthHandler {
		return api.NewAuthHandler(auth, sessions, metrics, log)
	},
	func(cfg *config.Config, recipes service.IRecipeService, sessions *session.Manager, images *upload.Acceptor, metrics *monitoring.Metrics, log *zap.Logger) *api.RecipeHandler {
		return api.NewRecipeHandler(recipes, sessions, images, metrics, log, cfg.GuardMode == config.GuardStrict)
	},
	api.NewHealthHandler,
	newRouter,
	func(cfg *config.Config, engine *gin.Engine, log *zap.Logger) *server.Server {
		return server.NewServer(cfg.Addr(), engine, log)
	},
)

var LifecycleModule = fx.Invoke(RegisterLifecycleHooks)

// newRedis connects to redis when sessions or rate limits need it. Without
// a reachable redis rate limiting is switched off; the redis session
// backend cannot run without it.
func newRedis(cfg *config.Config, log *zap.Logger) (*redis.Client, error) {
	needSessions := cfg.SessionBackend == "redis"
	if !needSessions && !cfg.RateLimitEnabled {
		return nil, nil
	}

	client, err := database.NewRedisClient(cfg, log)
	if err != nil {
		if needSessions {
			return nil, fmt.Errorf("redis session backend: %w", err)
		}
		log.Warn("redis unavailable, rate limiting disabled", zap.Error(err))
		return nil, nil
	}
	return client, nil
}

func newSessionStore(cfg *config.Config, client *redis.Client) session.Store {
	if cfg.SessionBackend == "redis" {
		return session.NewRedisStore(client)
	}
	return session.NewMemoryStore(session.DefaultCleanupInterval)
}

func newImageStorage(cfg *config.Config, log *zap.Logger) (upload.Storage, error) {
	if cfg.StorageProvider == "s3" {
		s3Cfg, err := config.NewS3Config(context.Background(), cfg)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		log.Info("storing recipe images in s3", zap.String("bucket", s3Cfg.BucketName))
		return upload.NewS3Storage(s3Cfg.Client, s3Cfg.BucketName), nil
	}
	log.Info("storing recipe images on disk", zap.String("dir", cfg.UploadDir))
	return upload.NewDiskStorage(cfg.UploadDir, "/uploads"), nil
}

func newRouter(
	cfg *config.Config,
	log *zap.Logger,
	client *redis.Client,
	sessions *session.Manager,
	metrics *monitoring.Metrics,
	authHandler *api.AuthHandler,
	recipeHandler *api.RecipeHandler,
	healthHandler *api.HealthHandler,
) (*gin.Engine, error) {
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	opts := router.Options{AllowedOrigins: cfg.AllowedOrigins}
	if cfg.StorageProvider == "local" {
		opts.UploadDir = cfg.UploadDir
	}
	if cfg.RateLimitEnabled && client != nil {
		opts.CreateLimit = middleware.NewRecipeCreationRateLimiter(client, cfg.RateLimitCreatePerHour, log).Middleware()
		opts.ModifyLimit = middleware.NewRecipeModificationRateLimiter(client, cfg.RateLimitModifyPerHour, log).Middleware()
	}
	return router.SetupRouter(log, sessions, metrics, authHandler, recipeHandler, healthHandler, opts)
}

// RegisterLifecycleHooks migrates the schema and starts the HTTP server on
// start, and releases every connection on stop.
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	db *gorm.DB,
	client *redis.Client,
	store session.Store,
	srv *server.Server,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("starting recipebox",
				zap.String("environment", string(config.GetEnvironment())),
				zap.String("guard_mode", cfg.GuardMode),
				zap.String("session_backend", cfg.SessionBackend),
			)
			if err := database.RunMigrations(db, log); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			return srv.Start()
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil {
				log.Error("failed to shut down http server", zap.Error(err))
			}
			if closer, ok := store.(io.Closer); ok {
				closer.Close()
			}
			if client != nil {
				if err := client.Close(); err != nil {
					log.Error("failed to close redis client", zap.Error(err))
				}
			}
			if sqlDB, err := db.DB(); err == nil {
				if err := sqlDB.Close(); err != nil {
					log.Error("failed to close database connection", zap.Error(err))
				}
			}
			_ = log.Sync()
			return nil
		},
	})
}
