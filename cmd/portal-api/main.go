package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/wisma-sentral/wisma-admin-api/api/swagger"
	"github.com/wisma-sentral/wisma-admin-api/internal/handler"
	"github.com/wisma-sentral/wisma-admin-api/internal/middleware"
	"github.com/wisma-sentral/wisma-admin-api/internal/models"
	"github.com/wisma-sentral/wisma-admin-api/internal/repository"
	"github.com/wisma-sentral/wisma-admin-api/internal/service"
	"github.com/wisma-sentral/wisma-admin-api/pkg/cache"
	"github.com/wisma-sentral/wisma-admin-api/pkg/config"
	"github.com/wisma-sentral/wisma-admin-api/pkg/database"
	"github.com/wisma-sentral/wisma-admin-api/pkg/logger"
	corsmiddleware "github.com/wisma-sentral/wisma-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/wisma-sentral/wisma-admin-api/pkg/middleware/requestid"
)

// @title Wisma Sentral Admin API
// @version 1.0.0
// @description Building administration portal: bulletin documents, signature ledger and store directory
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, directory cache disabled", "error", err)
		redisClient = nil
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	signatureRepo := repository.NewSignatureRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	storeRepo := repository.NewStoreRepository(db)

	// Services
	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Directory.CacheTTL, logr, cfg.Directory.CacheEnabled)
	} else {
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Directory.CacheTTL, logr, false)
	}

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, nil, logr)
	documentSvc := service.NewDocumentService(documentRepo, userRepo, nil, logr)
	signatureSvc := service.NewSignatureService(signatureRepo, documentRepo, membershipRepo, metricsSvc, nil, logr)
	storeSvc := service.NewStoreService(storeRepo, cacheSvc, logr)
	exportSvc := service.NewExportService(signatureSvc, userRepo, service.ExportConfig{
		Enabled: cfg.Exports.Enabled,
		MaxRows: cfg.Exports.MaxRows,
	}, logr)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc, userSvc)
	userHandler := handler.NewUserHandler(userSvc)
	documentHandler := handler.NewDocumentHandler(documentSvc, exportSvc)
	signatureHandler := handler.NewSignatureHandler(signatureSvc)
	storeHandler := handler.NewStoreHandler(storeSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if metricsSvc != nil {
		r.Use(middleware.Metrics(metricsSvc))
	}

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	if metricsSvc != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/register", authHandler.Register)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		}

		stores := api.Group("/stores")
		{
			stores.GET("", storeHandler.List)
			stores.GET("/:id", storeHandler.Get)
		}

		users := api.Group("/users", middleware.JWT(authSvc))
		{
			users.GET("", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), userHandler.List)
			users.GET("/:id", middleware.RBAC("SUPERADMIN", "ADMIN", "SELF"), userHandler.Get)
			users.POST("/:id/approve", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), userHandler.Approve)
			users.POST("/:id/reject", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), userHandler.Reject)
		}

		documents := api.Group("/documents", middleware.JWT(authSvc))
		{
			documents.POST("", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), documentHandler.Create)
			documents.GET("", documentHandler.List)
			documents.GET("/:id", documentHandler.Get)
			documents.POST("/:id/signatures", signatureHandler.Sign)
			documents.GET("/:id/signatures", signatureHandler.List)
			documents.GET("/:id/signatures/export",
				middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin),
				middleware.Audit(userRepo, models.AuditActionExport, "document"),
				documentHandler.Export)
			documents.POST("/:id/visibility-votes", signatureHandler.Vote)
			documents.GET("/:id/tally", signatureHandler.Tally)
		}

		api.PUT("/signatures/:id", middleware.JWT(authSvc), signatureHandler.Revise)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
