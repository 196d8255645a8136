package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/ars-tn/claims-flow-api/api/swagger"
	"github.com/ars-tn/claims-flow-api/internal/handler"
	"github.com/ars-tn/claims-flow-api/internal/middleware"
	"github.com/ars-tn/claims-flow-api/internal/models"
	"github.com/ars-tn/claims-flow-api/internal/repository"
	"github.com/ars-tn/claims-flow-api/internal/service"
	"github.com/ars-tn/claims-flow-api/pkg/cache"
	"github.com/ars-tn/claims-flow-api/pkg/config"
	"github.com/ars-tn/claims-flow-api/pkg/database"
	"github.com/ars-tn/claims-flow-api/pkg/logger"
	corsmiddleware "github.com/ars-tn/claims-flow-api/pkg/middleware/cors"
	reqidmiddleware "github.com/ars-tn/claims-flow-api/pkg/middleware/requestid"
)

// @title Claims Flow API
// @version 1.0.0
// @description Bordereau lifecycle, corbeille, assignment and workload API
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())

	registerRoutes(r, cfg, db, redisClient, logr)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func registerRoutes(r *gin.Engine, cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) {
	validate := validator.New()

	bordereauRepo := repository.NewBordereauRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	notifier := service.NewLogNotifier(logr)
	slaSvc := service.NewSLAService(cfg.SLA)
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.Enabled)
	authSvc := service.NewAuthService(userRepo, validate, logr, cfg.JWT)
	lifecycleSvc := service.NewLifecycleService(bordereauRepo, clientRepo, userRepo, notifier, metricsSvc, validate, logr)
	assignmentSvc := service.NewAssignmentService(bordereauRepo, assignmentRepo, userRepo, nil, notifier, metricsSvc, cfg.Workload, validate, logr)
	corbeilleSvc := service.NewCorbeilleService(bordereauRepo, documentRepo, slaSvc, logr)
	workloadSvc := service.NewWorkloadService(userRepo, assignmentRepo, notifier, metricsSvc, cfg.Workload, logr)
	dashboardSvc := service.NewDashboardService(bordereauRepo, workloadSvc, slaSvc, cacheSvc, cfg.Dashboard.CacheTTL, logr)
	documentSvc := service.NewDocumentService(documentRepo, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	bordereauHandler := handler.NewBordereauHandler(lifecycleSvc, assignmentSvc, slaSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc)
	corbeilleHandler := handler.NewCorbeilleHandler(corbeilleSvc)
	workloadHandler := handler.NewWorkloadHandler(workloadSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	documentHandler := handler.NewDocumentHandler(documentSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	bo := protected.Group("/bordereaux")
	bo.POST("",
		middleware.RequireRoles(models.RoleBureauOrdre),
		middleware.Audit(userRepo, models.AuditActionIntake, "bordereau"),
		bordereauHandler.Create)
	bo.GET("/:id", bordereauHandler.Get)
	bo.GET("/:id/trail", middleware.RequireRoles(models.RoleChefEquipe), bordereauHandler.Trail)
	bo.GET("/:id/documents", documentHandler.ListByBordereau)
	bo.POST("/:id/scan/start",
		middleware.RequireRoles(models.RoleScanTeam),
		middleware.Audit(userRepo, models.AuditActionTransition, "bordereau"),
		bordereauHandler.StartScan)
	bo.POST("/:id/scan/complete",
		middleware.RequireRoles(models.RoleScanTeam),
		middleware.Audit(userRepo, models.AuditActionTransition, "bordereau"),
		bordereauHandler.CompleteScan)
	bo.POST("/:id/process",
		middleware.RequireRoles(models.RoleGestionnaire, models.RoleGestionnaireSenior, models.RoleChefEquipe),
		middleware.Audit(userRepo, models.AuditActionTransition, "bordereau"),
		bordereauHandler.Process)
	bo.POST("/:id/payment/initiate",
		middleware.RequireRoles(models.RoleFinance),
		middleware.Audit(userRepo, models.AuditActionTransition, "bordereau"),
		bordereauHandler.InitiatePayment)
	bo.POST("/:id/payment/execute",
		middleware.RequireRoles(models.RoleFinance),
		middleware.Audit(userRepo, models.AuditActionTransition, "bordereau"),
		bordereauHandler.ExecutePayment)
	bo.POST("/:id/payment/reject",
		middleware.RequireRoles(models.RoleFinance),
		middleware.Audit(userRepo, models.AuditActionTransition, "bordereau"),
		bordereauHandler.RejectPayment)
	bo.POST("/:id/payment/retry",
		middleware.RequireRoles(models.RoleFinance),
		middleware.Audit(userRepo, models.AuditActionTransition, "bordereau"),
		bordereauHandler.RetryPayment)
	bo.POST("/:id/close",
		middleware.RequireRoles(models.RoleFinance, models.RoleChefEquipe),
		middleware.Audit(userRepo, models.AuditActionTransition, "bordereau"),
		bordereauHandler.Close)
	bo.POST("/:id/reject",
		middleware.RequireRoles(models.RoleGestionnaire, models.RoleGestionnaireSenior, models.RoleChefEquipe),
		middleware.Audit(userRepo, models.AuditActionReject, "bordereau"),
		bordereauHandler.Reject)
	bo.POST("/:id/recuperer",
		middleware.RequireRoles(models.RoleChefEquipe),
		middleware.Audit(userRepo, models.AuditActionRecuperer, "bordereau"),
		bordereauHandler.Recuperer)
	bo.POST("/:id/handle",
		middleware.RequireRoles(models.RoleChefEquipe),
		middleware.Audit(userRepo, models.AuditActionHandlePersonally, "bordereau"),
		bordereauHandler.Handle)
	bo.POST("/:id/difficulte",
		middleware.RequireRoles(models.RoleGestionnaire, models.RoleGestionnaireSenior, models.RoleChefEquipe),
		middleware.Audit(userRepo, models.AuditActionTransition, "bordereau"),
		bordereauHandler.MarkDifficulte)
	bo.POST("/:id/difficulte/resolve",
		middleware.RequireRoles(models.RoleGestionnaire, models.RoleGestionnaireSenior, models.RoleChefEquipe),
		middleware.Audit(userRepo, models.AuditActionTransition, "bordereau"),
		bordereauHandler.ResolveDifficulte)

	protected.POST("/assignments",
		middleware.RequireRoles(models.RoleChefEquipe, models.RoleGestionnaireSenior),
		middleware.Audit(userRepo, models.AuditActionAssignment, "bordereau"),
		assignmentHandler.Assign)

	protected.GET("/corbeille", corbeilleHandler.Corbeille)

	docs := protected.Group("/documents")
	docs.POST("",
		middleware.RequireRoles(models.RoleScanTeam, models.RoleBureauOrdre),
		documentHandler.Create)
	docs.GET("/corbeille", corbeilleHandler.Documents)
	docs.POST("/:id/assign",
		middleware.RequireRoles(models.RoleChefEquipe),
		middleware.Audit(userRepo, models.AuditActionAssignment, "document"),
		documentHandler.Assign)
	docs.PATCH("/:id/status",
		middleware.RequireRoles(models.RoleGestionnaire, models.RoleGestionnaireSenior, models.RoleChefEquipe, models.RoleScanTeam),
		documentHandler.UpdateStatus)

	workload := protected.Group("/workload")
	workload.GET("/handlers/:id", workloadHandler.Handler)
	workload.GET("/teams/:id", middleware.RequireRoles(models.RoleChefEquipe), workloadHandler.Team)

	if cfg.Dashboard.Enabled {
		protected.GET("/dashboard",
			middleware.RequireRoles(models.RoleChefEquipe, models.RoleFinance, models.RoleBureauOrdre),
			dashboardHandler.Overview)
	}
}
