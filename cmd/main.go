package main

import (
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/labelbridge-backend/internal/data/db"
	"github.com/yungbote/labelbridge-backend/internal/data/repos"
	httpServer "github.com/yungbote/labelbridge-backend/internal/http"
	"github.com/yungbote/labelbridge-backend/internal/http/handlers"
	"github.com/yungbote/labelbridge-backend/internal/http/middleware"
	"github.com/yungbote/labelbridge-backend/internal/pkg/logger"
	"github.com/yungbote/labelbridge-backend/internal/platform/gcp"
	"github.com/yungbote/labelbridge-backend/internal/platform/vision"
	"github.com/yungbote/labelbridge-backend/internal/services"
	"github.com/yungbote/labelbridge-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Redis (optional stats cache)
	var redisClient *redis.Client
	if redisAddr := utils.GetEnv("REDIS_ADDR", "", log); redisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: utils.GetEnv("REDIS_PASSWORD", "", log),
		})
	} else {
		log.Info("REDIS_ADDR not set, stats cache disabled")
	}

	// Object storage + Vision
	bucketService, err := gcp.NewBucketService(log)
	if err != nil {
		log.Error("Could not init BucketService", "error", err)
		os.Exit(1)
	}
	localizer, err := vision.NewLocalizer(log)
	if err != nil {
		log.Warn("Could not init Vision localizer, auto-annotation disabled", "error", err)
	}

	// Repos
	log.Info("Setting up repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	projectRepo := repos.NewProjectRepo(thePG, log)
	memberRepo := repos.NewProjectMemberRepo(thePG, log)
	imageRepo := repos.NewImageRepo(thePG, log)
	annotationRepo := repos.NewAnnotationRepo(thePG, log)
	assignmentRepo := repos.NewAssignmentRepo(thePG, log)
	submissionRepo := repos.NewSubmissionRepo(thePG, log)

	// Services
	log.Info("Setting up services from main...")
	authService := services.NewAuthService(log, userRepo, userTokenRepo, jwtSecretKey,
		time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
	statsService := services.NewStatsService(log, projectRepo, imageRepo, redisClient)
	imageService := services.NewImageService(log, bucketService, projectRepo, memberRepo, imageRepo, annotationRepo, statsService)
	annotationService := services.NewAnnotationService(log, bucketService, projectRepo, memberRepo, imageRepo, annotationRepo, assignmentRepo, statsService)
	assignmentService := services.NewAssignmentService(log, projectRepo, memberRepo, imageRepo, assignmentRepo)
	submissionService := services.NewSubmissionService(log, projectRepo, memberRepo, imageRepo, assignmentRepo, submissionRepo, statsService)
	projectService := services.NewProjectService(thePG, log, bucketService, projectRepo, memberRepo, imageRepo, annotationRepo, assignmentRepo, submissionRepo, statsService)
	previewService := services.NewPreviewService(log, bucketService, projectRepo, memberRepo, imageRepo, annotationRepo)
	autoAnnotateService := services.NewAutoAnnotateService(log, bucketService, localizer, projectRepo, memberRepo, imageRepo, annotationService)
	dashboardService := services.NewDashboardService(log, projectRepo, imageRepo, assignmentRepo)

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	projectHandler := handlers.NewProjectHandler(projectService, statsService)
	imageHandler := handlers.NewImageHandler(log, imageService, previewService)
	annotationHandler := handlers.NewAnnotationHandler(annotationService, autoAnnotateService)
	assignmentHandler := handlers.NewAssignmentHandler(assignmentService)
	submissionHandler := handlers.NewSubmissionHandler(submissionService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	healthHandler := handlers.NewHealthHandler()

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	server := httpServer.NewServer(httpServer.RouterConfig{
		Log:               log,
		AuthHandler:       authHandler,
		AuthMiddleware:    authMiddleware,
		ProjectHandler:    projectHandler,
		ImageHandler:      imageHandler,
		AnnotationHandler: annotationHandler,
		AssignmentHandler: assignmentHandler,
		SubmissionHandler: submissionHandler,
		DashboardHandler:  dashboardHandler,
		HealthHandler:     healthHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := server.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
