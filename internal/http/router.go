package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/yungbote/labelbridge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/labelbridge-backend/internal/http/middleware"
	"github.com/yungbote/labelbridge-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	AuthHandler    *httpH.AuthHandler
	AuthMiddleware *httpMW.AuthMiddleware

	ProjectHandler    *httpH.ProjectHandler
	ImageHandler      *httpH.ImageHandler
	AnnotationHandler *httpH.AnnotationHandler
	AssignmentHandler *httpH.AssignmentHandler
	SubmissionHandler *httpH.SubmissionHandler
	DashboardHandler  *httpH.DashboardHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(httpMW.CORS())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/register", cfg.AuthHandler.Register)
			api.POST("/login", cfg.AuthHandler.Login)
			api.POST("/refresh", cfg.AuthHandler.Refresh)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Auth (protected)
		if cfg.AuthHandler != nil {
			protected.POST("/logout", cfg.AuthHandler.Logout)
		}

		// Dashboard
		if cfg.DashboardHandler != nil {
			protected.GET("/dashboard", cfg.DashboardHandler.GetMine)
		}

		// Projects
		if cfg.ProjectHandler != nil {
			protected.POST("/projects", cfg.ProjectHandler.Create)
			protected.GET("/projects", cfg.ProjectHandler.List)
			protected.GET("/projects/:id", cfg.ProjectHandler.Get)
			protected.DELETE("/projects/:id", cfg.ProjectHandler.Delete)
			protected.POST("/projects/:id/members", cfg.ProjectHandler.AddMembers)
			protected.POST("/projects/:id/complete", cfg.ProjectHandler.MarkComplete)
			protected.GET("/projects/:id/stats", cfg.ProjectHandler.GetStats)
		}

		// Images
		if cfg.ImageHandler != nil {
			protected.POST("/projects/:id/images", cfg.ImageHandler.Upload)
			protected.GET("/projects/:id/images", cfg.ImageHandler.ListByProject)
			protected.GET("/images/:id", cfg.ImageHandler.Get)
			protected.DELETE("/images/:id", cfg.ImageHandler.Delete)
			protected.PATCH("/images/:id/status", cfg.ImageHandler.UpdateStatus)
			protected.GET("/images/:id/url", cfg.ImageHandler.SignedURL)
			protected.GET("/images/:id/preview", cfg.ImageHandler.Preview)
		}

		// Annotations
		if cfg.AnnotationHandler != nil {
			protected.PUT("/projects/:id/images/:imageId/annotation", cfg.AnnotationHandler.Save)
			protected.PUT("/projects/:id/images/:imageId/annotation/draft", cfg.AnnotationHandler.Autosave)
			protected.GET("/projects/:id/images/:imageId/annotation", cfg.AnnotationHandler.Get)
			protected.POST("/projects/:id/images/:imageId/annotation/auto", cfg.AnnotationHandler.AutoAnnotate)
		}

		// Assignments
		if cfg.AssignmentHandler != nil {
			protected.POST("/projects/:id/assignments", cfg.AssignmentHandler.Create)
			protected.GET("/projects/:id/assignments", cfg.AssignmentHandler.ListByProject)
			protected.GET("/assignments", cfg.AssignmentHandler.ListMine)
			protected.GET("/assignments/:id", cfg.AssignmentHandler.Get)
		}

		// Submissions
		if cfg.SubmissionHandler != nil {
			protected.POST("/projects/:id/submissions", cfg.SubmissionHandler.Submit)
			protected.GET("/projects/:id/submissions", cfg.SubmissionHandler.ListByProject)
			protected.GET("/projects/:id/submission-status", cfg.SubmissionHandler.UserStatus)
			protected.GET("/submissions/:id", cfg.SubmissionHandler.Get)
			protected.POST("/submissions/:id/review", cfg.SubmissionHandler.Review)
			protected.PATCH("/submissions/:id/feedback", cfg.SubmissionHandler.UpdateImageFeedback)
		}
	}

	return r
}
