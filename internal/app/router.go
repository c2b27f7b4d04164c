package app

import (
	"desorientado_backend/docs"
	"desorientado_backend/internal/config"
	"desorientado_backend/internal/middleware"
	"desorientado_backend/internal/model"
	"desorientado_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. public, some with optional identity
	a.registerPublicRoutes(router, c, cfg)

	// 2. learner routes
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerLearnerRoutes(authGroup, c)
	}

	// 3. admin routes
	a.registerAdminRoutes(router, c, repos, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
		public.GET("/lessons", c.lesson.ListLessons)
		public.GET("/leaderboard", middleware.TryAuthMiddleware(cfg), c.leaderboard.GetLeaderboard)
		public.POST("/code/highlight", c.code.Highlight)
		public.POST("/code/edit", c.code.EditKey)
	}
}

func (a *App) registerLearnerRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/profile", c.auth.GetProfile)

	progress := group.Group("/progress")
	{
		progress.GET("", c.progress.GetProgress)
		progress.POST("/lessons/:lessonId/complete", c.progress.CompleteLesson)
		progress.POST("/lessons/:lessonId/quiz", c.progress.SubmitQuiz)
		progress.POST("/lessons/:lessonId/favorite", c.progress.ToggleFavorite)
		progress.GET("/history", c.progress.GetHistory)
		progress.GET("/reviews", c.progress.GetReviews)
	}

	group.POST("/code/run", c.code.RunCode)
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(
		middleware.AuthMiddleware(cfg),
		middleware.ActivityMiddleware(repos.user),
		middleware.RoleMiddleware(model.Admin),
	)
	{
		admin.GET("/dashboard", c.dashboard.GetDashboard)
		admin.GET("/users/:id/progress", c.admin.GetUserProgress)
		admin.POST("/users/:id/progress/reset", c.admin.ResetUserProgress)
		admin.POST("/export", c.admin.ExportProgress)
	}
}
