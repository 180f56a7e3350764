package app

import (
	"yoi_portal_backend/docs"
	"yoi_portal_backend/internal/config"
	"yoi_portal_backend/internal/middleware"
	"yoi_portal_backend/internal/util"
	"yoi_portal_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, s *services, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c, cfg)

	// 2. 学员接口：需要登录并已通过审批
	learner := router.Group("/api")
	learner.Use(middleware.AuthMiddleware(&cfg.JWT), middleware.RequireApproved(s.access))
	a.registerLearnerRoutes(learner, c)

	// 3. 管理端接口：讲师或管理员
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(&cfg.JWT), middleware.ReviewerOnly(s.access))
	a.registerAdminRoutes(admin, c)

	// 4. 前端页面访问控制
	a.registerPageRoutes(router, c, s, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.GET("/access/route", middleware.OptionalAuth(&cfg.JWT), c.user.RouteAccess)
	}
}

func (a *App) registerLearnerRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.user.GetProfile)
	rg.PATCH("/profile", c.user.UpdateProfile)

	// 模块与序列进度
	modules := rg.Group("/modules")
	{
		modules.GET("", c.module.ListModules)
		modules.GET("/:id", c.module.GetModule)
		modules.POST("/:id/sequences/:seqId/complete", c.module.CompleteSequence)
		modules.POST("/:id/sequences/:seqId/submissions", c.module.SubmitVideo)
		modules.GET("/:id/sequences/:seqId/response", c.module.GetResponse)
	}

	// 目标设定
	rg.GET("/goals", c.goal.ListGoals)
	rg.POST("/goals", c.goal.SetGoals)
	rg.PATCH("/goals/:id", c.goal.UpdateGoal)

	// 语音反思
	rg.GET("/reflections/voice", c.reflection.ListVoiceReflections)
	rg.POST("/reflections/voice", c.reflection.SaveVoiceReflection)
}

func (a *App) registerAdminRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/stats", c.admin.Stats)

	// 审核
	rg.POST("/unlock", c.review.Unlock)
	rg.GET("/submissions", c.admin.ListSubmissions)
	rg.POST("/submissions/:id/reject", c.review.Reject)
	rg.POST("/uploads/response", c.review.UploadResponse)

	// 学员管理
	rg.GET("/users", c.admin.ListUsers)
	rg.PATCH("/users", c.admin.SetApproval)
	rg.GET("/users/:id/submissions", c.admin.UserSubmissions)

	// 通知
	rg.GET("/notifications", c.notification.List)
	rg.POST("/notifications/:id/read", c.notification.MarkRead)
}

func (a *App) registerPageRoutes(router *gin.Engine, c *controllers, s *services, cfg *config.Config) {
	pages := router.Group("/")
	pages.Use(middleware.OptionalAuth(&cfg.JWT), middleware.AccessGate(s.access, middleware.DefaultGatePrefixes))
	{
		pages.GET(util.DashboardPath, c.user.Page)
		pages.GET("/module/*path", c.user.Page)
		pages.GET("/profile", c.user.Page)
		pages.GET("/admin/*path", c.user.Page)
		pages.GET(util.PendingApprovalPath, c.user.Page)
	}
}
