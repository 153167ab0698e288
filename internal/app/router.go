package app

import (
	"ttrac_backend/docs"
	"ttrac_backend/internal/config"
	"ttrac_backend/internal/middleware"
	"ttrac_backend/internal/model"
	"ttrac_backend/internal/util"
	"ttrac_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.NoRoute(util.NotFound)

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.profile))
	{
		// 所有登录用户
		a.registerCommonRoutes(authGroup, c)

		// 学生相关接口
		a.registerStudentRoutes(authGroup, c)

		// 教师相关接口
		a.registerFacultyRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerCommonRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.Profile)

	// 通知中心
	notifications := rg.Group("/notifications")
	{
		notifications.GET("/ws", c.notification.HandleWebSocket)
		notifications.GET("", c.notification.List)
		notifications.GET("/unread-count", c.notification.UnreadCount)
		notifications.POST("", c.notification.Create)
		notifications.PATCH("/:id/read", c.notification.MarkRead)
		notifications.POST("/read-all", c.notification.MarkAllRead)
		notifications.DELETE("/:id", c.notification.Delete)
		notifications.DELETE("", c.notification.Clear)
	}

	// 课程（权限在服务层按课程校验）
	rg.GET("/courses/mine", c.course.ListMine)
	rg.GET("/courses/:id/assignments", c.assignment.ListForCourse)
	rg.GET("/courses/:id/materials", c.course.ListMaterials)
	rg.GET("/courses/:id/quizzes", c.quiz.ListForCourse)
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	student := rg.Group("")
	student.Use(middleware.RoleMiddleware(model.Student))
	{
		student.POST("/courses/:id/enroll", c.enrollment.Request)
		student.GET("/enrollments/mine", c.enrollment.ListMine)

		student.POST("/assignments/:id/draft", c.assignment.SaveDraft)
		student.POST("/assignments/:id/submit", c.assignment.Submit)

		student.POST("/quizzes/:id/attempts", c.quiz.StartAttempt)
		student.POST("/quiz-attempts/:id/submit", c.quiz.SubmitAttempt)
	}
}

func (a *App) registerFacultyRoutes(rg *gin.RouterGroup, c *controllers) {
	faculty := rg.Group("/faculty")
	faculty.Use(middleware.RoleMiddleware(model.Faculty))
	{
		faculty.POST("/courses", c.course.Create)
		faculty.POST("/courses/:id/materials", c.course.UploadMaterial)
		faculty.DELETE("/materials/:id", c.course.DeleteMaterial)

		faculty.GET("/courses/:id/enrollments", c.enrollment.ListForCourse)
		faculty.POST("/enrollments/:id/approve", c.enrollment.Approve)
		faculty.POST("/enrollments/:id/decline", c.enrollment.Decline)

		faculty.POST("/courses/:id/assignments", c.assignment.Create)
		faculty.POST("/submissions/:id/grade", c.assignment.Grade)

		faculty.POST("/courses/:id/quizzes", c.quiz.Create)
		faculty.POST("/quizzes/:id/publish", c.quiz.Publish)
		faculty.POST("/quiz-attempts/:id/grades", c.quiz.GradeQuestion)

		faculty.POST("/notifications/generate", c.notification.Generate)
	}
}
