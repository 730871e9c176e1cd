package app

import (
	"elearning_backend/docs"
	"elearning_backend/internal/config"
	"elearning_backend/internal/middleware"
	"elearning_backend/internal/model"
	"elearning_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	auth := middleware.AuthMiddleware(cfg, repos.user)

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c, auth)

	// 2. 课程
	a.registerCourseRoutes(router, c, auth)

	// 3. 报名，全部需要登录
	enrollments := router.Group("/api/enrollments")
	enrollments.Use(auth)
	{
		enrollments.POST("/enroll/:courseId", c.enrollment.Enroll)
		enrollments.GET("/my-courses", c.enrollment.MyCourses)
		enrollments.GET("/progress/:courseId", c.enrollment.Progress)
		enrollments.POST("/complete-lesson/:courseId/:lessonId", c.enrollment.CompleteLesson)
		enrollments.DELETE("/unenroll/:courseId", c.enrollment.Unenroll)
		enrollments.POST("/review/:courseId", c.enrollment.Review)
	}

	// 4. 管理员相关接口
	a.registerAdminRoutes(router, c, auth)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers, auth gin.HandlerFunc) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	authGroup := router.Group("/api/auth")
	{
		authGroup.POST("/register", c.auth.Register)
		authGroup.POST("/login", c.auth.Login)
		authGroup.POST("/forgotpassword", c.auth.ForgotPassword)
		authGroup.PUT("/resetpassword/:resettoken", c.auth.ResetPassword)

		authGroup.GET("/me", auth, c.auth.Me)
		authGroup.PUT("/updatedetails", auth, c.auth.UpdateDetails)
		authGroup.PUT("/updatepassword", auth, c.auth.UpdatePassword)
	}
}

func (a *App) registerCourseRoutes(router *gin.Engine, c *controllers, auth gin.HandlerFunc) {
	courses := router.Group("/api/courses")
	{
		courses.GET("", c.course.ListCourses)
		courses.GET("/:id", c.course.GetCourse)
		courses.GET("/:id/lessons", c.course.GetLessons)

		courses.POST("", auth, middleware.RoleMiddleware(model.Instructor), c.course.CreateCourse)

		owned := courses.Group("/:id")
		owned.Use(auth, middleware.CourseOwnership(c.course.CourseService, "id"))
		{
			owned.PUT("", c.course.UpdateCourse)
			owned.DELETE("", c.course.DeleteCourse)
			owned.POST("/lessons", c.course.AddLesson)
			owned.PUT("/lessons/:lessonId", c.course.UpdateLesson)
			owned.DELETE("/lessons/:lessonId", c.course.DeleteLesson)
			owned.GET("/students/export", c.course.ExportRoster)
		}
	}
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, auth gin.HandlerFunc) {
	admin := router.Group("/api/users")
	admin.Use(auth, middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("", c.user.ListUsers)
		admin.POST("", c.user.CreateUser)
		admin.GET("/:id", c.user.GetUser)
		admin.PUT("/:id", c.user.UpdateUser)
		admin.DELETE("/:id", c.user.DeleteUser)
	}
}
