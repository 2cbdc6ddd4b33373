package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/vaxportal/internal/app/controllers"
	"github.com/yigit/vaxportal/internal/app/models"
	"github.com/yigit/vaxportal/internal/middleware"
)

// Controllers groups the API handlers mounted under /api/v1
type Controllers struct {
	Auth      *controllers.AuthController
	Student   *controllers.StudentController
	Drive     *controllers.DriveController
	Record    *controllers.RecordController
	Dashboard *controllers.DashboardController
	Report    *controllers.ReportController
}

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	ctrl Controllers,
	authMiddleware *middleware.AuthMiddleware,
	loginLimiter gin.HandlerFunc,
	activityFeed gin.HandlerFunc,
) {
	v1 := router.Group("/api/v1")

	// --- Public Auth routes ---
	v1.POST("/auth/login", loginLimiter, ctrl.Auth.Login)

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	auth := authenticated.Group("/auth")
	{
		auth.GET("/me", ctrl.Auth.Me)
		auth.POST("/register", authMiddleware.RoleRequired(models.RoleAdmin), ctrl.Auth.Register)
	}

	students := authenticated.Group("/students")
	{
		students.GET("", ctrl.Student.ListStudents)
		students.POST("", ctrl.Student.CreateStudent)
		students.POST("/import", ctrl.Student.ImportStudents)
		students.GET("/:id", ctrl.Student.GetStudent)
		students.PUT("/:id", ctrl.Student.UpdateStudent)
		students.DELETE("/:id", ctrl.Student.DeleteStudent)
	}

	drives := authenticated.Group("/vaccination-drives")
	{
		drives.GET("", ctrl.Drive.ListDrives)
		drives.POST("", ctrl.Drive.CreateDrive)
		drives.GET("/:id", ctrl.Drive.GetDrive)
		drives.PUT("/:id", ctrl.Drive.UpdateDrive)
		drives.DELETE("/:id", ctrl.Drive.DeleteDrive)
	}

	records := authenticated.Group("/vaccination-records")
	{
		records.GET("", ctrl.Record.ListRecords)
		records.POST("", ctrl.Record.RecordVaccination)
		records.DELETE("/:id", ctrl.Record.RemoveVaccinationRecord)
	}

	dashboard := authenticated.Group("/dashboard")
	{
		dashboard.GET("/stats", ctrl.Dashboard.Stats)
		dashboard.GET("/vaccination-progress", ctrl.Dashboard.VaccinationProgress)
		dashboard.GET("/upcoming-drives", ctrl.Dashboard.UpcomingDrives)
		dashboard.GET("/activity-logs", ctrl.Dashboard.RecentActivity)
		if activityFeed != nil {
			dashboard.GET("/activity/ws", activityFeed)
		}
	}

	authenticated.GET("/reports/vaccinations", ctrl.Report.VaccinationReport)
}
