package routes

import (
	"repairdesk-backend/config"
	"repairdesk-backend/controllers"
	"repairdesk-backend/services"
	"repairdesk-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter(engine *services.Engine, s config.Settings) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Use(config.PerformanceLogger())

	authController := &controllers.AuthController{
		Username:     s.AdminUsername,
		PasswordHash: s.AdminPasswordHash,
		Secret:       s.JWTSecret,
		TTL:          s.TokenTTL,
	}
	auth := r.Group("/auth")
	{
		auth.POST("/login", authController.Login)

		auth.Use(utils.AuthMiddleware(s.JWTSecret))
		auth.GET("/me", authController.Me)
	}

	recordController := &controllers.RecordController{Engine: engine}
	repairController := &controllers.RepairController{Engine: engine}
	renewalController := &controllers.RenewalController{Engine: engine}
	customerController := &controllers.CustomerController{Engine: engine}
	reminderController := &controllers.ReminderController{Engine: engine}
	dashboardController := &controllers.DashboardController{Engine: engine}
	settingsController := &controllers.SettingsController{Engine: engine}
	reportController := &controllers.ReportController{Engine: engine}

	api := r.Group("/api")
	api.Use(utils.AuthMiddleware(s.JWTSecret))
	{
		// Record routes
		records := api.Group("/records")
		{
			records.POST("", recordController.CreateRecord)
			records.GET("", recordController.GetRecords)
			records.GET("/:id", recordController.GetRecord)
			records.PUT("/:id", recordController.UpdateRecord)
			records.DELETE("/:id", recordController.DeleteRecord)

			records.POST("/:id/renew", renewalController.Renew)
			records.GET("/:id/renewals", renewalController.GetRenewals)
			records.POST("/:id/notify", reminderController.NotifyRecord)
		}

		// Repair routes
		repairs := api.Group("/repairs")
		{
			repairs.POST("", repairController.CreateRepair)
			repairs.GET("", repairController.GetRepairs)
			repairs.GET("/track/:code", repairController.TrackRepair)
			repairs.GET("/:id", repairController.GetRepair)
			repairs.PUT("/:id", repairController.UpdateRepair)
			repairs.DELETE("/:id", repairController.DeleteRepair)
		}

		// Customer routes
		customers := api.Group("/customers")
		{
			customers.GET("", customerController.GetCustomers)
			customers.GET("/lookup", customerController.LookupCustomer)
		}

		// Notification routes
		api.GET("/notifications", reminderController.GetNotifications)
		api.POST("/notifications/retry", reminderController.RetryNotifications)
		api.GET("/notifications/:id", reminderController.GetNotification)
		api.POST("/notifications/:id/retry", reminderController.RetryNotification)
		api.GET("/reminders/due", reminderController.GetDueReminders)
		api.POST("/reminders/send", reminderController.SendReminders)

		// Dashboard routes
		api.GET("/dashboard", dashboardController.GetDashboardOverview)

		// Settings routes
		settings := api.Group("/settings")
		{
			settings.GET("", settingsController.GetSettings)
			settings.PUT("/templates", settingsController.UpdateTemplates)
			settings.PUT("/notifications", settingsController.UpdateNotifications)
		}

		// Export and import routes
		api.GET("/export/records", reportController.ExportRecords)
		api.GET("/export/customers", reportController.ExportCustomers)
		api.GET("/export/repairs", reportController.ExportRepairs)
		api.GET("/export/notifications", reportController.ExportNotifications)
		api.POST("/import/records", reportController.ImportRecords)

		admin := api.Group("/admin")
		{
			admin.GET("/backup", reportController.Backup)
			admin.POST("/heal", reportController.Heal)
			admin.POST("/retention", reportController.ApplyRetention)
			admin.GET("/audit", reportController.GetAuditLog)
		}
	}

	return r
}
