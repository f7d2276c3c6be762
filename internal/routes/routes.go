package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"telehealth-server/internal/config"
	"telehealth-server/internal/handlers"
	"telehealth-server/internal/middleware"
	"telehealth-server/internal/models"
	"telehealth-server/internal/notification"
	"telehealth-server/internal/scheduling"
	"telehealth-server/internal/utils"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, mailer *notification.Dispatcher, logger zerolog.Logger) {
	utils.RegisterValidators()

	scheduler := scheduling.NewService(
		scheduling.NewGormRepository(db, cfg.StoreTimeout),
		scheduling.NewGormDirectory(db, cfg.StoreTimeout),
		mailer,
		logger,
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg, mailer)
	userHandler := handlers.NewUserHandler(db, cfg)
	appointmentHandler := handlers.NewAppointmentHandler(scheduler)
	chatHandler := handlers.NewChatHandler(db, cfg)
	dietHandler := handlers.NewDietHandler(db, cfg)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/patients/register", authHandler.RegisterPatient)
			authRoutes.POST("/doctors/register", authHandler.RegisterDoctor)
			authRoutes.POST("/login", authHandler.Login)

			otpRoutes := authRoutes.Group("/otp")
			otpRoutes.Use(middleware.RateLimit(middleware.RateLimitConfig{
				RequestsPerMinute: cfg.OTPRatePerMinute,
			}))
			{
				otpRoutes.POST("/send", authHandler.SendOTP)
				otpRoutes.POST("/verify", authHandler.VerifyOTP)
			}
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		private.GET("/users/me", userHandler.GetProfile)
		private.PUT("/users/me", userHandler.UpdateProfile)

		doctorRoutes := private.Group("/doctors")
		{
			doctorRoutes.GET("", userHandler.GetDoctors)
			doctorRoutes.GET("/:id", userHandler.GetDoctorProfile)

			// Doctor-only
			self := doctorRoutes.Group("/me")
			self.Use(middleware.RoleAuthMiddleware(models.RoleDoctor))
			{
				self.PUT("/availability", userHandler.SetAvailability)
				self.GET("/dashboard", appointmentHandler.GetDoctorDashboard)
				self.GET("/patients", appointmentHandler.GetDoctorPatients)
			}
		}

		// Role checks for appointments happen in the handlers.
		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("/availability", appointmentHandler.CheckAvailability)
			appointmentRoutes.POST("/block", appointmentHandler.BlockDoctorCalendar)
			appointmentRoutes.GET("/doctor", appointmentHandler.GetDoctorAppointmentsByDate)
			appointmentRoutes.GET("/doctor/history", appointmentHandler.GetDoctorAppointmentsByStatus)
			appointmentRoutes.GET("/patient", appointmentHandler.GetPatientAppointments)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			appointmentRoutes.PATCH("/:id/status", appointmentHandler.UpdateAppointmentStatus)
			appointmentRoutes.POST("/:id/report", appointmentHandler.AddAppointmentReport)
			appointmentRoutes.POST("/:id/reschedule", appointmentHandler.RescheduleAppointment)
			appointmentRoutes.POST("/:id/recurrence", appointmentHandler.GenerateWeeklyAppointment)
		}

		chatRoutes := private.Group("/chats")
		{
			chatRoutes.POST("", chatHandler.CreateOrGetChat)
			chatRoutes.GET("/doctor", chatHandler.GetDoctorChats)
			chatRoutes.GET("/patient", chatHandler.GetPatientChats)
			chatRoutes.GET("/:id/messages", chatHandler.GetMessages)
			chatRoutes.POST("/:id/messages", chatHandler.SendMessage)
			chatRoutes.POST("/:id/read", chatHandler.MarkChatRead)
		}

		dietRoutes := private.Group("/diet")
		{
			dietRoutes.POST("", dietHandler.SaveDietPlan)
			dietRoutes.GET("/doctor", dietHandler.GetDietForDoctor)
			dietRoutes.GET("/patient", dietHandler.GetDietForPatient)
			dietRoutes.GET("/patients", dietHandler.GetDoctorDietPatients)
			dietRoutes.GET("/status", dietHandler.GetDietStatus)
			dietRoutes.PATCH("/status", dietHandler.UpdateDietStatus)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
}
