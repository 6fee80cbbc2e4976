package api

import (
	"alcyxob/coach-scheduler/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	scopeResolver service.ScopeResolver,
	authService service.AuthService,
	scheduleService service.ScheduleService,
	lifecycleService service.LifecycleService,
	availabilityService service.AvailabilityService,
	clientService service.ClientService,
	analyticsService service.AnalyticsService,
	slotService service.SlotService,
	gradingService service.GradingService,
) {
	authHandler := NewAuthHandler(authService)
	sessionHandler := NewSessionHandler(scheduleService, lifecycleService)
	availabilityHandler := NewAvailabilityHandler(availabilityService)
	clientHandler := NewClientHandler(clientService, analyticsService)
	slotHandler := NewSlotHandler(slotService)
	gradingHandler := NewGradingHandler(gradingService)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	// Everything below runs with a resolved CoachScope. Callers without
	// credentials are unscoped, not rejected.
	scoped := apiV1.Group("")
	scoped.Use(ScopeMiddleware(jwtSecret, scopeResolver))
	{
		scoped.GET("/me", func(c *gin.Context) {
			scope := getScopeFromContext(c)
			resp := gin.H{"scope": scope.String()}
			if id, ok := scope.CoachID(); ok {
				resp["coachId"] = id.Hex()
			}
			c.JSON(http.StatusOK, resp)
		})
		scoped.POST("/auth/deactivate", authHandler.Deactivate)

		// --- Sessions ---
		sessionGroup := scoped.Group("/sessions")
		{
			sessionGroup.POST("/preview", sessionHandler.PreviewRecurrence)
			sessionGroup.POST("", sessionHandler.CreateSession)
			sessionGroup.POST("/recurring", sessionHandler.CreateRecurringSessions)
			sessionGroup.POST("/bulk-cancel", sessionHandler.BulkCancel)
			sessionGroup.POST("/assign-to-slot", slotHandler.AssignClientToSlot)
			sessionGroup.GET("", sessionHandler.ListSessions)
			sessionGroup.GET("/:id", sessionHandler.GetSession)
			sessionGroup.DELETE("/:id", sessionHandler.PurgeSession)

			// Lifecycle
			sessionGroup.POST("/:id/status", sessionHandler.Transition)
			sessionGroup.POST("/:id/start", sessionHandler.StartSession)
			sessionGroup.POST("/:id/complete", sessionHandler.CompleteSession)
			sessionGroup.POST("/:id/attendance", sessionHandler.MarkAttendance)
			sessionGroup.POST("/:id/cancel", sessionHandler.CancelSession)
			sessionGroup.PUT("/:id/reschedule", sessionHandler.RescheduleSession)
		}

		// --- Availability ---
		availabilityGroup := scoped.Group("/availability")
		{
			availabilityGroup.GET("", availabilityHandler.GetProfile)
			availabilityGroup.PUT("/days", availabilityHandler.ReplaceWorkingDays)
			availabilityGroup.GET("/holidays", availabilityHandler.ListHolidays)
			availabilityGroup.POST("/holidays", availabilityHandler.AddHoliday)
			availabilityGroup.DELETE("/holidays/:id", availabilityHandler.DeleteHoliday)
			availabilityGroup.GET("/slots", slotHandler.ListTimeSlots)
			availabilityGroup.POST("/slots", slotHandler.CreateTimeSlot)
			availabilityGroup.DELETE("/slots/:id", slotHandler.DeleteTimeSlot)
		}

		// --- Clients ---
		clientGroup := scoped.Group("/clients")
		{
			clientGroup.POST("", clientHandler.CreateClient)
			clientGroup.GET("", clientHandler.ListClients)
			clientGroup.GET("/:id", clientHandler.GetClient)
			clientGroup.DELETE("/:id", clientHandler.DeleteClient)
		}

		// --- Progress ---
		progressGroup := scoped.Group("/progress")
		{
			progressGroup.POST("", clientHandler.RecordProgress)
			progressGroup.GET("/client/:clientId", clientHandler.ListProgress)
			progressGroup.GET("/consistency/:clientId", clientHandler.GetConsistency)
			progressGroup.POST("/:id/attachment-url", clientHandler.RequestAttachmentUploadURL)
			progressGroup.GET("/:id/attachment-url", clientHandler.GetAttachmentDownloadURL)
		}

		// --- Grades ---
		gradeGroup := scoped.Group("/grades")
		{
			gradeGroup.POST("/session", gradingHandler.GradeSession)
			gradeGroup.GET("/client/:clientId", gradingHandler.ListClientGrades)
		}
	}
}
