package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"schedulix/backend/config"
	"schedulix/backend/internal/api/handler"
	"schedulix/backend/internal/api/middleware"
	"schedulix/backend/internal/model"
	"schedulix/backend/pkg/jwt"
)

// Deps are the collaborators the middleware chain needs. Tokens and Limiter
// may be nil when Redis is not configured.
type Deps struct {
	JWT     *jwt.Manager
	Tokens  middleware.TokenChecker
	Tenants middleware.TenantChecker
	Limiter middleware.Limiter
	Checks  map[string]handler.Pinger
}

// Setup builds the gin engine.
func Setup(cfg *config.Config, h *handler.Handler, deps Deps, logger *zap.Logger) *gin.Engine {
	if cfg.Server.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	handler.RegisterValidators()

	r := gin.New()

	// ── global middleware ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders(hstsMaxAge(cfg.Server)))
	r.Use(middleware.CORS(cfg.Server.CORS))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── health ──
	r.GET("/health", handler.Health(deps.Checks))

	limit := func() gin.HandlerFunc {
		if !cfg.RateLimit.Enabled {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimit(deps.Limiter, cfg.RateLimit.Limit, cfg.RateLimit.Window, logger)
	}

	admin := middleware.RoleAuth(model.RoleAdmin)
	staff := middleware.RoleAuth(model.RoleAdmin, model.RoleDoctor)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// public
		v1.POST("/company/register", limit(), h.Company.Register)
		auth := v1.Group("/auth")
		{
			auth.POST("/login", limit(), h.Auth.Login)
			auth.POST("/refresh", limit(), h.Auth.RefreshToken)
		}

		// authenticated and bound to the caller's tenant
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(deps.JWT, deps.Tokens, logger))
		authorized.Use(middleware.TenantContext(deps.Tenants, logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			company := authorized.Group("/company")
			{
				company.GET("", h.Company.GetCompany)
				company.PUT("/settings", admin, h.Company.UpdateSettings)
			}

			users := authorized.Group("/users")
			{
				users.POST("", admin, h.User.CreateUser)
				users.GET("", admin, h.User.ListUsers)
				users.GET("/:id", h.User.GetUser) // admin or self, checked by the service
			}

			doctors := authorized.Group("/doctors")
			{
				doctors.GET("", h.Doctor.ListDoctors)
				doctors.GET("/:id", h.Doctor.GetDoctor)
				doctors.PUT("/:id", staff, h.Doctor.UpdateDoctor)
			}

			patients := authorized.Group("/patients")
			{
				patients.GET("", staff, h.Patient.ListPatients)
				patients.GET("/:id", h.Patient.GetPatient)
			}

			slots := authorized.Group("/doctor-time-slots")
			{
				slots.GET("/available", h.Availability.GetAvailableSlots)
				slots.GET("", h.Availability.ListTemplates)
				slots.POST("", staff, h.Availability.CreateTemplate)
				slots.POST("/bulk", staff, h.Availability.BulkCreateTemplates)
				slots.PUT("/:id", staff, h.Availability.UpdateTemplate)
				slots.DELETE("/:id", staff, h.Availability.DeactivateTemplate)
			}

			appointments := authorized.Group("/appointments")
			{
				appointments.GET("", h.Appointment.ListAppointments)
				appointments.POST("", limit(), h.Appointment.CreateAppointment)
				appointments.GET("/stats", h.Appointment.Stats)
				appointments.GET("/export", admin, h.Export.ExportAppointments)
				appointments.GET("/calendar.ics", staff, h.Export.DoctorCalendar)
				appointments.GET("/:id", h.Appointment.GetAppointment)
				appointments.PUT("/:id/confirm", staff, h.Appointment.ConfirmAppointment)
				appointments.PUT("/:id/start", staff, h.Appointment.StartAppointment)
				appointments.PUT("/:id/complete", middleware.RoleAuth(model.RoleDoctor), h.Appointment.CompleteAppointment)
				appointments.PUT("/:id/no-show", staff, h.Appointment.NoShowAppointment)
				appointments.PUT("/:id/cancel", h.Appointment.CancelAppointment)
			}
		}
	}

	return r
}

// hstsMaxAge is zero in development, where the server is reached over
// plain http.
func hstsMaxAge(s config.ServerConfig) time.Duration {
	if s.IsDevelopment() {
		return 0
	}
	return s.HSTSMaxAge
}
