package routes

import (
	"HealPing/cache"
	"HealPing/config"
	"HealPing/controllers"
	"HealPing/database"
	"HealPing/handlers"
	"HealPing/jobs"
	"HealPing/middlewares"
	"HealPing/repositories"
	"HealPing/services"
	"HealPing/utils"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// App holds everything the HTTP server and the dispatcher share.
type App struct {
	Handler    http.Handler
	Dispatcher *jobs.ReminderDispatcher
}

// Build wires repositories, services and handlers over db and cache.
func Build(cfg *config.AppConfig, db *gorm.DB, cache *cache.Cache) (*App, error) {
	tokens, err := utils.NewTokenMaker(cfg.SymmetricKey)
	if err != nil {
		return nil, err
	}

	var mailer utils.Mailer
	if cfg.SMTPConfigured() {
		mailer = utils.NewSMTPMailer(utils.SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.SMTPFrom,
		})
	}
	var sender utils.MessageSender
	if cfg.MessagingGatewayURL != "" {
		sender = utils.NewGatewayClient(cfg.MessagingGatewayURL, cfg.MessagingGatewayToken)
	}

	userRepo := repositories.NewUserRepository(db)
	profileRepo := repositories.NewProfileRepository(db, cache)
	clinicRepo := repositories.NewClinicRepository(db)
	patientRepo := repositories.NewPatientRepository(db, cache)
	appointmentRepo := repositories.NewAppointmentRepository(db)
	reminderRepo := repositories.NewReminderRepository(db)
	dashboardRepo := repositories.NewDashboardRepository(db)

	feed := services.NewChangeFeed(cache)
	sessions := services.NewSessionStore(cache)
	gate := services.NewGate(tokens, sessions, profileRepo)

	authService := services.NewAuthService(userRepo, sessions, tokens, cache, mailer)
	profileService := services.NewProfileService(profileRepo)
	clinicService := services.NewClinicService(clinicRepo, profileRepo, userRepo)
	patientService := services.NewPatientService(patientRepo, feed)
	appointmentService := services.NewAppointmentService(appointmentRepo, patientRepo, profileRepo, feed)
	reminderService := services.NewReminderService(reminderRepo, appointmentRepo, services.NewNotifier(mailer, sender), feed)
	dashboardService := services.NewDashboardService(dashboardRepo, userRepo, patientRepo, appointmentRepo, reminderRepo)

	dispatcher := jobs.NewReminderDispatcher(reminderService, cache, cfg.ReminderInterval, cfg.ReminderBatchSize)

	health := handlers.NewHealthHandler(map[string]handlers.PingFunc{
		"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
		"redis":    func(ctx context.Context) error { return cache.Client().Ping(ctx).Err() },
	})

	router := newRouter(cfg, gate)
	controllers.SetupRootRoute(router, health)
	controllers.NewAuthController(
		handlers.NewAuthHandler(authService, gate),
		handlers.NewProfileHandler(profileService, gate),
	).RegisterRoutes(router)

	reminderHandler := handlers.NewReminderHandler(reminderService, dispatcher)
	controllers.SetupClinicRoutes(router, controllers.ClinicHandlers{
		Clinic:      handlers.NewClinicHandler(clinicService),
		Patient:     handlers.NewPatientHandler(patientService),
		Appointment: handlers.NewAppointmentHandler(appointmentService),
		Reminder:    reminderHandler,
		Dashboard:   handlers.NewDashboardHandler(dashboardService, feed),
	})
	if cfg.BearerToken != "" {
		controllers.SetupInternalRoutes(router, cfg.BearerToken, reminderHandler)
	}

	return &App{Handler: router, Dispatcher: dispatcher}, nil
}

// SetupDegradedRoutes serves only the health report, for a server started
// without its backends configured.
func SetupDegradedRoutes(cfg *config.AppConfig, components map[string]handlers.PingFunc) http.Handler {
	router := newRouter(cfg, nil)
	controllers.SetupRootRoute(router, handlers.NewHealthHandler(components))
	return router
}

func newRouter(cfg *config.AppConfig, gate *services.Gate) *gin.Engine {
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middlewares.Recovery())
	router.Use(middlewares.LoggingMiddleware())
	router.Use(middlewares.CorsMiddleware(middlewares.DefaultCorsConfig(cfg.CORSOrigins)))
	router.Use(middlewares.NewRateLimiterMiddleware(middlewares.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))
	if gate != nil {
		router.Use(middlewares.SessionGate(gate))
	}
	return router
}
