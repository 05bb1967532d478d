package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vgnt/transport-portal/internal/config"
	"github.com/vgnt/transport-portal/internal/dashboard"
	"github.com/vgnt/transport-portal/internal/database"
	"github.com/vgnt/transport-portal/internal/events"
	"github.com/vgnt/transport-portal/internal/feed"
	"github.com/vgnt/transport-portal/internal/handlers"
	"github.com/vgnt/transport-portal/internal/location"
	"github.com/vgnt/transport-portal/internal/metrics"
	"github.com/vgnt/transport-portal/internal/middleware"
	"github.com/vgnt/transport-portal/internal/models"
	"github.com/vgnt/transport-portal/internal/services"
	"github.com/vgnt/transport-portal/internal/session"
	"github.com/vgnt/transport-portal/pkg/jwt"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

type tripEvents interface {
	services.TripEventPublisher
	Close() error
}

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting VGNT Transport Portal backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	stops, err := config.LoadStops(cfg.Bus.RouteFile)
	if err != nil {
		logger.Fatalf("Failed to load route stops: %v", err)
	}
	logger.WithFields(logrus.Fields{
		"bus_id": cfg.Bus.ID,
		"route":  cfg.Bus.RouteName,
		"stops":  len(stops),
	}).Info("Route loaded")

	// Repositories
	studentRepository := database.NewStudentRepository(db)
	busRepository := database.NewBusRepository(db)
	routeRepository := database.NewRouteRepository(db)

	collector := metrics.NewCollector()

	// Live location feed
	var busFeed feed.Feed
	switch cfg.Feed.Backend {
	case "postgres":
		busFeed, err = feed.NewPGFeed(db, cfg.Database.URL, cfg.Feed.Channel, logger)
		if err != nil {
			logger.Fatalf("Failed to start postgres feed: %v", err)
		}
	case "nats":
		nc, err := feed.NewNATSConn(cfg.NATS.URL, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to NATS: %v", err)
		}
		busFeed = feed.NewNATSFeed(nc, cfg.NATS.SubjectPrefix, logger)
	default:
		busFeed = feed.NewMemoryFeed()
	}
	logger.WithField("backend", cfg.Feed.Backend).Info("Location feed ready")

	// GPS source. Only the push source accepts fixes over HTTP.
	var (
		source     location.Source
		fixes      handlers.FixReceiver
		mqttClient mqtt.Client
	)
	switch cfg.Tracking.Source {
	case "mqtt":
		mqttClient, err = location.NewMQTTClient(cfg.MQTT, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to MQTT broker: %v", err)
		}
		topic := location.Topic(cfg.MQTT.TopicPrefix, cfg.Bus.ID)
		source = location.NewMQTTSource(mqttClient, topic, logger, nil)
		logger.WithField("topic", topic).Info("GPS fixes read from MQTT")
	default:
		push := location.NewPushSource(nil)
		source = push
		fixes = push
		logger.Info("GPS fixes accepted over HTTP")
	}

	// Trip lifecycle events
	var tripEventPublisher tripEvents
	if cfg.RabbitMQ.URL != "" {
		conn, err := events.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			logger.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		tripEventPublisher, err = events.NewRabbitMQPublisher(conn, cfg.RabbitMQ.Exchange)
		if err != nil {
			logger.Fatalf("Failed to open RabbitMQ channel: %v", err)
		}
		logger.WithField("exchange", cfg.RabbitMQ.Exchange).Info("Trip events published to RabbitMQ")
	} else {
		tripEventPublisher = events.NewLogPublisher(logger)
	}

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)

	tracker := services.NewTripTracker(services.TrackerConfig{
		BusID:        cfg.Bus.ID,
		TerminusName: cfg.Bus.TerminusName,
		Stops:        stops,
		Watch: location.WatchOptions{
			MaxAge:  cfg.Tracking.MaxFixAge,
			Timeout: cfg.Tracking.Timeout,
		},
	}, source, services.NewBusLocationSink(cfg.Bus.ID, busRepository, busFeed), tripEventPublisher, collector, logger)

	roster := services.NewAttendanceRoster(services.DefaultRoster())
	auditService := services.NewAuditService(logger)
	authService := services.NewAuthService(studentRepository, jwtService, cfg.Staff, cfg.Bus.DriverName, auditService, collector, logger)

	var cronService *services.CronService
	if cfg.Cron.Enabled {
		cronService = services.NewCronService(cfg.Cron, tracker, roster, logger)
		if err := cronService.Start(); err != nil {
			logger.Fatalf("Failed to start cron service: %v", err)
		}
	}

	deps := &dashboard.Deps{
		Bus:      cfg.Bus,
		Stops:    stops,
		Students: studentRepository,
		Buses:    busRepository,
		Routes:   routeRepository,
		Seats:    services.NewSeatLayoutService(studentRepository),
		Trip:     tracker,
		Roster:   roster,
		Logger:   logger,
	}
	logger.Info("Services initialized")

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, auditService, logger)
	dashboardHandler := handlers.NewDashboardHandler(deps, logger)
	driverHandler := handlers.NewDriverHandler(tracker, fixes, roster, logger)
	busHandler := handlers.NewBusHandler(cfg.Bus.ID, busRepository, busFeed, collector, logger)
	managementHandler := handlers.NewManagementHandler(deps)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger, collector))

	// CORS middleware; credentials are needed for the session cookie
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(session.Middleware(cfg.Session, session.NewStore(cfg.Session)))

	// Health check endpoint, with job status when cron runs
	var cronStatus func() map[string]interface{}
	if cronService != nil {
		cronStatus = cronService.JobStatus
	}
	router.GET("/health", healthCheckHandler(db, cronStatus))

	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(collector.Handler()))
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
		}

		protected := v1.Group("")
		protected.Use(middleware.RequireSession(jwtService, logger))
		{
			protected.POST("/auth/logout", authHandler.Logout)
			protected.GET("/auth/session", authHandler.Session)
			protected.GET("/dashboard", dashboardHandler.Get)

			// Driver routes
			driver := protected.Group("/driver")
			driver.Use(middleware.RequireRole(models.RoleDriver))
			{
				driver.GET("/trip", driverHandler.GetTrip)
				driver.POST("/trip/start", driverHandler.StartTrip)
				driver.POST("/trip/stop", driverHandler.StopTrip)
				driver.POST("/location", driverHandler.PushLocation)
				driver.POST("/location/error", driverHandler.ReportLocationError)
				driver.GET("/attendance", driverHandler.GetAttendance)
				driver.POST("/attendance/:id/toggle", driverHandler.ToggleAttendance)
			}

			// Live bus location for students and management
			bus := protected.Group("/bus")
			bus.Use(middleware.RequireRole(models.RoleStudent, models.RoleManagement))
			{
				bus.GET("/state", busHandler.GetState)
				bus.GET("/stream", busHandler.Stream)
			}

			// Management routes
			management := protected.Group("/management")
			management.Use(middleware.RequireRole(models.RoleManagement))
			{
				management.GET("/students", managementHandler.ListStudents)
				management.GET("/fleet", managementHandler.ListFleet)
				management.GET("/seats", managementHandler.GetSeats)
			}
		}
	}

	// WriteTimeout stays zero so the live bus stream is not cut off
	srv := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	srv.RegisterOnShutdown(busHandler.Shutdown)

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if cronService != nil {
		cronService.Stop()
	}

	gracefulShutdown(logger, srv, tracker, 30*time.Second, 10*time.Second)

	if err := busFeed.Close(); err != nil {
		logger.WithError(err).Warn("Location feed did not close cleanly")
	}
	if err := tripEventPublisher.Close(); err != nil {
		logger.WithError(err).Warn("Trip event publisher did not close cleanly")
	}
	if mqttClient != nil {
		mqttClient.Disconnect(250)
	}

	logger.Info("Server exited successfully")
}

// tripCloser stops a running trip
type tripCloser interface {
	Close(ctx context.Context) error
}

// gracefulShutdown drains the server, then stops any running trip. The trip
// gets its own timeout so the bus row is cleared even when draining used
// the whole drain budget.
func gracefulShutdown(logger *logrus.Logger, srv *http.Server, tracker tripCloser, drain, release time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), drain)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	// The tracker releases the GPS watch and clears the bus location
	releaseCtx, releaseCancel := context.WithTimeout(context.Background(), release)
	defer releaseCancel()

	if err := tracker.Close(releaseCtx); err != nil {
		logger.WithError(err).Warn("Trip tracker did not close cleanly")
	}
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger, collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		collector.ObserveRequest(c.Request.Method, route, status, latency)

		// Build log entry with basic fields
		fields := logrus.Fields{
			"status":     status,
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		// Add authorization header presence (not the actual token for security)
		fields["has_auth"] = c.GetHeader("Authorization") != ""

		// Add session context if available
		if sc, ok := session.From(c); ok {
			fields["role"] = sc.Role()
			fields["source"] = sc.Source
		}

		entry := logger.WithFields(fields)

		// Log errors with more details
		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
			return
		}

		// Log based on status code
		if status >= 500 {
			entry.Error("Request completed with server error")
		} else if status >= 400 {
			entry.Warn("Request completed with client error")
		} else {
			entry.Debug("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB, cronStatus func() map[string]interface{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		// Check database connection
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		body := gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		}
		if cronStatus != nil {
			body["cron"] = cronStatus()
		}
		c.JSON(http.StatusOK, body)
	}
}
