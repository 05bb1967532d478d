package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// Session cookie configuration
	Session SessionConfig

	// CORS configuration
	CORS CORSConfig

	// Bus and route configuration
	Bus BusConfig

	// GPS watch configuration
	Tracking TrackingConfig

	// Live location feed configuration
	Feed FeedConfig

	MQTT     MQTTConfig
	NATS     NATSConfig
	RabbitMQ RabbitMQConfig

	// Metrics configuration
	Metrics MetricsConfig

	// Driver and management credentials
	Staff StaffConfig

	// Scheduled jobs
	Cron CronConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	Driver             string // "pgx" or "postgres"
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret             string
	RefreshSecret      string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// SessionConfig holds the cookie session settings
type SessionConfig struct {
	Secret   string
	Name     string
	MaxAge   int // seconds
	Secure   bool
	HTTPOnly bool
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// BusConfig describes the single bus this portal serves
type BusConfig struct {
	ID           string
	Number       string
	RouteName    string
	TerminusName string
	RouteFile    string // optional YAML stop list
	DriverName   string
	DriverPhone  string
	Capacity     int
}

// TrackingConfig bounds the driver GPS watch
type TrackingConfig struct {
	MaxFixAge time.Duration
	Timeout   time.Duration
	Source    string // "push" or "mqtt"
}

// FeedConfig selects how bus location changes reach student dashboards
type FeedConfig struct {
	Backend string // "memory", "postgres" or "nats"
	Channel string // LISTEN/NOTIFY channel for the postgres backend
}

// MQTTConfig holds the broker used by GPS devices
type MQTTConfig struct {
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// NATSConfig holds the NATS connection settings
type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

// RabbitMQConfig holds the trip event exchange settings
type RabbitMQConfig struct {
	URL      string
	Exchange string
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// StaffConfig holds bcrypt hashes for the staff roles.
// An empty hash admits the role without a password.
type StaffConfig struct {
	DriverPasswordHash     string
	ManagementPasswordHash string
	BcryptCost             int
}

// CronConfig holds the daily job schedules (with a seconds field)
type CronConfig struct {
	Enabled         bool
	RosterResetSpec string
	TripCutoffSpec  string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			Driver:             getEnv("DATABASE_DRIVER", "pgx"),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", ""),
			RefreshSecret:      getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenExpiry:  time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
			RefreshTokenExpiry: time.Duration(getEnvAsInt("JWT_REFRESH_TOKEN_EXPIRY", 604800)) * time.Second,
		},
		Session: SessionConfig{
			Secret:   getEnv("SESSION_SECRET", ""),
			Name:     getEnv("SESSION_NAME", "vgnt_session"),
			MaxAge:   getEnvAsInt("SESSION_MAX_AGE", 86400),
			Secure:   getEnvAsBool("SESSION_SECURE", false),
			HTTPOnly: getEnvAsBool("SESSION_HTTP_ONLY", true),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Bus: BusConfig{
			ID:           getEnv("BUS_ID", DefaultBusID),
			Number:       getEnv("BUS_NUMBER", "AP39 UW 4074"),
			RouteName:    getEnv("ROUTE_NAME", "Rock Hills Colony Route"),
			TerminusName: getEnv("TERMINUS_NAME", "VGNT College"),
			RouteFile:    getEnv("ROUTE_FILE", ""),
			DriverName:   getEnv("DRIVER_NAME", "CH Srinu"),
			DriverPhone:  getEnv("DRIVER_PHONE", "+91 97055 41626"),
			Capacity:     getEnvAsInt("BUS_CAPACITY", 57),
		},
		Tracking: TrackingConfig{
			MaxFixAge: time.Duration(getEnvAsInt("GPS_MAX_FIX_AGE_MS", 4000)) * time.Millisecond,
			Timeout:   time.Duration(getEnvAsInt("GPS_TIMEOUT_MS", 10000)) * time.Millisecond,
			Source:    getEnv("GPS_SOURCE", "push"),
		},
		Feed: FeedConfig{
			Backend: getEnv("FEED_BACKEND", "memory"),
			Channel: getEnv("FEED_CHANNEL", "bus_location"),
		},
		MQTT: MQTTConfig{
			BrokerURL:   getEnv("MQTT_BROKER_URL", ""),
			ClientID:    getEnv("MQTT_CLIENT_ID", "vgnt-transport-portal"),
			Username:    getEnv("MQTT_USERNAME", ""),
			Password:    getEnv("MQTT_PASSWORD", ""),
			TopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "transport/bus"),
		},
		NATS: NATSConfig{
			URL:           getEnv("NATS_URL", ""),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "transport.bus"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      getEnv("RABBITMQ_URL", ""),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "transport.events"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
		Staff: StaffConfig{
			DriverPasswordHash:     getEnv("DRIVER_PASSWORD_HASH", ""),
			ManagementPasswordHash: getEnv("MANAGEMENT_PASSWORD_HASH", ""),
			BcryptCost:             getEnvAsInt("BCRYPT_COST", 12),
		},
		Cron: CronConfig{
			Enabled:         getEnvAsBool("CRON_ENABLED", true),
			RosterResetSpec: getEnv("CRON_ROSTER_RESET", "0 0 5 * * *"),
			TripCutoffSpec:  getEnv("CRON_TRIP_CUTOFF", "0 0 22 * * *"),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Database.Driver != "pgx" && c.Database.Driver != "postgres" {
		return fmt.Errorf("invalid DATABASE_DRIVER: %s (must be 'pgx' or 'postgres')", c.Database.Driver)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.JWT.RefreshSecret == "" {
		c.JWT.RefreshSecret = c.JWT.Secret
	}

	if c.Session.Secret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}

	if _, err := uuid.Parse(c.Bus.ID); err != nil {
		return fmt.Errorf("BUS_ID must be a UUID: %w", err)
	}

	if c.Tracking.MaxFixAge <= 0 || c.Tracking.Timeout <= 0 {
		return fmt.Errorf("GPS_MAX_FIX_AGE_MS and GPS_TIMEOUT_MS must be positive")
	}

	switch c.Tracking.Source {
	case "push":
	case "mqtt":
		if c.MQTT.BrokerURL == "" {
			return fmt.Errorf("MQTT_BROKER_URL is required when GPS_SOURCE is mqtt")
		}
	default:
		return fmt.Errorf("invalid GPS_SOURCE: %s (must be 'push' or 'mqtt')", c.Tracking.Source)
	}

	switch c.Feed.Backend {
	case "memory", "postgres":
	case "nats":
		if c.NATS.URL == "" {
			return fmt.Errorf("NATS_URL is required when FEED_BACKEND is nats")
		}
	default:
		return fmt.Errorf("invalid FEED_BACKEND: %s (must be 'memory', 'postgres' or 'nats')", c.Feed.Backend)
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
