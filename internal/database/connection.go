package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/sirupsen/logrus"

	"github.com/vgnt/transport-portal/internal/config"
)

// DB interface defines database operations
type DB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	PingContext(ctx context.Context) error
	Close() error
}

// PostgresDB implements the DB interface using sqlx
type PostgresDB struct {
	*sqlx.DB
}

const applicationName = "vgnt-transport-portal"

var passwordPattern = regexp.MustCompile(`(postgres(?:ql)?://[^:]+:)([^@]+)(@.+)`)

// MaskPassword masks the password in a database URL for safe logging
func MaskPassword(url string) string {
	return passwordPattern.ReplaceAllString(url, "${1}****${3}")
}

// NewConnection creates a new database connection.
// The pgx driver is used by default; "postgres" selects lib/pq.
func NewConnection(cfg config.DatabaseConfig, logger *logrus.Logger) (*PostgresDB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	var (
		db  *sqlx.DB
		err error
	)
	url := withParam(cfg.URL, "application_name", applicationName)
	switch cfg.Driver {
	case "postgres":
		db, err = sqlx.Connect("postgres", url)
	default:
		db, err = connectPgx(url, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool for better stability with connection poolers
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxLifetime / 2)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"driver": db.DriverName(),
		"url":    MaskPassword(cfg.URL),
	}).Info("Database connected")

	return &PostgresDB{DB: db}, nil
}

func connectPgx(url string, logger *logrus.Logger) (*sqlx.DB, error) {
	pgxConfig, err := pgx.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Supabase transaction-mode pooler (port 6543) rejects prepared statements
	if strings.Contains(url, ":6543") {
		pgxConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
		logger.Info("Detected transaction mode pooler, using simple protocol")
	}

	return sqlx.Connect("pgx", stdlib.RegisterConnConfig(pgxConfig))
}

func withParam(url, key, value string) string {
	if strings.Contains(url, key) {
		return url
	}
	separator := "?"
	if strings.Contains(url, "?") {
		separator = "&"
	}
	return url + separator + key + "=" + value
}
