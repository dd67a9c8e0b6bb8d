// Package config holds the environment-variable surface shared by the API
// and worker tiers, plus YAML fixture loading for DER configurations.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Deploy environments. DeployEnv must be exactly one of these.
const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

// Config is the application configuration read from the environment.
type Config struct {
	// DeployEnv is the deployment environment name (APP_ENV).
	DeployEnv string
	Debug     bool

	// SecretKey is the bearer token expected in Authorization headers.
	SecretKey string

	// AdminPath is the URL prefix the admin route group is mounted at.
	AdminPath string

	// TLSRedirect redirects plain-HTTP requests (by X-Forwarded-Proto)
	// to HTTPS.
	TLSRedirect bool

	// WorkerRole marks this process as the asynchronous worker tier. The
	// worker binary refuses to consume tasks without it.
	WorkerRole bool

	CORSOrigins []string
	ListenAddr  string

	PVWattsAPIKey string

	Database Database
	Storage  Storage
	Queue    Queue
}

// Database holds PostgreSQL connection settings (SQL_* variables).
type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns a lib/pq connection string.
func (d Database) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// Storage holds S3 object-store settings.
type Storage struct {
	Region        string
	StorageBucket string
	MediaBucket   string
}

// Queue holds task-queue consumer settings.
type Queue struct {
	Name         string
	PollInterval time.Duration
	MaxAttempts  int
	Concurrency  int
}

// FromEnv reads configuration from the environment and validates it.
func FromEnv() (*Config, error) {
	c := &Config{
		DeployEnv:     getenv("APP_ENV", EnvDev),
		Debug:         envBool("DEBUG"),
		SecretKey:     os.Getenv("SECRET_KEY"),
		AdminPath:     getenv("ADMIN_PATH", "admin"),
		TLSRedirect:   envBool("TLS_REDIRECT"),
		WorkerRole:    envBool("WORKER_ROLE"),
		ListenAddr:    getenv("LISTEN_ADDR", ":8000"),
		PVWattsAPIKey: os.Getenv("PVWATTS_API_KEY"),
		Database: Database{
			Host:     getenv("SQL_HOST", "localhost"),
			Port:     getenv("SQL_PORT", "5432"),
			User:     getenv("SQL_USER", "user"),
			Password: getenv("SQL_PASSWORD", "password"),
			Name:     getenv("SQL_NAME", "navigader"),
			SSLMode:  getenv("SQL_SSLMODE", "disable"),
		},
		Storage: Storage{
			Region:        getenv("AWS_REGION", "us-west-1"),
			StorageBucket: os.Getenv("AWS_STORAGE_BUCKET_NAME"),
			MediaBucket:   os.Getenv("AWS_MEDIA_BUCKET_NAME"),
		},
		Queue: Queue{
			Name:         getenv("TASK_QUEUE_NAME", "navigader"),
			PollInterval: envDuration("TASK_POLL_INTERVAL", time.Second),
			MaxAttempts:  envInt("TASK_MAX_ATTEMPTS", 3),
			Concurrency:  envInt("TASK_CONCURRENCY", 4),
		},
	}
	if origins := os.Getenv("CORS_ORIGIN_WHITELIST"); origins != "" {
		c.CORSOrigins = strings.Fields(origins)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate rejects configurations the deploy scripts would refuse.
func (c *Config) Validate() error {
	switch c.DeployEnv {
	case EnvDev, EnvStaging, EnvProd:
	default:
		return errors.Errorf(
			"APP_ENV must be one of %s, %s, %s; got %q",
			EnvDev, EnvStaging, EnvProd, c.DeployEnv,
		)
	}
	if c.Queue.MaxAttempts < 1 {
		return errors.New("TASK_MAX_ATTEMPTS must be at least 1")
	}
	if c.Queue.Concurrency < 1 {
		return errors.New("TASK_CONCURRENCY must be at least 1")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
