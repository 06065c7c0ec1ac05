package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DBConfig holds database configuration
type DBConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// WorkerConfig holds the queue worker settings
type WorkerConfig struct {
	Schedule    string
	BatchSize   int
	Concurrency int
	JobTimeout  time.Duration
}

// Config holds all configuration for the application
type Config struct {
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	ClassifierModel string
	GenerationModel string
	InputFidelity   string
	RequestTimeout  time.Duration
	RetryAttempts   int
	UploadDir       string
	GeneratedDir    string
	Worker          WorkerConfig
	DB              DBConfig
}

// Load loads the configuration from environment variables. A .env file in
// the working directory is read when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	// A missing API key is not an error here; the first remote call reports it.
	config := &Config{
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   getString("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ClassifierModel: getString("CLASSIFIER_MODEL", "gpt-5-mini-2025-08-07"),
		GenerationModel: getString("GENERATION_MODEL", "gpt-5"),
		InputFidelity:   getString("INPUT_FIDELITY", "high"),
		RequestTimeout:  getSeconds("REQUEST_TIMEOUT", 10*time.Minute),
		RetryAttempts:   getInt("RETRY_ATTEMPTS", 1),
		UploadDir:       getString("UPLOAD_DIR", "uploads"),
		GeneratedDir:    getString("GENERATED_DIR", "static/generated_images"),
	}

	config.Worker = WorkerConfig{
		Schedule:    getString("WORKER_SCHEDULE", "0 */1 * * * *"),
		BatchSize:   getInt("WORKER_BATCH_SIZE", 4),
		Concurrency: getInt("WORKER_CONCURRENCY", 2),
		JobTimeout:  getSeconds("JOB_TIMEOUT", 15*time.Minute),
	}

	// Load database configuration
	config.DB = DBConfig{
		Host:            os.Getenv("DB_HOST"),
		Port:            getInt("DB_PORT", 5432),
		User:            os.Getenv("DB_USER"),
		Password:        os.Getenv("DB_PASSWORD"),
		Database:        os.Getenv("DB_NAME"),
		SSLMode:         getString("DB_SSL_MODE", "disable"),
		MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 25),
		ConnMaxLifetime: getSeconds("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	if config.RetryAttempts < 1 {
		return nil, fmt.Errorf("RETRY_ATTEMPTS must be at least 1")
	}
	if config.Worker.BatchSize < 1 {
		return nil, fmt.Errorf("WORKER_BATCH_SIZE must be at least 1")
	}
	if config.Worker.Concurrency < 1 {
		return nil, fmt.Errorf("WORKER_CONCURRENCY must be at least 1")
	}

	return config, nil
}

// ValidateDB checks the settings required to open the Postgres store
func (c *Config) ValidateDB() error {
	if c.DB.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.DB.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.DB.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.DB.Database == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return fallback
}

func getSeconds(key string, fallback time.Duration) time.Duration {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return time.Duration(value) * time.Second
	}
	return fallback
}
