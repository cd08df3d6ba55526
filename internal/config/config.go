package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Firebase FirebaseConfig
	Location LocationConfig
	Session  SessionConfig
	Maps     MapsConfig
}

type ServerConfig struct {
	Port        string
	Environment string
	JWTSecret   string
	TokenTTL    time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// DatabaseConfig is optional; an empty URL disables the journal
type DatabaseConfig struct {
	URL string
}

type FirebaseConfig struct {
	CredentialsBase64 string
	CredentialsFile   string
	ProjectID         string
	APIKey            string
}

type LocationConfig struct {
	DistanceInterval float64 // meters
	TimeInterval     time.Duration
	PositionTimeout  time.Duration
}

type SessionConfig struct {
	KeyPrefix      string
	StartupTimeout time.Duration
}

type MapsConfig struct {
	APIKey string
}

// Load reads .env if present, then the process environment
func Load() (*Config, error) {
	envFileLoaded := godotenv.Load() == nil

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("APP_ENV", "development"),
			JWTSecret:   os.Getenv("APP_JWT_SECRET"),
			TokenTTL:    24 * time.Hour,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Firebase: FirebaseConfig{
			CredentialsBase64: os.Getenv("FIREBASE_CREDENTIALS_BASE64"),
			CredentialsFile:   getEnv("FIREBASE_CREDENTIALS_FILE", "./firebase-service-account.json"),
			ProjectID:         os.Getenv("FIREBASE_PROJECT_ID"),
			APIKey:            os.Getenv("FIREBASE_API_KEY"),
		},
		Session: SessionConfig{
			KeyPrefix: getEnv("SESSION_KEY_PREFIX", "vatelanka:"),
		},
		Maps: MapsConfig{
			APIKey: os.Getenv("GOOGLE_MAPS_API_KEY"),
		},
	}

	var err error
	if cfg.Redis.DB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.Location.DistanceInterval, err = getFloat("LOCATION_DISTANCE_INTERVAL_M", 10); err != nil {
		return nil, err
	}

	timeIntervalMs, err := getInt("LOCATION_TIME_INTERVAL_MS", 3000)
	if err != nil {
		return nil, err
	}
	cfg.Location.TimeInterval = time.Duration(timeIntervalMs) * time.Millisecond

	positionTimeout, err := getInt("LOCATION_TIMEOUT_SECONDS", 10)
	if err != nil {
		return nil, err
	}
	cfg.Location.PositionTimeout = time.Duration(positionTimeout) * time.Second

	startupTimeout, err := getInt("SESSION_STARTUP_TIMEOUT_SECONDS", 5)
	if err != nil {
		return nil, err
	}
	cfg.Session.StartupTimeout = time.Duration(startupTimeout) * time.Second

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if !envFileLoaded {
		fmt.Fprintln(os.Stderr, "⚠️  .env file not found, using environment variables from system")
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.JWTSecret == "" {
		return fmt.Errorf("APP_JWT_SECRET environment variable is required")
	}
	if c.Firebase.APIKey == "" {
		return fmt.Errorf("FIREBASE_API_KEY environment variable is required")
	}
	if c.Location.DistanceInterval < 0 || c.Location.TimeInterval < 0 {
		return fmt.Errorf("location intervals must not be negative")
	}
	if c.Location.PositionTimeout <= 0 || c.Session.StartupTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}
