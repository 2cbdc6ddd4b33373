package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" env:",prefix=SERVER_"`
	Database  DatabaseConfig  `yaml:"database" env:",prefix=DB_"`
	JWT       JWTConfig       `yaml:"jwt" env:",prefix=JWT_"`
	Logging   LoggingConfig   `yaml:"logging" env:",prefix=LOG_"`
	App       AppConfig       `yaml:"app" env:",prefix=APP_"`
	RateLimit RateLimitConfig `yaml:"rate_limit" env:",prefix=RATE_LIMIT_"`
	NATS      NATSConfig      `yaml:"nats" env:",prefix=NATS_"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           string        `yaml:"port" env:"PORT,overwrite"`
	Mode           string        `yaml:"mode" env:"MODE,overwrite"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT,overwrite"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT,overwrite"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS,overwrite"`
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	Host            string `yaml:"host" env:"HOST,overwrite"`
	Port            string `yaml:"port" env:"PORT,overwrite"`
	User            string `yaml:"user" env:"USER,overwrite"`
	Password        string `yaml:"password" env:"PASSWORD,overwrite"`
	DBName          string `yaml:"dbname" env:"NAME,overwrite"`
	SSLMode         string `yaml:"sslmode" env:"SSLMODE,overwrite"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS,overwrite"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"MAX_OPEN_CONNS,overwrite"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME,overwrite"`
}

// JWTConfig holds token signing settings
type JWTConfig struct {
	Secret                string `yaml:"secret" env:"SECRET,overwrite"`
	AccessTokenExpiration string `yaml:"access_token_expiration" env:"ACCESS_TOKEN_EXPIRATION,overwrite"`
	Issuer                string `yaml:"issuer" env:"ISSUER,overwrite"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL,overwrite"`
	Format string `yaml:"format" env:"FORMAT,overwrite"`
}

// AppConfig holds vaccination portal behaviour settings
type AppConfig struct {
	// Timezone decides which calendar day counts as "today" for drive scheduling.
	Timezone             string `yaml:"timezone" env:"TIMEZONE,overwrite"`
	DriveLeadDays        int    `yaml:"drive_lead_days" env:"DRIVE_LEAD_DAYS,overwrite"`
	UpcomingWindowDays   int    `yaml:"upcoming_window_days" env:"UPCOMING_WINDOW_DAYS,overwrite"`
	DefaultAdminPassword string `yaml:"default_admin_password" env:"DEFAULT_ADMIN_PASSWORD,overwrite"`
	SeedSampleData       bool   `yaml:"seed_sample_data" env:"SEED_SAMPLE_DATA,overwrite"`
	MigrationsDir        string `yaml:"migrations_dir" env:"MIGRATIONS_DIR,overwrite"`
}

// RateLimitConfig holds the login throttling settings
type RateLimitConfig struct {
	LoginPerMinute int `yaml:"login_per_minute" env:"LOGIN_PER_MINUTE,overwrite"`
	LoginBurst     int `yaml:"login_burst" env:"LOGIN_BURST,overwrite"`
}

// NATSConfig holds the activity feed publisher settings. An empty URL disables publishing.
type NATSConfig struct {
	URL     string `yaml:"url" env:"URL,overwrite"`
	Subject string `yaml:"subject" env:"SUBJECT,overwrite"`
}

// LoadConfig loads configuration from a file and environment variables
func LoadConfig(ctx context.Context, configPath string) (*Config, error) {
	return LoadConfigWithLookuper(ctx, configPath, envconfig.OsLookuper())
}

// LoadConfigWithLookuper is LoadConfig with an explicit source for environment values
func LoadConfigWithLookuper(ctx context.Context, configPath string, lookuper envconfig.Lookuper) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   config,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.ReadTimeout = 10 * time.Second
	config.Server.WriteTimeout = 10 * time.Second
	config.Server.AllowedOrigins = []string{"http://localhost:5173"}

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "vaxportal"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"

	config.JWT.AccessTokenExpiration = "24h"
	config.JWT.Issuer = "vaxportal"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.App.Timezone = "UTC"
	config.App.DriveLeadDays = 15
	config.App.UpcomingWindowDays = 30
	config.App.DefaultAdminPassword = "admin123"
	config.App.MigrationsDir = "migrations"

	config.RateLimit.LoginPerMinute = 10
	config.RateLimit.LoginBurst = 5

	config.NATS.Subject = "vaxportal.activity"
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if _, err := time.ParseDuration(config.JWT.AccessTokenExpiration); err != nil {
		return fmt.Errorf("invalid JWT access token expiration format: %w", err)
	}

	if _, err := time.LoadLocation(config.App.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", config.App.Timezone, err)
	}

	if config.App.DriveLeadDays < 0 {
		return fmt.Errorf("drive lead days cannot be negative")
	}

	if config.RateLimit.LoginPerMinute <= 0 || config.RateLimit.LoginBurst <= 0 {
		return fmt.Errorf("login rate limit must be positive")
	}

	return nil
}

// Location returns the configured scheduling time zone
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Server.Mode), "production")
}
