package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Security  SecurityConfig  `yaml:"security"`
	Logging   LoggingConfig   `yaml:"logging"`
	Reports   ReportsConfig   `yaml:"reports"`
	Inventory InventoryConfig `yaml:"inventory"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Worker    WorkerConfig    `yaml:"worker"`
	Storage   StorageConfig   `yaml:"storage"`
	Notify    NotifyConfig    `yaml:"notify"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig represents database configuration.
// Driver is either "postgres" or "sqlite"; Path is only used by sqlite.
type DatabaseConfig struct {
	Driver         string        `yaml:"driver"`
	Path           string        `yaml:"path"`
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	DBName         string        `yaml:"db_name"`
	SSLMode        string        `yaml:"ssl_mode"`
	MaxConnections int           `yaml:"max_connections"`
	MaxIdleConns   int           `yaml:"max_idle_conns"`
	MaxLifetime    time.Duration `yaml:"max_lifetime"`
}

// SecurityConfig
type SecurityConfig struct {
	KeyFile       string `yaml:"key_file"`
	AdminUser     string `yaml:"admin_user"`
	AdminPassword string `yaml:"admin_password"`
}

// LoggingConfig
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// ReportsConfig controls rendering and export defaults
type ReportsConfig struct {
	ExportDir   string `yaml:"export_dir"`
	LogoPath    string `yaml:"logo_path"`
	ChartWidth  int    `yaml:"chart_width"`
	ChartHeight int    `yaml:"chart_height"`
}

// InventoryConfig
type InventoryConfig struct {
	PageSize int           `yaml:"page_size"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// SchedulerConfig holds cron expressions for background jobs.
// An empty expression disables the job.
type SchedulerConfig struct {
	RemindersCron string `yaml:"reminders_cron"`
	BackupCron    string `yaml:"backup_cron"`
}

// WorkerConfig configures the background export pool
type WorkerConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent"`
	QueueSize     int           `yaml:"queue_size"`
	JobTimeout    time.Duration `yaml:"job_timeout"`
}

// StorageConfig selects where artifacts and backups are delivered
type StorageConfig struct {
	Backend         string `yaml:"backend"` // file, s3
	Dir             string `yaml:"dir"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	// URLExpiry > 0 makes the S3 backend hand out presigned links
	URLExpiry time.Duration `yaml:"url_expiry"`
}

// NotifyConfig selects how service-life reminders are sent
type NotifyConfig struct {
	Backend     string   `yaml:"backend"` // log, ses
	FromAddress string   `yaml:"from_address"`
	Recipients  []string `yaml:"recipients"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:         "sqlite",
			Path:           "sports_inventory.db",
			Host:           "localhost",
			Port:           5432,
			User:           os.Getenv("USER"),
			DBName:         "sports_inventory",
			SSLMode:        "disable",
			MaxConnections: 10,
			MaxIdleConns:   2,
		},
		Security: SecurityConfig{
			KeyFile:   "secret.key",
			AdminUser: "admin",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Reports: ReportsConfig{
			ExportDir:   "exports",
			LogoPath:    "logo.png",
			ChartWidth:  400,
			ChartHeight: 200,
		},
		Inventory: InventoryConfig{
			PageSize: 100,
			CacheTTL: 5 * time.Minute,
		},
		Scheduler: SchedulerConfig{
			RemindersCron: "0 8 * * *",
			BackupCron:    "0 2 * * *",
		},
		Worker: WorkerConfig{
			MaxConcurrent: 2,
			QueueSize:     32,
			JobTimeout:    5 * time.Minute,
		},
		Storage: StorageConfig{
			Backend:   "file",
			Dir:       "exports",
			URLExpiry: 24 * time.Hour,
		},
		Notify: NotifyConfig{
			Backend: "log",
		},
	}
}

// LoadConfig loads configuration from file, .env and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := Default()

	// Load from file if exists
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// .env next to the config file, then the working directory
	envFiles := []string{".env"}
	if configPath != "" {
		envFiles = append([]string{filepath.Join(filepath.Dir(configPath), ".env")}, envFiles...)
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", f, err)
			}
		}
	}

	overrideWithEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if driver := os.Getenv("INVENTORY_DB_DRIVER"); driver != "" {
		config.Database.Driver = driver
	}
	if path := os.Getenv("INVENTORY_DB_PATH"); path != "" {
		config.Database.Path = path
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if key := os.Getenv("INVENTORY_KEY_FILE"); key != "" {
		config.Security.KeyFile = key
	}
	if pass := os.Getenv("INVENTORY_ADMIN_PASSWORD"); pass != "" {
		config.Security.AdminPassword = pass
	}
	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		config.Storage.Backend = "s3"
		config.Storage.Bucket = bucket
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		config.Storage.Region = region
	}
}

// Validate checks values that have no safe default
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Storage.Backend {
	case "file", "s3":
	default:
		return fmt.Errorf("unsupported storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "s3" && c.Storage.Bucket == "" {
		return fmt.Errorf("storage bucket is required for s3 backend")
	}
	switch c.Notify.Backend {
	case "log", "ses":
	default:
		return fmt.Errorf("unsupported notify backend %q", c.Notify.Backend)
	}
	if c.Inventory.PageSize <= 0 {
		c.Inventory.PageSize = 100
	}
	if c.Worker.MaxConcurrent <= 0 {
		c.Worker.MaxConcurrent = 1
	}
	return nil
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	if c.Driver == "sqlite" {
		return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite", c.Path)
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
