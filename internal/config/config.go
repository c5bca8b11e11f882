package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/andresuchdata/stocklens/internal/domain"
)

type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Analytics AnalyticsConfig
	Ingest    IngestConfig
	Dataset   DatasetConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Drive     DriveConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

type AnalyticsConfig struct {
	OverstockMultiplier float64
	TopBrands           int
}

type IngestConfig struct {
	MaxRows        int
	MaxBrands      int
	MaxUploadBytes int64
	DefaultYear    int
}

// Dataset backends.
const (
	BackendMemory   = "memory"
	BackendBolt     = "bolt"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type DatasetConfig struct {
	Backend  string
	BoltPath string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type RedisConfig struct {
	URL       string
	Host      string
	Port      string
	Password  string
	DB        int
	KeyPrefix string
}

// Storage providers.
const (
	StorageMinio = "minio"
	StorageS3    = "s3"
)

type StorageConfig struct {
	Enabled   bool
	Provider  string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Prefix    string
	UseSSL    bool
}

type DriveConfig struct {
	CredentialsJSON string
	FolderID        string
}

// Enabled reports whether Drive credentials were supplied.
func (c DriveConfig) Enabled() bool { return strings.TrimSpace(c.CredentialsJSON) != "" }

var (
	once     sync.Once
	instance *Config
)

// Load reads .env and the environment once and returns the shared config.
func Load() *Config {
	once.Do(func() {
		_ = godotenv.Load()

		v := viper.GetViper()
		SetDefaults(v)
		v.AutomaticEnv()

		instance = FromViper(v)
	})

	return instance
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("ANALYTICS_OVERSTOCK_MULTIPLIER", 3.0)
	v.SetDefault("ANALYTICS_TOP_BRANDS", 10)

	v.SetDefault("INGEST_MAX_ROWS", 10000)
	v.SetDefault("INGEST_MAX_BRANDS", 5000)
	v.SetDefault("INGEST_MAX_UPLOAD_BYTES", 20<<20)
	v.SetDefault("INGEST_DEFAULT_YEAR", 0)

	v.SetDefault("DATASET_BACKEND", BackendMemory)
	v.SetDefault("DATASET_BOLT_PATH", "./data/stocklens.db")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "stocklens")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "stocklens:")

	v.SetDefault("STORAGE_ENABLED", false)
	v.SetDefault("STORAGE_PROVIDER", StorageMinio)
	v.SetDefault("STORAGE_ENDPOINT", "localhost:9000")
	v.SetDefault("STORAGE_BUCKET", "stocklens")
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_PREFIX", "")
	v.SetDefault("STORAGE_USE_SSL", false)

	v.SetDefault("GOOGLE_DRIVE_CREDENTIALS_JSON", "")
	v.SetDefault("GOOGLE_DRIVE_FOLDER_ID", "")
}

// FromViper builds a Config from the keys set on v.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Analytics: AnalyticsConfig{
			OverstockMultiplier: v.GetFloat64("ANALYTICS_OVERSTOCK_MULTIPLIER"),
			TopBrands:           v.GetInt("ANALYTICS_TOP_BRANDS"),
		},
		Ingest: IngestConfig{
			MaxRows:        v.GetInt("INGEST_MAX_ROWS"),
			MaxBrands:      v.GetInt("INGEST_MAX_BRANDS"),
			MaxUploadBytes: v.GetInt64("INGEST_MAX_UPLOAD_BYTES"),
			DefaultYear:    v.GetInt("INGEST_DEFAULT_YEAR"),
		},
		Dataset: DatasetConfig{
			Backend:  strings.ToLower(v.GetString("DATASET_BACKEND")),
			BoltPath: v.GetString("DATASET_BOLT_PATH"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			URL:       v.GetString("REDIS_URL"),
			Host:      v.GetString("REDIS_HOST"),
			Port:      v.GetString("REDIS_PORT"),
			Password:  v.GetString("REDIS_PASSWORD"),
			DB:        v.GetInt("REDIS_DB"),
			KeyPrefix: v.GetString("REDIS_KEY_PREFIX"),
		},
		Storage: StorageConfig{
			Enabled:   v.GetBool("STORAGE_ENABLED"),
			Provider:  strings.ToLower(v.GetString("STORAGE_PROVIDER")),
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			Region:    v.GetString("STORAGE_REGION"),
			Prefix:    v.GetString("STORAGE_PREFIX"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
		},
		Drive: DriveConfig{
			CredentialsJSON: v.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
			FolderID:        v.GetString("GOOGLE_DRIVE_FOLDER_ID"),
		},
	}
}

// Validate checks the values the engines depend on.
func (c *Config) Validate() error {
	if c.Analytics.OverstockMultiplier <= 0 {
		return domain.NewError(domain.KindInvalidConfiguration,
			"ANALYTICS_OVERSTOCK_MULTIPLIER must be greater than 0, got %v", c.Analytics.OverstockMultiplier)
	}
	if c.Ingest.MaxRows <= 0 {
		return domain.NewError(domain.KindInvalidConfiguration, "INGEST_MAX_ROWS must be positive")
	}
	switch c.Dataset.Backend {
	case BackendMemory, BackendBolt, BackendRedis, BackendPostgres:
	default:
		return domain.NewError(domain.KindInvalidConfiguration, "unknown DATASET_BACKEND %q", c.Dataset.Backend)
	}
	if c.Storage.Enabled {
		switch c.Storage.Provider {
		case StorageMinio, StorageS3:
		default:
			return domain.NewError(domain.KindInvalidConfiguration, "unknown STORAGE_PROVIDER %q", c.Storage.Provider)
		}
	}
	return nil
}
