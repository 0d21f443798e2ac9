package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trashmap/trashmap-api/internal/pkg/env"
)

const (
	StorageDriverS3    = "s3"
	StorageDriverLocal = "local"

	RecordStoreMySQL = "mysql"
	RecordStoreMongo = "mongo"

	GeocoderNominatim = "nominatim"
	GeocoderGoogle    = "google"
	GeocoderNone      = "none"

	NotifyOff   = "off"
	NotifySync  = "sync"
	NotifyQueue = "queue"
)

// Config is built once in main and handed to every component constructor.
type Config struct {
	App         AppConfig
	Storage     StorageConfig
	RecordStore RecordStoreConfig
	Database    DatabaseConfig
	Mongo       MongoConfig
	Cache       CacheConfig
	Geocoder    GeocoderConfig
	Location    LocationConfig
	Authority   AuthorityConfig
	Notify      NotifyConfig
	JobQueue    JobQueueConfig
	Admin       AdminConfig
}

type AppConfig struct {
	Env       string
	Host      string `validate:"required"`
	Port      string `validate:"required,numeric"`
	BodyLimit int    `validate:"min=1048576"`
	LogLevel  string `validate:"oneof=trace debug info warn error"`
	CORSAllow string
}

type StorageConfig struct {
	Driver         string `validate:"oneof=s3 local"`
	UploadProfile  string `validate:"required"`
	MaxUploadBytes int64  `validate:"min=1"`
	LocalDir       string
	LocalPublicURL string
	S3             S3Config
}

type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // optional, for S3-compatible services
	PublicBaseURL   string // optional CDN / public bucket URL
}

type RecordStoreConfig struct {
	Driver string `validate:"oneof=mysql mongo"`
}

type DatabaseConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
}

// DSN returns the go-sql-driver/mysql data source name.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// MigrateURL returns the golang-migrate database URL.
func (d DatabaseConfig) MigrateURL() string {
	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type MongoConfig struct {
	URI    string
	DBName string
}

type CacheConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (c CacheConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

type GeocoderConfig struct {
	Provider  string `validate:"oneof=nominatim google none"`
	BaseURL   string
	APIKey    string
	UserAgent string
	Language  string
	Timeout   time.Duration `validate:"min=1ms"`
	CacheTTL  time.Duration
}

type LocationConfig struct {
	Stages             []string      `validate:"min=1,unique,dive,oneof=exif text device"`
	DeviceTimeout      time.Duration `validate:"min=1ms"`
	CaptureFallbackNow bool
}

type AuthorityConfig struct {
	ContactsFile string
}

type NotifyConfig struct {
	Mode          string `validate:"oneof=off sync queue"`
	OperatorEmail string
	From          string
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	SMTPTLS       bool
	Timeout       time.Duration
}

type JobQueueConfig struct {
	Workers int `validate:"min=1,max=64"`
}

type AdminConfig struct {
	Username     string
	PasswordHash string // bcrypt
}

// Load reads the environment (after env.SetupEnvFile) into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Env:       env.GetEnv("APP_ENV", "prod"),
			Host:      env.GetEnv("APP_HOST", "0.0.0.0"),
			Port:      env.GetEnv("APP_PORT", "4000"),
			BodyLimit: env.GetInt("APP_BODY_LIMIT", 32*1024*1024),
			LogLevel:  strings.ToLower(env.GetEnv("LOG_LEVEL", "info")),
			CORSAllow: env.GetEnv("CORS_ALLOW_ORIGINS", "*"),
		},
		Storage: StorageConfig{
			Driver:         strings.ToLower(env.GetEnv("STORAGE_DRIVER", StorageDriverLocal)),
			UploadProfile:  env.GetEnv("UPLOAD_PROFILE", "trashmap-report"),
			MaxUploadBytes: int64(env.GetInt("UPLOAD_MAX_BYTES", 20*1024*1024)),
			LocalDir:       env.GetEnv("STORAGE_LOCAL_DIR", "uploads"),
			LocalPublicURL: env.GetEnv("STORAGE_LOCAL_PUBLIC_URL", "/uploads"),
			S3: S3Config{
				AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
				SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
				Region:          env.GetEnv("S3_REGION", "us-east-1"),
				BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
				EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
				PublicBaseURL:   env.GetEnv("S3_PUBLIC_BASE_URL", ""),
			},
		},
		RecordStore: RecordStoreConfig{
			Driver: strings.ToLower(env.GetEnv("RECORD_STORE", RecordStoreMySQL)),
		},
		Database: DatabaseConfig{
			User:     env.GetEnv("DB_USER", "trashmap"),
			Password: env.GetEnv("DB_PASSWORD", ""),
			Host:     env.GetEnv("DB_HOST", "127.0.0.1"),
			Port:     env.GetEnv("DB_PORT", "3306"),
			Name:     env.GetEnv("DB_NAME", "trashmap"),
		},
		Mongo: MongoConfig{
			URI:    env.GetEnv("MONGO_URI", "mongodb://localhost:27017"),
			DBName: env.GetEnv("MONGO_DB", "trashmap"),
		},
		Cache: CacheConfig{
			Host:     env.GetEnv("CACHE_HOST", "localhost"),
			Port:     env.GetEnv("CACHE_PORT", "6379"),
			Password: env.GetEnv("CACHE_PASSWORD", ""),
			DB:       env.GetInt("CACHE_DB", 0),
		},
		Geocoder: GeocoderConfig{
			Provider:  strings.ToLower(env.GetEnv("GEOCODER_PROVIDER", GeocoderNominatim)),
			BaseURL:   env.GetEnv("GEOCODER_BASE_URL", ""),
			APIKey:    env.GetEnv("GEOCODER_API_KEY", ""),
			UserAgent: env.GetEnv("GEOCODER_USER_AGENT", "trashmap-api/1.0"),
			Language:  env.GetEnv("GEOCODER_LANGUAGE", "zh-TW"),
			Timeout:   env.GetDuration("GEOCODER_TIMEOUT", 5*time.Second),
			CacheTTL:  env.GetDuration("GEOCODE_CACHE_TTL", 24*time.Hour),
		},
		Location: LocationConfig{
			Stages:             ParseList(env.GetEnv("LOCATION_STAGES", "exif,text,device")),
			DeviceTimeout:      env.GetDuration("DEVICE_POSITION_TIMEOUT", 10*time.Second),
			CaptureFallbackNow: env.GetBool("LOCATION_CAPTURE_FALLBACK_NOW", false),
		},
		Authority: AuthorityConfig{
			ContactsFile: env.GetEnv("AUTHORITY_CONTACTS_FILE", "config/authorities.yaml"),
		},
		Notify: NotifyConfig{
			Mode:          strings.ToLower(env.GetEnv("NOTIFY_MODE", NotifyOff)),
			OperatorEmail: env.GetEnv("NOTIFY_OPERATOR_EMAIL", ""),
			From:          env.GetEnv("SMTP_SENDER", ""),
			SMTPHost:      env.GetEnv("SMTP_HOST", ""),
			SMTPPort:      env.GetInt("SMTP_PORT", 587),
			SMTPUsername:  env.GetEnv("SMTP_USERNAME", ""),
			SMTPPassword:  env.GetEnv("SMTP_PASSWORD", ""),
			SMTPTLS:       env.GetBool("SMTP_TLS", true),
			Timeout:       env.GetDuration("SMTP_TIMEOUT", 15*time.Second),
		},
		JobQueue: JobQueueConfig{
			Workers: env.GetInt("JOBQUEUE_WORKERS", 2),
		},
		Admin: AdminConfig{
			Username:     env.GetEnv("ADMIN_USERNAME", "admin"),
			PasswordHash: env.GetEnv("ADMIN_PASSWORD_HASH", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate runs the struct tags and the cross-field rules the tags cannot express.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var errs []error
	if c.Storage.Driver == StorageDriverS3 {
		if c.Storage.S3.AccessKeyID == "" {
			errs = append(errs, errors.New("S3_ACCESS_KEY_ID is required when STORAGE_DRIVER=s3"))
		}
		if c.Storage.S3.SecretAccessKey == "" {
			errs = append(errs, errors.New("S3_SECRET_ACCESS_KEY is required when STORAGE_DRIVER=s3"))
		}
		if c.Storage.S3.BucketName == "" {
			errs = append(errs, errors.New("S3_BUCKET_NAME is required when STORAGE_DRIVER=s3"))
		}
	}
	if c.Storage.Driver == StorageDriverLocal && c.Storage.LocalDir == "" {
		errs = append(errs, errors.New("STORAGE_LOCAL_DIR is required when STORAGE_DRIVER=local"))
	}
	if c.Geocoder.Provider == GeocoderGoogle && c.Geocoder.APIKey == "" {
		errs = append(errs, errors.New("GEOCODER_API_KEY is required for the google geocoder"))
	}
	if c.Notify.Mode != NotifyOff {
		if err := v.Var(c.Notify.OperatorEmail, "required,email"); err != nil {
			errs = append(errs, errors.New("NOTIFY_OPERATOR_EMAIL must be a valid address when notifications are enabled"))
		}
		if c.Notify.SMTPHost == "" {
			errs = append(errs, errors.New("SMTP_HOST is required when notifications are enabled"))
		}
	}
	return errors.Join(errs...)
}

// ParseList splits a comma separated value, trimming and lowercasing entries.
func ParseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
