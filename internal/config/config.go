package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage"  validate:"required"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// ShutdownTimeoutSeconds bounds graceful shutdown of in-flight requests.
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" validate:"gte=1"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL                    string `mapstructure:"url"                      validate:"required,url"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"           validate:"gte=1"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"           validate:"gte=0"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes" validate:"gte=1"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0,lte=525600"`
	BCryptCost           int    `mapstructure:"bcrypt_cost"            validate:"gte=4,lte=31"`
}

// StorageConfig selects and configures the public bucket used for task images.
type StorageConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=local s3"`

	// Local driver
	LocalRoot string `mapstructure:"local_root" validate:"required_if=Driver local"`
	PublicURL string `mapstructure:"public_url"`

	// S3 compatible driver
	Endpoint  string `mapstructure:"endpoint"   validate:"required_if=Driver s3"`
	AccessKey string `mapstructure:"access_key" validate:"required_if=Driver s3"`
	SecretKey string `mapstructure:"secret_key" validate:"required_if=Driver s3"`
	Bucket    string `mapstructure:"bucket"     validate:"required_if=Driver s3"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// LogConfig controls where log records are written. Level lives in ServerConfig.
type LogConfig struct {
	// File, when set, also writes JSON records to a rotating file.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"  validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups"  validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
}
