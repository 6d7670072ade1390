package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Log          LogConfig
	HTTP         HTTPConfig
	Tenancy      TenancyConfig
	Billing      BillingConfig
	Provisioning ProvisioningConfig
	Scheduler    SchedulerConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds settings for platform-admin tokens
type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
}

// TenancyConfig holds tenant resolution settings
type TenancyConfig struct {
	// BaseDomain is the platform suffix stripped to obtain the tenant
	// subdomain key (e.g. "gridpos.io" for "acme.gridpos.io").
	BaseDomain string
	// AdminHost resolves to the shared/public partition instead of a
	// tenant schema.
	AdminHost string
	// ReservedSubdomains never resolve to a tenant.
	ReservedSubdomains []string
	// ResolveTimeout bounds a single resolution; on expiry the request
	// is denied (fail closed).
	ResolveTimeout time.Duration
}

// BillingConfig holds subscription lifecycle settings
type BillingConfig struct {
	TrialDays int
	// GraceWindow is how long a subscription may stay past_due before
	// suspension.
	GraceWindow time.Duration
	// PastDuePolicy is "read_only" (writes denied) or "block_all".
	PastDuePolicy string
	// Providers maps a payment provider name to its shared callback
	// signing secret.
	Providers map[string]string
	// IdempotencyTTL bounds the fast-path dedup cache for callbacks.
	IdempotencyTTL time.Duration
}

// ProvisioningConfig holds schema provisioning settings
type ProvisioningConfig struct {
	// RetentionWindow is how long archived schemas (and their names)
	// are retained before physical deletion.
	RetentionWindow time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	// TenantMigrationsPath holds the baseline migrations applied to
	// every new tenant schema.
	TenantMigrationsPath string
}

// SchedulerConfig holds the background sweep configuration
type SchedulerConfig struct {
	Enabled       bool
	SweepInterval time.Duration
	BatchSize     int
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with POS_ prefix (e.g. POS_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("POS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("jwt.secret"),
			Expiration: v.GetDuration("jwt.expiration"),
			Issuer:     v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Tenancy: TenancyConfig{
			BaseDomain:         v.GetString("tenancy.base_domain"),
			AdminHost:          v.GetString("tenancy.admin_host"),
			ReservedSubdomains: v.GetStringSlice("tenancy.reserved_subdomains"),
			ResolveTimeout:     v.GetDuration("tenancy.resolve_timeout"),
		},
		Billing: BillingConfig{
			TrialDays:      v.GetInt("billing.trial_days"),
			GraceWindow:    v.GetDuration("billing.grace_window"),
			PastDuePolicy:  v.GetString("billing.past_due_policy"),
			Providers:      v.GetStringMapString("billing.providers"),
			IdempotencyTTL: v.GetDuration("billing.idempotency_ttl"),
		},
		Provisioning: ProvisioningConfig{
			RetentionWindow:      v.GetDuration("provisioning.retention_window"),
			MaxRetries:           v.GetInt("provisioning.max_retries"),
			RetryBackoff:         v.GetDuration("provisioning.retry_backoff"),
			TenantMigrationsPath: v.GetString("provisioning.tenant_migrations_path"),
		},
		Scheduler: SchedulerConfig{
			Enabled:       v.GetBool("scheduler.enabled"),
			SweepInterval: v.GetDuration("scheduler.sweep_interval"),
			BatchSize:     v.GetInt("scheduler.batch_size"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "gridpos-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "gridpos"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Expiration == 0 {
		cfg.JWT.Expiration = time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "gridpos-backend"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB, callbacks and admin payloads are small
	}
	if cfg.Tenancy.AdminHost == "" && cfg.Tenancy.BaseDomain != "" {
		cfg.Tenancy.AdminHost = "admin." + cfg.Tenancy.BaseDomain
	}
	if len(cfg.Tenancy.ReservedSubdomains) == 0 {
		cfg.Tenancy.ReservedSubdomains = []string{"www", "admin", "api", "static", "media"}
	}
	if cfg.Tenancy.ResolveTimeout == 0 {
		cfg.Tenancy.ResolveTimeout = 2 * time.Second
	}
	if cfg.Billing.TrialDays == 0 {
		cfg.Billing.TrialDays = 30
	}
	if cfg.Billing.GraceWindow == 0 {
		cfg.Billing.GraceWindow = 14 * 24 * time.Hour
	}
	if cfg.Billing.PastDuePolicy == "" {
		cfg.Billing.PastDuePolicy = "read_only"
	}
	if cfg.Billing.IdempotencyTTL == 0 {
		cfg.Billing.IdempotencyTTL = 72 * time.Hour
	}
	if cfg.Provisioning.RetentionWindow == 0 {
		cfg.Provisioning.RetentionWindow = 30 * 24 * time.Hour
	}
	if cfg.Provisioning.MaxRetries == 0 {
		cfg.Provisioning.MaxRetries = 5
	}
	if cfg.Provisioning.RetryBackoff == 0 {
		cfg.Provisioning.RetryBackoff = 30 * time.Second
	}
	if cfg.Provisioning.TenantMigrationsPath == "" {
		cfg.Provisioning.TenantMigrationsPath = "migrations/tenant"
	}
	if cfg.Scheduler.SweepInterval == 0 {
		cfg.Scheduler.SweepInterval = time.Minute
	}
	if cfg.Scheduler.BatchSize == 0 {
		cfg.Scheduler.BatchSize = 100
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Billing.PastDuePolicy != "read_only" && c.Billing.PastDuePolicy != "block_all" {
		return fmt.Errorf("billing.past_due_policy must be \"read_only\" or \"block_all\", got %q", c.Billing.PastDuePolicy)
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Tenancy.BaseDomain == "" {
			return fmt.Errorf("tenancy.base_domain is required in production")
		}
		if len(c.Billing.Providers) == 0 {
			return fmt.Errorf("billing.providers must configure at least one callback secret in production")
		}
		for name, secret := range c.Billing.Providers {
			if len(secret) < 16 {
				return fmt.Errorf("billing.providers.%s secret must be at least 16 characters", name)
			}
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
