package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"agendapro/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	PermissionAdmin    = "admin"
	PermissionMerchant = "merchant"
)

type Config struct {
	App          AppConfig          `yaml:"app"`
	Telegram     TelegramConfig     `yaml:"telegram"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Backup       BackupConfig       `yaml:"backup"`
	Monitoring   MonitoringConfig   `yaml:"monitoring"`
	Logging      LoggingConfig      `yaml:"logging"`
	API          APIConfig          `yaml:"api"`
	Booking      BookingConfig      `yaml:"booking"`
	Subscription SubscriptionConfig `yaml:"subscription"`
	Settings     SettingsConfig     `yaml:"settings"`
	Worker       WorkerConfig       `yaml:"worker"`
	Exports      ExportConfig       `yaml:"exports"`
}

type BookingConfig struct {
	MaxBookingDays    int `yaml:"max_booking_days"`
	BookingRateLimit  int `yaml:"booking_rate_limit"`
	BookingRateWindow int `yaml:"booking_rate_window"` // seconds
}

type SubscriptionConfig struct {
	// TrialGrantsAccess lets tenants inside the unpaid trial window use the panel.
	TrialGrantsAccess bool `yaml:"trial_grants_access"`
}

type SettingsConfig struct {
	Defaults models.AdminSettings `yaml:"defaults"`
	CacheTTL int                  `yaml:"cache_ttl"` // seconds
}

type WorkerConfig struct {
	PaymentExpirySchedule string `yaml:"payment_expiry_schedule"`
	PaymentMaxAge         int    `yaml:"payment_max_age"` // hours
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
	// TenantID restricts a merchant key to one tenant.
	TenantID string `yaml:"tenant_id"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	Timezone    string `yaml:"timezone"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
	Debug    bool   `yaml:"debug"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional in production where the environment is injected
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.App.Timezone, err)
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == 0 {
		return errors.New("telegram chat_id is required when bot_token is set")
	}
	if err := c.Settings.Defaults.Validate(); err != nil {
		return fmt.Errorf("settings defaults: %w", err)
	}
	return ValidateAPIKeys(c.API.Auth.APIKeys)
}

// ValidateAPIKeys rejects duplicate keys, unknown permissions and tenant scopes on admin keys.
func ValidateAPIKeys(keys []APIClientKey) error {
	seen := make(map[string]bool)
	for _, k := range keys {
		if k.Key == "" {
			return fmt.Errorf("api key '%s' is empty", k.Name)
		}
		if seen[k.Key] {
			return fmt.Errorf("duplicate api key for '%s'", k.Name)
		}
		seen[k.Key] = true

		for _, p := range k.Permissions {
			switch p {
			case PermissionAdmin:
				if k.TenantID != "" {
					return fmt.Errorf("api key '%s': admin keys cannot be tenant scoped", k.Name)
				}
			case PermissionMerchant:
			default:
				return fmt.Errorf("api key '%s': unknown permission %q", k.Name, p)
			}
		}
	}
	return nil
}

// Location is the single timezone used to interpret calendar dates.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "agendapro"
	}
	if c.App.Timezone == "" {
		c.App.Timezone = "America/Sao_Paulo"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	// auth enabled by default when API is enabled
	if !c.API.Auth.Enabled {
		c.API.Auth.Enabled = true
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}

	if c.Booking.MaxBookingDays == 0 {
		c.Booking.MaxBookingDays = models.DefaultMaxBookingDays
	}
	if c.Booking.BookingRateLimit == 0 {
		c.Booking.BookingRateLimit = models.BookingRateLimit
	}
	if c.Booking.BookingRateWindow == 0 {
		c.Booking.BookingRateWindow = models.BookingRateWindow
	}

	defaults := models.DefaultAdminSettings()
	if c.Settings.Defaults.Plans == nil {
		c.Settings.Defaults.Plans = defaults.Plans
	}
	if c.Settings.Defaults.Affiliate == (models.AffiliateSettings{}) {
		c.Settings.Defaults.Affiliate = defaults.Affiliate
	}
	if c.Settings.CacheTTL == 0 {
		c.Settings.CacheTTL = models.DefaultSettingsCacheTTL
	}

	if c.Worker.PaymentExpirySchedule == "" {
		c.Worker.PaymentExpirySchedule = "@every 1h"
	}
	if c.Worker.PaymentMaxAge == 0 {
		c.Worker.PaymentMaxAge = models.DefaultPaymentMaxAge
	}

	if c.Backup.Schedule == "" {
		c.Backup.Schedule = "@daily"
	}
	if c.Backup.RetentionDays == 0 {
		c.Backup.RetentionDays = 7
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "data/backups"
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "data/exports"
	}
}
