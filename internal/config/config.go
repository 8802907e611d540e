package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	Parking   ParkingConfig   `yaml:"parking"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"

	// Path sends logs to a file instead of the console. The file is trimmed
	// to its newest KeepSizeMB once it grows past MaxSizeMB.
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	KeepSizeMB int    `yaml:"keep_size_mb"`
}

type TransportConfig struct {
	Mode string `yaml:"mode"` // "http" or "stdio"
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled"`
}

type ParkingConfig struct {
	Timezone      string `yaml:"timezone"`
	TotalSlots    int    `yaml:"total_slots"`
	QRTokenLength int    `yaml:"qr_token_length"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Driver: "sqlite",
			Path:   "parkline.db",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  6,
			KeepSizeMB: 5,
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		Auth: AuthConfig{
			Enabled: true,
		},
		Parking: ParkingConfig{
			Timezone:      "Local",
			TotalSlots:    100,
			QRTokenLength: 32,
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("PARKLINE_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if host := os.Getenv("PARKLINE_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if err := envInt("PARKLINE_SERVER_PORT", &cfg.Server.Port); err != nil {
		return err
	}
	if driver := os.Getenv("PARKLINE_DB_DRIVER"); driver != "" {
		cfg.DB.Driver = strings.ToLower(driver)
	}
	if dbPath := os.Getenv("PARKLINE_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if dsn := os.Getenv("PARKLINE_DB_DSN"); dsn != "" {
		cfg.DB.DSN = dsn
	}
	if level := os.Getenv("PARKLINE_LOG_LEVEL"); level != "" {
		cfg.Log.Level = strings.ToLower(level)
	}
	if format := os.Getenv("PARKLINE_LOG_FORMAT"); format != "" {
		cfg.Log.Format = strings.ToLower(format)
	}
	if logPath := os.Getenv("PARKLINE_LOG_PATH"); logPath != "" {
		cfg.Log.Path = logPath
	}
	if err := envInt("PARKLINE_LOG_MAX_MB", &cfg.Log.MaxSizeMB); err != nil {
		return err
	}
	if err := envInt("PARKLINE_LOG_KEEP_MB", &cfg.Log.KeepSizeMB); err != nil {
		return err
	}
	if mode := os.Getenv("PARKLINE_TRANSPORT_MODE"); mode != "" {
		cfg.Transport.Mode = strings.ToLower(mode)
	}
	if raw := os.Getenv("PARKLINE_AUTH_ENABLED"); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid PARKLINE_AUTH_ENABLED: %w", err)
		}
		cfg.Auth.Enabled = enabled
	}
	if tz := os.Getenv("PARKLINE_TIMEZONE"); tz != "" {
		cfg.Parking.Timezone = tz
	}
	if err := envInt("PARKLINE_TOTAL_SLOTS", &cfg.Parking.TotalSlots); err != nil {
		return err
	}
	return envInt("PARKLINE_QR_TOKEN_LENGTH", &cfg.Parking.QRTokenLength)
}

func envInt(name string, dst *int) error {
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*dst = n
	return nil
}

// Validate checks value ranges and enums.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.DB.Driver {
	case "sqlite":
		if c.DB.Path == "" {
			errs = append(errs, errors.New("db.path is required for sqlite"))
		}
	case "postgres":
		if c.DB.DSN == "" {
			errs = append(errs, errors.New("db.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown db.driver %q", c.DB.Driver))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}
	if c.Log.KeepSizeMB <= 0 || c.Log.KeepSizeMB >= c.Log.MaxSizeMB {
		errs = append(errs, fmt.Errorf("log.keep_size_mb must be positive and below log.max_size_mb (%d)", c.Log.MaxSizeMB))
	}
	if c.Transport.Mode != "http" && c.Transport.Mode != "stdio" {
		errs = append(errs, fmt.Errorf("unknown transport.mode %q", c.Transport.Mode))
	}
	if c.Parking.TotalSlots <= 0 {
		errs = append(errs, errors.New("parking.total_slots must be positive"))
	}
	if c.Parking.QRTokenLength < 32 {
		errs = append(errs, errors.New("parking.qr_token_length must be at least 32"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Location loads the timezone that decides calendar dates.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Parking.Timezone)
	if err != nil {
		return nil, fmt.Errorf("parking.timezone: %w", err)
	}
	return loc, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
