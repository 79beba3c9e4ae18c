package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxActiveEvents = 5
	DefaultServerAddr      = ":8080"
	DefaultTokenTTL        = 24 * time.Hour
	envPrefix              = "VOLUNTEER"
)

// DatabaseConfig selects and configures the persistence store
type DatabaseConfig struct {
	Driver     string `yaml:"driver" validate:"required,oneof=postgres sqlite memory"`
	URL        string `yaml:"url,omitempty" validate:"required_if=Driver postgres"`
	SQLitePath string `yaml:"sqlitePath,omitempty" validate:"required_if=Driver sqlite"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr      string        `yaml:"addr,omitempty"`
	JWTSecret string        `yaml:"jwtSecret,omitempty" validate:"omitempty,min=16"`
	TokenTTL  time.Duration `yaml:"tokenTTL,omitempty"`
}

// BookingConfig holds booking policy limits
type BookingConfig struct {
	MaxActiveEvents int `yaml:"maxActiveEvents,omitempty" validate:"min=0"`
}

// EmailConfig configures volunteer emails sent through Gmail
type EmailConfig struct {
	Enabled bool   `yaml:"enabled"`
	Sender  string `yaml:"sender,omitempty" validate:"omitempty,email"`
}

// DiscordConfig configures the staff notification channel
type DiscordConfig struct {
	BotToken  string `yaml:"botToken,omitempty"`
	ChannelID string `yaml:"channelID,omitempty" validate:"required_with=BotToken"`
}

// NotificationsConfig groups the notification transports
type NotificationsConfig struct {
	Email   EmailConfig   `yaml:"email"`
	Discord DiscordConfig `yaml:"discord"`
}

// ShiftPattern describes a recurring set of shifts used by generateShifts
type ShiftPattern struct {
	Name      string   `yaml:"name" validate:"required"`
	RRule     string   `yaml:"rrule" validate:"required"`
	TimeSlots []string `yaml:"timeSlots" validate:"required,min=1,dive,required"`
	Vacancies int      `yaml:"vacancies" validate:"min=1"`
}

// Config represents the application configuration
type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	Server        ServerConfig        `yaml:"server"`
	Booking       BookingConfig       `yaml:"booking"`
	Notifications NotificationsConfig `yaml:"notifications"`
	ShiftPatterns []ShiftPattern      `yaml:"shiftPatterns,omitempty" validate:"dive"`
}

// Pattern returns the shift pattern with the given name
func (c *Config) Pattern(name string) (*ShiftPattern, error) {
	for i := range c.ShiftPatterns {
		if c.ShiftPatterns[i].Name == name {
			return &c.ShiftPatterns[i], nil
		}
	}
	return nil, fmt.Errorf("shift pattern %q not found in config", name)
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from volunteer_config.yaml
// It looks for the config file in the current directory first, then in the user's home directory
func Load() (*Config, error) {
	return LoadWithEnv("")
}

// LoadWithEnv loads the configuration for an environment
// For example, env="test" will look for "volunteer_config.test.yaml"
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
// Secrets set in VOLUNTEER_* environment variables override the file
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct and checks rrule syntax
func Validate(cfg *Config) error {
	// Run struct validation
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// Validate rrule syntax and name uniqueness for each pattern
	seen := make(map[string]bool)
	for i, pattern := range cfg.ShiftPatterns {
		if _, err := rrule.StrToRRule(pattern.RRule); err != nil {
			return fmt.Errorf("invalid rrule in shiftPatterns[%d]: %w", i, err)
		}
		if seen[pattern.Name] {
			return fmt.Errorf("duplicate name in shiftPatterns[%d]: %s", i, pattern.Name)
		}
		seen[pattern.Name] = true
	}

	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
	if cfg.Server.TokenTTL == 0 {
		cfg.Server.TokenTTL = DefaultTokenTTL
	}
	if cfg.Booking.MaxActiveEvents == 0 {
		cfg.Booking.MaxActiveEvents = DefaultMaxActiveEvents
	}
}

// applyEnvOverrides replaces secrets with VOLUNTEER_* environment variables when set
func applyEnvOverrides(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.BindEnv("database_url")
	v.BindEnv("jwt_secret")
	v.BindEnv("discord_bot_token")
	v.AutomaticEnv()

	if url := v.GetString("database_url"); url != "" {
		cfg.Database.URL = url
	}
	if secret := v.GetString("jwt_secret"); secret != "" {
		cfg.Server.JWTSecret = secret
	}
	if token := v.GetString("discord_bot_token"); token != "" {
		cfg.Notifications.Discord.BotToken = token
	}
}

// findConfigFile searches for the config file in current directory and home directory
func findConfigFile(env string) (string, error) {
	name := "volunteer_config.yaml"
	if env != "" {
		name = "volunteer_config." + env + ".yaml"
	}
	return findFile(name)
}

// findFile returns name if it exists in the current directory, else the path in the home directory
func findFile(name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homePath := filepath.Join(homeDir, name)
	if _, err := os.Stat(homePath); err == nil {
		return homePath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", name)
}
