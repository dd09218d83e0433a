package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	LDAP     LDAPConfig     `yaml:"ldap"`
	Redis    RedisConfig    `yaml:"redis"`
	Reminder ReminderConfig `yaml:"reminder"`
	Email    EmailConfig    `yaml:"email"`
	Grouping GroupingConfig `yaml:"grouping"`
}

type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        string   `yaml:"port"`
	Mode        string   `yaml:"mode"` // debug, release, test
	CORSOrigins []string `yaml:"cors_origins"`
	AuthRPS     float64  `yaml:"auth_rps"`   // login/register requests per second per IP
	AuthBurst   int      `yaml:"auth_burst"` // burst allowed above AuthRPS
}

type LogConfig struct {
	Level         string `yaml:"level"`          // debug, info, warn, error
	Format        string `yaml:"format"`         // json or console, empty picks by level
	RetentionDays int    `yaml:"retention_days"` // system_logs rows older than this are purged, 0 keeps all
}

type DatabaseConfig struct {
	Driver       string        `yaml:"driver"` // sqlite, mysql, postgres
	DSN          string        `yaml:"dsn"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	ExpireHour int    `yaml:"expire_hour"`
}

type LDAPConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	BaseDN       string `yaml:"base_dn"`
	BindDN       string `yaml:"bind_dn"`
	BindPassword string `yaml:"bind_password"`
	UserFilter   string `yaml:"user_filter"`
	UseSSL       bool   `yaml:"use_ssl"`
}

// RedisConfig for optional async reminder queue
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	Concurrency int `yaml:"concurrency"` // worker goroutines, default 5
}

// ReminderConfig controls the due-task reminder scan.
type ReminderConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`    // standard 5-field cron expression
	Country string `yaml:"country"` // holiday calendar code, NONE for weekdays only
}

// EmailConfig is the SMTP account reminders are mailed from.
type EmailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	UseTLS   bool   `yaml:"use_tls"`
}

// GroupingConfig extends the built-in specialty label table.
type GroupingConfig struct {
	SpecialtyLabels map[string]string `yaml:"specialty_labels"`
}

var GlobalConfig *Config

// Load reads configPath (config.yaml when empty) over the defaults, applies
// environment overrides and validates the result. A missing file is not an
// error.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	}

	cfg.overrideFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      "8080",
			Mode:      "debug",
			AuthRPS:   5,
			AuthBurst: 10,
		},
		Log: LogConfig{
			Level:         "info",
			RetentionDays: 90,
		},
		Database: DatabaseConfig{
			Driver:       "sqlite",
			DSN:          "consultdesk.db",
			QueryTimeout: 10 * time.Second,
		},
		JWT: JWTConfig{
			Secret:     "consultdesk-secret-key-change-in-production",
			ExpireHour: 24,
		},
		LDAP: LDAPConfig{
			Enabled:    false,
			Port:       389,
			UserFilter: "(uid=%s)",
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
		Reminder: ReminderConfig{
			Enabled: true,
			Cron:    "0 8 * * *",
			Country: "NONE",
		},
		Email: EmailConfig{
			Port: 587,
		},
	}
}

// envOverrides maps environment variables onto config fields.
var envOverrides = []struct {
	name  string
	apply func(c *Config, v string)
}{
	{"SERVER_HOST", func(c *Config, v string) { c.Server.Host = v }},
	{"SERVER_PORT", func(c *Config, v string) { c.Server.Port = v }},
	{"SERVER_MODE", func(c *Config, v string) { c.Server.Mode = v }},
	{"LOG_LEVEL", func(c *Config, v string) { c.Log.Level = v }},
	{"LOG_FORMAT", func(c *Config, v string) { c.Log.Format = v }},
	{"DB_DRIVER", func(c *Config, v string) { c.Database.Driver = v }},
	{"DB_DSN", func(c *Config, v string) { c.Database.DSN = v }},
	{"JWT_SECRET", func(c *Config, v string) { c.JWT.Secret = v }},
	{"REMINDER_CRON", func(c *Config, v string) { c.Reminder.Cron = v }},
	{"REMINDER_COUNTRY", func(c *Config, v string) { c.Reminder.Country = v }},
	{"SMTP_HOST", func(c *Config, v string) { c.Email.Enabled, c.Email.Host = true, v }},
	{"SMTP_PASSWORD", func(c *Config, v string) { c.Email.Password = v }},
	{"REDIS_URL", func(c *Config, v string) { c.Redis.Enabled = true; c.parseRedisURL(v) }},
}

func (c *Config) overrideFromEnv() {
	for _, o := range envOverrides {
		if v := os.Getenv(o.name); v != "" {
			o.apply(c, v)
		}
	}
	c.Reminder.Country = strings.ToUpper(c.Reminder.Country)
}

// parseRedisURL reads redis://[user:password@]host:port[/db]. Unparsable
// URLs are taken as a bare address.
func (c *Config) parseRedisURL(raw string) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		c.Redis.Addr = strings.TrimPrefix(raw, "redis://")
		return
	}
	c.Redis.Addr = u.Host
	if password, ok := u.User.Password(); ok {
		c.Redis.Password = password
	}
	if db, err := strconv.Atoi(strings.TrimPrefix(u.Path, "/")); err == nil {
		c.Redis.DB = db
	}
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "sqlite", "mysql", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q: expected sqlite, mysql or postgres", c.Database.Driver))
	}
	if _, err := strconv.ParseUint(c.Server.Port, 10, 16); err != nil {
		errs = append(errs, fmt.Errorf("server.port %q is not a port number", c.Server.Port))
	}
	if c.Server.AuthRPS < 0 || c.Server.AuthBurst < 0 {
		errs = append(errs, errors.New("server.auth_rps and server.auth_burst must not be negative"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.Log.RetentionDays < 0 {
		errs = append(errs, errors.New("log.retention_days must not be negative"))
	}
	if c.Email.Enabled && (c.Email.Host == "" || (c.Email.From == "" && c.Email.Username == "")) {
		errs = append(errs, errors.New("email needs a host and a from address or username"))
	}
	return errors.Join(errs...)
}
