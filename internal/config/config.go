package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	// Routing time zones must resolve on hosts without a zoneinfo database.
	_ "time/tzdata"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Env       string    `yaml:"env" env:"ONETALK_ENV" env-default:"local"`
	Storage   Storage   `yaml:"storage"`
	Postgres  Postgres  `yaml:"postgres"`
	SQLite    SQLite    `yaml:"sqlite"`
	Server    Server    `yaml:"server"`
	Routing   Routing   `yaml:"routing"`
	Notify    Notify    `yaml:"notify"`
	Redis     Redis     `yaml:"redis"`
	Report    Report    `yaml:"report"`
	RateLimit RateLimit `yaml:"rate_limit"`
}

type Storage struct {
	Driver string `yaml:"driver" env:"ONETALK_STORAGE_DRIVER" env-default:"sqlite"`
}

type Postgres struct {
	Username        string        `yaml:"username" env:"POSTGRES_USER"`
	Password        string        `yaml:"password" env:"POSTGRES_PASSWORD"`
	Host            string        `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port            string        `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	Database        string        `yaml:"database" env:"POSTGRES_DB" env-default:"onetalk"`
	MaxOpenConns    int           `yaml:"max_open_conns" env-default:"50"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env-default:"10"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env-default:"5m"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" env-default:"1m"`
}

// ConnString returns the lib/pq connection URL.
func (p Postgres) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		p.Username, p.Password, p.Host, p.Port, p.Database,
	)
}

type SQLite struct {
	Path string `yaml:"path" env:"ONETALK_SQLITE_PATH" env-default:"onetalk_system.db"`
}

type Server struct {
	Host            string        `yaml:"host" env-default:"localhost"`
	Port            string        `yaml:"port" env:"ONETALK_PORT" env-default:"8080"`
	Timeout         time.Duration `yaml:"timeout" env-default:"5s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"10s"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env-default:"*"`
}

type Routing struct {
	DefaultDepartment string           `yaml:"default_department" env-default:"customer_service"`
	VoicemailNumber   string           `yaml:"voicemail_number" env:"ONETALK_VOICEMAIL_NUMBER" env-default:"+1-555-VOICE-MAIL"`
	TimeZone          string           `yaml:"time_zone" env-default:"UTC"`
	Keywords          []KeywordMapping `yaml:"keywords"`
	// NumberPatterns map words in a dialed number to a department when the
	// line itself carries none.
	NumberPatterns    []KeywordMapping `yaml:"number_patterns"`
}

// Location resolves TimeZone. Day boundaries of stats, logs and reports use it.
func (r Routing) Location() (*time.Location, error) {
	return time.LoadLocation(r.TimeZone)
}

// KeywordMapping sends content containing any of Words to Department.
type KeywordMapping struct {
	Department string   `yaml:"department"`
	Words      []string `yaml:"words"`
}

// DefaultKeywords is the ordered keyword table used when none is configured.
func DefaultKeywords() []KeywordMapping {
	return []KeywordMapping{
		{Department: "credit_analysis", Words: []string{"credit", "loan", "financing", "approval"}},
		{Department: "vehicle_transport", Words: []string{"transport", "vehicle", "shipping", "delivery"}},
		{Department: "sales", Words: []string{"sales", "buy", "purchase", "deal"}},
	}
}

// DefaultNumberPatterns is the dialed-number table used when none is configured.
func DefaultNumberPatterns() []KeywordMapping {
	return []KeywordMapping{
		{Department: "sales", Words: []string{"SALES"}},
		{Department: "credit_analysis", Words: []string{"CREDIT"}},
		{Department: "vehicle_transport", Words: []string{"TRANSPORT"}},
		{Department: "customer_service", Words: []string{"SUPPORT"}},
	}
}

type Notify struct {
	WebhookURL     string        `yaml:"webhook_url" env:"ONETALK_WEBHOOK_URL"`
	WebhookTimeout time.Duration `yaml:"webhook_timeout" env-default:"5s"`
	WebhookRPS     float64       `yaml:"webhook_rps" env-default:"5"`
	InsightsDir    string        `yaml:"insights_dir" env:"ONETALK_INSIGHTS_DIR" env-default:"insights"`
}

type Redis struct {
	Addr    string `yaml:"addr" env:"REDIS_ADDR"`
	Channel string `yaml:"channel" env-default:"onetalk:communications"`
}

type Report struct {
	Enabled  bool   `yaml:"enabled" env-default:"true"`
	Schedule string `yaml:"schedule" env-default:"5 0 * * *"`
}

type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"20"`
	Burst int     `yaml:"burst" env-default:"40"`
}

func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		return nil, errors.New("CONFIG_PATH is not set")
	}

	return LoadPath(configPath)
}

func LoadPath(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("config file does not exist: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}

	return cfg
}

func (c *Config) normalize() error {
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Postgres.Username == "" || c.Postgres.Password == "" {
			return errors.New("postgres credentials are required for the postgres driver")
		}
	case DriverSQLite:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if len(c.Routing.Keywords) == 0 {
		c.Routing.Keywords = DefaultKeywords()
	}

	if len(c.Routing.NumberPatterns) == 0 {
		c.Routing.NumberPatterns = DefaultNumberPatterns()
	}

	if _, err := c.Routing.Location(); err != nil {
		return fmt.Errorf("invalid routing time zone %q: %w", c.Routing.TimeZone, err)
	}

	return nil
}
