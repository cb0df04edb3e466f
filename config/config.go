package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config is built once at startup and passed explicitly to each component.
// It is never mutated afterwards.
type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"database"`
	Provider struct {
		BaseURL           string        `yaml:"base_url"`
		APIKey            string        `yaml:"api_key"`
		Interval          string        `yaml:"interval"`
		RequestsPerMinute int           `yaml:"requests_per_minute"`
		Timeout           time.Duration `yaml:"timeout"`
	} `yaml:"provider"`
	Symbols []string `yaml:"symbols"`
	Market  struct {
		Open                  string `yaml:"open"`
		Close                 string `yaml:"close"`
		UpdateIntervalMinutes int    `yaml:"update_interval_minutes"`
	} `yaml:"market"`
}

// Load reads the YAML config file, then applies environment overrides.
// A .env file is honored when present so local setups match production
// environment variables.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	c := defaults()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func defaults() *Config {
	c := &Config{}
	c.Environment = "development"
	c.Server.Port = "8080"
	c.Database.Host = "localhost"
	c.Database.Port = "5432"
	c.Database.User = "postgres"
	c.Database.Name = "stockpulse"
	c.Database.SSLMode = "disable"
	c.Provider.Interval = "5min"
	c.Provider.RequestsPerMinute = 15
	c.Provider.Timeout = 30 * time.Second
	c.Symbols = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "META"}
	c.Market.Open = "09:30"
	c.Market.Close = "16:00"
	c.Market.UpdateIntervalMinutes = 5
	return c
}

// applyEnv lets environment variables override file values, mainly so
// secrets stay out of the config file.
func (c *Config) applyEnv() {
	set(&c.Environment, "ENVIRONMENT")
	set(&c.Server.Port, "PORT")
	set(&c.Database.Host, "DB_HOST")
	set(&c.Database.Port, "DB_PORT")
	set(&c.Database.User, "DB_USER")
	set(&c.Database.Password, "DB_PASSWORD")
	set(&c.Database.Name, "DB_NAME")
	set(&c.Database.SSLMode, "DB_SSLMODE")
	set(&c.Provider.APIKey, "API_KEY")
	set(&c.Provider.BaseURL, "API_BASE_URL")
	set(&c.Provider.Interval, "API_INTERVAL")
	if v := os.Getenv("API_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Provider.Timeout = d
		}
	}
	if v := os.Getenv("API_REQUESTS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Provider.RequestsPerMinute = n
		}
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Symbols = strings.Split(v, ",")
	}
}

func set(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks the fields the pipeline cannot run without.
func (c *Config) Validate() error {
	if c.Provider.APIKey == "" {
		return fmt.Errorf("provider api_key is required")
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols cannot be empty")
	}
	if c.Provider.Interval == "" {
		return fmt.Errorf("provider interval is required")
	}
	if c.Market.UpdateIntervalMinutes <= 0 {
		return fmt.Errorf("market update_interval_minutes must be positive")
	}
	return nil
}

// OpenDB establishes and verifies the PostgreSQL connection.
func OpenDB(c *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Database.Host,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.Port,
		c.Database.SSLMode,
	)

	logLevel := logger.Warn
	if c.Environment == "production" {
		logLevel = logger.Error
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database handle: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database ping: %w", err)
	}

	return db, nil
}
