package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Host            string `yaml:"host"`
		Port            string `yaml:"port"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Database struct {
		// Driver is "sqlite" or "postgres".
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Auth struct {
		Secret      string `yaml:"secret"`
		TokenExpiry string `yaml:"token_expiry"`
		Admin       User   `yaml:"admin"`
		TestUser    User   `yaml:"test_user"`
	} `yaml:"auth"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	Log struct {
		Path string `yaml:"path"`
		// Level is the SQL log level: silent, error, warn or info.
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// DefaultSecret signs tokens when nothing else is configured. It is only fit for development.
const DefaultSecret = "change-me"

// User is a bootstrap account created on startup. An empty username disables it.
type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	var cfg Config
	cfg.Server.Host = "localhost"
	cfg.Server.Port = "8000"
	cfg.Server.ShutdownTimeout = "15s"
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = "quiz-api.db"
	cfg.Redis.TTL = "10m"
	cfg.Auth.Secret = DefaultSecret
	cfg.Auth.TokenExpiry = "30m"
	cfg.Auth.Admin = User{Username: "admin", Password: "admin"}
	cfg.Auth.TestUser = User{Username: "test", Password: "test"}
	cfg.CORS.AllowedOrigins = []string{"*"}
	cfg.Log.Path = "quiz-api.log"
	cfg.Log.Level = "warn"
	return cfg
}

// Load reads .env, then the YAML file at path on top of the defaults, then environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Host, "HOST")
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.DSN, "DB_DSN")
	setString(&cfg.Database.Host, "DB_HOST")
	setString(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.Name, "DB_NAME")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = n
		}
	}
	setString(&cfg.Auth.Secret, "JWT_SECRET")
	setString(&cfg.Log.Path, "LOG_PATH")
	setString(&cfg.Log.Level, "LOG_LEVEL")
}

// InsecureDefaults lists the development defaults still in effect.
func (c Config) InsecureDefaults() []string {
	var out []string
	if c.Auth.Secret == "" || c.Auth.Secret == DefaultSecret {
		out = append(out, "auth.secret is the built-in default; set JWT_SECRET")
	}
	for _, u := range []User{c.Auth.Admin, c.Auth.TestUser} {
		if u.Username != "" && u.Password == u.Username {
			out = append(out, fmt.Sprintf("bootstrap user %q has its username as password", u.Username))
		}
	}
	return out
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

// Addr is the host:port the HTTP server listens on.
func (c Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
