// pkg/database/database.go
package database

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"quiz-api/internal/models"
)

type Config struct {
	Driver   string
	DSN      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	// LogLevel names the SQL log level: silent, error, warn or info. Empty means warn.
	LogLevel string
}

// LogLevel maps a configured level name to the gorm logger level.
func LogLevel(name string) logger.LogLevel {
	switch strings.ToLower(name) {
	case "silent", "off":
		return logger.Silent
	case "error":
		return logger.Error
	case "info", "debug":
		return logger.Info
	}
	return logger.Warn
}

// PostgresDSN builds a keyword/value DSN from the discrete fields, unless DSN is set.
func (c *Config) PostgresDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.Host,
		c.User,
		c.Password,
		c.DBName,
		c.Port,
	)
}

// SQLiteDSN adds a busy timeout so concurrent writers wait instead of failing.
func (c *Config) SQLiteDSN() string {
	dsn := c.DSN
	if dsn == "" {
		dsn = "quiz-api.db"
	}
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

// Open connects to the configured driver. Table names are singular.
func Open(config *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(config.Driver) {
	case "", "sqlite":
		dialector = sqlite.Open(config.SQLiteDSN())
	case "postgres", "postgresql":
		dialector = postgres.Open(config.PostgresDSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
		TranslateError: true,
		Logger:         logger.Default.LogMode(LogLevel(config.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", config.Driver, err)
	}
	return db, nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Label{},
		&models.Quiz{},
		&models.SingleChoiceQuestion{},
		&models.SingleChoiceOption{},
		&models.MultipleChoiceQuestion{},
		&models.MultipleChoiceOption{},
		&models.OpenQuestion{},
		&models.OpenOption{},
		&models.AssignmentQuestion{},
		&models.AssignmentOption{},
		&models.GapTextQuestion{},
		&models.GapTextSubQuestion{},
		&models.GapTextOption{},
		&models.Result{},
		&models.SingleChoiceAnswer{},
		&models.MultipleChoiceAnswer{},
		&models.OpenAnswer{},
		&models.AssignmentAnswer{},
		&models.GapTextAnswer{},
	)
}
