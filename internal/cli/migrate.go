package cli

import (
	"log"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"quiz-api/internal/config"
	"quiz-api/pkg/database"
)

// NewMigrateCmd creates or updates the database schema.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer closeDatabase(db)
			log.Printf("migrations applied")
			return nil
		},
	}
}

// openDatabase connects and migrates.
func openDatabase(cfg config.Config) (*gorm.DB, error) {
	db, err := database.Open(&database.Config{
		Driver:   cfg.Database.Driver,
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Name,
		LogLevel: cfg.Log.Level,
	})
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		closeDatabase(db)
		return nil, err
	}
	return db, nil
}

func closeDatabase(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
