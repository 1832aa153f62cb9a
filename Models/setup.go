package Models

import (
	"fmt"

	"Convoy/Config"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open picks the dialect from the config: postgres or mysql through
// DATABASE_URL, a local sqlite file otherwise.
func Open(cfg Config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseURL)
	case "mysql":
		dialector = mysql.Open(cfg.DatabaseURL)
	default:
		dialector = sqlite.Open(cfg.DBPath)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// Trips outlive the vehicles, drivers and sites they reference.
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DBDriver, err)
	}
	return db, nil
}

func Connect(cfg Config.Config) error {
	db, err := Open(cfg)
	if err != nil {
		return err
	}
	if err := Migrate(db); err != nil {
		return err
	}
	DB = db
	log.WithField("driver", cfg.DBDriver).Info("database connected")
	return nil
}

func Migrate(db *gorm.DB) error {
	// 1. Records without dependencies
	if err := db.AutoMigrate(
		&User{},
		&Driver{},
		&Site{},
	); err != nil {
		return fmt.Errorf("migrate base models: %w", err)
	}

	// 2. Vehicles reference drivers
	if err := db.AutoMigrate(&Vehicle{}, &MaintenanceLog{}); err != nil {
		return fmt.Errorf("migrate fleet models: %w", err)
	}

	// 3. Planning output
	if err := db.AutoMigrate(&PlanRun{}, &Trip{}); err != nil {
		return fmt.Errorf("migrate planning models: %w", err)
	}

	// 4. Snags reference users, sites and vehicles
	if err := db.AutoMigrate(&Snag{}); err != nil {
		return fmt.Errorf("migrate snag models: %w", err)
	}
	return nil
}
