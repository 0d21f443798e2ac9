package database

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/trashmap/trashmap-api/app/models"
	"github.com/trashmap/trashmap-api/internal/pkg/config"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

// OpenMySQL connects to the SQL record store, retrying while the server boots.
// The schema is owned by the migrations in migrations/; autoMigrate is meant
// for local development only.
func OpenMySQL(cfg config.DatabaseConfig, autoMigrate bool) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       cfg.DSN(),
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), &gorm.Config{
			Logger:  logger.Default.LogMode(logger.Warn),
			NowFunc: func() time.Time { return time.Now().UTC() },
		})
		if err == nil {
			break
		}

		log.Warnf("[Database] Failed to connect to MySQL (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect mysql %s:%s: %w", cfg.Host, cfg.Port, err)
	}

	if autoMigrate {
		if err := db.AutoMigrate(&models.Report{}); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}

	log.Infof("[Database] Connected to MySQL %s:%s/%s", cfg.Host, cfg.Port, cfg.Name)
	return db, nil
}
