package repository

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/trashmap/trashmap-api/internal/pkg/config"
	"github.com/trashmap/trashmap-api/internal/pkg/database"
)

// Store bundles the configured report repository with its shutdown hook.
type Store struct {
	Reports ReportRepository
	ping    func(ctx context.Context) error
	close   func(ctx context.Context) error
}

// Ping checks the connection for health reporting.
func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases the underlying connection.
func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// Open connects to the record store selected by RECORD_STORE.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.RecordStore.Driver {
	case config.RecordStoreMySQL:
		db, err := database.OpenMySQL(cfg.Database, cfg.App.Env == "dev")
		if err != nil {
			return nil, err
		}
		return &Store{
			Reports: NewReportRepository(db),
			ping: func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			close: func(context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.Close()
			},
		}, nil

	case config.RecordStoreMongo:
		client, db, err := database.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		return &Store{
			Reports: NewMongoReportRepository(db.Collection(database.ReportsCollection)),
			ping: func(ctx context.Context) error {
				return client.Ping(ctx, nil)
			},
			close: client.Disconnect,
		}, nil

	default:
		log.Errorf("[Repository] Unknown record store %q", cfg.RecordStore.Driver)
		return nil, fmt.Errorf("unknown record store %q", cfg.RecordStore.Driver)
	}
}
