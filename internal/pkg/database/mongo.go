package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trashmap/trashmap-api/internal/pkg/config"
)

// ReportsCollection is the document record store collection.
const ReportsCollection = "reports"

// ConnectMongo opens and pings the document record store and makes sure the
// reports indexes exist.
func ConnectMongo(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	start := time.Now()
	log.Infof("[Database] Connecting to MongoDB uri=%s db=%s", RedactURI(cfg.URI), cfg.DBName)

	dctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	c, err := mongo.Connect(dctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err = c.Ping(dctx, nil); err != nil {
		_ = c.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := c.Database(cfg.DBName)
	if err := createIndexes(ctx, db); err != nil {
		log.Warnf("[Database] Mongo index creation warnings: %v", err)
	}

	log.Infof("[Database] Connected to MongoDB in %s", time.Since(start).Round(time.Millisecond))
	return c, db, nil
}

func createIndexes(ctx context.Context, db *mongo.Database) error {
	ctxIdx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	col := db.Collection(ReportsCollection)
	var errs []string
	for name, keys := range map[string]bson.D{
		"submitted_at": {{Key: "submitted_at", Value: -1}},
		"image_key":    {{Key: "image_key", Value: 1}},
		"lat,lng":      {{Key: "lat", Value: 1}, {Key: "lng", Value: 1}},
	} {
		if _, err := col.Indexes().CreateOne(ctxIdx, mongo.IndexModel{Keys: keys}); err != nil {
			errs = append(errs, name+": "+err.Error())
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// RedactURI masks credentials embedded in a connection string.
func RedactURI(raw string) string {
	if raw == "" || !strings.Contains(raw, "://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.UserPassword("****", "****")
	return u.String()
}
