package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/trashmap/trashmap-api/app/controllers"
	"github.com/trashmap/trashmap-api/app/repository"
	"github.com/trashmap/trashmap-api/internal/pkg/authority"
	"github.com/trashmap/trashmap-api/internal/pkg/cache"
	"github.com/trashmap/trashmap-api/internal/pkg/config"
	"github.com/trashmap/trashmap-api/internal/pkg/env"
	"github.com/trashmap/trashmap-api/internal/pkg/geocoding"
	"github.com/trashmap/trashmap-api/internal/pkg/jobqueue"
	"github.com/trashmap/trashmap-api/internal/pkg/location"
	"github.com/trashmap/trashmap-api/internal/pkg/metrics/counter"
	"github.com/trashmap/trashmap-api/internal/pkg/middleware"
	"github.com/trashmap/trashmap-api/internal/pkg/notify"
	"github.com/trashmap/trashmap-api/internal/pkg/progress"
	"github.com/trashmap/trashmap-api/internal/pkg/router"
	"github.com/trashmap/trashmap-api/internal/pkg/storage"
	"github.com/trashmap/trashmap-api/internal/pkg/submission"
)

func main() {
	env.SetupEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Config] %v", err)
	}
	log.SetLevel(logLevel(cfg.App.LogLevel))

	ctx := context.Background()
	app, shutdown, err := NewApplication(ctx, cfg)
	if err != nil {
		log.Fatalf("[App] Startup failed: %v", err)
	}

	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.App.Host, cfg.App.Port)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("[App] Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("[App] Shutting down")
	if err := app.ShutdownWithTimeout(15 * time.Second); err != nil {
		log.Errorf("[App] HTTP shutdown: %v", err)
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	shutdown(shutdownCtx)
}

// NewApplication wires every component from cfg. The returned func releases
// background workers and connections.
func NewApplication(ctx context.Context, cfg *config.Config) (*fiber.App, func(context.Context), error) {
	rdb := cache.New(ctx, cfg.Cache)

	store, err := repository.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("record store: %w", err)
	}

	objects, err := storage.New(ctx, cfg.Storage, cfg.App.Env)
	if err != nil {
		return nil, nil, fmt.Errorf("object store: %w", err)
	}

	directory, err := authority.LoadDirectory(resolvePath(cfg.Authority.ContactsFile))
	if err != nil {
		return nil, nil, fmt.Errorf("authority directory: %w", err)
	}

	geocoder := geocoding.New(cfg.Geocoder, rdb)
	if geocoder == nil {
		log.Warn("[App] Geocoding disabled; text hints and jurisdictions are unavailable")
	} else {
		log.Infof("[App] Geocoding via %s", geocoder.Provider())
	}

	resolver := location.NewResolver(cfg.Location, geocoder)
	lookup := authority.NewLookup(geocoder, directory)

	dispatcher, queue, err := newNotifications(cfg, rdb)
	if err != nil {
		return nil, nil, err
	}

	sources := counter.NewSources(rdb)
	pipeline := submission.NewPipeline(submission.Deps{
		Resolver:    resolver,
		Coordinator: submission.NewCoordinator(objects, store.Reports, cfg.Storage.UploadProfile),
		Reports:     store.Reports,
		Authority:   lookup,
		Counter:     sources,
		Notifier:    dispatcher,
	})

	app := fiber.New(fiber.Config{
		AppName:   "TrashMap API",
		BodyLimit: cfg.App.BodyLimit,
	})
	app.Use(recover.New(), logger.New(), cors.New(cors.Config{
		AllowOrigins: cfg.App.CORSAllow,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + controllers.HeaderUploadID,
	}))

	handlers := router.Handlers{
		Reports:   controllers.NewReportController(pipeline, store.Reports, progress.NewTracker(rdb, progress.DefaultTTL), cfg.Storage.MaxUploadBytes),
		Admin:     controllers.NewAdminController(store.Reports, objects),
		Stats:     controllers.NewStatsController(sources),
		AdminAuth: middleware.RequireAdmin(cfg.Admin),
		HealthChecks: map[string]router.HealthCheck{
			"record_store": store.Ping,
			"cache":        func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		OpenAPIFile: findOpenAPIFile(),
	}
	if check := storage.HealthCheck(objects); check != nil {
		handlers.HealthChecks["object_store"] = check
	}
	if local, ok := objects.(*storage.LocalStore); ok {
		handlers.UploadsDir = local.Root()
		handlers.UploadsURL = localMountPath(cfg.Storage.LocalPublicURL)
	}
	router.InstallRouter(app, handlers)

	shutdown := func(ctx context.Context) {
		if queue != nil {
			queue.Stop()
		}
		if err := store.Close(ctx); err != nil {
			log.Errorf("[App] Closing record store: %v", err)
		}
		if err := rdb.Close(); err != nil {
			log.Errorf("[App] Closing cache: %v", err)
		}
	}
	return app, shutdown, nil
}

// newNotifications builds the dispatcher for NOTIFY_MODE. In queue mode the
// returned queue is already started and delivers through the same dispatcher.
func newNotifications(cfg *config.Config, rdb *redis.Client) (*notify.Dispatcher, *jobqueue.Queue, error) {
	if cfg.Notify.Mode == config.NotifyOff {
		return notify.NewDispatcher(cfg.Notify, nil, nil), nil, nil
	}

	sender, err := notify.NewSMTPSender(cfg.Notify)
	if err != nil {
		return nil, nil, fmt.Errorf("smtp sender: %w", err)
	}

	if cfg.Notify.Mode != config.NotifyQueue {
		return notify.NewDispatcher(cfg.Notify, sender, nil), nil, nil
	}

	queue := jobqueue.NewQueue(rdb, cfg.JobQueue.Workers)
	dispatcher := notify.NewDispatcher(cfg.Notify, sender, queue)
	queue.Handle(jobqueue.JobTypeAssistanceNotification, jobqueue.NotificationHandler(dispatcher))
	queue.Start()
	return dispatcher, queue, nil
}

var basePaths = []string{
	"./",
	"../../", // from cmd/trashmap
}

func resolvePath(p string) string {
	if p == "" || strings.HasPrefix(p, "/") {
		return p
	}
	for _, base := range basePaths {
		if _, err := os.Stat(base + p); err == nil {
			return base + p
		}
	}
	return p
}

func findOpenAPIFile() string {
	p := resolvePath("docs/v1/openapi.yml")
	if _, err := os.Stat(p); err != nil {
		log.Warnf("[App] OpenAPI document not found, swagger UI disabled: %v", err)
		return ""
	}
	return p
}

// localMountPath returns the route prefix for the local store. Absolute
// public URLs point at a CDN or proxy, so the files are still served under
// /uploads for it to pull from.
func localMountPath(publicURL string) string {
	if strings.HasPrefix(publicURL, "/") {
		return strings.TrimRight(publicURL, "/")
	}
	return "/uploads"
}

func logLevel(level string) log.Level {
	switch level {
	case "trace":
		return log.LevelTrace
	case "debug":
		return log.LevelDebug
	case "warn":
		return log.LevelWarn
	case "error":
		return log.LevelError
	default:
		return log.LevelInfo
	}
}
