package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/lmittmann/tint"
	config "github.com/maheshrc27/postpub/configs"
	"github.com/maheshrc27/postpub/internal/api/handlers"
	"github.com/maheshrc27/postpub/internal/api/middleware"
	job "github.com/maheshrc27/postpub/internal/jobs"
	"github.com/maheshrc27/postpub/internal/queue"
	"github.com/maheshrc27/postpub/internal/repository"
	"github.com/maheshrc27/postpub/internal/service"
	"github.com/maheshrc27/postpub/internal/storage"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file", "error", err)
	}

	cfg := config.LoadConfig()
	setupLogger(cfg.LogLevel)

	ctx := context.Background()

	fs, err := storage.NewLocalStorage(cfg.DataDir, cfg.InboxDir)
	if err != nil {
		fatal("failed to prepare post folders", err)
	}

	postRepo, err := repository.NewPostRepository(cfg.DataFile)
	if err != nil {
		fatal("failed to open post data", err)
	}

	var db *sql.DB
	historyRepo := repository.NewMemoryPublishHistory()
	if cfg.PostgresURI != "" {
		db, err = sql.Open("postgres", cfg.PostgresURI)
		if err != nil {
			fatal("failed to connect to database", err)
		}
		if err := db.PingContext(ctx); err != nil {
			fatal("database is unreachable", err)
		}
		if err := repository.MigratePublishHistory(ctx, db); err != nil {
			fatal("failed to migrate publish history", err)
		}
		historyRepo = repository.NewPublishHistoryRepository(db)
	}

	var mirror service.MediaMirror
	if cfg.R2.BucketName != "" {
		r2Service, err := service.NewR2Service(ctx, cfg.R2)
		if err != nil {
			fatal("failed to configure R2", err)
		}
		mirror = r2Service
	}

	var (
		client    *asynq.Client
		redisConn asynq.RedisConnOpt
		scheduler service.PublishScheduler
	)
	if cfg.RedisURI != "" {
		redisConn = redisOpt(cfg.RedisURI)
		client = asynq.NewClient(redisConn)
		defer client.Close()
		scheduler = queue.NewScheduler(client)
	}

	facebookService := service.NewFacebookService(*cfg, postRepo)
	postService := service.NewPostService(cfg.PublicURL, fs, postRepo, historyRepo, facebookService, mirror, scheduler)

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    25 * 1024 * 1024, // 25 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				slog.Error("request failed", "path", c.Path(), "error", err)
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	var auth fiber.Handler
	if cfg.RequireAuth {
		if cfg.SecretKey == "" {
			fatal("REQUIRE_AUTH is set without SECRET_KEY", nil)
		}
		auth = middleware.NewAuthMiddleware(*cfg).AuthMiddleware()
	}

	handlers.RegisterRoutes(app,
		handlers.NewPostHandler(postService),
		handlers.NewAccountHandler(facebookService, *cfg),
		auth,
		fs.Dir(storage.Drafts),
		fs.Dir(storage.ToBePublished),
		fs.Dir(storage.Published),
	)

	// cron jobs
	c := cron.New()
	if cfg.SyncInterval != "" {
		syncJob := job.NewSyncDraftsJob(postService, time.Minute)
		if err := c.AddFunc(cfg.SyncInterval, syncJob.SyncDrafts); err != nil {
			fatal("invalid SYNC_INTERVAL", err)
		}
		c.Start()
		slog.Info("draft sync scheduled", "interval", cfg.SyncInterval)
	}

	// queue
	var worker *asynq.Server
	if client != nil {
		worker = asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 1,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishPost, queue.NewQueue(postService).HandlePublishPostTask)

		slog.Info("starting the asynq server")
		if err := worker.Start(mux); err != nil {
			fatal("could not start asynq server", err)
		}
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			fatal("failed to start server", err)
		}
	}()
	slog.Info("server is running", "url", cfg.PublicURL)

	gracefulShutdown(app, c, worker, db)
}

func setupLogger(level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      l,
		TimeFormat: time.DateTime,
	})))
}

// redisOpt accepts either a redis:// URI or a bare host:port.
func redisOpt(uri string) asynq.RedisConnOpt {
	if strings.Contains(uri, "://") {
		opt, err := asynq.ParseRedisURI(uri)
		if err != nil {
			fatal("invalid REDIS_URI", err)
		}
		return opt
	}
	return asynq.RedisClientOpt{Addr: uri}
}

func fatal(msg string, err error) {
	if err != nil {
		slog.Error(msg, "error", err)
	} else {
		slog.Error(msg)
	}
	os.Exit(1)
}

func closeDB(db *sql.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
		return
	}
	slog.Info("database connection closed")
}

func gracefulShutdown(app *fiber.App, c *cron.Cron, worker *asynq.Server, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	slog.Info("shutting down server")

	c.Stop()
	if worker != nil {
		worker.Shutdown()
	}

	if err := app.Shutdown(); err != nil {
		fatal("failed to shut down server", err)
	}

	closeDB(db)
	slog.Info("server shutdown complete")
}
