package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/api/handlers"
	"github.com/maheshrc27/crosspost/internal/api/middleware"
	"github.com/maheshrc27/crosspost/internal/database"
	job "github.com/maheshrc27/crosspost/internal/jobs"
	"github.com/maheshrc27/crosspost/internal/lock"
	"github.com/maheshrc27/crosspost/internal/logger"
	"github.com/maheshrc27/crosspost/internal/metrics"
	"github.com/maheshrc27/crosspost/internal/queue"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"
)

type repositories struct {
	posts   repository.PostRepository
	creds   repository.CredentialRepository
	items   repository.IngestedItemRepository
	history repository.PostingHistoryRepository
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()
	logger.SetupDefault(os.Stdout, cfg.LogLevel)

	if cfg.SecretKey == "" {
		log.Fatal("SECRET_KEY must be set")
	}

	ctx := context.Background()

	db, repos, err := openRepositories(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to set up storage: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	registry := service.NewPlatformRegistry(cfg.Platforms, &http.Client{Timeout: cfg.Platforms.Timeout}, collector)
	brandService := service.NewBrandService(cfg.BrandRules, cfg.DefaultBrand, repos.creds)
	publishService := service.NewPublishService(brandService, registry, collector, cfg.Scheduler.Concurrency)

	mediaStore, err := service.NewR2Service(ctx, cfg.R2)
	if errors.Is(err, service.ErrMediaStoreNotConfigured) {
		slog.Warn("R2 is not configured, feed media will be linked, not copied")
	} else if err != nil {
		log.Fatalf("Failed to set up R2: %v", err)
	}

	ingestService := service.NewIngestService(cfg.Ingest, service.IngestDeps{
		Feeds:     service.NewFeedService(service.NewSafeHTTPClient(cfg.Ingest.FetchTimeout)),
		Items:     repos.items,
		Posts:     repos.posts,
		Media:     mediaStore,
		Generator: service.NewContentGenerator(cfg.AzureOpenAI, nil),
		Metrics:   collector,
	})
	postService := service.NewPostService(repos.posts)
	retryService := service.NewRetryService(repos.posts, repos.history)
	platformService := service.NewPlatformService(repos.creds, registry)

	var (
		client      *asynq.Client
		enq         queue.Enqueuer
		runLock     job.RunLocker
		asynqServer *asynq.Server
	)
	if cfg.RedisURI != "" {
		redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
		client = asynq.NewClient(redisConn)
		defer client.Close()
		enq = client

		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
		defer rdb.Close()
		runLock = lock.NewRedisLock(rdb, lock.DefaultKey, cfg.Scheduler.RunLockTTL)

		asynqServer = asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})
		queueW := queue.NewQueue(ingestService)
		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypeIngestFeed, queueW.HandleIngestTask)

		go func() {
			log.Println("Starting the Asynq server...")
			if err := asynqServer.Run(mux); err != nil {
				log.Fatalf("Could not start Asynq server: %v", err)
			}
		}()
	} else {
		slog.Warn("REDIS_URI is not set, ingestion runs inline only and scheduler runs are not locked")
	}

	scheduler := job.NewPublishScheduler(repos.posts, repos.history, publishService, runLock, collector, job.SchedulerConfig{
		MaxPostsPerRun: cfg.Scheduler.MaxPostsPerRun,
		ClaimTTL:       cfg.Scheduler.ClaimTTL,
	})

	c := cron.New()
	if cfg.Scheduler.CronSpec != "" {
		if err := c.AddFunc(cfg.Scheduler.CronSpec, scheduler.RunNow); err != nil {
			log.Fatalf("Invalid SCHEDULER_CRON: %v", err)
		}
	}
	if cfg.Ingest.CronSpec != "" && enq != nil {
		sweep := job.NewIngestSweepJob(enq, cfg.Ingest.Owners)
		if err := c.AddFunc(cfg.Ingest.CronSpec, sweep.Sweep); err != nil {
			log.Fatalf("Invalid INGEST_CRON: %v", err)
		}
	}
	c.Start()

	app := fiber.New(fiber.Config{
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    4 * 1024 * 1024,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			slog.Error("request failed", "path", c.Path(), "error", err)
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(reg)))

	cronHandler := handlers.NewCronHandler(scheduler, enq, cfg.Ingest.Owners)
	cronRoutes := app.Group("/api/cron", middleware.CronSecret(cfg.CronSecret))
	cronRoutes.Get("/publish", cronHandler.Publish)
	cronRoutes.Get("/ingest", cronHandler.Ingest)

	authMiddleware := middleware.NewAuthMiddleware(cfg.SecretKey, cfg.CookieName)
	api := app.Group("/api", authMiddleware.AuthMiddleware())

	post := handlers.NewPostHandler(postService, retryService)
	api.Post("/posts", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Get("/posts/:id", post.GetPost)
	api.Post("/posts/:id/retry", post.RetryPost)

	ingest := handlers.NewIngestHandler(ingestService)
	api.Post("/ingest", ingest.Ingest)

	platform := handlers.NewPlatformHandler(platformService)
	api.Put("/accounts/:platform", platform.ConnectAccount)
	api.Delete("/accounts/:platform", platform.DisconnectAccount)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	slog.Info("server is running", "port", cfg.Port)

	gracefulShutdown(app, db, c, asynqServer)
}

// openRepositories uses Postgres when POSTGRES_URI is set and in-memory
// stores otherwise. The returned db is nil in the second case.
func openRepositories(ctx context.Context, cfg *config.Config) (*sql.DB, repositories, error) {
	if cfg.PostgresURI == "" {
		slog.Warn("POSTGRES_URI is not set, using in-memory storage")
		return nil, repositories{
			posts:   repository.NewMemoryPostRepository(),
			creds:   repository.NewMemoryCredentialRepository(),
			items:   repository.NewMemoryIngestedItemRepository(),
			history: repository.NewMemoryPostingHistoryRepository(),
		}, nil
	}

	if err := database.RunMigrations(cfg.PostgresURI); err != nil {
		return nil, repositories{}, fmt.Errorf("run migrations: %w", err)
	}
	db, err := database.Open(ctx, cfg.PostgresURI)
	if err != nil {
		return nil, repositories{}, err
	}

	return db, repositories{
		posts:   repository.NewPostRepository(db),
		creds:   repository.NewCredentialRepository(db, utils.DeriveKey(cfg.SecretKey)),
		items:   repository.NewIngestedItemRepository(db),
		history: repository.NewPostingHistoryRepository(db),
	}, nil
}

func closeDB(db *sql.DB) {
	if db == nil {
		return
	}
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB, c *cron.Cron, asynqServer *asynq.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	c.Stop()
	if asynqServer != nil {
		asynqServer.Shutdown()
	}

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
