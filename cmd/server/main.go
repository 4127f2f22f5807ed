package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskie/backend/internal/auth"
	"taskie/backend/internal/cache"
	"taskie/backend/internal/config"
	"taskie/backend/internal/gateway"
	"taskie/backend/internal/handlers"
	"taskie/backend/internal/localstore"
	"taskie/backend/internal/middleware"
	"taskie/backend/internal/monitoring"
	"taskie/backend/internal/recon"
	"taskie/backend/internal/store"
	"taskie/backend/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Remote tier. A missing database is not fatal: the reconciliation
	// service runs the session against local files instead.
	var remote gateway.RemoteGateway
	var cachedGateway *gateway.CachedGateway
	db, err := gateway.Connect(cfg.GetDatabaseDSN(), &gateway.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: 30 * time.Minute,
	})
	if err != nil {
		log.Printf("Database unavailable, running local-only: %v", err)
	} else {
		if err := gateway.Migrate(db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		redisCache := cache.NewRedisCache(&cache.Config{
			Addr:         cfg.GetRedisAddr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		cachedGateway = gateway.NewCachedGateway(gateway.NewGormGateway(db), redisCache, cfg.Redis.CacheTTL)
		remote = cachedGateway
	}

	local := localstore.New(cfg.Local.TasksFile, cfg.Local.MembersFile)
	tasks := store.NewTaskStore()
	members := store.NewMemberStore()
	svc := recon.New(remote, local, tasks, members)

	authService := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)

	// Background jobs ride their own redis connection so a cache outage
	// cannot starve the queue of its pool.
	var jobQueue *worker.JobQueue
	var jobWorker *worker.Worker
	workerRedis := cache.NewRedisCache(&cache.Config{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := workerRedis.Health(context.Background()); err != nil {
		log.Printf("Redis unavailable, report jobs disabled: %v", err)
	} else {
		jobQueue = worker.NewJobQueue(workerRedis.Client())
		jobWorker = worker.New(worker.Config{
			RedisClient: workerRedis.Client(),
			Queues:      cfg.Worker.Queues,
		})
		mailer := worker.LogMailer{}
		jobWorker.RegisterHandler(worker.JobTypeReportEmail, worker.NewReportEmailHandler(svc, mailer))
		jobWorker.RegisterHandler(worker.JobTypeTaskReminder, worker.NewTaskReminderHandler(mailer))
		jobWorker.Start(cfg.Worker.Concurrency)
	}

	metrics := monitoring.NewMetrics()
	health := monitoring.NewHealthChecker()
	health.Register("local_storage", func(ctx context.Context) error {
		return os.MkdirAll(cfg.Local.DataDir, 0o755)
	})
	if db != nil {
		health.Register("database", func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		})
	}
	if jobQueue != nil {
		health.Register("redis", workerRedis.Health)
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSec, cfg.RateLimit.BurstSize)
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Config:      cfg,
		Auth:        handlers.NewAuthHandler(authService),
		Tasks:       handlers.NewTaskHandler(svc, tasks),
		Members:     handlers.NewMemberHandler(svc, members),
		Status:      handlers.NewStatusHandler(svc, tasks, cachedGateway, metrics, health, jobQueue),
		Metrics:     metrics.Middleware(),
		RateLimiter: limiter,
	})

	server := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("Listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	if jobWorker != nil {
		jobWorker.Stop()
	}
	if limiter != nil {
		limiter.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
