package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"progress-service/internal/app"
	"progress-service/internal/config"
	"progress-service/internal/infra/memory"
	"progress-service/internal/infra/postgres"
	rediscache "progress-service/internal/infra/redis"
	"progress-service/internal/logger"
	transport "progress-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the progress server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	var (
		store   app.Store
		catalog app.CatalogReader
		loader  memory.LessonLoader
	)
	if cfg.Postgres.URL != "" {
		db, err := openBun(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := runMigrations(ctx, db, log); err != nil {
			return err
		}

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		pgCatalog := postgres.NewCatalog(pool)
		store, catalog, loader = postgres.NewStore(db), pgCatalog, pgCatalog
		log.Info("using postgres store")
	} else {
		mem := memory.NewStore(memory.SampleContent())
		store, catalog, loader = mem, mem, mem
		log.Warn("postgres url not configured, using in-memory store with sample content")
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var lessons app.LessonRepository
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		lessons = rediscache.NewLessonRepository(redisClient, loader, config.TTLDuration(cfg.Redis.TTL, catalogTTL))
	} else {
		lessons = memory.NewLessonRepository(loader, catalogTTL)
	}

	submissions := app.NewSubmissionService(store, app.EngineConfig{
		XPPerCorrect:    cfg.Engine.XPPerCorrect,
		MaxAnswerLength: cfg.Engine.MaxAnswerLength,
	}, log.With("component", "submissions"))
	catalogService := app.NewCatalogService(catalog, lessons, cfg.Engine.PracticeBatchSize)

	httpLog := log.With("component", "http")
	handler := transport.NewHandler(submissions, catalogService, cfg.Server.DefaultUserID, cfg.Engine.MaxAnswerLength, httpLog)
	wsHandler := transport.NewWSHandler(submissions, catalogService, cfg.Server.DefaultUserID, cfg.Engine.MaxAnswerLength, httpLog)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(handler, wsHandler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting progress service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.TTLDuration(cfg.Server.ShutdownTimeout, 5*time.Second))
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
