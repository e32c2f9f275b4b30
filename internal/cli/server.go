package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"lecture-quiz-service/internal/app"
	"lecture-quiz-service/internal/config"
	"lecture-quiz-service/internal/domain"
	"lecture-quiz-service/internal/infra/memory"
	"lecture-quiz-service/internal/infra/postgres"
	redisinfra "lecture-quiz-service/internal/infra/redis"
	"lecture-quiz-service/internal/logger"
	transport "lecture-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the practice server",
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

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.PayloadLoader = memory.NewStaticPayloadLoader(samplePayloads())
	var favorites app.FavoriteService = memory.NewFavoriteService()
	if pool != nil {
		loader = postgres.NewPayloadLoader(pool)
		favorites = postgres.NewFavoriteService(pool)
	}

	setTTL := config.TTLDuration(cfg.QuestionSets.TTL, 10*time.Minute)
	var sets app.QuestionSetRepository
	if redisClient != nil {
		sets = redisinfra.NewQuestionSetRepository(redisClient, loader, setTTL, log)
	} else {
		sets = memory.NewQuestionSetRepository(loader, setTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, redisTTL, log)
	} else {
		store = memory.NewSessionStore()
	}
	service := app.NewPracticeService(store, sets, favorites, log,
		app.WithFavoriteTimeout(config.TTLDuration(cfg.Favorites.Timeout, 5*time.Second)))
	wsHandler := transport.NewWSHandler(service, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting practice service", "port", finalPort, "postgres", pool != nil, "redis", redisClient != nil)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// samplePayloads backs the server when no Postgres is configured.
func samplePayloads() map[string]domain.Payload {
	return map[string]domain.Payload{
		"sample-1": {
			ID:          "sample-1",
			DisplayType: "객관식",
			Raw: []byte(`{"questions":[
				{"question_text":"Which layer routes packets?","options":["Transport","Network","Session"],"correct_answer":2,
				 "explanation":"Routing happens at the network layer."},
				{"question_text":"Which protocol is connectionless?","options":["TCP","UDP"],"correct_answer":"B"}
			]}`),
		},
		"sample-2": {
			ID:          "sample-2",
			DisplayType: "OX",
			Raw:         []byte(`[{"question_text":"HTTP is stateless.","correct_answer":true}]`),
		},
	}
}
