package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"hereforus/apps/recommender/features/ingest"
	"hereforus/apps/recommender/features/recommend"
	"hereforus/apps/recommender/internal/adapter/clova"
	"hereforus/apps/recommender/internal/adapter/milvus"
	"hereforus/apps/recommender/internal/config"
	"hereforus/apps/recommender/internal/fetch"
	"hereforus/apps/recommender/internal/index"
	"hereforus/apps/recommender/internal/logger"
	"hereforus/apps/recommender/internal/middleware"

	_ "github.com/lib/pq"
)

func main() {
	// Initialize structured logger
	base := slog.NewJSONHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(logger.NewContextHandler(base)))

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// 2. Database Connection (food catalog)
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPass, cfg.DBName)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("failed to open db connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Retry connection
	for i := 0; i < 10; i++ {
		if err := db.Ping(); err == nil {
			break
		}
		slog.Warn("failed to ping db, retrying...", "attempt", i+1, "max_attempts", 10)
		time.Sleep(2 * time.Second)
	}

	if err := db.Ping(); err != nil {
		slog.Error("failed to ping db after retries", "error", err)
		os.Exit(1)
	}

	// 3. Adapters
	vectorClient := milvus.NewClient(cfg.MilvusURL)
	indexManager := index.NewManager(vectorClient, cfg.IndexWait, cfg.IndexPoll)

	embedder := clova.NewEmbedder(cfg.EmbeddingHost, cfg.EmbeddingPath, clova.Credentials{
		APIKey:     cfg.EmbeddingAPIKey,
		GatewayKey: cfg.EmbeddingGWKey,
	}, cfg.EmbedRatePerSec)

	completionClient := clova.NewCompletionClient(cfg.ModelHost, cfg.ModelPath, clova.Credentials{
		APIKey:     cfg.ModelAPIKey,
		GatewayKey: cfg.ModelGWKey,
	})

	// 4. Feature: Ingest
	fetchClient := fetch.NewClient(cfg.FetchRetryCap)
	foodRepo := ingest.NewFoodRepo(db)
	ingestService := ingest.NewService(fetchClient, foodRepo, embedder, indexManager, ingest.Options{
		FestivalURL:    cfg.FestivalURL,
		PerformanceURL: cfg.PerformanceURL,
		MovieURL:       cfg.MovieURL,
		FoodURL:        cfg.FoodURL,
		FoodPageSize:   cfg.FoodPageSize,
		FoodTotalLimit: cfg.FoodTotalLimit,
	})
	ingestHandler := ingest.NewHandler(ingestService)

	// 5. Feature: Recommend
	queryLogger, err := recommend.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = recommend.NewQueryLogger(os.Stdout)
	}

	recommendService := recommend.NewService(embedder, indexManager, completionClient, queryLogger, recommend.Options{
		Collections: []string{
			ingest.FestivalCollection,
			ingest.FoodCollection,
			ingest.PerformanceCollection,
			ingest.MovieCollection,
		},
		FestFoodCollections: []string{
			ingest.FestivalCollection,
			ingest.FoodCollection,
		},
		SearchLimit: cfg.SearchLimit,
	})
	recommendHandler := recommend.NewHandler(recommendService)

	// Routes: ingestion triggers, one per domain
	http.Handle("GET /festival", middleware.CorrelationID(ingestHandler.Trigger(ingest.Festival)))
	http.Handle("GET /movie", middleware.CorrelationID(ingestHandler.Trigger(ingest.Movie)))
	http.Handle("GET /food", middleware.CorrelationID(ingestHandler.Trigger(ingest.Food)))
	http.Handle("GET /performance", middleware.CorrelationID(ingestHandler.Trigger(ingest.Performance)))

	// Routes: recommendation, one per prompt mode
	http.Handle("POST /course", middleware.CorrelationID(recommendHandler.Recommend(recommend.ModeCourse)))
	http.Handle("POST /itinerary", middleware.CorrelationID(recommendHandler.Recommend(recommend.ModeItinerary)))
	http.Handle("POST /festfood", middleware.CorrelationID(recommendHandler.Recommend(recommend.ModeFestFood)))
	http.Handle("POST /date", middleware.CorrelationID(http.HandlerFunc(recommendHandler.Date)))

	// 6. Start Server
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	slog.Info("server starting", "port", cfg.ServerPort)
	if err := http.ListenAndServe(addr, nil); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
