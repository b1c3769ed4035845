package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"querypilot/ai"
	"querypilot/assistant"
	"querypilot/cache"
	"querypilot/config"
	"querypilot/db"
	_ "querypilot/docs" // Swagger docs
	"querypilot/handlers"
	"querypilot/observability"
	"querypilot/pipeline"
	"querypilot/service"
	"querypilot/storage"
	"querypilot/storage/s3"
	"querypilot/validation"
	"querypilot/vectorstore"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	cfg, err := config.GetConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	ctx := context.Background()

	// Target database
	pool, err := service.OpenPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open target database: %v", err)
	}
	defer pool.Close()

	runner := service.NewRunner(pool)

	validator, err := validation.NewSQLValidator(cfg.Database.Driver == config.DriverSQLServer)
	if err != nil {
		log.Fatalf("Failed to initialize SQL validator: %v", err)
	}
	defer validator.Close()

	// Vector store
	store, err := vectorstore.New(cfg.Qdrant, cfg.VertexAI.EmbeddingDim, nil)
	if err != nil {
		log.Fatalf("Failed to connect to Qdrant: %v", err)
	}
	defer store.Close()
	if err := store.EnsureCollections(ctx); err != nil {
		log.Fatalf("Failed to prepare Qdrant collections: %v", err)
	}

	httpClient, err := ai.NewHTTPClient(ctx, cfg.VertexAI.Timeout)
	if err != nil {
		log.Fatalf("Failed to initialize Vertex AI credentials: %v", err)
	}

	newAssistant := assistant.NewFactory(assistant.Components{
		VertexAI:   cfg.VertexAI,
		Pipeline:   cfg.Pipeline,
		HTTPClient: httpClient,
		Store:      store,
		Runner:     runner,
		Validator:  validator,
	})
	factory := func(ctx context.Context) (pipeline.Assistant, error) {
		a, err := newAssistant(ctx)
		if err != nil {
			return nil, err
		}
		return a, nil
	}
	p := pipeline.New(factory, cache.New(), cfg.AssistantTTL, cfg.StageTimeout)

	// Local state: training ledger and question history
	database, err := db.New(cfg.BadgerPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	results, err := resultsStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize results storage: %v", err)
	}

	h := handlers.New(p, database, service.NewResultsStorage(results), pool)

	// Setup Gin router
	r := gin.Default()
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", "X-Trace-ID")
	corsConfig.ExposeHeaders = []string{"X-Trace-ID"}
	r.Use(cors.New(corsConfig))
	r.Use(observability.TraceMiddleware(), observability.MetricsMiddleware())

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h.Register(r)

	slog.Info("server starting", "port", cfg.Port, "driver", pool.Driver(), "assistant_ttl", cfg.AssistantTTL)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func resultsStore(ctx context.Context, cfg config.Config) (storage.ObjectStore, error) {
	if cfg.UsesS3Results() {
		return s3.New(ctx, cfg.Results)
	}
	return storage.NewLocal(cfg.Results.Dir)
}
